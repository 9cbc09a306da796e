package app_test

import (
	"context"
	"sync"

	"review_tracker/internal/domain"
)

// ---- fakes shared by the app tests ----

type fakeSource struct {
	mu       sync.Mutex
	platform domain.Platform
	reviews  map[string][]domain.Review
	errs     map[string]error
	fetched  []string
}

func (f *fakeSource) Platform() domain.Platform { return f.platform }

func (f *fakeSource) Fetch(ctx context.Context, appID string, _ domain.FetchParams) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, appID)
	if err := f.errs[appID]; err != nil {
		return nil, err
	}
	return f.reviews[appID], nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type fakeStore struct {
	mu        sync.Mutex
	existing  map[string]bool
	existsErr map[string]error
	putErr    map[string]error
	puts      []string
	scanOut   []domain.StoredReview
}

func (s *fakeStore) Exists(ctx context.Context, identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.existsErr[identity]; err != nil {
		return false, err
	}
	return s.existing[identity], nil
}

func (s *fakeStore) Put(ctx context.Context, r domain.Review, ttl int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity := r.Identity()
	if err := s.putErr[identity]; err != nil {
		return err
	}
	s.puts = append(s.puts, identity)
	if s.existing == nil {
		s.existing = map[string]bool{}
	}
	s.existing[identity] = true
	return nil
}

func (s *fakeStore) Scan(ctx context.Context, q domain.ScanQuery) ([]domain.StoredReview, error) {
	return s.scanOut, nil
}

func (s *fakeStore) stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.puts))
	copy(out, s.puts)
	return out
}

type fakeNotifier struct {
	mu      sync.Mutex
	posts   map[string][]domain.Review
	fail    map[string]bool
	reports map[string][]domain.ErrorReport
	failErr bool // PostError also fails
}

func (n *fakeNotifier) PostReview(ctx context.Context, url string, r domain.Review) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[url] {
		return &domain.NotificationError{URL: url, Err: context.DeadlineExceeded}
	}
	if n.posts == nil {
		n.posts = map[string][]domain.Review{}
	}
	n.posts[url] = append(n.posts[url], r)
	return nil
}

func (n *fakeNotifier) PostError(ctx context.Context, url string, rep domain.ErrorReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failErr {
		return &domain.NotificationError{URL: url, Err: context.DeadlineExceeded}
	}
	if n.reports == nil {
		n.reports = map[string][]domain.ErrorReport{}
	}
	n.reports[url] = append(n.reports[url], rep)
	return nil
}

func (n *fakeNotifier) delivered(url string) []domain.Review {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Review, len(n.posts[url]))
	copy(out, n.posts[url])
	return out
}

func (n *fakeNotifier) errorReports(url string) []domain.ErrorReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.ErrorReport, len(n.reports[url]))
	copy(out, n.reports[url])
	return out
}

func review(platform domain.Platform, appID, id string, rating int) domain.Review {
	return domain.Review{
		ID: id, Platform: platform, AppID: appID, Rating: rating,
		Title: "t-" + id, Content: "c-" + id, Author: "a-" + id,
		Date: "2024-03-01T10:00:00Z", CreatedAt: 1709287200000,
	}
}
