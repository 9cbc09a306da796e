package domain

import (
	"context"
	"sort"
)

// ReviewSource fetches reviews for one app from one upstream platform.
// An empty app id yields an empty result, not an error, so callers can
// omit a platform entirely.
type ReviewSource interface {
	Platform() Platform
	Fetch(ctx context.Context, appID string, p FetchParams) ([]Review, error)
}

// ReviewStore is the dedup/persistence boundary.
//
// Exists and Put are independent per identity and safe to call concurrently
// across identities. There is no cross-call locking: two overlapping runs can
// both observe "not exists" and both store-and-notify. Delivery is therefore
// at-least-once, by design of the store contract.
type ReviewStore interface {
	// Exists reports whether the identity has been seen before.
	Exists(ctx context.Context, identity string) (bool, error)
	// Put writes the review keyed by its identity, with expiry at ttl
	// (epoch seconds). Re-putting the same identity overwrites in place.
	Put(ctx context.Context, r Review, ttl int64) error
	// Scan is the bulk read path for the analytics side.
	Scan(ctx context.Context, q ScanQuery) ([]StoredReview, error)
}

// ScanQuery filters the analytics bulk read. Zero-value fields mean "any".
type ScanQuery struct {
	Limit    int
	AppID    string
	Platform Platform
}

// Notifier delivers review and error notifications to one webhook URL.
type Notifier interface {
	PostReview(ctx context.Context, url string, r Review) error
	PostError(ctx context.Context, url string, report ErrorReport) error
}

// ErrorReport is the payload of the best-effort failure side-channel.
type ErrorReport struct {
	ErrorType string
	Message   string
	Details   string
	Fields    []FieldError
	Timestamp string
}

// WebhookMap routes "platform:appId" keys to webhook URLs. Keys are exact,
// case-sensitive matches; a key with no entry simply gets no notification.
type WebhookMap map[string][]string

// URLs returns the destinations for a group key.
func (m WebhookMap) URLs(key string) []string { return m[key] }

// AllURLs returns every distinct configured URL, in stable order.
// Used by the run-failure side-channel, which targets all destinations.
func (m WebhookMap) AllURLs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, urls := range m {
		for _, u := range urls {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
