package appstore

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"review_tracker/internal/adapters/observability"
	"review_tracker/internal/domain"
)

const DefaultBaseURL = "https://itunes.apple.com"

// Client fetches reviews from the public App Store customer-reviews RSS feed.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) Platform() domain.Platform { return domain.PlatformApple }

// Fetch returns the unified reviews for one app id. An empty id (after
// trimming and quote-stripping) yields an empty result so callers can leave
// the platform unconfigured. Individual malformed feed entries are skipped
// with a warning; only transport/HTTP/payload failures fail the whole call.
func (c *Client) Fetch(ctx context.Context, appID string, p domain.FetchParams) ([]domain.Review, error) {
	id := strings.Trim(strings.TrimSpace(appID), `"'`)
	if id == "" {
		return nil, nil
	}

	country := p.Country
	if country == "" {
		country = "gb"
	}
	limit := p.Limit
	if limit < 1 || limit > 200 {
		limit = 10
	}
	sortBy := p.SortBy
	if sortBy != domain.SortMostHelpful {
		sortBy = domain.SortMostRecent
	}

	url := fmt.Sprintf("%s/%s/rss/customerreviews/id=%s/sortBy=%s/json?first=%d",
		c.base, country, id, sortBy, limit)

	var resp feedResponse
	err := c.get(ctx, url, &resp)
	observability.ObserveFetch(string(domain.PlatformApple), err)
	if err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, 0, len(resp.Feed.Entry))
	for _, e := range resp.Feed.Entry {
		r, err := mapEntry(id, e)
		if err != nil {
			// one bad entry must not discard the rest of the batch
			log.Warn().Err(err).Str("app_id", id).Msg("skipping malformed review entry")
			continue
		}
		reviews = append(reviews, r)
	}
	log.Debug().Str("app_id", id).Int("count", len(reviews)).Msg("fetched apple reviews")
	return reviews, nil
}

// ---- feed payload ----
//
// The feed wraps every scalar in a {"label": ...} object, and "entry" is an
// array normally but a bare object when there is exactly one review.

type label struct {
	Label string `json:"label"`
}

type feedEntry struct {
	ID      label `json:"id"`
	Title   label `json:"title"`
	Content label `json:"content"`
	Updated label `json:"updated"`
	Author  struct {
		Name label `json:"name"`
	} `json:"author"`
	Rating    label `json:"im:rating"`
	Version   label `json:"im:version"`
	VoteCount label `json:"im:voteCount"`
}

type entryList []feedEntry

func (e *entryList) UnmarshalJSON(b []byte) error {
	var many []feedEntry
	if err := json.Unmarshal(b, &many); err == nil {
		*e = many
		return nil
	}
	var one feedEntry
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*e = entryList{one}
	return nil
}

type feedResponse struct {
	Feed struct {
		Entry entryList `json:"entry"`
	} `json:"feed"`
}

func mapEntry(appID string, e feedEntry) (domain.Review, error) {
	if e.ID.Label == "" {
		return domain.Review{}, fmt.Errorf("entry has no id")
	}

	date := e.Updated.Label
	created := time.Now()
	if date == "" {
		date = created.UTC().Format(time.RFC3339)
	} else if t, err := time.Parse(time.RFC3339, date); err == nil {
		created = t
	}

	rating, _ := strconv.Atoi(e.Rating.Label)
	helpful, _ := strconv.Atoi(e.VoteCount.Label)
	if helpful < 0 {
		helpful = 0
	}

	return domain.Review{
		ID:        e.ID.Label,
		Platform:  domain.PlatformApple,
		AppID:     appID,
		Rating:    clampRating(rating),
		Title:     e.Title.Label,
		Content:   e.Content.Label,
		Author:    e.Author.Name.Label,
		Date:      date,
		Version:   e.Version.Label,
		Helpful:   helpful,
		CreatedAt: created.UnixMilli(),
	}, nil
}

func clampRating(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// ---- transport ----

// get performs a GET with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-tracker/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &domain.UpstreamError{Platform: domain.PlatformApple, AppID: appIDFromURL(url), Err: lastErr}
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return &domain.UpstreamError{Platform: domain.PlatformApple, AppID: appIDFromURL(url), Err: fmt.Errorf("decode feed: %w", err)}
			}
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &domain.UpstreamError{Platform: domain.PlatformApple, AppID: appIDFromURL(url), Status: resp.StatusCode}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &domain.UpstreamError{Platform: domain.PlatformApple, AppID: appIDFromURL(url), Status: resp.StatusCode}
		}
	}

	return lastErr
}

// appIDFromURL recovers the app id from a feed URL for error reporting.
func appIDFromURL(url string) string {
	const marker = "/id="
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	rest := url[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[:j]
	}
	return rest
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns exponential delay (200ms, 400ms, 800ms...) with up to +50%
// jitter from crypto/rand, which is safe under concurrent fetches.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
