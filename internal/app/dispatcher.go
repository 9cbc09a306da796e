package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_tracker/internal/adapters/observability"
	"review_tracker/internal/domain"
)

// Dispatcher routes grouped reviews to their webhook destinations. Different
// URLs are fed concurrently; messages to one URL go out sequentially with a
// fixed pacing delay to stay inside the destination's rate limits.
type Dispatcher struct {
	notifier domain.Notifier
	pacing   time.Duration
}

func NewDispatcher(n domain.Notifier, pacing time.Duration) *Dispatcher {
	return &Dispatcher{notifier: n, pacing: pacing}
}

// Dispatch delivers every group present in both the grouped reviews and the
// destination map. A group with no configured destination is skipped with a
// warning; per-URL failures never propagate.
func (d *Dispatcher) Dispatch(ctx context.Context, groups map[string][]domain.Review, webhooks domain.WebhookMap) {
	var wg sync.WaitGroup
	for key, reviews := range groups {
		urls := webhooks.URLs(key)
		if len(urls) == 0 {
			observability.ObserveDelivery("skipped")
			log.Warn().Str("destination", key).Int("reviews", len(reviews)).
				Msg("no webhook configured for destination, skipping")
			continue
		}
		for _, url := range urls {
			wg.Add(1)
			go func(url string, reviews []domain.Review) {
				defer wg.Done()
				d.DeliverTo(ctx, url, reviews)
			}(url, reviews)
		}
	}
	wg.Wait()
}

// DeliverTo posts reviews to one URL in order. A failed post abandons the
// remainder of this URL's batch; other URLs are unaffected.
func (d *Dispatcher) DeliverTo(ctx context.Context, url string, reviews []domain.Review) {
	for i, r := range reviews {
		if i > 0 && !pause(ctx, d.pacing) {
			return
		}
		if err := d.notifier.PostReview(ctx, url, r); err != nil {
			observability.ObserveDelivery("error")
			log.Error().Err(err).Str("url", url).Str("review", r.Identity()).
				Msg("webhook delivery failed")
			return
		}
		observability.ObserveDelivery("ok")
	}
}

// pause waits for d, returning false if ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
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
