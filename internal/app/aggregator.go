package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_tracker/internal/domain"
)

// Aggregator fans review fetches out across every configured (platform, app
// id) pair and flattens the results. Output order is not significant.
type Aggregator struct {
	apple  domain.ReviewSource
	google domain.ReviewSource
}

func NewAggregator(apple, google domain.ReviewSource) *Aggregator {
	return &Aggregator{apple: apple, google: google}
}

type fetchTask struct {
	src   domain.ReviewSource
	appID string
}

// FetchForApps issues one fetch per pair, all concurrently, and waits for the
// full set. A failing pair is logged and contributes nothing; the aggregation
// itself fails only when every pair failed.
func (a *Aggregator) FetchForApps(ctx context.Context, appleIDs, googleIDs []string, p domain.FetchParams) ([]domain.Review, error) {
	var tasks []fetchTask
	for _, id := range appleIDs {
		tasks = append(tasks, fetchTask{a.apple, id})
	}
	for _, id := range googleIDs {
		tasks = append(tasks, fetchTask{a.google, id})
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	results := make([][]domain.Review, len(tasks))
	failures := make([]error, len(tasks))

	var g errgroup.Group
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			rs, err := t.src.Fetch(ctx, t.appID, p)
			if err != nil {
				log.Warn().Err(err).
					Str("platform", string(t.src.Platform())).
					Str("app_id", t.appID).
					Msg("upstream fetch failed, continuing without it")
				failures[i] = err
				return nil
			}
			results[i] = rs
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var firstErr error
	for _, err := range failures {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if failed == len(tasks) {
		return nil, &domain.RunError{Reason: "every upstream fetch failed", Err: firstErr}
	}

	var flat []domain.Review
	for _, rs := range results {
		flat = append(flat, rs...)
	}
	return flat, nil
}

// FetchForSingleApp fetches both platforms for one pair of optional app ids.
// Used by the on-demand query path.
func (a *Aggregator) FetchForSingleApp(ctx context.Context, appleID, googleID string, p domain.FetchParams) ([]domain.Review, error) {
	var appleIDs, googleIDs []string
	if appleID != "" {
		appleIDs = []string{appleID}
	}
	if googleID != "" {
		googleIDs = []string{googleID}
	}
	return a.FetchForApps(ctx, appleIDs, googleIDs, p)
}
