package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_tracker/internal/domain"
)

// PipelineConfig carries the scheduled run's configuration, resolved once at
// process start and read-only afterwards.
type PipelineConfig struct {
	AppleAppIDs  []string
	GoogleAppIDs []string
	Params       domain.FetchParams
	Webhooks     domain.WebhookMap
	TTL          time.Duration // record lifetime, default 90 days
}

// Pipeline is the ingestion run: aggregate -> dedup -> persist -> group ->
// dispatch, one terminal pass per invocation. Retrying across invocations is
// the external scheduler's job.
type Pipeline struct {
	agg   *Aggregator
	store domain.ReviewStore
	disp  *Dispatcher
	cfg   PipelineConfig
}

func NewPipeline(agg *Aggregator, store domain.ReviewStore, disp *Dispatcher, cfg PipelineConfig) *Pipeline {
	if cfg.TTL <= 0 {
		cfg.TTL = 90 * 24 * time.Hour
	}
	return &Pipeline{agg: agg, store: store, disp: disp, cfg: cfg}
}

// RunOverrides are per-invocation overrides supplied by the trigger event.
// Zero values defer to the configured defaults.
type RunOverrides struct {
	AppleAppIDs  []string
	GoogleAppIDs []string
	Country      string
	Limit        int
	SortBy       domain.SortOrder
}

// Run executes one full ingestion batch. On a fatal error it first tries to
// notify every known destination, then returns the original error unchanged.
func (p *Pipeline) Run(ctx context.Context, ov RunOverrides) (domain.RunResult, error) {
	res, err := p.run(ctx, ov)
	if err != nil {
		p.notifyRunFailure(ctx, err)
		return res, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, ov RunOverrides) (domain.RunResult, error) {
	if len(p.cfg.Webhooks) == 0 {
		return domain.RunResult{}, &domain.RunError{Reason: "misconfigured destinations", Err: domain.ErrNoDestinations}
	}

	appleIDs := ov.AppleAppIDs
	if len(appleIDs) == 0 {
		appleIDs = p.cfg.AppleAppIDs
	}
	googleIDs := ov.GoogleAppIDs
	if len(googleIDs) == 0 {
		googleIDs = p.cfg.GoogleAppIDs
	}
	if len(appleIDs) == 0 && len(googleIDs) == 0 {
		log.Info().Msg("no app ids configured, nothing to do")
		return domain.RunResult{}, nil
	}

	params := p.cfg.Params
	if ov.Country != "" {
		params.Country = ov.Country
	}
	if ov.Limit > 0 {
		params.Limit = ov.Limit
	}
	if ov.SortBy != "" {
		params.SortBy = ov.SortBy
	}

	log.Info().Int("apple", len(appleIDs)).Int("google", len(googleIDs)).Msg("review check starting")

	fetched, err := p.agg.FetchForApps(ctx, appleIDs, googleIDs, params)
	if err != nil {
		return domain.RunResult{}, err
	}

	newReviews := p.storeNew(ctx, fetched)
	groups := groupByDestination(newReviews)

	log.Info().
		Int("fetched", len(fetched)).
		Int("new", len(newReviews)).
		Int("destinations", len(groups)).
		Msg("review check done, dispatching")

	p.disp.Dispatch(ctx, groups, p.cfg.Webhooks)

	return domain.RunResult{TotalFetched: len(fetched), NewReviews: newReviews}, nil
}

// storeNew filters out already-seen reviews and persists the rest, checking
// and writing concurrently across identities. A failed existence check counts
// as "not seen": ingestion keeps going and the review may be notified twice
// across runs, which we prefer over silently dropping it. A failed write
// excludes the review from the notify set; reviews we could not durably store
// are not announced.
func (p *Pipeline) storeNew(ctx context.Context, fetched []domain.Review) []domain.Review {
	if len(fetched) == 0 {
		return nil
	}

	kept := make([]bool, len(fetched))
	ttl := time.Now().Add(p.cfg.TTL).Unix()

	var g errgroup.Group
	for i := range fetched {
		i := i
		g.Go(func() error {
			r := fetched[i]
			identity := r.Identity()

			seen, err := p.store.Exists(ctx, identity)
			if err != nil {
				log.Warn().Err(err).Str("review", identity).
					Msg("existence check failed, treating as not seen")
			}
			if seen {
				return nil
			}
			if err := p.store.Put(ctx, r, ttl); err != nil {
				log.Error().Err(err).Str("review", identity).
					Msg("persist failed, excluding from notifications")
				return nil
			}
			kept[i] = true
			return nil
		})
	}
	_ = g.Wait()

	// compact in fetch order so per-URL message order is stable
	var out []domain.Review
	for i, k := range kept {
		if k {
			out = append(out, fetched[i])
		}
	}
	return out
}

func groupByDestination(reviews []domain.Review) map[string][]domain.Review {
	groups := make(map[string][]domain.Review)
	for _, r := range reviews {
		key := r.GroupKey()
		groups[key] = append(groups[key], r)
	}
	return groups
}

// notifyRunFailure reports a fatal run error to every known destination.
// Strictly best-effort: its own failures are logged and never mask err.
func (p *Pipeline) notifyRunFailure(ctx context.Context, err error) {
	urls := p.cfg.Webhooks.AllURLs()
	if len(urls) == 0 {
		log.Error().Err(err).Msg("run failed with no destinations to notify")
		return
	}
	report := reportFor(err, "scheduled review check")
	for _, url := range urls {
		if perr := p.disp.notifier.PostError(ctx, url, report); perr != nil {
			log.Error().Err(perr).Str("url", url).Msg("failed to deliver error notification")
		}
	}
}

// reportFor classifies err into the failure side-channel payload.
func reportFor(err error, operation string) domain.ErrorReport {
	now := time.Now().UTC().Format(time.RFC3339)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return domain.ErrorReport{
			ErrorType: "Validation Error",
			Message:   "Invalid parameters provided for " + operation,
			Details:   ve.Error(),
			Fields:    ve.Fields,
			Timestamp: now,
		}
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return domain.ErrorReport{
			ErrorType: "Upstream Fetch Error",
			Message:   "Failed to fetch reviews during " + operation,
			Details:   err.Error(),
			Timestamp: now,
		}
	}
	return domain.ErrorReport{
		ErrorType: "Processing Error",
		Message:   "An error occurred during " + operation,
		Details:   err.Error(),
		Timestamp: now,
	}
}
