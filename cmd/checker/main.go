package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_tracker/internal/adapters/appstore"
	"review_tracker/internal/adapters/observability"
	"review_tracker/internal/adapters/playstore"
	"review_tracker/internal/adapters/slack"
	"review_tracker/internal/app"
	"review_tracker/internal/domain"
	"review_tracker/internal/shared"
	mysqlrepo "review_tracker/internal/storage/mysql"
	redisstore "review_tracker/internal/storage/redis"
)

// checker runs one full review check and exits. Scheduling is the job of
// whatever invokes it (cron, a systemd timer, a container scheduler).
func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("apple", len(cfg.AppleAppIDs)).
		Int("google", len(cfg.GoogleAppIDs)).
		Str("backend", cfg.StoreBackend).
		Msg("checker starting")

	store, purge := buildStore(cfg)

	apple := appstore.New(appstore.DefaultBaseURL, cfg.UpstreamRPS)
	google := playstore.New()
	agg := app.NewAggregator(apple, google)
	disp := app.NewDispatcher(slack.New(), cfg.Pacing)
	pipe := app.NewPipeline(agg, store, disp, app.PipelineConfig{
		AppleAppIDs:  cfg.AppleAppIDs,
		GoogleAppIDs: cfg.GoogleAppIDs,
		Params: domain.FetchParams{
			Country: cfg.Country,
			Limit:   cfg.ReviewLimit,
			SortBy:  cfg.SortBy,
		},
		Webhooks: cfg.WebhookMap,
		TTL:      cfg.ReviewTTL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	res, err := pipe.Run(ctx, app.RunOverrides{})
	if err != nil {
		log.Fatal().Err(err).Msg("review check failed")
	}

	if purge != nil {
		if n, err := purge(ctx); err != nil {
			log.Warn().Err(err).Msg("expired-review purge failed")
		} else if n > 0 {
			log.Info().Int64("purged", n).Msg("expired reviews purged")
		}
	}

	log.Info().
		Int("fetched", res.TotalFetched).
		Int("new", len(res.NewReviews)).
		Msg("review check completed")
}

// buildStore returns the configured store and, for backends without native
// expiry, a purge hook to run after the check.
func buildStore(cfg shared.Config) (domain.ReviewStore, func(context.Context) (int64, error)) {
	if cfg.StoreBackend == "mysql" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		repo := mysqlrepo.New(db)
		return repo, repo.PurgeExpired
	}
	return redisstore.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB), nil
}
