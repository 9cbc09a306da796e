package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_tracker/internal/adapters/appstore"
	server "review_tracker/internal/adapters/http_server"
	"review_tracker/internal/adapters/observability"
	"review_tracker/internal/adapters/playstore"
	"review_tracker/internal/adapters/slack"
	"review_tracker/internal/app"
	"review_tracker/internal/domain"
	"review_tracker/internal/shared"
	mysqlrepo "review_tracker/internal/storage/mysql"
	redisstore "review_tracker/internal/storage/redis"
)

const version = "1.0.0"

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr)

	store := buildStore(cfg)

	// deps
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

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Check:     app.NewCheckService(pipe),
		Pipe:      pipe,
		Analytics: app.NewAnalyticsService(store),
		Version:   version,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.StoreBackend).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func buildStore(cfg shared.Config) domain.ReviewStore {
	if cfg.StoreBackend == "mysql" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db)
	}
	return redisstore.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
}
