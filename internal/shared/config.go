package shared

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_tracker/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	AppleAppIDs  []string
	GoogleAppIDs []string
	Country      string
	ReviewLimit  int
	SortBy       domain.SortOrder
	WebhookMap   domain.WebhookMap

	StoreBackend string // redis | mysql
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	MySQLDSN     string

	ReviewTTL  time.Duration
	RunTimeout time.Duration
	Pacing     time.Duration // delay between messages to one webhook URL
	UpstreamRPS int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		AppleAppIDs:  ParseAppIDs(os.Getenv("APPLE_APP_IDS")),
		GoogleAppIDs: ParseAppIDs(os.Getenv("GOOGLE_APP_IDS")),
		Country:      env("COUNTRY", "gb"),
		ReviewLimit:  atoi("REVIEW_LIMIT", 10),
		SortBy:       sortOrder(os.Getenv("SORT_BY")),
		WebhookMap:   ParseWebhookMap(os.Getenv("WEBHOOK_MAP")),
		StoreBackend: env("STORE_BACKEND", "redis"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&loc=UTC"),
		ReviewTTL:    time.Duration(atoi("REVIEW_TTL_DAYS", 90)) * 24 * time.Hour,
		RunTimeout:   time.Duration(atoi("RUN_TIMEOUT_SECONDS", 120)) * time.Second,
		Pacing:       time.Duration(atoi("WEBHOOK_PACING_MS", 500)) * time.Millisecond,
		UpstreamRPS:  atoi("UPSTREAM_RPS", 5),
	}
	if c.ReviewLimit < 1 || c.ReviewLimit > 200 {
		log.Warn().Int("limit", c.ReviewLimit).Msg("REVIEW_LIMIT out of 1..200, using 10")
		c.ReviewLimit = 10
	}
	if len(c.WebhookMap) == 0 {
		log.Warn().Msg("WEBHOOK_MAP is empty; scheduled runs will fail fast")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func sortOrder(v string) domain.SortOrder {
	if v == string(domain.SortMostHelpful) {
		return domain.SortMostHelpful
	}
	return domain.SortMostRecent
}

// ParseAppIDs splits a comma-separated id list, trimming whitespace and any
// stray surrounding quotes that tend to leak in from deploy tooling.
func ParseAppIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.Trim(strings.TrimSpace(part), `"'`)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ParseWebhookMap decodes the WEBHOOK_MAP env JSON. Values may be a single
// URL string or a list of URLs; keys are "platform:appId". A malformed value
// is logged and yields an empty map rather than killing startup.
func ParseWebhookMap(raw string) domain.WebhookMap {
	m := domain.WebhookMap{}
	if raw == "" {
		return m
	}
	var loose map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		log.Error().Err(err).Msg("parse WEBHOOK_MAP failed")
		return m
	}
	for key, v := range loose {
		key = strings.TrimSpace(key)
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			if u := strings.TrimSpace(one); u != "" {
				m[key] = []string{u}
			}
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err != nil {
			log.Error().Str("key", key).Msg("WEBHOOK_MAP entry is neither URL nor URL list")
			continue
		}
		var urls []string
		for _, u := range many {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			m[key] = urls
		}
	}
	return m
}
