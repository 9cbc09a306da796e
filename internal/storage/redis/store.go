package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"review_tracker/internal/adapters/observability"
	"review_tracker/internal/domain"
)

const keyPrefix = "review:"

// Store is the primary dedup/persistence backend: one JSON value per review
// identity, expiring natively via the key TTL.
type Store struct {
	c *redis.Client
}

func New(addr, pass string, db int) *Store {
	return &Store{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (s *Store) Exists(ctx context.Context, identity string) (bool, error) {
	n, err := s.c.Exists(ctx, keyPrefix+identity).Result()
	if err != nil {
		observability.ObserveStore("redis", "error")
		return false, &domain.StorageError{Op: "exists", Identity: identity, Err: err}
	}
	if n > 0 {
		observability.ObserveStore("redis", "seen")
		return true, nil
	}
	observability.ObserveStore("redis", "new")
	return false, nil
}

// Put is an unconditional SET: re-storing an identity overwrites in place and
// refreshes its expiry.
func (s *Store) Put(ctx context.Context, r domain.Review, ttl int64) error {
	identity := r.Identity()
	b, err := json.Marshal(domain.StoredReview{Review: r, TTL: ttl})
	if err != nil {
		return &domain.StorageError{Op: "put", Identity: identity, Err: err}
	}
	expiry := time.Until(time.Unix(ttl, 0))
	if expiry <= 0 {
		expiry = time.Minute
	}
	if err := s.c.Set(ctx, keyPrefix+identity, b, expiry).Err(); err != nil {
		observability.ObserveStore("redis", "error")
		return &domain.StorageError{Op: "put", Identity: identity, Err: err}
	}
	observability.ObserveStore("redis", "put")
	return nil
}

// Scan walks the review keyspace for the analytics read path. Order is
// whatever SCAN yields; the read side sorts what it needs.
func (s *Store) Scan(ctx context.Context, q domain.ScanQuery) ([]domain.StoredReview, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	var out []domain.StoredReview
	var cursor uint64
	for {
		keys, next, err := s.c.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			observability.ObserveStore("redis", "error")
			return nil, &domain.StorageError{Op: "scan", Err: err}
		}
		if len(keys) > 0 {
			vals, err := s.c.MGet(ctx, keys...).Result()
			if err != nil {
				observability.ObserveStore("redis", "error")
				return nil, &domain.StorageError{Op: "scan", Err: err}
			}
			for _, v := range vals {
				str, ok := v.(string)
				if !ok {
					continue // key expired between SCAN and MGET
				}
				var rec domain.StoredReview
				if err := json.Unmarshal([]byte(str), &rec); err != nil {
					log.Warn().Err(err).Msg("skipping undecodable stored review")
					continue
				}
				if q.AppID != "" && rec.AppID != q.AppID {
					continue
				}
				if q.Platform != "" && rec.Platform != q.Platform {
					continue
				}
				out = append(out, rec)
				if len(out) >= limit {
					return out, nil
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
