package mysql

import (
	"context"
	"database/sql"
	"errors"

	"review_tracker/internal/adapters/observability"
	"review_tracker/internal/domain"
)

// Repo is the SQL-backed ReviewStore, for deployments that want the dedup
// history in a durable relational table instead of Redis. Expiry is enforced
// on the read paths; PurgeExpired reclaims the rows.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Exists(ctx context.Context, identity string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, existsSQL, identity).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveStore("mysql", "new")
		return false, nil
	}
	if err != nil {
		observability.ObserveStore("mysql", "error")
		return false, &domain.StorageError{Op: "exists", Identity: identity, Err: err}
	}
	observability.ObserveStore("mysql", "seen")
	return true, nil
}

func (r *Repo) Put(ctx context.Context, rev domain.Review, ttl int64) error {
	identity := rev.Identity()
	_, err := r.db.ExecContext(ctx, upsertReviewSQL,
		identity,
		string(rev.Platform),
		rev.AppID,
		rev.Rating,
		rev.Title,
		rev.Content,
		rev.Author,
		rev.Date,
		nullStr(rev.Version),
		rev.Helpful,
		rev.CreatedAt,
		ttl,
	)
	if err != nil {
		observability.ObserveStore("mysql", "error")
		return &domain.StorageError{Op: "put", Identity: identity, Err: err}
	}
	observability.ObserveStore("mysql", "put")
	return nil
}

func (r *Repo) Scan(ctx context.Context, q domain.ScanQuery) ([]domain.StoredReview, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := scanSQLPrefix
	var args []any
	if q.AppID != "" {
		query += " AND app_id = ?"
		args = append(args, q.AppID)
	}
	if q.Platform != "" {
		query += " AND platform = ?"
		args = append(args, string(q.Platform))
	}
	query += " ORDER BY created_at_ms DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		observability.ObserveStore("mysql", "error")
		return nil, &domain.StorageError{Op: "scan", Err: err}
	}
	defer rows.Close()

	var out []domain.StoredReview
	for rows.Next() {
		var (
			rec      domain.StoredReview
			key      string
			platform string
			version  sql.NullString
		)
		if err := rows.Scan(&key, &platform, &rec.AppID, &rec.Rating, &rec.Title,
			&rec.Content, &rec.Author, &rec.Date, &version, &rec.Helpful,
			&rec.CreatedAt, &rec.TTL); err != nil {
			return nil, &domain.StorageError{Op: "scan", Identity: key, Err: err}
		}
		rec.Platform = domain.Platform(platform)
		rec.Version = version.String
		// review id is the tail of the composite key
		rec.ID = idFromKey(key)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "scan", Err: err}
	}
	return out, nil
}

// PurgeExpired deletes rows past their expiry; returns rows removed.
func (r *Repo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, purgeExpiredSQL)
	if err != nil {
		return 0, &domain.StorageError{Op: "purge", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func idFromKey(key string) string {
	// key shape: platform#appId#id; the id may itself contain '#', so cut
	// after the second separator only.
	first := -1
	for i := 0; i < len(key); i++ {
		if key[i] != '#' {
			continue
		}
		if first == -1 {
			first = i
			continue
		}
		return key[i+1:]
	}
	return key
}
