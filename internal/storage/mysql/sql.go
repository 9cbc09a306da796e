package mysql

// Schema is applied by deploy tooling (and by the integration test).
// expires_at is epoch seconds; reads filter expired rows, a periodic
// DELETE keeps the table bounded.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS reviews (
  review_key    VARCHAR(512)  NOT NULL,
  platform      VARCHAR(16)   NOT NULL,
  app_id        VARCHAR(256)  NOT NULL,
  rating        TINYINT       NOT NULL,
  title         TEXT,
  content       TEXT,
  author        VARCHAR(256),
  review_date   VARCHAR(64),
  version       VARCHAR(64),
  helpful       INT           NOT NULL DEFAULT 0,
  created_at_ms BIGINT        NOT NULL,
  expires_at    BIGINT        NOT NULL,
  PRIMARY KEY (review_key),
  KEY idx_app_platform (app_id, platform),
  KEY idx_expires (expires_at)
)
`

const existsSQL = `
SELECT 1 FROM reviews WHERE review_key = ? AND expires_at > UNIX_TIMESTAMP()
`

// Unconditional put: the same identity always carries identical data, so the
// update arm just rewrites the row and refreshes expiry.
const upsertReviewSQL = `
INSERT INTO reviews
  (review_key, platform, app_id, rating, title, content, author, review_date, version, helpful, created_at_ms, expires_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  rating        = VALUES(rating),
  title         = VALUES(title),
  content       = VALUES(content),
  author        = VALUES(author),
  review_date   = VALUES(review_date),
  version       = VALUES(version),
  helpful       = VALUES(helpful),
  created_at_ms = VALUES(created_at_ms),
  expires_at    = VALUES(expires_at)
`

const scanSQLPrefix = `
SELECT review_key, platform, app_id, rating, title, content, author, review_date, version, helpful, created_at_ms, expires_at
FROM reviews
WHERE expires_at > UNIX_TIMESTAMP()
`

const purgeExpiredSQL = `
DELETE FROM reviews WHERE expires_at <= UNIX_TIMESTAMP()
`
