package domain

import "fmt"

type Platform string

const (
	PlatformApple  Platform = "apple"
	PlatformGoogle Platform = "google"
)

type SortOrder string

const (
	SortMostRecent  SortOrder = "mostRecent"
	SortMostHelpful SortOrder = "mostHelpful"
)

// Review is the platform-agnostic form of one app-store review.
// Built once by a source adapter and immutable afterwards.
type Review struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	AppID    string   `json:"appId"`
	Rating   int      `json:"rating"` // 1..5
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Author   string   `json:"author"`
	Date     string   `json:"date"` // upstream-reported, ISO-8601
	Version  string   `json:"version,omitempty"`
	Helpful  int      `json:"helpful,omitempty"`
	// CreatedAt is Date parsed to epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// Identity is the composite natural key "platform#appId#id". It is a pure
// function of the review, so the same review always dedups to the same record.
func (r Review) Identity() string {
	return fmt.Sprintf("%s#%s#%s", r.Platform, r.AppID, r.ID)
}

// GroupKey is the "platform:appId" key used to route notifications.
func (r Review) GroupKey() string {
	return fmt.Sprintf("%s:%s", r.Platform, r.AppID)
}

// StoredReview is the persisted form: the review plus its expiry epoch-seconds.
type StoredReview struct {
	Review
	TTL int64 `json:"ttl"`
}

// FetchParams are the shared upstream-query knobs.
type FetchParams struct {
	Country string
	Limit   int
	SortBy  SortOrder
}

// RunResult summarizes one completed ingestion run.
type RunResult struct {
	TotalFetched int
	NewReviews   []Review
}
