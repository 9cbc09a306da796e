package app_test

import (
	"context"
	"testing"

	"review_tracker/internal/app"
	"review_tracker/internal/domain"
)

func storedReview(platform domain.Platform, appID, id string, rating int, createdAt int64) domain.StoredReview {
	r := review(platform, appID, id, rating)
	r.CreatedAt = createdAt
	return domain.StoredReview{Review: r, TTL: 9999999999}
}

func TestSummary_Aggregates(t *testing.T) {
	store := &fakeStore{scanOut: []domain.StoredReview{
		storedReview(domain.PlatformApple, "123", "a", 5, 300),
		storedReview(domain.PlatformApple, "123", "b", 3, 100),
		storedReview(domain.PlatformGoogle, "com.x", "c", 5, 200),
	}}
	svc := app.NewAnalyticsService(store)

	sum, err := svc.Summary(context.Background(), domain.ScanQuery{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sum.TotalReviews != 3 {
		t.Fatalf("total: %d", sum.TotalReviews)
	}
	if len(sum.ReviewsByApp) != 2 {
		t.Fatalf("apps: %+v", sum.ReviewsByApp)
	}
	appleStats := sum.ReviewsByApp[0]
	if appleStats.AppID != "123" || appleStats.Count != 2 || appleStats.AverageRating != 4.0 {
		t.Fatalf("apple stats: %+v", appleStats)
	}
	if sum.ReviewsByRating["5"] != 2 || sum.ReviewsByRating["3"] != 1 {
		t.Fatalf("histogram: %+v", sum.ReviewsByRating)
	}
	// newest first
	if len(sum.RecentReviews) != 3 || sum.RecentReviews[0].Date != 300 || sum.RecentReviews[2].Date != 100 {
		t.Fatalf("recent: %+v", sum.RecentReviews)
	}
}
