package app

import (
	"context"
	"fmt"
	"sort"

	"review_tracker/internal/domain"
)

// AnalyticsService is the thin read side: scan the store and aggregate.
type AnalyticsService struct {
	store domain.ReviewStore
}

func NewAnalyticsService(store domain.ReviewStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

type AppStats struct {
	AppID         string `json:"appId"`
	Platform      string `json:"platform"`
	Count         int    `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

type RecentReview struct {
	ReviewID string `json:"reviewId"`
	Platform string `json:"platform"`
	AppID    string `json:"appId"`
	Rating   int    `json:"rating"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Date     int64  `json:"date"`
}

type AnalyticsSummary struct {
	TotalReviews    int            `json:"totalReviews"`
	ReviewsByApp    []AppStats     `json:"reviewsByApp"`
	ReviewsByRating map[string]int `json:"reviewsByRating"`
	RecentReviews   []RecentReview `json:"recentReviews"`
}

const recentReviewCap = 50

// Summary scans stored reviews (optionally filtered by app/platform) and
// aggregates totals, per-app averages, a rating histogram, and the most
// recent reviews.
func (s *AnalyticsService) Summary(ctx context.Context, q domain.ScanQuery) (AnalyticsSummary, error) {
	if q.Limit <= 0 {
		q.Limit = 1000
	}
	records, err := s.store.Scan(ctx, q)
	if err != nil {
		return AnalyticsSummary{}, err
	}

	type agg struct {
		stats AppStats
		total int
	}
	byApp := make(map[string]*agg)
	byRating := make(map[string]int)

	for _, rec := range records {
		key := fmt.Sprintf("%s#%s", rec.Platform, rec.AppID)
		a, ok := byApp[key]
		if !ok {
			a = &agg{stats: AppStats{AppID: rec.AppID, Platform: string(rec.Platform)}}
			byApp[key] = a
		}
		a.stats.Count++
		a.total += rec.Rating
		byRating[fmt.Sprintf("%d", rec.Rating)]++
	}

	apps := make([]AppStats, 0, len(byApp))
	for _, a := range byApp {
		a.stats.AverageRating = float64(a.total) / float64(a.stats.Count)
		apps = append(apps, a.stats)
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Platform != apps[j].Platform {
			return apps[i].Platform < apps[j].Platform
		}
		return apps[i].AppID < apps[j].AppID
	})

	sorted := make([]domain.StoredReview, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	if len(sorted) > recentReviewCap {
		sorted = sorted[:recentReviewCap]
	}
	recent := make([]RecentReview, len(sorted))
	for i, rec := range sorted {
		recent[i] = RecentReview{
			ReviewID: rec.Identity(),
			Platform: string(rec.Platform),
			AppID:    rec.AppID,
			Rating:   rec.Rating,
			Title:    rec.Title,
			Author:   rec.Author,
			Date:     rec.CreatedAt,
		}
	}

	return AnalyticsSummary{
		TotalReviews:    len(records),
		ReviewsByApp:    apps,
		ReviewsByRating: byRating,
		RecentReviews:   recent,
	}, nil
}
