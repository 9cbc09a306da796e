package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"review_tracker/internal/domain"
	redisstore "review_tracker/internal/storage/redis"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisstore.New(mr.Addr(), "", 0), mr
}

func rev(platform domain.Platform, appID, id string, rating int) domain.Review {
	return domain.Review{
		ID: id, Platform: platform, AppID: appID, Rating: rating,
		Title: "t", Content: "c", Author: "a",
		Date: "2024-03-01T10:00:00Z", CreatedAt: 1709287200000,
	}
}

func TestPutThenExists(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	r := rev(domain.PlatformApple, "123", "r1", 5)
	ttl := time.Now().Add(time.Hour).Unix()

	ok, err := s.Exists(ctx, r.Identity())
	if err != nil || ok {
		t.Fatalf("fresh identity should not exist: %v %v", ok, err)
	}
	if err := s.Put(ctx, r, ttl); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err = s.Exists(ctx, r.Identity())
	if err != nil || !ok {
		t.Fatalf("stored identity should exist: %v %v", ok, err)
	}
	// unconditional overwrite, no error
	if err := s.Put(ctx, r, ttl); err != nil {
		t.Fatalf("re-put must be idempotent: %v", err)
	}
}

func TestPut_ExpiresAtTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	r := rev(domain.PlatformApple, "123", "r1", 5)

	if err := s.Put(ctx, r, time.Now().Add(time.Hour).Unix()); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	ok, err := s.Exists(ctx, r.Identity())
	if err != nil || ok {
		t.Fatalf("record should expire after its ttl: %v %v", ok, err)
	}
}

func TestScan_FiltersAndLimit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	ttl := time.Now().Add(time.Hour).Unix()

	for _, r := range []domain.Review{
		rev(domain.PlatformApple, "123", "a", 5),
		rev(domain.PlatformApple, "123", "b", 3),
		rev(domain.PlatformGoogle, "123", "c", 4),
		rev(domain.PlatformApple, "456", "d", 2),
	} {
		if err := s.Put(ctx, r, ttl); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	all, err := s.Scan(ctx, domain.ScanQuery{})
	if err != nil || len(all) != 4 {
		t.Fatalf("scan all: %d %v", len(all), err)
	}

	apple123, err := s.Scan(ctx, domain.ScanQuery{AppID: "123", Platform: domain.PlatformApple})
	if err != nil {
		t.Fatalf("scan filtered: %v", err)
	}
	if len(apple123) != 2 {
		t.Fatalf("expected 2 apple/123 records, got %d", len(apple123))
	}
	for _, rec := range apple123 {
		if rec.AppID != "123" || rec.Platform != domain.PlatformApple {
			t.Fatalf("filter leak: %+v", rec)
		}
	}

	limited, err := s.Scan(ctx, domain.ScanQuery{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("limit: %d %v", len(limited), err)
	}
}

func TestScan_RoundTripsRecord(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	r := rev(domain.PlatformApple, "123", "r1", 5)
	r.Version = "2.0"
	r.Helpful = 7
	ttl := time.Now().Add(time.Hour).Unix()

	if err := s.Put(ctx, r, ttl); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, err := s.Scan(ctx, domain.ScanQuery{})
	if err != nil || len(out) != 1 {
		t.Fatalf("scan: %d %v", len(out), err)
	}
	got := out[0]
	if got.Review != r || got.TTL != ttl {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, r)
	}
}
