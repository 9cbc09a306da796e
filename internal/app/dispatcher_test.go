package app_test

import (
	"context"
	"testing"

	"review_tracker/internal/app"
	"review_tracker/internal/domain"
)

func TestDispatch_PartialURLFailureIsolated(t *testing.T) {
	r := review(domain.PlatformApple, "1", "a", 5)
	notifier := &fakeNotifier{fail: map[string]bool{"https://hooks/bad": true}}
	d := app.NewDispatcher(notifier, 0)

	d.Dispatch(context.Background(),
		map[string][]domain.Review{"apple:1": {r}},
		domain.WebhookMap{"apple:1": {"https://hooks/bad", "https://hooks/good"}},
	)

	if got := notifier.delivered("https://hooks/good"); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("second URL must still receive the message, got %+v", got)
	}
}

func TestDispatch_MissingKeySkipped(t *testing.T) {
	notifier := &fakeNotifier{}
	d := app.NewDispatcher(notifier, 0)

	d.Dispatch(context.Background(),
		map[string][]domain.Review{"apple:unmapped": {review(domain.PlatformApple, "unmapped", "a", 5)}},
		domain.WebhookMap{"apple:other": {"https://hooks/other"}},
	)

	if len(notifier.delivered("https://hooks/other")) != 0 {
		t.Fatalf("unmapped group must not reach unrelated destinations")
	}
}

func TestDeliverTo_SequentialOrder(t *testing.T) {
	rs := []domain.Review{
		review(domain.PlatformApple, "1", "first", 5),
		review(domain.PlatformApple, "1", "second", 4),
		review(domain.PlatformApple, "1", "third", 3),
	}
	notifier := &fakeNotifier{}
	app.NewDispatcher(notifier, 0).DeliverTo(context.Background(), "https://hooks/one", rs)

	got := notifier.delivered("https://hooks/one")
	if len(got) != 3 || got[0].ID != "first" || got[1].ID != "second" || got[2].ID != "third" {
		t.Fatalf("batch order must be preserved per URL, got %+v", got)
	}
}
