package playstore

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"review_tracker/internal/domain"
)

// Client is a placeholder for the Google Play reviews source. The reviews
// endpoint of the Android Publisher API needs a service account, which this
// deployment does not have yet, so the client reports zero reviews for any
// configured app.
//
// TODO: implement against androidpublisher v3 once a service-account key is
// provisioned.
type Client struct{}

func New() *Client { return &Client{} }

func (c *Client) Platform() domain.Platform { return domain.PlatformGoogle }

func (c *Client) Fetch(ctx context.Context, appID string, _ domain.FetchParams) ([]domain.Review, error) {
	id := strings.Trim(strings.TrimSpace(appID), `"'`)
	if id == "" {
		return nil, nil
	}
	log.Warn().Str("app_id", id).Msg("google play reviews require service-account credentials; returning none")
	return nil, nil
}
