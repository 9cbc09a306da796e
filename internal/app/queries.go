package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"review_tracker/internal/domain"
)

// SingleAppQuery is the on-demand check for one app pair. WebhookURL, when
// set, replaces the configured destination map for this call only.
type SingleAppQuery struct {
	AppleAppID  string           `validate:"omitempty,max=64"`
	GoogleAppID string           `validate:"omitempty,max=256"`
	Country     string           `validate:"omitempty,alpha,len=2"`
	Limit       int              `validate:"omitempty,min=1,max=200"`
	SortBy      domain.SortOrder `validate:"omitempty,oneof=mostRecent mostHelpful"`
	WebhookURL  string           `validate:"omitempty,url"`
}

type CheckResult struct {
	TotalFetched    int
	NewReviewsCount int
	Reviews         []domain.Review
}

// CheckService runs the on-demand query path over the same pipeline stages as
// the scheduled run.
type CheckService struct {
	pipe     *Pipeline
	validate *validator.Validate
}

func NewCheckService(p *Pipeline) *CheckService {
	return &CheckService{pipe: p, validate: validator.New()}
}

// Check validates the query, fetches both platforms for the pair, dedups and
// persists, and notifies. Validation failures surface as ValidationError with
// field-level messages; anything else is a generic failure reported to the
// caller-supplied webhook (best-effort) and returned.
func (s *CheckService) Check(ctx context.Context, q SingleAppQuery) (CheckResult, error) {
	if err := s.validateQuery(q); err != nil {
		return CheckResult{}, err
	}

	params := s.pipe.cfg.Params
	if q.Country != "" {
		params.Country = q.Country
	}
	if q.Limit > 0 {
		params.Limit = q.Limit
	}
	if q.SortBy != "" {
		params.SortBy = q.SortBy
	}

	fetched, err := s.pipe.agg.FetchForSingleApp(ctx, q.AppleAppID, q.GoogleAppID, params)
	if err != nil {
		s.notifyQueryFailure(ctx, q.WebhookURL, err)
		return CheckResult{}, err
	}

	stored := s.pipe.storeNew(ctx, fetched)
	if len(stored) > 0 {
		if q.WebhookURL != "" {
			s.pipe.disp.DeliverTo(ctx, q.WebhookURL, stored)
		} else {
			s.pipe.disp.Dispatch(ctx, groupByDestination(stored), s.pipe.cfg.Webhooks)
		}
	}

	return CheckResult{
		TotalFetched:    len(fetched),
		NewReviewsCount: len(stored),
		Reviews:         stored,
	}, nil
}

var queryFieldNames = map[string]string{
	"AppleAppID":  "appleAppId",
	"GoogleAppID": "googleAppId",
	"Country":     "country",
	"Limit":       "limit",
	"SortBy":      "sortBy",
	"WebhookURL":  "slackWebhookUrl",
}

func (s *CheckService) validateQuery(q SingleAppQuery) error {
	var fields []domain.FieldError

	if q.AppleAppID == "" && q.GoogleAppID == "" {
		fields = append(fields, domain.FieldError{
			Field:   "appIds",
			Message: "at least one of appleAppId or googleAppId must be provided",
		})
	}

	if err := s.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			name := queryFieldNames[fe.StructField()]
			if name == "" {
				name = fe.StructField()
			}
			fields = append(fields, domain.FieldError{
				Field:   name,
				Message: fieldMessage(fe),
			})
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "alpha", "len":
		return "must be a two-letter country code"
	default:
		return "invalid value"
	}
}

func (s *CheckService) notifyQueryFailure(ctx context.Context, webhookURL string, err error) {
	if webhookURL == "" {
		return
	}
	report := reportFor(err, "on-demand review check")
	if perr := s.pipe.disp.notifier.PostError(ctx, webhookURL, report); perr != nil {
		log.Error().Err(perr).Str("url", webhookURL).Msg("failed to deliver error notification")
	}
}
