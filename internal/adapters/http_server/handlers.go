package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"review_tracker/internal/app"
	"review_tracker/internal/domain"
)

type Handlers struct {
	Check     *app.CheckService
	Pipe      *app.Pipeline
	Analytics *app.AnalyticsService
	Version   string
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/api/healthcheck", h.health)
	s.mux.Get("/api/version", h.version)
	s.mux.Get("/api/reviews", h.checkReviews)
	s.mux.Post("/api/reviews/trigger", h.trigger)
	s.mux.Get("/api/analytics", h.analytics)
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}

// checkResponse is the on-demand query payload, success or failure.
type checkResponse struct {
	Success             bool                `json:"success"`
	Message             string              `json:"message"`
	NewReviewsCount     int                 `json:"newReviewsCount"`
	TotalReviewsFetched int                 `json:"totalReviewsFetched"`
	Reviews             []domain.Review     `json:"reviews,omitempty"`
	Error               string              `json:"error,omitempty"`
	ValidationErrors    []domain.FieldError `json:"validationErrors,omitempty"`
}

func (h *Handlers) checkReviews(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	q := app.SingleAppQuery{
		AppleAppID:  qs.Get("appleAppId"),
		GoogleAppID: qs.Get("googleAppId"),
		Country:     qs.Get("country"),
		SortBy:      domain.SortOrder(qs.Get("sortBy")),
		WebhookURL:  qs.Get("slackWebhookUrl"),
	}
	if ls := qs.Get("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, checkResponse{
				Success: false,
				Message: "invalid parameters",
				ValidationErrors: []domain.FieldError{
					{Field: "limit", Message: "must be an integer"},
				},
			})
			return
		}
		q.Limit = n
	}

	res, err := h.Check.Check(r.Context(), q)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, checkResponse{
				Success:          false,
				Message:          "invalid parameters",
				ValidationErrors: ve.Fields,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, checkResponse{
			Success: false,
			Message: "review check failed",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		Success:             true,
		Message:             fmt.Sprintf("Processed %d reviews, found %d new reviews", res.TotalFetched, res.NewReviewsCount),
		NewReviewsCount:     res.NewReviewsCount,
		TotalReviewsFetched: res.TotalFetched,
		Reviews:             res.Reviews,
	})
}

func (h *Handlers) trigger(w http.ResponseWriter, r *http.Request) {
	res, err := h.Pipe.Run(r.Context(), app.RunOverrides{})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "failed to trigger review check",
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"message":             "review check completed",
		"newReviewsCount":     len(res.NewReviews),
		"totalReviewsFetched": res.TotalFetched,
	})
}

func (h *Handlers) analytics(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := domain.ScanQuery{
		AppID:    qs.Get("appId"),
		Platform: domain.Platform(qs.Get("platform")),
	}
	if ls := qs.Get("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n < 1 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
			return
		}
		q.Limit = n
	}

	sum, err := h.Analytics.Summary(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Analytics failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
