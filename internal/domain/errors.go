package domain

import (
	"errors"
	"fmt"
	"strings"
)

// UpstreamError is a transport, HTTP, or payload failure fetching reviews for
// one (platform, app id). Status is 0 when the failure never reached HTTP.
type UpstreamError struct {
	Platform Platform
	AppID    string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s reviews for app %s: HTTP %d", e.Platform, e.AppID, e.Status)
	}
	return fmt.Sprintf("fetch %s reviews for app %s: %v", e.Platform, e.AppID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError is a failed dedup check or persist call for one review.
type StorageError struct {
	Op       string // "exists" | "put" | "scan"
	Identity string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotificationError is a failed delivery to one webhook URL.
type NotificationError struct {
	URL string
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.URL, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// FieldError names one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level messages for a malformed query.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// ErrNoDestinations aborts a scheduled run before any fetch happens.
var ErrNoDestinations = errors.New("no webhook destinations configured")

// RunError is fatal to a whole ingestion run: total aggregation failure or
// destination-map misconfiguration.
type RunError struct {
	Reason string
	Err    error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run failed (%s): %v", e.Reason, e.Err)
	}
	return "run failed: " + e.Reason
}

func (e *RunError) Unwrap() error { return e.Err }
