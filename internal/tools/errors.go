// ABOUTME: Structured tool errors and classification of internal failures.
// ABOUTME: Nothing but *Error crosses the registry boundary.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/storage"
	"github.com/harperreed/ultratrainer/internal/strava"
)

// Kind is the machine-readable error category reported to callers.
type Kind string

const (
	KindInvalidArguments     Kind = "InvalidArguments"
	KindUnknownTool          Kind = "UnknownTool"
	KindUpstreamUnauthorized Kind = "UpstreamUnauthorized"
	KindRateLimited          Kind = "RateLimited"
	KindUpstreamDataError    Kind = "UpstreamDataError"
	KindStorageError         Kind = "StorageError"
	KindTimeout              Kind = "Timeout"
	// KindMalformedRequest is reported by transports when the outer envelope is unusable.
	KindMalformedRequest Kind = "MalformedRequest"
)

// Error is a tool-level failure. Cause is kept for logging and never serialized.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidArguments reports the first argument that failed validation.
func InvalidArguments(field, reason string) *Error {
	return &Error{Kind: KindInvalidArguments, Field: field, Message: reason}
}

// MalformedRequest reports an unusable request envelope.
func MalformedRequest(reason string) *Error {
	return &Error{Kind: KindMalformedRequest, Message: reason}
}

// Classify maps any error to a tool error. Unrecognized errors become a
// StorageError with a generic message so internal details stay in the logs.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "tool invocation exceeded its time budget", Cause: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindTimeout, Message: "tool invocation was canceled", Cause: err}
	case errors.Is(err, strava.ErrInvalidRequest):
		return &Error{Kind: KindInvalidArguments, Message: "activity request parameters are out of range", Cause: err}
	case errors.Is(err, strava.ErrUnauthorized):
		return &Error{Kind: KindUpstreamUnauthorized, Message: "strava rejected the configured credentials", Cause: err}
	case errors.Is(err, strava.ErrRateLimited):
		return &Error{Kind: KindRateLimited, Message: "strava rate limit still exceeded after retries", Cause: err}
	case errors.Is(err, strava.ErrUpstreamData):
		return &Error{Kind: KindUpstreamDataError, Message: "strava returned malformed activity data", Cause: err}
	case errors.Is(err, strava.ErrUpstreamStatus), errors.Is(err, strava.ErrNotFound):
		return &Error{Kind: KindUpstreamDataError, Message: "strava request failed", Cause: err}
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: KindInvalidArguments, Message: "referenced record does not exist", Cause: err}
	default:
		return &Error{Kind: KindStorageError, Message: "storage operation failed", Cause: err}
	}
}
