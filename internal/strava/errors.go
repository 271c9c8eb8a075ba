// ABOUTME: Sentinel errors returned by the Strava gateway.
// ABOUTME: Callers match them with errors.Is to classify failures.
package strava

import "errors"

var (
	// ErrInvalidRequest is returned before any network call when parameters are out of range.
	ErrInvalidRequest = errors.New("strava: invalid request")
	// ErrUnauthorized is returned on 401/403 or when the token source fails. Never retried.
	ErrUnauthorized = errors.New("strava: unauthorized")
	// ErrRateLimited is returned once 429 responses outlast the retry budget.
	ErrRateLimited = errors.New("strava: rate limited")
	// ErrUpstreamData is returned when a response body cannot be decoded or fails validation.
	ErrUpstreamData = errors.New("strava: malformed upstream data")
	// ErrUpstreamStatus is returned for any other non-2xx status or transport failure.
	ErrUpstreamStatus = errors.New("strava: upstream request failed")
	// ErrNotFound is returned when an activity does not exist.
	ErrNotFound = errors.New("strava: not found")
)
