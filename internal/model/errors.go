package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrBoxNotConfigured is returned when an operation targets a box that is
	// not present in the fleet configuration.
	ErrBoxNotConfigured = errors.New("box not configured")
	// ErrTimeout is returned when a box call exceeded its time bound.
	ErrTimeout = errors.New("timed out")
	// ErrNetwork is returned when a box could not be reached at all.
	ErrNetwork = errors.New("network failure")
	// ErrRemoteAPI is returned when a box replied with a non-success response.
	ErrRemoteAPI = errors.New("remote API error")
	// ErrBadContentType is returned when a call that required structured data
	// received something else.
	ErrBadContentType = errors.New("unexpected content type")
)

// APIError carries the server-supplied details of a non-success box response.
type APIError struct {
	BoxID      string
	StatusCode int
	Code       string
	Message    string
	Hint       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("box %s replied HTTP %d", e.BoxID, e.StatusCode)
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (hint: %s)", msg, e.Hint)
	}
	return msg
}

func (e *APIError) Unwrap() error { return ErrRemoteAPI }

// BoxOpError identifies the box on which a batched operation failed.
type BoxOpError struct {
	BoxID string
	Err   error
}

func (e *BoxOpError) Error() string {
	return fmt.Sprintf("box %s: %s", e.BoxID, e.Err)
}

func (e *BoxOpError) Unwrap() error { return e.Err }

// RunOpError identifies the run on which a per-run operation failed.
type RunOpError struct {
	BoxID string
	RunID string
	Err   error
}

func (e *RunOpError) Error() string {
	return fmt.Sprintf("run %s on box %s: %s", e.RunID, e.BoxID, e.Err)
}

func (e *RunOpError) Unwrap() error { return e.Err }
