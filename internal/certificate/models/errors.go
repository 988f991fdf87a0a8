package models

import "errors"

// Component failures. Wrap with fmt.Errorf("...: %w", Err...) so callers can
// classify with errors.Is; only the coordinator maps them to domain errors.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrRenderFailure       = errors.New("render failure")
	ErrStorageFailure      = errors.New("storage failure")
	ErrNotificationFailure = errors.New("notification failure")
)
