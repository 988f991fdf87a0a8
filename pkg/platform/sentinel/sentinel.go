package sentinel

import "errors"

// Infrastructure facts. Stores and clients return these, optionally wrapped;
// the service layer translates them into domain errors exactly once.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
