package gather

import "errors"

// Domain errors for the Gather bridge package.
var (
	// ErrConfiguration is returned by Connect when the API key or space id
	// is missing. It is never retried automatically.
	ErrConfiguration = errors.New("gather: invalid configuration")

	// ErrNotConnected is returned when an operation needs an open session.
	ErrNotConnected = errors.New("gather: not connected")
)
