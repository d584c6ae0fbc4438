package realtime

import "errors"

// Domain-specific errors for realtime sessions.
var (
	// ErrNotConnected is returned when an operation needs an open session.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrAlreadyConnected is returned by Connect on an open session.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrConnectionFailed is returned when dialling or the init handshake fails.
	ErrConnectionFailed = errors.New("realtime: connection failed")

	// ErrNoCredentials is returned when the credential provider yields no API key.
	ErrNoCredentials = errors.New("realtime: no credentials")
)
