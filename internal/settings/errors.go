package settings

import "errors"

var (
	// ErrNotFound is returned when a setting has not been stored.
	ErrNotFound = errors.New("settings: not found")

	// ErrSealed is returned when a sealed value cannot be opened with the
	// configured passphrase.
	ErrSealed = errors.New("settings: cannot unseal value")

	// ErrNoPassphrase is returned when sealing without a credential passphrase.
	ErrNoPassphrase = errors.New("settings: credential passphrase not configured")
)
