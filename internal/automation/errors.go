package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrUnknownAction) {
//	    // handle not found case
//	}
var (
	// ErrUnknownCondition is returned when a condition card does not exist.
	ErrUnknownCondition = errors.New("automation: unknown condition")

	// ErrUnknownAction is returned when an action card does not exist.
	ErrUnknownAction = errors.New("automation: unknown action")

	// ErrInvalidCommand is returned when an MQTT command payload cannot be decoded.
	ErrInvalidCommand = errors.New("automation: invalid command")

	// ErrMQTTUnavailable is returned when MQTT is not configured.
	ErrMQTTUnavailable = errors.New("automation: MQTT unavailable")
)
