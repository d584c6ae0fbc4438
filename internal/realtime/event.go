package realtime

import "github.com/nerrad567/gray-logic-gather/internal/presence"

// Event names sent by the service.
const (
	EventReady             = "ready"
	EventPlayerJoins       = "playerJoins"
	EventPlayerExits       = "playerExits"
	EventPlayerMoves       = "playerMoves"
	EventPlayerRings       = "playerRings"
	EventPlayerSetsIsAlone = "playerSetsIsAlone"
	EventPlayerSetsAway    = "playerSetsAway"
	EventPlayerWaves       = "playerWaves"
)

// Event is one named event routed to subscribers.
type Event struct {
	// Name is the service event name, e.g. "playerMoves".
	Name string

	// PlayerID is the occupant the event is about. Empty for space-wide events.
	PlayerID string

	// Player is the occupant record after the event was applied.
	// Only meaningful when HasPlayer is true.
	Player    presence.Occupant
	HasPlayer bool

	// TargetID is the wave target, when the event carries one.
	TargetID string

	// Data is the raw JSON "data" object of the frame.
	Data []byte
}

// EventHandler receives routed events.
type EventHandler func(ev Event)

// ConnectionHandler receives the outcome of the init handshake.
type ConnectionHandler func(connected bool)

// DisconnectionHandler receives an unsolicited end of session.
type DisconnectionHandler func(code int, reason string)
