package gather

import (
	"context"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
	"github.com/nerrad567/gray-logic-gather/internal/realtime"
)

// Session is one realtime session to a space.
// *realtime.Client satisfies it; tests use a fake.
type Session interface {
	presence.Snapshot

	// Connect opens the session. The handshake result arrives through
	// the connection subscribers.
	Connect(ctx context.Context) error

	// Disconnect closes the session and waits for teardown.
	Disconnect(ctx context.Context) error

	SubscribeToConnection(h realtime.ConnectionHandler)
	SubscribeToDisconnection(h realtime.DisconnectionHandler)
	SubscribeToEvent(name string, h realtime.EventHandler)

	// Stats summarises the session for logging and health reports.
	Stats() realtime.Stats
}

// SessionFactory creates an unopened session for a normalised space id.
type SessionFactory func(spaceID, apiKey string) Session

// RealtimeSessions returns a factory for WebSocket sessions.
func RealtimeSessions(cfg realtime.Config, logger realtime.Logger) SessionFactory {
	return func(spaceID, apiKey string) Session {
		c := realtime.NewClient(cfg, spaceID, realtime.StaticCredentials(apiKey))
		c.SetLogger(logger)
		return c
	}
}
