package gather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
	"github.com/nerrad567/gray-logic-gather/internal/realtime"
)

// ConnectionState is the lifecycle state of the bridge's session.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the lowercase state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Logger is the logging interface used by the bridge.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// eventHandler handles one routed event for a live session.
// It runs with the bridge lock held.
type eventHandler func(b *Bridge, session Session, ev realtime.Event)

// routes maps each subscribed service event to its handler.
// One handler per event kind is registered on every new session.
var routes = map[string]eventHandler{
	realtime.EventReady:             (*Bridge).onReady,
	realtime.EventPlayerJoins:       (*Bridge).onPlayerMoves,
	realtime.EventPlayerExits:       (*Bridge).onPlayerMoves,
	realtime.EventPlayerMoves:       (*Bridge).onPlayerMoves,
	realtime.EventPlayerRings:       (*Bridge).onPlayerRings,
	realtime.EventPlayerSetsIsAlone: (*Bridge).onPlayerSetsIsAlone,
	realtime.EventPlayerWaves:       (*Bridge).onPlayerWaves,
}

// RoutedEvents returns the service events the bridge subscribes to.
// Joins and exits are handled like moves: they change where self stands.
func RoutedEvents() []string {
	return []string{
		realtime.EventReady,
		realtime.EventPlayerJoins,
		realtime.EventPlayerExits,
		realtime.EventPlayerMoves,
		realtime.EventPlayerRings,
		realtime.EventPlayerSetsIsAlone,
		realtime.EventPlayerWaves,
	}
}

// Bridge manages the session to one Gather space.
//
// Thread Safety: All methods are safe for concurrent use. Disconnect must
// not be called from inside a notifier, since notifiers run on the session
// goroutine.
type Bridge struct {
	settings  SettingsSource
	sessions  SessionFactory
	notifier  presence.Notifier
	urlPrefix string
	logger    Logger

	mu          sync.Mutex
	evaluator   *presence.Evaluator
	session     Session
	spaceID     string
	state       ConnectionState
	connectedAt time.Time
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Settings resolves API key, space id and avatar name on Connect.
	Settings SettingsSource

	// Sessions creates realtime sessions.
	Sessions SessionFactory

	// Notifier receives automation notifications. Must not block.
	Notifier presence.Notifier

	// URLPrefix is stripped from browser-form space ids.
	// Default: DefaultURLPrefix.
	URLPrefix string

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a disconnected bridge.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session factory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bridge{
		settings:  opts.Settings,
		sessions:  opts.Sessions,
		notifier:  opts.Notifier,
		urlPrefix: opts.URLPrefix,
		logger:    logger,
		evaluator: presence.NewEvaluator(opts.Notifier, logger),
		state:     StateDisconnected,
	}, nil
}

// Start initialises the bridge and, when connectOnStart is set, opens the
// session. A connect error is returned to the caller; the bridge stays
// usable and can be connected later.
func (b *Bridge) Start(ctx context.Context, connectOnStart bool) error {
	b.logger.Info("starting gather bridge", "connect_on_start", connectOnStart)
	if !connectOnStart {
		return nil
	}
	return b.Connect(ctx)
}

// Stop disconnects the session, if any.
func (b *Bridge) Stop(ctx context.Context) error {
	return b.Disconnect(ctx)
}

// Connect resolves the current settings and opens a session.
// It is a no-op when a session already exists.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.session != nil {
		b.mu.Unlock()
		b.logger.Info("gather session already initiated")
		return nil
	}
	b.mu.Unlock()

	settings, err := b.settings.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving settings: %w", err)
	}
	return b.ConnectWith(ctx, settings)
}

// ConnectWith opens a session with explicit settings.
//
// Returns ErrConfiguration when the API key or the normalised space id is
// empty. Calling it while a session exists logs and returns nil without
// registering any further handlers. The bridge lock is not held during the
// dial, so status queries answer StateConnecting meanwhile.
func (b *Bridge) ConnectWith(ctx context.Context, settings Settings) error {
	b.mu.Lock()
	if b.session != nil {
		b.mu.Unlock()
		b.logger.Info("gather session already initiated")
		return nil
	}

	if settings.APIKey == "" {
		b.mu.Unlock()
		return fmt.Errorf("%w: no API key found", ErrConfiguration)
	}
	spaceID := NormalizeSpaceID(settings.SpaceID, b.urlPrefix)
	if spaceID == "" {
		b.mu.Unlock()
		return fmt.Errorf("%w: space id is required", ErrConfiguration)
	}

	b.logger.Info("using settings",
		"space_id", spaceID,
		"avatar_name", settings.AvatarName,
		"has_token", true,
	)

	b.evaluator.Configure(settings.AvatarName)

	session := b.sessions(spaceID, settings.APIKey)
	b.subscribe(session)

	b.session = session
	b.spaceID = spaceID
	b.state = StateConnecting
	b.mu.Unlock()

	err := session.Connect(ctx)

	b.mu.Lock()
	current := b.session == session
	if err != nil && current {
		b.clearSessionLocked()
		b.state = StateFailed
	}
	b.mu.Unlock()

	switch {
	case err != nil:
		return fmt.Errorf("connecting to space %s: %w", spaceID, err)
	case !current:
		// Disconnected while dialling.
		b.logger.Info("gather session closed during connect", "space_id", spaceID)
		//nolint:errcheck // the session was already abandoned
		session.Disconnect(ctx)
	}
	return nil
}

// subscribe registers the connection handlers and one handler per routed
// event. Handlers capture session so callbacks from an old session are
// dropped.
func (b *Bridge) subscribe(session Session) {
	session.SubscribeToConnection(func(connected bool) {
		b.handleConnection(session, connected)
	})
	session.SubscribeToDisconnection(func(code int, reason string) {
		b.handleDisconnection(session, code, reason)
	})
	for _, name := range RoutedEvents() {
		handler := routes[name]
		session.SubscribeToEvent(name, func(ev realtime.Event) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.session != session {
				return
			}
			handler(b, session, ev)
		})
	}
}

// Disconnect closes the session, waits for teardown and clears all state
// derived from it. It is a no-op without a session, so it is safe during
// shutdown even when Connect never completed.
func (b *Bridge) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	if session == nil {
		return nil
	}

	// The lock is released while waiting: the session goroutine may be
	// blocked on it inside a handler.
	err := session.Disconnect(ctx)

	b.mu.Lock()
	if b.session == session {
		b.clearSessionLocked()
	}
	b.mu.Unlock()

	b.logger.Info("gather session disconnected")

	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}
	return nil
}

func (b *Bridge) clearSessionLocked() {
	b.session = nil
	b.spaceID = ""
	b.state = StateDisconnected
	b.connectedAt = time.Time{}
	b.evaluator.Reset()
}

func (b *Bridge) handleConnection(session Session, connected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != session {
		return
	}

	if connected {
		b.state = StateConnected
		b.connectedAt = time.Now()
		b.logger.Info("gather connection established", "space_id", b.spaceID)
	} else {
		b.state = StateFailed
		b.logger.Warn("gather connection failed", "space_id", b.spaceID)
	}

	b.notify(presence.EventConnectionStatus, presence.ConnectionStatus{Connected: connected})
}

func (b *Bridge) handleDisconnection(session Session, code int, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != session {
		return
	}

	b.logger.Warn("gather was disconnected", "code", code, "reason", reason)
	b.clearSessionLocked()
}

func (b *Bridge) onReady(session Session, _ realtime.Event) {
	stats := session.Stats()
	b.logger.Info("gather integration is ready",
		"occupants", stats.Occupants,
		"maps", stats.Maps,
		"events", stats.Events,
	)
}

func (b *Bridge) onPlayerMoves(session Session, ev realtime.Event) {
	b.evaluator.OccupantMoved(session, ev.PlayerID)
}

func (b *Bridge) onPlayerRings(_ Session, ev realtime.Event) {
	b.evaluator.OccupantRings(eventOccupant(ev))
}

func (b *Bridge) onPlayerSetsIsAlone(session Session, ev realtime.Event) {
	b.evaluator.OccupantSetsAlone(session, eventOccupant(ev))
}

func (b *Bridge) onPlayerWaves(session Session, ev realtime.Event) {
	b.evaluator.OccupantWaves(session, eventOccupant(ev), ev.TargetID)
}

// eventOccupant returns the event's occupant, or a record carrying only
// the id when the snapshot does not know it.
func eventOccupant(ev realtime.Event) presence.Occupant {
	if ev.HasPlayer {
		return ev.Player
	}
	return presence.Occupant{ID: ev.PlayerID}
}

func (b *Bridge) notify(event string, payload any) {
	if b.notifier == nil {
		return
	}
	b.notifier.Notify(presence.Notification{Event: event, Payload: payload})
}

// SettingsChanged records a settings update. New values take effect on the
// next Connect.
func (b *Bridge) SettingsChanged(old, updated Settings) {
	keys := ChangedKeys(old, updated)
	if len(keys) == 0 {
		return
	}
	b.logger.Info("space settings were changed",
		"old_space_id", old.SpaceID,
		"new_space_id", updated.SpaceID,
		"old_avatar_name", old.AvatarName,
		"new_avatar_name", updated.AvatarName,
		"changed_keys", keys,
	)
}

// IsConnected reports whether the session handshake succeeded and the
// session is still open.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session != nil && b.state == StateConnected
}

// IsAlone reports whether the self occupant is marked alone.
// False when self is unknown.
func (b *Bridge) IsAlone() bool {
	self, ok := b.self()
	return ok && self.IsAlone
}

// IsPresent reports whether the self occupant is known and not away.
func (b *Bridge) IsPresent() bool {
	self, ok := b.self()
	return ok && !self.Away
}

func (b *Bridge) self() (presence.Occupant, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return presence.Occupant{}, false
	}
	return b.evaluator.Self(b.session)
}

// State returns the current connection state.
func (b *Bridge) State() ConnectionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SpaceID returns the normalised id of the current session's space.
func (b *Bridge) SpaceID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spaceID
}

// Status is a snapshot of the bridge for the API and health reports.
type Status struct {
	State       string             `json:"state"`
	Connected   bool               `json:"connected"`
	SpaceID     string             `json:"space_id,omitempty"`
	AvatarName  string             `json:"avatar_name,omitempty"`
	Self        *presence.Occupant `json:"self,omitempty"`
	Area        string             `json:"area,omitempty"`
	Alone       bool               `json:"alone"`
	Present     bool               `json:"present"`
	ConnectedAt *time.Time         `json:"connected_at,omitempty"`
	Session     *realtime.Stats    `json:"session,omitempty"`
}

// Status returns the current bridge status.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		State:      b.state.String(),
		Connected:  b.session != nil && b.state == StateConnected,
		SpaceID:    b.spaceID,
		AvatarName: b.evaluator.AvatarName(),
	}
	if b.session == nil {
		return st
	}

	stats := b.session.Stats()
	st.Session = &stats
	if !b.connectedAt.IsZero() {
		at := b.connectedAt
		st.ConnectedAt = &at
	}

	if self, ok := b.evaluator.Self(b.session); ok {
		st.Self = &self
		st.Alone = self.IsAlone
		st.Present = !self.Away
		if area, ok := b.evaluator.SelfArea(b.session); ok {
			st.Area = area
		}
	}
	return st
}
