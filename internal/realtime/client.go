package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
)

// Default timing for a session.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCloseTimeout     = 5 * time.Second

	frameTypeInit       = "init"
	frameTypeConnection = "connection"
	frameTypeSpace      = "space"
	frameTypeEvent      = "event"
)

// Config holds the transport settings of a Client.
type Config struct {
	// Endpoint is the ws:// or wss:// URL of the realtime service.
	Endpoint string

	// HandshakeTimeout bounds the WebSocket upgrade. Zero uses the default.
	HandshakeTimeout time.Duration

	// PingInterval enables keep-alive pings when positive.
	PingInterval time.Duration

	// PongTimeout is how long to wait for a pong after a ping.
	PongTimeout time.Duration

	// MaxMessageSize limits inbound frames. Zero means no limit.
	MaxMessageSize int64
}

// Credentials authenticate a session.
type Credentials struct {
	APIKey string
}

// CredentialProvider returns the credentials for the next Connect.
type CredentialProvider func(ctx context.Context) (Credentials, error)

// StaticCredentials returns a provider that always yields apiKey.
func StaticCredentials(apiKey string) CredentialProvider {
	return func(context.Context) (Credentials, error) {
		return Credentials{APIKey: apiKey}, nil
	}
}

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Stats is a point-in-time summary of a session.
type Stats struct {
	Connected   bool      `json:"connected"`
	Occupants   int       `json:"occupants"`
	Maps        int       `json:"maps"`
	Events      uint64    `json:"events"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
}

type initFrame struct {
	Type    string `json:"type"`
	SpaceID string `json:"space_id"`
	APIKey  string `json:"api_key"`
}

// Client is a session to one space of the realtime service.
//
// Client implements presence.Snapshot over its live state.
type Client struct {
	cfg     Config
	spaceID string
	creds   CredentialProvider
	dialer  *websocket.Dialer
	logger  Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	done        chan struct{}
	closing     bool
	connectedAt time.Time

	handlersMu      sync.RWMutex
	onConnection    []ConnectionHandler
	onDisconnection []DisconnectionHandler
	onEvent         map[string][]EventHandler

	state *store
}

// NewClient creates a client for spaceID. No network activity happens
// until Connect.
func NewClient(cfg Config, spaceID string, creds CredentialProvider) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &Client{
		cfg:     cfg,
		spaceID: spaceID,
		creds:   creds,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:  noopLogger{},
		onEvent: make(map[string][]EventHandler),
		state:   newStore(),
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SpaceID returns the normalised space identifier of the session.
func (c *Client) SpaceID() string {
	return c.spaceID
}

// SubscribeToConnection registers a handler for the init handshake result.
func (c *Client) SubscribeToConnection(h ConnectionHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onConnection = append(c.onConnection, h)
}

// SubscribeToDisconnection registers a handler for unsolicited session ends.
func (c *Client) SubscribeToDisconnection(h DisconnectionHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onDisconnection = append(c.onDisconnection, h)
}

// SubscribeToEvent registers a handler for the named event.
func (c *Client) SubscribeToEvent(name string, h EventHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onEvent[name] = append(c.onEvent[name], h)
}

// Connect dials the service and sends the init frame. The handshake result
// arrives asynchronously through connection subscribers.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	creds, err := c.creds(ctx)
	if err != nil {
		return fmt.Errorf("fetching credentials: %w", err)
	}
	if creds.APIKey == "" {
		return ErrNoCredentials
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: dialling %s: %w", ErrConnectionFailed, c.cfg.Endpoint, err)
	}

	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}

	data, err := json.Marshal(initFrame{Type: frameTypeInit, SpaceID: c.spaceID, APIKey: creds.APIKey})
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: encoding init: %w", ErrConnectionFailed, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return fmt.Errorf("%w: sending init: %w", ErrConnectionFailed, err)
	}

	c.state.reset()

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	done := make(chan struct{})
	c.conn = conn
	c.done = done
	c.closing = false
	c.connectedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("realtime session opened", "space_id", c.spaceID)

	if c.cfg.PingInterval > 0 {
		deadline := c.cfg.PingInterval + c.cfg.PongTimeout
		//nolint:errcheck // Best-effort deadline on connection setup
		conn.SetReadDeadline(time.Now().Add(deadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(deadline))
		})
		go c.pingLoop(conn, done)
	}
	go c.readLoop(conn, done)

	return nil
}

// Disconnect closes the session. Subscribers are not told about a
// disconnect the caller asked for. Calling Disconnect without a session
// returns nil.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	if conn == nil {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		c.logger.Debug("close frame not sent", "error", err)
		conn.Close()
	}

	timer := time.NewTimer(DefaultCloseTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		conn.Close()
		<-done
	case <-ctx.Done():
		conn.Close()
		<-done
		err = ctx.Err()
	}

	c.logger.Info("realtime session closed", "space_id", c.spaceID)
	return err
}

// Connected reports whether a session is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Stats returns a summary of the session.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	connected, at := c.conn != nil, c.connectedAt
	c.mu.Unlock()

	occupants, maps, events := c.state.counts()
	s := Stats{Connected: connected, Occupants: occupants, Maps: maps, Events: events}
	if connected {
		s.ConnectedAt = at
	}
	return s
}

// Occupant returns the occupant with the given id.
func (c *Client) Occupant(id string) (presence.Occupant, bool) {
	return c.state.Occupant(id)
}

// FilterOccupants returns the occupants accepted by keep, in join order.
func (c *Client) FilterOccupants(keep func(presence.Occupant) bool) []presence.Occupant {
	return c.state.FilterOccupants(keep)
}

// Map returns the map with the given id.
func (c *Client) Map(id string) (presence.Map, bool) {
	return c.state.Map(id)
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.endSession(conn, err)
			return
		}
		c.handleFrame(msg)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.PongTimeout + time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// endSession runs on the read goroutine when the connection ends.
func (c *Client) endSession(conn *websocket.Conn, err error) {
	conn.Close()

	c.mu.Lock()
	solicited := c.closing
	if c.conn == conn {
		c.conn = nil
		c.connectedAt = time.Time{}
	}
	c.mu.Unlock()

	if solicited {
		c.logger.Debug("realtime session ended", "space_id", c.spaceID)
		return
	}

	code, reason := websocket.CloseAbnormalClosure, err.Error()
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code, reason = ce.Code, ce.Text
	}
	c.logger.Warn("realtime session lost", "space_id", c.spaceID, "code", code, "reason", reason)

	c.handlersMu.RLock()
	handlers := append([]DisconnectionHandler(nil), c.onDisconnection...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(code, reason)
	}
}

func (c *Client) handleFrame(msg []byte) {
	if !gjson.ValidBytes(msg) {
		c.logger.Warn("ignoring malformed frame", "size", len(msg))
		return
	}
	frame := gjson.ParseBytes(msg)

	switch t := frame.Get("type").String(); t {
	case frameTypeConnection:
		ok := frame.Get("ok").Bool()
		if !ok {
			c.logger.Warn("init rejected", "space_id", c.spaceID, "reason", frame.Get("reason").String())
		}
		c.handlersMu.RLock()
		handlers := append([]ConnectionHandler(nil), c.onConnection...)
		c.handlersMu.RUnlock()
		for _, h := range handlers {
			h(ok)
		}

	case frameTypeSpace:
		c.state.applySpace(frame)

	case frameTypeEvent:
		c.dispatchEvent(frame)

	default:
		c.logger.Debug("ignoring frame", "type", t)
	}
}

func (c *Client) dispatchEvent(frame gjson.Result) {
	name := frame.Get("event").String()
	playerID := frame.Get("playerId").String()
	data := frame.Get("data")

	player, has := c.state.applyEvent(name, playerID, data)

	ev := Event{
		Name:      name,
		PlayerID:  playerID,
		Player:    player,
		HasPlayer: has,
		TargetID:  data.Get("targetId").String(),
		Data:      []byte(data.Raw),
	}

	c.handlersMu.RLock()
	handlers := append([]EventHandler(nil), c.onEvent[name]...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Compile-time interface check.
var _ presence.Snapshot = (*Client)(nil)
