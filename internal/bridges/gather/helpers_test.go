package gather

import (
	"context"
	"sync"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
	"github.com/nerrad567/gray-logic-gather/internal/realtime"
)

// fakeSession implements Session with an in-memory snapshot.
type fakeSession struct {
	mu sync.Mutex

	spaceID string
	apiKey  string

	occupants []presence.Occupant
	maps      map[string]presence.Map

	connectErr  error
	connectGate chan struct{}
	connects    int
	disconnects int

	onConnection    []realtime.ConnectionHandler
	onDisconnection []realtime.DisconnectionHandler
	onEvent         map[string][]realtime.EventHandler
}

func newFakeSession(spaceID, apiKey string) *fakeSession {
	return &fakeSession{
		spaceID: spaceID,
		apiKey:  apiKey,
		maps:    make(map[string]presence.Map),
		onEvent: make(map[string][]realtime.EventHandler),
	}
}

// Connect blocks on connectGate, when set, like a slow dial.
func (s *fakeSession) Connect(context.Context) error {
	s.mu.Lock()
	s.connects++
	gate, err := s.connectGate, s.connectErr
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (s *fakeSession) connectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func (s *fakeSession) disconnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

func (s *fakeSession) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	return nil
}

func (s *fakeSession) SubscribeToConnection(h realtime.ConnectionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnection = append(s.onConnection, h)
}

func (s *fakeSession) SubscribeToDisconnection(h realtime.DisconnectionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnection = append(s.onDisconnection, h)
}

func (s *fakeSession) SubscribeToEvent(name string, h realtime.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent[name] = append(s.onEvent[name], h)
}

func (s *fakeSession) Stats() realtime.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return realtime.Stats{Occupants: len(s.occupants), Maps: len(s.maps)}
}

func (s *fakeSession) Occupant(id string) (presence.Occupant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.occupants {
		if o.ID == id {
			return o, true
		}
	}
	return presence.Occupant{}, false
}

func (s *fakeSession) FilterOccupants(keep func(presence.Occupant) bool) []presence.Occupant {
	s.mu.Lock()
	all := append([]presence.Occupant(nil), s.occupants...)
	s.mu.Unlock()

	var out []presence.Occupant
	for _, o := range all {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (s *fakeSession) Map(id string) (presence.Map, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[id]
	return m, ok
}

// put adds or replaces an occupant.
func (s *fakeSession) put(o presence.Occupant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.occupants {
		if s.occupants[i].ID == o.ID {
			s.occupants[i] = o
			return
		}
	}
	s.occupants = append(s.occupants, o)
}

// remove drops an occupant from the snapshot.
func (s *fakeSession) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.occupants {
		if s.occupants[i].ID == id {
			s.occupants = append(s.occupants[:i:i], s.occupants[i+1:]...)
			return
		}
	}
}

func (s *fakeSession) connected(ok bool) {
	s.mu.Lock()
	handlers := append([]realtime.ConnectionHandler(nil), s.onConnection...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(ok)
	}
}

func (s *fakeSession) dropped(code int, reason string) {
	s.mu.Lock()
	handlers := append([]realtime.DisconnectionHandler(nil), s.onDisconnection...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(code, reason)
	}
}

// fire dispatches a named event for playerID the way the realtime client
// does: with the post-event occupant record attached.
func (s *fakeSession) fire(name, playerID, targetID string) {
	o, has := s.Occupant(playerID)
	ev := realtime.Event{Name: name, PlayerID: playerID, Player: o, HasPlayer: has, TargetID: targetID}

	s.mu.Lock()
	handlers := append([]realtime.EventHandler(nil), s.onEvent[name]...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (s *fakeSession) subscriptionCounts() (connection, disconnection, events int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, hs := range s.onEvent {
		events += len(hs)
	}
	return len(s.onConnection), len(s.onDisconnection), events
}

// sessionRecorder is a SessionFactory that keeps every session it creates.
type sessionRecorder struct {
	mu       sync.Mutex
	sessions []*fakeSession
	setup    func(*fakeSession)
}

func (r *sessionRecorder) factory(spaceID, apiKey string) Session {
	s := newFakeSession(spaceID, apiKey)
	if r.setup != nil {
		r.setup(s)
	}
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
	return s
}

func (r *sessionRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *sessionRecorder) last() *fakeSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu  sync.Mutex
	got []presence.Notification
}

func (r *recordingNotifier) Notify(n presence.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) all() []presence.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]presence.Notification(nil), r.got...)
}

func (r *recordingNotifier) byEvent(event string) []presence.Notification {
	var out []presence.Notification
	for _, n := range r.all() {
		if n.Event == event {
			out = append(out, n)
		}
	}
	return out
}

// officeMap has nook-1 covering (3,4) and (4,4) on map M1.
func officeMap() presence.Map {
	return presence.Map{
		ID: "M1",
		Areas: []presence.Area{
			{ID: "nook-1", Polygons: []presence.Polygon{{{X: 3, Y: 4}, {X: 4, Y: 4}}}},
			{ID: "nook-2", Polygons: []presence.Polygon{{{X: 10, Y: 10}}}},
		},
	}
}

var testSettings = Settings{APIKey: "key", SpaceID: "abc/office", AvatarName: "Me"}

// newTestBridge returns a bridge whose sessions hold the office map.
func newTestBridge() (*Bridge, *sessionRecorder, *recordingNotifier) {
	rec := &sessionRecorder{setup: func(s *fakeSession) {
		s.maps["M1"] = officeMap()
	}}
	notifier := &recordingNotifier{}
	b, err := NewBridge(BridgeOptions{
		Settings: SettingsFunc(func(context.Context) (Settings, error) { return testSettings, nil }),
		Sessions: rec.factory,
		Notifier: notifier,
	})
	if err != nil {
		panic(err)
	}
	return b, rec, notifier
}
