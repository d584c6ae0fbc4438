package automation

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
)

// mockSpace implements Space for testing.
type mockSpace struct {
	mu          sync.Mutex
	alone       bool
	present     bool
	connected   bool
	connectErr  error
	connects    int
	disconnects int
}

func (m *mockSpace) IsAlone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alone
}

func (m *mockSpace) IsPresent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

func (m *mockSpace) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockSpace) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockSpace) Disconnect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	m.connected = false
	return nil
}

func (m *mockSpace) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects, m.disconnects
}

func names(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Name
	}
	return out
}

func TestRegisterSpaceCards(t *testing.T) {
	r := NewRegistry()
	RegisterSpaceCards(r, &mockSpace{})

	tests := []struct {
		name string
		got  []Card
		want []string
	}{
		{"triggers", r.Triggers(), []string{
			presence.EventConnectionStatus,
			presence.EventDoorbellRings,
			presence.EventIncomingWave,
			presence.EventPresenceStatus,
		}},
		{"conditions", r.Conditions(), []string{ConditionAlone, ConditionIsConnected, ConditionPresent}},
		{"actions", r.Actions(), []string{ActionConnect, ActionDisconnect}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := names(tt.got); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if got := len(r.Cards()); got != 9 {
		t.Errorf("Cards() = %d, want 9", got)
	}
}

func TestRegistry_TriggerTokens(t *testing.T) {
	r := NewRegistry()
	RegisterSpaceCards(r, &mockSpace{})

	want := map[string][]string{
		presence.EventConnectionStatus: {"connected"},
		presence.EventDoorbellRings:    {"person"},
		presence.EventIncomingWave:     {"person"},
		presence.EventPresenceStatus:   {"alone", "away", "persons"},
	}
	for _, c := range r.Triggers() {
		if c.Kind != KindTrigger {
			t.Errorf("%s kind = %s", c.Name, c.Kind)
		}
		if !slices.Equal(c.Tokens, want[c.Name]) {
			t.Errorf("%s tokens = %v, want %v", c.Name, c.Tokens, want[c.Name])
		}
	}

	// Returned cards are copies.
	cards := r.Triggers()
	cards[0].Tokens[0] = "mutated"
	if r.Triggers()[0].Tokens[0] == "mutated" {
		t.Error("Triggers() exposed internal token slice")
	}
}

func TestRegistry_Evaluate(t *testing.T) {
	space := &mockSpace{alone: true, present: false, connected: true}
	r := NewRegistry()
	RegisterSpaceCards(r, space)

	tests := []struct {
		condition string
		want      bool
	}{
		{ConditionAlone, true},
		{ConditionPresent, false},
		{ConditionIsConnected, true},
	}
	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := r.Evaluate(context.Background(), tt.condition)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.condition, got, tt.want)
			}
		})
	}

	if _, err := r.Evaluate(context.Background(), "sunny"); !errors.Is(err, ErrUnknownCondition) {
		t.Errorf("unknown condition error = %v, want ErrUnknownCondition", err)
	}
}

func TestRegistry_EvaluateError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.RegisterCondition("broken", "", func(context.Context) (bool, error) { return true, boom })

	got, err := r.Evaluate(context.Background(), "broken")
	if !errors.Is(err, boom) || got {
		t.Errorf("Evaluate = %v, %v; want false, boom", got, err)
	}
}

func TestRegistry_Run(t *testing.T) {
	space := &mockSpace{}
	r := NewRegistry()
	RegisterSpaceCards(r, space)

	if err := r.Run(context.Background(), ActionConnect, nil); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !space.IsConnected() {
		t.Error("space not connected after connect action")
	}
	if err := r.Run(context.Background(), ActionDisconnect, nil); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if connects, disconnects := space.counts(); connects != 1 || disconnects != 1 {
		t.Errorf("connects=%d disconnects=%d", connects, disconnects)
	}

	if err := r.Run(context.Background(), "teleport", nil); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action error = %v, want ErrUnknownAction", err)
	}
}

func TestRegistry_RunError(t *testing.T) {
	refused := errors.New("no API key found")
	r := NewRegistry()
	RegisterSpaceCards(r, &mockSpace{connectErr: refused})

	err := r.Run(context.Background(), ActionConnect, nil)
	if !errors.Is(err, refused) {
		t.Errorf("Run error = %v, want wrapped %v", err, refused)
	}
}

func TestRegistry_ReplaceCard(t *testing.T) {
	r := NewRegistry()
	r.RegisterCondition("flag", "first", func(context.Context) (bool, error) { return false, nil })
	r.RegisterCondition("flag", "second", func(context.Context) (bool, error) { return true, nil })

	conds := r.Conditions()
	if len(conds) != 1 || conds[0].Description != "second" {
		t.Errorf("conditions = %+v", conds)
	}
	if ok, _ := r.Evaluate(context.Background(), "flag"); !ok {
		t.Error("replaced condition not used")
	}
}

func TestRegistry_SetLoggerNil(t *testing.T) {
	r := NewRegistry()
	r.SetLogger(nil)
	r.RegisterAction("noop", "", func(context.Context, map[string]any) error { return nil })
	if err := r.Run(context.Background(), "noop", nil); err != nil {
		t.Errorf("Run with nil logger: %v", err)
	}
}
