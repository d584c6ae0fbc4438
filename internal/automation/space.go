package automation

import (
	"context"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
)

// Card names for the Gather space.
const (
	ConditionAlone       = "alone"
	ConditionPresent     = "present"
	ConditionIsConnected = "is-connected"

	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
)

// Space is the part of the Gather bridge the cards drive.
// Satisfied by *gather.Bridge.
type Space interface {
	IsAlone() bool
	IsPresent() bool
	IsConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// RegisterSpaceCards registers the Gather triggers, conditions and actions
// against space.
func RegisterSpaceCards(r *Registry, space Space) {
	r.RegisterTrigger(presence.EventConnectionStatus,
		"The connection to the space was established or rejected", "connected")
	r.RegisterTrigger(presence.EventDoorbellRings,
		"Someone rang the doorbell of your private area", "person")
	r.RegisterTrigger(presence.EventIncomingWave,
		"Someone waved at you", "person")
	r.RegisterTrigger(presence.EventPresenceStatus,
		"Your presence or the people around you changed", "alone", "away", "persons")

	r.RegisterCondition(ConditionAlone, "You are alone in your private area",
		func(context.Context) (bool, error) { return space.IsAlone(), nil })
	r.RegisterCondition(ConditionPresent, "You are present in the space",
		func(context.Context) (bool, error) { return space.IsPresent(), nil })
	r.RegisterCondition(ConditionIsConnected, "The space connection is open",
		func(context.Context) (bool, error) { return space.IsConnected(), nil })

	r.RegisterAction(ActionConnect, "Connect to the space",
		func(ctx context.Context, _ map[string]any) error { return space.Connect(ctx) })
	r.RegisterAction(ActionDisconnect, "Disconnect from the space",
		func(ctx context.Context, _ map[string]any) error { return space.Disconnect(ctx) })
}
