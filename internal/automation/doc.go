// Package automation exposes the Gather space to Gray Logic automations as
// flow cards.
//
// Three kinds of card exist:
//
//   - Triggers: the automation events the bridge raises (connection-status,
//     doorbell-rings, incoming-wave, presence-status) with their tokens
//   - Conditions: alone, present, is-connected
//   - Actions: connect, disconnect
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│                CommandRouter (commands.go)            │
//	│  graylogic/command/gather/{action} ──▶ Registry.Run   │
//	│  ack ──▶ graylogic/ack/gather/{action}                │
//	│  ┌──────────────┐      ┌─────────────────────┐       │
//	│  │   Registry   │─────▶│ Space (gather.Bridge)│      │
//	│  │(registry.go) │      └─────────────────────┘       │
//	│  └──────────────┘                                    │
//	└──────────────────────────────────────────────────────┘
//
// # Thread Safety
//
// Registry and CommandRouter are safe for concurrent use.
//
// # Usage
//
//	registry := automation.NewRegistry()
//	registry.SetLogger(log)
//	automation.RegisterSpaceCards(registry, bridge)
//
//	ok, err := registry.Evaluate(ctx, automation.ConditionAlone)
//	err = registry.Run(ctx, automation.ActionConnect, nil)
package automation
