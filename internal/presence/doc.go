// Package presence resolves where the tracked "self" occupant of a virtual
// space is and decides when a presence change is worth reporting.
//
// The package is pure logic over a read-only Snapshot of the space:
//
//   - ResolvePrivateArea maps an occupant's grid cell to the private area
//     ("nook") listing that cell, if any.
//   - SelfResolver finds the occupant whose display name matches the
//     configured avatar name and remembers it.
//   - Evaluator filters occupant events (moves, alone changes, rings, waves)
//     down to the transitions that concern self and emits Notifications.
//
// # Cached state
//
// Two values are cached: the self occupant's id and self's private area id.
// The area is invalidated when self moves; both are cleared by Reset when
// the realtime session ends. A failed lookup is never cached because the
// snapshot may still be loading.
//
// # Thread Safety
//
// SelfResolver and Evaluator are not safe for concurrent use. The bridge
// delivers events to them one at a time.
package presence
