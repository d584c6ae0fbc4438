// Package gather implements the virtual-office bridge for Gray Logic.
//
// The bridge owns one realtime session to a Gather space. It tracks the
// configured self occupant, routes space events to the presence evaluator
// and raises automation notifications (connection-status, doorbell-rings,
// incoming-wave, presence-status).
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   Gray Logic    │  notify  │  Gather Bridge  │   WebSocket
//	│      Core       │◄─────────│   (this pkg)    │◄──────────► Gather space
//	└─────────────────┘          └─────────────────┘
//
// # Connection Lifecycle
//
// A bridge starts Disconnected. Connect moves it to Connecting and opens a
// session; the service's connection callback then settles it at Connected
// or Failed. Disconnect, or a disconnect initiated by the service, returns
// it to Disconnected and drops every piece of state derived from the
// session: the self handle, self's private area and the avatar name.
//
// The bridge never reconnects on its own. Reconnection is an explicit
// action (automation card, API call or restart).
//
// # Space Identifiers
//
// Space ids may be given in browser form
// ("https://app.gather.town/app/abc123/office"). The URL prefix is removed
// and path separators become backslashes ("abc123\office").
//
// # Thread Safety
//
// Session callbacks arrive on one goroutine in order. The bridge
// serialises them with host calls (conditions, actions, status) so cached
// state is only ever touched by one caller at a time.
package gather
