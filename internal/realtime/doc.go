// Package realtime is the client for the virtual-office realtime service.
//
// A Client holds one WebSocket session to one space. It keeps a live
// snapshot of the space (occupants in join order, maps with their private
// areas in the order the service sent them) and routes named events to
// subscribers.
//
// # Wire Format
//
// Frames are JSON text messages. After dialling, the client sends:
//
//	{"type":"init","space_id":"abc\\office","api_key":"..."}
//
// The service answers with frames of these types:
//
//	{"type":"connection","ok":true}
//	{"type":"space","players":{"p1":{"name":"Ana","map":"M1","x":3,"y":4}},
//	 "maps":{"M1":{"nooks":{"nook-1":{"nookCoords":{"coords":[{"x":3,"y":4}]}}}}}}
//	{"type":"event","event":"playerMoves","playerId":"p1","data":{"x":4,"y":4}}
//
// A close frame from the service ends the session and is reported to
// disconnection subscribers with its code and reason.
//
// # Ordering
//
// Frames are read by a single goroutine. State updates carried by an event
// are applied to the snapshot before the event's subscribers run, and
// subscribers run one at a time in arrival order. Subscribers must not call
// Disconnect from inside a callback.
package realtime
