// Package api provides the HTTP API and WebSocket event stream of the
// Gather bridge.
//
// Routes live under /api/v1. Everything except /health needs a bearer
// token issued by package auth:
//
//	GET  /health                 liveness and bridge state
//	GET  /space                  connection state, self, area, presence flags
//	GET  /cards                  registered flow cards
//	GET  /conditions             condition cards
//	GET  /conditions/{name}      evaluate a condition
//	POST /actions/{name}         run an action (connect, disconnect)
//	GET  /pairing                whether an API key is stored
//	POST /pairing/token          store a new API key (sealed)
//	GET  /settings, PUT /settings  space id and avatar name
//	GET  /ws                     automation event stream
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
