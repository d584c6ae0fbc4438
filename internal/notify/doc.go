// Package notify delivers automation notifications to the host.
//
// A Dispatcher accepts notifications from the presence core without
// blocking it. A single worker drains a bounded FIFO queue and fans each
// notification out to:
//
//   - MQTT: graylogic/event/gather/{event}, plus a retained copy on
//     graylogic/state/gather/{event} for connection-status and presence-status
//   - the API WebSocket hub, on a channel named after the event
//   - InfluxDB delivery counters (optional)
//
// Delivery failures are logged as ErrDispatch and counted. They never reach
// the caller of Notify.
package notify
