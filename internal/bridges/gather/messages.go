package gather

import (
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-gather/internal/presence"
)

// MQTT message types exchanged between the Gather bridge and the rest of
// Gray Logic. Topics follow graylogic/{category}/gather/{name}.

// Protocol is the protocol segment of every bridge topic.
const Protocol = "gather"

// EventMessage carries one automation notification.
// Topic: graylogic/event/gather/{event}
// QoS: 1, Retained: No (connection-status and presence-status are also
// published retained on graylogic/state/gather/{event})
type EventMessage struct {
	// Event is the automation event name, e.g. "presence-status".
	Event string `json:"event"`

	// SpaceID is the normalised space the event came from.
	SpaceID string `json:"space_id,omitempty"`

	// Timestamp is when the notification was raised (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Payload is the event's fixed payload shape.
	Payload any `json:"payload"`
}

// CommandMessage asks the bridge to run an automation action.
// Topic: graylogic/command/gather/{action}
type CommandMessage struct {
	// ID correlates the command with its acknowledgment.
	// Generated by the bridge when empty.
	ID string `json:"id"`

	// Timestamp is when the command was issued.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Source indicates where the command originated ("api", "automation", "mqtt").
	Source string `json:"source,omitempty"`

	// Parameters contains action-specific values.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the action ran successfully.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the action returned an error.
	AckFailed AckStatus = "failed"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/gather/{action}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Status    AckStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// NewAckMessage creates an acknowledgment for a command. A non-nil err
// marks it failed.
func NewAckMessage(commandID, action string, err error) AckMessage {
	ack := AckMessage{
		CommandID: commandID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Status:    AckAccepted,
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = err.Error()
	}
	return ack
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthOffline   HealthStatus = "offline"
	HealthStarting  HealthStatus = "starting"
	HealthStopping  HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/gather
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string            `json:"bridge"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        HealthStatus      `json:"status"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Connection    *ConnectionStatus `json:"connection,omitempty"`
	Statistics    *BridgeStatistics `json:"statistics,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// ConnectionStatus describes the space session.
type ConnectionStatus struct {
	// Status is the ConnectionState name.
	Status string `json:"status"`

	SpaceID        string     `json:"space_id,omitempty"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	Occupants              int    `json:"occupants"`
	Maps                   int    `json:"maps"`
	EventsReceived         uint64 `json:"events_received"`
	NotificationsDelivered uint64 `json:"notifications_delivered"`
	NotificationsDropped   uint64 `json:"notifications_dropped"`
	NotificationsFailed    uint64 `json:"notifications_failed"`
}

// NewHealthMessage creates a health message from the bridge status and
// delivery counters.
func NewHealthMessage(bridgeID, version string, status HealthStatus, st Status, deliveries DeliveryStats, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Connection: &ConnectionStatus{
			Status:         st.State,
			SpaceID:        st.SpaceID,
			ConnectedSince: st.ConnectedAt,
		},
		Statistics: &BridgeStatistics{
			NotificationsDelivered: deliveries.Delivered,
			NotificationsDropped:   deliveries.Dropped,
			NotificationsFailed:    deliveries.Failed,
		},
	}
	if st.Session != nil {
		msg.Statistics.Occupants = st.Session.Occupants
		msg.Statistics.Maps = st.Session.Maps
		msg.Statistics.EventsReceived = st.Session.Events
	}
	return msg
}

// NewLWTMessage creates the Last Will and Testament published by the broker
// if the bridge disappears.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Topic helpers

var topics mqtt.Topics

// EventTopic returns the topic for an automation event.
// Example: graylogic/event/gather/presence-status
func EventTopic(event string) string { return topics.BridgeEvent(Protocol, event) }

// StateTopic returns the retained state topic for an automation event.
// Example: graylogic/state/gather/connection-status
func StateTopic(event string) string { return topics.BridgeState(Protocol, event) }

// CommandTopic returns the topic for an action command.
// Example: graylogic/command/gather/connect
func CommandTopic(action string) string { return topics.BridgeCommand(Protocol, action) }

// CommandSubscribeTopic returns the subscription pattern for all commands.
func CommandSubscribeTopic() string { return topics.BridgeCommandAll(Protocol) }

// AckTopic returns the topic for command acknowledgments.
func AckTopic(action string) string { return topics.BridgeAck(Protocol, action) }

// HealthTopic returns the topic for health status.
func HealthTopic() string { return topics.BridgeHealth(Protocol) }

// ActionFromTopic returns the last segment of a command topic.
func ActionFromTopic(topic string) (string, bool) {
	action, ok := strings.CutPrefix(topic, CommandTopic(""))
	if !ok || action == "" || strings.Contains(action, "/") {
		return "", false
	}
	return action, true
}

// RetainedEvent reports whether an automation event also keeps a retained
// state copy.
func RetainedEvent(event string) bool {
	return event == presence.EventConnectionStatus || event == presence.EventPresenceStatus
}
