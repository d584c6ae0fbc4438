package presence

// Automation events raised towards the host.
const (
	EventConnectionStatus = "connection-status"
	EventDoorbellRings    = "doorbell-rings"
	EventIncomingWave     = "incoming-wave"
	EventPresenceStatus   = "presence-status"
)

// Events returns every automation event name.
func Events() []string {
	return []string{
		EventConnectionStatus,
		EventDoorbellRings,
		EventIncomingWave,
		EventPresenceStatus,
	}
}

// Notification is a named automation event with its fixed payload shape.
type Notification struct {
	Event   string
	Payload any
}

// ConnectionStatus is the payload of connection-status.
type ConnectionStatus struct {
	Connected bool `json:"connected"`
}

// DoorbellRings is the payload of doorbell-rings.
type DoorbellRings struct {
	Person string `json:"person"`
}

// IncomingWave is the payload of incoming-wave.
type IncomingWave struct {
	Person string `json:"person"`
}

// PresenceStatus is the payload of presence-status.
// Persons is a comma separated list of co-occupants, empty outside a private area.
type PresenceStatus struct {
	Alone   bool   `json:"alone"`
	Away    bool   `json:"away"`
	Persons string `json:"persons"`
}

// Notifier delivers notifications. Implementations must not block the caller
// and must not return delivery failures to it.
type Notifier interface {
	Notify(n Notification)
}
