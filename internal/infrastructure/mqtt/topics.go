package mqtt

import "fmt"

// TopicPrefix is the root of every Gray Logic topic.
//
// Bridge topics use the flat scheme graylogic/{category}/{protocol}/{name}.
const TopicPrefix = "graylogic"

// Topics builds Gray Logic MQTT topics.
//
//	mqtt.Topics{}.BridgeEvent("gather", "incoming-wave")
//	// "graylogic/event/gather/incoming-wave"
type Topics struct{}

// BridgeEvent returns the topic for an event raised by a bridge.
func (Topics) BridgeEvent(protocol, event string) string {
	return bridgeTopic("event", protocol, event)
}

// BridgeState returns the retained state topic for a bridge value.
func (Topics) BridgeState(protocol, name string) string {
	return bridgeTopic("state", protocol, name)
}

// BridgeCommand returns the topic for a command to a bridge.
func (Topics) BridgeCommand(protocol, name string) string {
	return bridgeTopic("command", protocol, name)
}

// BridgeCommandAll returns a pattern matching every command to a bridge.
func (Topics) BridgeCommandAll(protocol string) string {
	return bridgeTopic("command", protocol, "+")
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
func (Topics) BridgeAck(protocol, name string) string {
	return bridgeTopic("ack", protocol, name)
}

// BridgeHealth returns the retained health topic of a bridge.
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// SystemStatus returns the topic for client online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

func bridgeTopic(category, protocol, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, category, protocol, name)
}
