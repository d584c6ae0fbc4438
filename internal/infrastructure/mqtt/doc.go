// Package mqtt connects the Gather bridge to the Gray Logic MQTT bus.
//
// The bridge publishes automation events, retained state and health, and
// receives action commands. The client reconnects automatically with
// backoff and restores its subscriptions after every reconnect.
//
//	Gather space ↔ bridge ↔ MQTT broker ↔ Gray Logic Core
//
// On connect the client publishes a retained online status on
// graylogic/system/status. Its Last Will defaults to an offline status on
// the same topic; WithWill replaces it, for example with the bridge's
// health LWT.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(reporter.LWTTopic(), lwt))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.BridgeCommandAll("gather"), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
//
// Handlers run on paho's goroutines; a panic is recovered and logged.
package mqtt
