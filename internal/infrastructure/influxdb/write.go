package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementNotifications = "gather_notifications"
	MeasurementConnection    = "gather_connection"
)

// Outcome tag values for MeasurementNotifications.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// WriteNotification counts one notification delivery attempt.
//
// Example:
//
//	client.WriteNotification("doorbell-rings", true)
func (c *Client) WriteNotification(event string, delivered bool) {
	outcome := OutcomeDelivered
	if !delivered {
		outcome = OutcomeFailed
	}
	c.writePoint(write.NewPoint(
		MeasurementNotifications,
		map[string]string{
			"event":   event,
			"outcome": outcome,
		},
		map[string]any{
			"count": int64(1),
		},
		time.Now(),
	))
}

// WriteConnectionState records the space connection gauge: 1 when
// connected, 0 otherwise.
func (c *Client) WriteConnectionState(spaceID string, connected bool) {
	var value int64
	if connected {
		value = 1
	}
	c.writePoint(write.NewPoint(
		MeasurementConnection,
		map[string]string{
			"space_id": spaceID,
		},
		map[string]any{
			"connected": value,
		},
		time.Now(),
	))
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(p)
}
