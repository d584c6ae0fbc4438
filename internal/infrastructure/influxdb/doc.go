// Package influxdb records Gather bridge metrics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Two measurements are
// written:
//
//   - gather_notifications: one point per delivery attempt, tagged with the
//     event name and outcome (delivered or failed)
//   - gather_connection: the space connection gauge, tagged with space_id
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics are optional
//	}
//	defer client.Close()
//
//	client.WriteNotification("incoming-wave", true)
//
// Writes are non-blocking and batched. Asynchronous write failures are
// delivered to the SetOnError callback. Connection and health check errors
// are returned directly.
package influxdb
