package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorMetric records one numeric reading from a field node.
// The write is non-blocking; points are batched and flushed by the
// write API. A disconnected client drops the point silently, so the
// dispatch path never stalls on the backend.
//
// The key is the signal's source key ("<nodeID>/<moduleAlias>") and
// becomes the point's tag; the field names the reading within the
// module ("temperature", "humidity", or "value" for scalar signals).
func (c *Client) WriteSensorMetric(key string, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_data",
		map[string]string{
			"key": key,
		},
		map[string]interface{}{
			field: value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint records a point outside the sensor_data measurement, with
// the caller choosing measurement, tags and fields. Used for hub
// lifecycle markers.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
