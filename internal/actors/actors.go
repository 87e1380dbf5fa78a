package actors

import (
	"context"
	"net/http"

	"github.com/nerrad567/khome-core/internal/scheduler"
)

// Logger is the minimal logging interface actors need.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SignalSender delivers a signal to an actuator module. Implemented by
// the hub's south courier.
type SignalSender interface {
	SendSignal(nid, mal string, value any) error
}

// BusPublisher publishes a payload to an arbitrary bus topic.
// Implemented by the MQTT client wrapper.
type BusPublisher interface {
	PublishTo(topic string, payload any) error
}

// SensorLog appends sensor readings to local storage. Satisfied by the
// inventory repository.
type SensorLog interface {
	LogSensorData(ctx context.Context, sensor, value string) error
}

// MetricWriter pushes numeric sensor readings to the time-series
// backend. Satisfied by the influxdb client.
type MetricWriter interface {
	WriteSensorMetric(key, field string, value float64)
}

// Deps bundles the collaborators actors may need. Constructors pick the
// ones their type uses; a missing collaborator fails construction of
// the types that require it, never of the others.
type Deps struct {
	Signals   SignalSender
	Bus       BusPublisher
	Sensors   SensorLog
	Metrics   MetricWriter
	Scheduler *scheduler.Scheduler

	// HTTPClient and ThingSpeakURL configure the ThingSpeak uploader.
	// Defaults are applied when empty.
	HTTPClient    *http.Client
	ThingSpeakURL string

	Logger Logger
}

func (d Deps) logger() Logger {
	if d.Logger == nil {
		return noopLogger{}
	}
	return d.Logger
}
