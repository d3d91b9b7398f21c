// Package supervisor implements the restart-loop wrapper from spec.md §4.5:
// each service runs as a long-lived task whose liveness is itself a sensor
// event, so the dashboard, alerters, and detectors consume it the same way
// they consume any other reading.
package supervisor

import (
	"context"
	"time"

	"github.com/myiotd/myiot-core/internal/bus"
	"github.com/myiotd/myiot-core/internal/metrics"
	"github.com/myiotd/myiot-core/pkg/log"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

// DefaultCooldown is spec.md §4.5's 60 s restart cooldown.
const DefaultCooldown = 60 * time.Second

// Task is a service loop body. It returns (for any reason, success or
// failure) when its work is done or when ctx is canceled.
type Task func(ctx context.Context) error

// Supervisor restarts Tasks forever, publishing liveness around each run.
type Supervisor struct {
	tx       bus.Sender
	cooldown time.Duration
}

// New returns a Supervisor that publishes liveness events onto tx.
func New(tx bus.Sender, cooldown time.Duration) *Supervisor {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Supervisor{tx: tx, cooldown: cooldown}
}

// Run wraps task in the restart loop described in spec.md §4.5, protocol
// steps 1–4: publish is_running=true, run, publish is_running=false on any
// return, sleep the cooldown, restart. Run blocks until ctx is canceled;
// the in-flight task still runs to completion (or its own ctx check) before
// Run returns.
func (s *Supervisor) Run(ctx context.Context, taskName string, task Task) {
	sensorID := taskName + "::is_running"

	for {
		if ctx.Err() != nil {
			return
		}

		s.publishLiveness(sensorID, true)
		err := task(ctx)
		s.publishLiveness(sensorID, false)

		if err != nil {
			log.Warnf("supervisor: task %s returned: %v", taskName, err)
		} else {
			log.Debugf("supervisor: task %s returned without error", taskName)
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-time.After(s.cooldown):
		case <-ctx.Done():
			return
		}
		metrics.SupervisorRestarts.WithLabelValues(taskName).Inc()
	}
}

func (s *Supervisor) publishLiveness(sensorID string, running bool) {
	bus.Publish(s.tx, sensor.NewComposer(sensorID).
		Type(sensor.ReadLogged).
		Value(value.Boolean(running)).
		Compose())
}
