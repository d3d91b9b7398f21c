// Package bridge holds example adapters that sit outside the core message
// substrate: ordinary bus subscribers that forward data to an external
// system. SPEC_FULL.md's domain stack calls this out explicitly: wiring
// nats-io/nats.go here must never make the core bus itself distributed.
package bridge

import (
	"github.com/myiotd/myiot-core/internal/bus"
	natsclient "github.com/myiotd/myiot-core/pkg/nats"
	"github.com/myiotd/myiot-core/pkg/log"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

// NATSBridge subscribes to the bus and republishes every ReadLogged message
// onto an external NATS subject, encoded as sensor_id + the value codec's
// bytes. It never reads from NATS back into the bus.
type NATSBridge struct {
	client  *natsclient.Client
	subject string
}

// NewNATSBridge wraps an already-connected client for publishing to subject.
func NewNATSBridge(client *natsclient.Client, subject string) *NATSBridge {
	return &NATSBridge{client: client, subject: subject}
}

// Run subscribes to recv and forwards every ReadLogged message until recv is
// closed. Intended to be wrapped by a supervisor.Task.
func (b *NATSBridge) Run(recv bus.Receiver) {
	for msg := range recv {
		if msg.Type != sensor.ReadLogged {
			continue
		}
		if err := b.client.Publish(b.subject, encode(msg)); err != nil {
			log.Warnf("bridge: publish %s to nats: %v", msg.Sensor.ID, err)
		}
	}
}

// encode frames a message as "<sensor_id>\x00<value bytes>" — a minimal
// wire format sufficient for a one-directional telemetry mirror; a richer
// framing belongs to whatever consumes the subject on the other end.
func encode(msg sensor.Message) []byte {
	out := make([]byte, 0, len(msg.Sensor.ID)+1+8)
	out = append(out, msg.Sensor.ID...)
	out = append(out, 0)
	out = append(out, value.Serialize(msg.Reading.Value)...)
	return out
}
