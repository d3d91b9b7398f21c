// Package sensor describes sensors, readings, and the messages that carry
// them across the bus, persister, and store.
package sensor

import (
	"time"

	"github.com/myiotd/myiot-core/pkg/value"
)

// Sensor is the logical identity for a stream of readings. Id is stable and
// by convention prefixed with the originating service id, e.g.
// "openweather::2759794::temperature". The store derives the primary key
// from Id via a stable hash (see internal/store); Sensor never carries that
// key itself.
type Sensor struct {
	ID         string
	Title      string
	Location   string
	IsWritable bool
}

// Reading is a single (timestamp, value) observation for a sensor.
type Reading struct {
	// Timestamp has millisecond precision; store columns persist
	// UnixMilli().
	Timestamp time.Time
	Value     value.Value
}

// Type is the message delivery/persistence type.
type Type uint8

const (
	// ReadLogged is persisted to both the latest-value row and the time series.
	ReadLogged Type = iota
	// ReadNonLogged is broadcast only; never reaches the store.
	ReadNonLogged
	// ReadSnapshot updates the latest-value row only (e.g. camera frames).
	ReadSnapshot
	// Write targets a writable sensor owned by another service.
	Write
)

func (t Type) String() string {
	switch t {
	case ReadLogged:
		return "ReadLogged"
	case ReadNonLogged:
		return "ReadNonLogged"
	case ReadSnapshot:
		return "ReadSnapshot"
	case Write:
		return "Write"
	default:
		return "Unknown"
	}
}

// Metadata is an open-ended, service-specific record attached to a Message.
// The only field the core itself interprets is EnableNotification.
type Metadata struct {
	EnableNotification *bool
}

// Message is what services exchange over the bus: a reading wrapped with a
// sensor snapshot, a delivery type, and metadata.
type Message struct {
	Type     Type
	Sensor   Sensor
	Reading  Reading
	Metadata Metadata
}

// Composer builds a Message field by field. Prefer it to constructing a
// Message literal directly, mirroring the original source's builder.
type Composer struct {
	msg Message
}

// NewComposer starts building a ReadLogged message for the given sensor id.
func NewComposer(sensorID string) *Composer {
	return &Composer{msg: Message{
		Type:    ReadLogged,
		Sensor:  Sensor{ID: sensorID},
		Reading: Reading{Timestamp: time.Now()},
	}}
}

func (c *Composer) Type(t Type) *Composer {
	c.msg.Type = t
	return c
}

func (c *Composer) Timestamp(ts time.Time) *Composer {
	c.msg.Reading.Timestamp = ts
	return c
}

func (c *Composer) Value(v value.Value) *Composer {
	c.msg.Reading.Value = v
	return c
}

func (c *Composer) Title(title string) *Composer {
	c.msg.Sensor.Title = title
	return c
}

func (c *Composer) Location(location string) *Composer {
	c.msg.Sensor.Location = location
	return c
}

func (c *Composer) Writable(writable bool) *Composer {
	c.msg.Sensor.IsWritable = writable
	return c
}

func (c *Composer) EnableNotification(enable bool) *Composer {
	c.msg.Metadata.EnableNotification = &enable
	return c
}

func (c *Composer) Compose() Message {
	return c.msg
}
