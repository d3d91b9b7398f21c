// Package bus implements the in-process, many-producer many-consumer
// broadcast fabric described in spec.md §4.3: one ingress channel accepts
// every publish, one dispatcher goroutine fans each message out to every
// subscriber's own mailbox.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/myiotd/myiot-core/internal/metrics"
	"github.com/myiotd/myiot-core/pkg/log"
	"github.com/myiotd/myiot-core/pkg/sensor"
)

// Sender is what publishers use to push a message onto the bus ingress.
type Sender chan<- sensor.Message

// Receiver is what subscribers drain their mailbox from.
type Receiver <-chan sensor.Message

// defaultMailboxCapacity sizes each subscriber's buffered mailbox channel.
// A mailbox holds at most this many undelivered messages. The dispatcher
// never blocks on a full mailbox: the message is dropped for that
// subscriber only — see sendAndForget.
const defaultMailboxCapacity = 256

// Bus is the broadcast fabric. Construct with New, register subscribers
// with AddReceiver (before calling Spawn, or concurrently — see AddReceiver),
// then Spawn the dispatcher exactly once.
type Bus struct {
	ingress chan sensor.Message
	tx      chan<- sensor.Message

	mu          sync.Mutex
	subscribers []chan sensor.Message

	sequence atomic.Uint64
}

// New creates a Bus whose ingress channel buffers up to 1024 messages.
// Publishing does not block while that buffer has room; once it is full, a
// publisher blocks until the dispatcher drains it.
func New() *Bus {
	ingress := make(chan sensor.Message, 1024)
	return &Bus{ingress: ingress, tx: ingress}
}

// AddSender returns a new handle for publishing onto the bus; essentially a
// clone of the ingress sender.
func (b *Bus) AddSender() Sender {
	return b.tx
}

// AddReceiver registers a new subscriber mailbox and returns the receiving
// end. Safe to call both before Spawn and concurrently with a running
// dispatcher: the subscriber list is read under the same lock Spawn uses
// when fanning a message out, so a subscriber added mid-flight either sees
// the in-flight message or doesn't, but never receives a torn one.
func (b *Bus) AddReceiver() Receiver {
	ch := make(chan sensor.Message, defaultMailboxCapacity)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Sequence returns the number of messages dispatched so far. Strictly
// monotonic, per spec.md §8 property 6.
func (b *Bus) Sequence() uint64 {
	return b.sequence.Load()
}

// Spawn starts the dispatcher goroutine. It drains the ingress channel
// forever, cloning each message once per subscriber; a send failure for one
// subscriber is logged and does not affect delivery to the others. If the
// ingress channel is ever closed the dispatcher logs a fatal error and
// returns — a closed ingress is a programming error, not a runtime
// condition (spec.md §4.3).
func (b *Bus) Spawn() {
	go func() {
		for msg := range b.ingress {
			b.dispatch(msg)
		}
		log.Crit("bus: ingress channel closed, dispatcher exiting")
	}()
}

func (b *Bus) dispatch(msg sensor.Message) {
	b.mu.Lock()
	subs := make([]chan sensor.Message, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		sendAndForget(sub, msg)
	}

	n := b.sequence.Add(1)
	metrics.BusDispatched.Inc()
	log.Debugf("bus: dispatched (#%d) %s", n, msg.Sensor.ID)
}

// sendAndForget delivers msg to sub without blocking the dispatcher
// indefinitely on a stalled subscriber, and logs+swallows any failure
// instead of crashing the dispatcher (spec.md §4.3's failure semantics).
func sendAndForget(sub chan sensor.Message, msg sensor.Message) {
	select {
	case sub <- msg:
	default:
		// Mailbox full: subscriber isn't keeping up. Drop rather than block
		// the dispatcher, and count it the same as a closed-channel failure.
		metrics.BusSubscriberSendFailures.Inc()
		log.Debugf("bus: mailbox full, dropping message for a subscriber")
	}
}

// Publish is the send-and-forget helper for publishers that do not wish to
// propagate channel errors (spec.md §4.3). The bus's ingress channel is
// always open for the lifetime of the process, so this never blocks beyond
// the ingress buffer filling up.
func Publish(tx Sender, msg sensor.Message) {
	tx <- msg
}
