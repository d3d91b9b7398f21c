// Package persister implements the bufferizer/committer pair from spec.md
// §4.4: one bus subscriber appends every message to a FIFO buffer, and a
// periodic committer drains it into a single SQLite transaction, amortizing
// fsync cost the way the teacher's repository layer batches job inserts.
package persister

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/myiotd/myiot-core/internal/bus"
	"github.com/myiotd/myiot-core/internal/metrics"
	"github.com/myiotd/myiot-core/internal/store"
	"github.com/myiotd/myiot-core/pkg/log"
	"github.com/myiotd/myiot-core/pkg/sensor"
)

// DefaultFlushInterval is spec.md §4.4's T.
const DefaultFlushInterval = time.Second

// Persister owns the buffer shared between the bufferizer and the
// committer, and the scheduler driving the committer's wakeups.
type Persister struct {
	store *store.Store

	mu     sync.Mutex
	buffer []sensor.Message

	flushInterval time.Duration
	scheduler     gocron.Scheduler
}

// New wires a Persister against st with the given flush interval. Pass
// DefaultFlushInterval unless the deployment overrides T.
func New(st *store.Store, flushInterval time.Duration) (*Persister, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Persister{store: st, flushInterval: flushInterval, scheduler: scheduler}, nil
}

// Run subscribes the bufferizer to recv and starts the committer's
// scheduled flushes. tx is used to publish the derived update/change
// notification messages described in SPEC_FULL.md back onto the same bus.
func (p *Persister) Run(recv bus.Receiver, tx bus.Sender) error {
	go p.bufferize(recv)

	_, err := p.scheduler.NewJob(
		gocron.DurationJob(p.flushInterval),
		gocron.NewTask(func() { p.flush(tx) }),
	)
	if err != nil {
		return err
	}
	p.scheduler.Start()
	return nil
}

// Shutdown stops the scheduler. It does not drain any remaining buffered
// messages; callers that need a final flush should call Flush explicitly.
func (p *Persister) Shutdown(ctx context.Context) error {
	return p.scheduler.Shutdown()
}

// bufferize is the bufferizer task: append every message as it arrives.
func (p *Persister) bufferize(recv bus.Receiver) {
	for msg := range recv {
		p.mu.Lock()
		p.buffer = append(p.buffer, msg)
		p.mu.Unlock()
	}
}

// Flush drains the buffer and commits it, exposed directly so tests and a
// graceful-shutdown path can force a flush without waiting for the
// scheduler's next tick.
func (p *Persister) Flush(tx bus.Sender) {
	p.flush(tx)
}

func (p *Persister) flush(tx bus.Sender) {
	p.mu.Lock()
	batch := p.buffer
	p.buffer = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	start := time.Now()

	persistable := make([]sensor.Message, 0, len(batch))
	previous := make([]sensor.Message, 0, len(batch))
	hadPrevious := make([]bool, 0, len(batch))
	for _, msg := range batch {
		if msg.Type != sensor.ReadLogged && msg.Type != sensor.ReadSnapshot {
			continue
		}
		prev, ok := p.previousValue(msg.Sensor.ID)
		persistable = append(persistable, msg)
		previous = append(previous, prev)
		hadPrevious = append(hadPrevious, ok)
	}

	committed := 0
	if len(persistable) > 0 {
		if err := p.store.UpsertMessages(persistable); err != nil {
			log.Errorf("persister: upsert batch of %d: %v", len(persistable), err)
			metrics.PersisterFlushFailures.Inc()
		} else {
			committed = len(persistable)
			if tx != nil {
				for i, msg := range persistable {
					if hadPrevious[i] {
						publishDerivedMessages(tx, msg, previous[i])
					}
				}
			}
		}
	}

	elapsed := time.Since(start)
	metrics.PersisterFlushSeconds.Observe(elapsed.Seconds())
	metrics.PersisterFlushSize.Observe(float64(committed))
	log.Debugf("persister: flushed %d/%d messages in %s", committed, len(batch), elapsed)
}

// previousValue looks up a sensor's latest-value row before it is
// overwritten by the pending upsert, so the derived update/change messages
// below can diff against it. A missing row (brand new sensor) is not an
// error; there's simply nothing to diff against yet.
func (p *Persister) previousValue(sensorID string) (sensor.Message, bool) {
	previous, err := p.store.SelectLatest(sensorID)
	if err != nil {
		return sensor.Message{}, false
	}
	return previous, true
}

// publishDerivedMessages implements the update/change notifications
// described in SPEC_FULL.md, derived from the original source's
// core/persistence.rs::send_messages.
func publishDerivedMessages(tx bus.Sender, current, previous sensor.Message) {
	bus.Publish(tx, sensor.NewComposer(current.Sensor.ID+"::update").
		Type(sensor.ReadNonLogged).
		Timestamp(current.Reading.Timestamp).
		Value(current.Reading.Value).
		Compose())

	if !current.Reading.Value.Equal(previous.Reading.Value) {
		bus.Publish(tx, sensor.NewComposer(current.Sensor.ID+"::change").
			Type(sensor.ReadNonLogged).
			Timestamp(current.Reading.Timestamp).
			Value(current.Reading.Value).
			Compose())
	}
}
