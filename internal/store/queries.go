package store

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/myiotd/myiot-core/pkg/log"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

// UpsertMessage persists msg per spec.md §4.2's upsert_message operation,
// in its own single-message transaction. Prefer UpsertMessages for a batch
// of messages so they share one transaction and one fsync.
func (s *Store) UpsertMessage(msg sensor.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("store: begin upsert: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMessageTx(tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit upsert: %w", err)
	}
	return nil
}

// UpsertMessages persists every message in batch within a single
// transaction, matching spec.md §4.4's batched-committer rationale:
// one transaction (and one fsync) for the whole flushed batch rather than
// one per message. The batch commits or rolls back atomically; on error
// none of it is applied.
func (s *Store) UpsertMessages(batch []sensor.Message) error {
	if len(batch) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("store: begin upsert batch: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range batch {
		if err := upsertMessageTx(tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit upsert batch: %w", err)
	}
	return nil
}

// upsertMessageTx applies msg's upsert within an already-open transaction.
// ReadNonLogged messages are never offered to the store; a ReadSnapshot
// only updates the sensors row; ReadLogged updates both the sensors row and
// appends a readings row. Idempotent for identical (sensor_id, timestamp).
func upsertMessageTx(tx *sqlx.Tx, msg sensor.Message) error {
	if msg.Type == sensor.ReadNonLogged {
		return nil
	}

	pk := hashSensorID(msg.Sensor.ID)
	ts := msg.Reading.Timestamp.UnixMilli()
	encoded := value.Serialize(msg.Reading.Value)

	if _, err := sq.Insert("sensors").
		Columns("pk", "sensor_id", "timestamp", "title", "location", "value", "is_writable").
		Values(pk, msg.Sensor.ID, ts, nullIfEmpty(msg.Sensor.Title), nullIfEmpty(msg.Sensor.Location), encoded, msg.Sensor.IsWritable).
		Suffix("ON CONFLICT(sensor_id) DO UPDATE SET timestamp = excluded.timestamp, title = excluded.title, location = excluded.location, value = excluded.value, is_writable = excluded.is_writable").
		RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("store: upsert sensor: %w", err)
	}

	if msg.Type == sensor.ReadLogged {
		if _, err := sq.Insert("readings").
			Columns("sensor_fk", "timestamp", "value").
			Values(pk, ts, encoded).
			Suffix("ON CONFLICT(sensor_fk, timestamp) DO UPDATE SET value = excluded.value").
			RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("store: upsert reading: %w", err)
		}
	}

	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var sensorColumns = []string{"sensor_id", "timestamp", "title", "location", "value", "is_writable"}

func scanSensorMessage(row sq.RowScanner) (sensor.Message, error) {
	var (
		sensorID           string
		ts                 int64
		title, location    sql.NullString
		encoded            []byte
		isWritable         bool
	)
	if err := row.Scan(&sensorID, &ts, &title, &location, &encoded, &isWritable); err != nil {
		return sensor.Message{}, err
	}
	v, err := value.Deserialize(encoded)
	if err != nil {
		// A corrupted latest-value blob must not fail the whole query
		// (spec.md §4.1/§7): log it and yield None so the read API keeps
		// serving every other sensor.
		log.Errorf("store: decode value for %s: %v, substituting None", sensorID, err)
		v = value.None()
	}
	return sensor.Message{
		Type: sensor.ReadSnapshot,
		Sensor: sensor.Sensor{
			ID:         sensorID,
			Title:      title.String,
			Location:   location.String,
			IsWritable: isWritable,
		},
		Reading: sensor.Reading{
			Timestamp: time.UnixMilli(ts),
			Value:     v,
		},
	}, nil
}

// SelectLatest returns the latest-value row for sensorID, per spec.md
// §4.2's select_latest operation. Returns sql.ErrNoRows if unknown.
func (s *Store) SelectLatest(sensorID string) (sensor.Message, error) {
	row := sq.Select(sensorColumns...).From("sensors").
		Where(sq.Eq{"sensor_id": sensorID}).
		RunWith(s.db).QueryRow()
	return scanSensorMessage(row)
}

// SelectLatestAll returns the latest-value row for every known sensor,
// ordered by location then sensor id, per spec.md §4.2's select_latest_all.
func (s *Store) SelectLatestAll() ([]sensor.Message, error) {
	rows, err := sq.Select(sensorColumns...).From("sensors").
		OrderBy("location ASC", "sensor_id ASC").
		RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("store: select_latest_all: %w", err)
	}
	defer rows.Close()

	var out []sensor.Message
	for rows.Next() {
		msg, err := scanSensorMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// SelectReadings returns every reading for sensorID with timestamp >= since,
// ordered oldest first, per spec.md §4.2's select_readings operation.
func (s *Store) SelectReadings(sensorID string, since time.Time) ([]sensor.Reading, error) {
	rows, err := sq.Select("readings.timestamp", "readings.value").
		From("readings").
		Join("sensors ON sensors.pk = readings.sensor_fk").
		Where(sq.And{
			sq.Eq{"sensors.sensor_id": sensorID},
			sq.GtOrEq{"readings.timestamp": since.UnixMilli()},
		}).
		OrderBy("readings.timestamp ASC").
		RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("store: select_readings: %w", err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

// SelectLastN returns the n most recent readings for sensorID, ordered
// oldest first, per spec.md §4.2's select_last_n operation. Used by the
// rolling anomaly detector to bootstrap its window on startup.
func (s *Store) SelectLastN(sensorID string, n int) ([]sensor.Reading, error) {
	rows, err := sq.Select("readings.timestamp", "readings.value").
		From("readings").
		Join("sensors ON sensors.pk = readings.sensor_fk").
		Where(sq.Eq{"sensors.sensor_id": sensorID}).
		OrderBy("readings.timestamp DESC").
		Limit(uint64(n)).
		RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("store: select_last_n: %w", err)
	}
	defer rows.Close()

	readings, err := scanReadings(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

func scanReadings(rows *sql.Rows) ([]sensor.Reading, error) {
	var out []sensor.Reading
	for rows.Next() {
		var ts int64
		var encoded []byte
		if err := rows.Scan(&ts, &encoded); err != nil {
			return nil, err
		}
		v, err := value.Deserialize(encoded)
		if err != nil {
			return nil, fmt.Errorf("store: decode reading: %w", err)
		}
		out = append(out, sensor.Reading{Timestamp: time.UnixMilli(ts), Value: v})
	}
	return out, rows.Err()
}

// DeleteSensor cascade-removes sensorID and its readings, per spec.md
// §4.2's delete_sensor operation.
func (s *Store) DeleteSensor(sensorID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := sq.Delete("sensors").Where(sq.Eq{"sensor_id": sensorID}).RunWith(s.db).Exec(); err != nil {
		return fmt.Errorf("store: delete_sensor: %w", err)
	}
	return nil
}
