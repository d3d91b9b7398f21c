package store

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// GetUserData returns the bytes stored under key, or ok == false if the key
// is unknown or has expired. Per spec.md §8 property 9, an expired entry is
// treated as absent regardless of the bytes still on disk.
func (s *Store) GetUserData(key string) (value []byte, ok bool, err error) {
	row := sq.Select("value", "expires_at").From("user_data").
		Where(sq.Eq{"pk": key}).
		RunWith(s.db).QueryRow()

	var expiresAt sql.NullInt64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: get_user_data %s: %w", key, err)
	}

	if expiresAt.Valid && expiresAt.Int64 < time.Now().UnixMilli() {
		return nil, false, nil
	}
	return value, true, nil
}

// SetUserData stores value under key. If expiresAt is the zero Time the
// entry never expires, per spec.md §4.2's get/set_user_data operation.
func (s *Store) SetUserData(key string, value []byte, expiresAt time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var expires interface{}
	if !expiresAt.IsZero() {
		expires = expiresAt.UnixMilli()
	}

	if _, err := sq.Insert("user_data").
		Columns("pk", "value", "expires_at").
		Values(key, value, expires).
		Suffix("ON CONFLICT(pk) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at").
		RunWith(s.db).Exec(); err != nil {
		return fmt.Errorf("store: set_user_data %s: %w", key, err)
	}
	return nil
}
