package store

import (
	"database/sql"
	"fmt"
)

// Keys used in session_state.
const (
	StateLastChat = "last_chat"
)

// SetState stores a session-scoped value.
func (db *DB) SetState(key, value string) error {
	_, err := db.Exec(`INSERT INTO session_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// GetState returns a session-scoped value, or "" when unset.
func (db *DB) GetState(key string) (string, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM session_state WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return v, nil
}
