package store

import (
	"fmt"
	"time"

	"github.com/matheus3301/campusmsg/internal/chat"
)

// SaveMessages upserts confirmed messages of the conversation with peer
// (idempotent on server id). Rows missing from msgs are kept so older
// history stays searchable.
func (db *DB) SaveMessages(peer chat.UserRef, msgs []chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, conversation_key, sender_type, sender_id, receiver_type, receiver_id,
			body, message_type, file_url, file_name, timestamp, is_edited, is_seen, is_removed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			message_type = excluded.message_type,
			file_url = excluded.file_url,
			file_name = excluded.file_name,
			timestamp = excluded.timestamp,
			is_edited = excluded.is_edited,
			is_seen = excluded.is_seen,
			is_removed = MAX(messages.is_removed, excluded.is_removed),
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	key := peer.Key()
	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if m.ID <= 0 {
			continue
		}
		if _, err := stmt.Exec(m.ID, key, m.Sender.Type, m.Sender.ID, m.Receiver.Type, m.Receiver.ID,
			m.Text, string(m.Type), m.FileURL, m.FileName, millis(m.Timestamp), m.IsEdited, m.IsSeen, m.Removed(), now); err != nil {
			return fmt.Errorf("upsert message %d: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit messages: %w", err)
	}
	return nil
}

const messageColumns = `id, sender_type, sender_id, receiver_type, receiver_id, body, message_type,
	file_url, file_name, timestamp, is_edited, is_seen`

func scanMessage(r rowScanner, extra ...any) (chat.Message, error) {
	var m chat.Message
	var typ string
	var ts int64
	dest := []any{&m.ID, &m.Sender.Type, &m.Sender.ID, &m.Receiver.Type, &m.Receiver.ID, &m.Text, &typ,
		&m.FileURL, &m.FileName, &ts, &m.IsEdited, &m.IsSeen}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return chat.Message{}, err
	}
	m.Type = chat.MessageType(typ)
	m.Timestamp = fromMillis(ts)
	return m, nil
}

// ListMessages returns cached messages with peer older than before,
// newest first. A zero before lists from the latest message.
func (db *DB) ListMessages(peer chat.UserRef, before time.Time, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	beforeTs := millis(before)
	if beforeTs <= 0 {
		beforeTs = time.Now().Add(24 * time.Hour).UnixMilli()
	}
	rows, err := db.Query(`SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_key = ? AND timestamp < ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, peer.Key(), beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SaveTombstone records that the user unsent message id and blanks any
// cached copy.
func (db *DB) SaveTombstone(id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO tombstones (message_id, created_at) VALUES (?, ?)
		ON CONFLICT(message_id) DO NOTHING`, id, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("insert tombstone: %w", err)
	}
	if _, err := tx.Exec(`UPDATE messages SET body = ?, file_url = '', file_name = '', is_removed = 1
		WHERE id = ?`, chat.RemovedText, id); err != nil {
		return fmt.Errorf("blank message: %w", err)
	}
	return tx.Commit()
}

// Tombstones returns every message id the user unsent.
func (db *DB) Tombstones() ([]int64, error) {
	rows, err := db.Query(`SELECT message_id FROM tombstones ORDER BY message_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
