package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/campusmsg/internal/chat"
)

// SaveConversations replaces the cached conversation list with convs,
// preserving their order.
func (db *DB) SaveConversations(convs []chat.Conversation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO conversations (key, peer_type, peer_id, name, avatar_url, last_message, last_message_time,
			last_message_at, last_message_from_me, last_message_seen, unread_count, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for i, c := range convs {
		if _, err := stmt.Exec(c.Key, c.Peer.Type, c.Peer.ID, c.Name, c.AvatarURL, c.LastMessage, c.LastMessageTime,
			millis(c.LastMessageAt), c.LastMessageFromMe, c.LastMessageSeen, c.UnreadCount, i, now); err != nil {
			return fmt.Errorf("insert conversation %s: %w", c.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit conversations: %w", err)
	}
	return nil
}

const conversationColumns = `key, peer_type, peer_id, name, avatar_url, last_message, last_message_time,
	last_message_at, last_message_from_me, last_message_seen, unread_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (chat.Conversation, error) {
	var c chat.Conversation
	var at int64
	if err := r.Scan(&c.Key, &c.Peer.Type, &c.Peer.ID, &c.Name, &c.AvatarURL, &c.LastMessage, &c.LastMessageTime,
		&at, &c.LastMessageFromMe, &c.LastMessageSeen, &c.UnreadCount); err != nil {
		return chat.Conversation{}, err
	}
	c.LastMessageAt = fromMillis(at)
	return c, nil
}

// ListConversations returns cached conversations in their last merged order.
func (db *DB) ListConversations(limit, offset int) ([]chat.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT `+conversationColumns+`
		FROM conversations
		ORDER BY position
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns a cached conversation by key, or nil.
func (db *DB) GetConversation(key string) (*chat.Conversation, error) {
	c, err := scanConversation(db.QueryRow(`SELECT `+conversationColumns+` FROM conversations WHERE key = ?`, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConversationCount returns the number of cached conversations.
func (db *DB) ConversationCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&n)
	return n, err
}
