package store

import "strings"

// SearchMessages performs a full-text search on cached message bodies.
// Unsent messages never match. peerKey narrows the search to one
// conversation when non-empty.
func (db *DB) SearchMessages(query string, peerKey string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT ` + prefixed("m.", messageColumns) + `, m.conversation_key,
		       snippet(messages_fts, '<<', '>>', '...', -1, 32)
		FROM messages_fts f
		JOIN messages m ON m.id = f.docid
		WHERE messages_fts MATCH ? AND m.is_removed = 0`

	args := []any{query}
	if peerKey != "" {
		q += " AND m.conversation_key = ?"
		args = append(args, peerKey)
	}
	q += " ORDER BY m.timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		m, err := scanMessage(rows, &r.PeerKey, &r.Snippet)
		if err != nil {
			return nil, err
		}
		r.Message = m
		results = append(results, r)
	}
	return results, rows.Err()
}

// prefixed qualifies each column in a comma-separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
