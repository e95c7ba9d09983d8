package store

import "github.com/matheus3301/campusmsg/internal/chat"

// SearchResult holds a cached message with a search snippet.
type SearchResult struct {
	Message chat.Message
	PeerKey string
	Snippet string
}
