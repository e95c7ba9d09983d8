package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeBackend serves the chat endpoints for one conversation between
// student_1 and teacher_2.
type fakeBackend struct {
	mu         sync.Mutex
	nextID     int64
	messages   []map[string]any
	heartbeats int
	markReads  int
}

func newFakeBackend(t *testing.T) (*httptest.Server, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{nextID: 100}
	fb.messages = append(fb.messages, fb.record(99, 2, "teacher", 1, "student", "welcome"))

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/conversations.php", fb.conversations)
	mux.HandleFunc("/chat/active_users.php", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"success": true, "users": []any{
			map[string]any{"unique_key": "teacher_2", "name": "Ada Byron", "is_online": 1},
		}})
	})
	mux.HandleFunc("/chat/get_messages.php", fb.history)
	mux.HandleFunc("/chat/send_message.php", fb.send)
	mux.HandleFunc("/chat/edit_message.php", fb.edit)
	mux.HandleFunc("/chat/unsend_message.php", fb.unsend)
	mux.HandleFunc("/chat/mark_read.php", func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		fb.markReads++
		fb.mu.Unlock()
	})
	mux.HandleFunc("/chat/update_session.php", func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		fb.heartbeats++
		fb.mu.Unlock()
		writeJSON(w, map[string]any{"success": true})
	})
	mux.HandleFunc("/chat/unread_count.php", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"success": true, "count": "4"})
	})
	mux.HandleFunc("/chat/search_users.php", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []any{map[string]any{"unique_key": "teacher_2", "name": "Ada Byron"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fb
}

func (fb *fakeBackend) heartbeatCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.heartbeats
}

func (fb *fakeBackend) record(id int64, from int64, fromType string, to int64, toType, text string) map[string]any {
	return map[string]any{
		"id":            id,
		"sender_id":     from,
		"sender_type":   fromType,
		"receiver_id":   to,
		"receiver_type": toType,
		"message":       text,
		"message_type":  "text",
		"timestamp":     time.Now().Unix(),
	}
}

func (fb *fakeBackend) conversations(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	last := fb.messages[len(fb.messages)-1]
	writeJSON(w, map[string]any{"success": true, "hasMore": false, "users": []any{
		map[string]any{
			"unique_key":             "teacher_2",
			"name":                   "Ada Byron",
			"last_message":           last["message"],
			"last_message_timestamp": last["timestamp"],
			"unread_count":           1,
		},
	}})
}

func (fb *fakeBackend) history(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if r.URL.Query().Get("page") != "1" {
		writeJSON(w, map[string]any{"success": true, "messages": []any{}})
		return
	}
	writeJSON(w, map[string]any{"success": true, "messages": fb.messages, "hasMore": false})
}

func (fb *fakeBackend) send(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.nextID++
	rec := fb.record(fb.nextID, 1, "student", 2, "teacher", in.Text)
	fb.messages = append(fb.messages, rec)
	writeJSON(w, map[string]any{"success": true, "data": rec})
}

func (fb *fakeBackend) find(r *http.Request) (map[string]any, map[string]any) {
	var in map[string]any
	_ = json.NewDecoder(r.Body).Decode(&in)
	id, _ := in["messageId"].(float64)
	for _, m := range fb.messages {
		if m["id"] == int64(id) {
			return m, in
		}
	}
	return nil, in
}

func (fb *fakeBackend) edit(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	m, in := fb.find(r)
	if m == nil {
		writeJSON(w, map[string]any{"success": false, "message": "not found"})
		return
	}
	m["message"] = in["newText"]
	m["is_edited"] = 1
	writeJSON(w, map[string]any{"success": true})
}

func (fb *fakeBackend) unsend(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	m, _ := fb.find(r)
	if m == nil {
		writeJSON(w, map[string]any{"success": false, "message": "not found"})
		return
	}
	m["message"] = "(deleted)"
	writeJSON(w, map[string]any{"success": true, "message": "unsent " + strconv.FormatInt(m["id"].(int64), 10)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
