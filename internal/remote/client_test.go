package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/campusmsg/internal/chat"
)

var me = chat.UserRef{Type: "student", ID: 5}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func TestListConversationsLooseTyping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/conversations.php", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("userId"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		io.WriteString(w, `{
			"users": [
				{"unique_key": "teacher_9", "name": "Ana Lima", "avatar": null,
				 "last_message": "ok", "last_message_time": "2026-03-01 10:00:00",
				 "unread_count": "3", "is_online": "1", "last_message_from_me": 1},
				{"user_type": "student", "user_id": "12", "name": "Bo",
				 "last_message_timestamp": 1772359200, "unread_count": 0, "is_online": false},
				{"unique_key": "broken", "name": "skip me"}
			],
			"hasMore": "true"
		}`)
	})

	page, err := c.ListConversations(context.Background(), me, 2, 20)
	require.NoError(t, err)
	require.Len(t, page.Conversations, 2)
	assert.True(t, page.HasMore)

	first := page.Conversations[0]
	assert.Equal(t, "teacher_9", first.Key)
	assert.Equal(t, chat.UserRef{Type: "teacher", ID: 9}, first.Peer)
	assert.Equal(t, 3, first.UnreadCount)
	assert.True(t, first.IsOnline)
	assert.True(t, first.LastMessageFromMe)
	assert.False(t, first.LastMessageAt.IsZero(), "display time should be parsed as a fallback")

	second := page.Conversations[1]
	assert.Equal(t, "student_12", second.Key)
	assert.Equal(t, int64(1772359200), second.LastMessageAt.Unix())
}

func TestGetMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("senderId"))
		assert.Equal(t, "9", q.Get("receiverId"))
		assert.Equal(t, "teacher", q.Get("receiverType"))
		io.WriteString(w, `{"success": true, "has_more": 1, "messages": [
			{"id": "41", "sender_id": 9, "sender_type": "teacher", "receiver_id": 5, "receiver_type": "student",
			 "message": "hi", "message_type": "text", "timestamp": "2026-03-01T10:00:00Z", "is_seen": "1"},
			{"id": 42, "sender_id": 5, "sender_type": "student", "receiver_id": 9, "receiver_type": "teacher",
			 "message": "doc", "message_type": "FILE", "file_url": "https://x/y.pdf", "file_name": "y.pdf",
			 "created_at": "2026-03-01 10:01:00", "is_edited": "0"},
			{"id": 0, "message": "no id"}
		]}`)
	})

	page, err := c.GetMessages(context.Background(), me, chat.UserRef{Type: "teacher", ID: 9}, 1, 30)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, int64(41), page.Messages[0].ID)
	assert.True(t, page.Messages[0].IsSeen)
	assert.Equal(t, chat.TypeFile, page.Messages[1].Type)
	assert.Equal(t, "y.pdf", page.Messages[1].FileName)
	assert.False(t, page.Messages[1].Timestamp.IsZero())
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["text"])
		assert.Equal(t, "text", body["type"])
		assert.NotContains(t, body, "fileUrl")
		io.WriteString(w, `{"success": true, "data": {"id": 42, "message": "Hello", "timestamp": "2026-03-01 10:02:00"}}`)
	})

	m, err := c.SendMessage(context.Background(), SendRequest{
		Sender:   me,
		Receiver: chat.UserRef{Type: "teacher", ID: 9},
		Text:     "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ID)
	assert.Equal(t, "Hello", m.Text)
	assert.Equal(t, me, m.Sender)
	assert.Equal(t, chat.TypeText, m.Type)
}

func TestSendMessageFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name: "server rejects",
			body: `{"success": false, "message": "Receiver not found"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "Receiver not found", UserMessage(err, "fallback"))
			},
		},
		{
			name: "no id",
			body: `{"success": true}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingID)
			},
		},
		{
			name:   "http 500",
			status: http.StatusInternalServerError,
			body:   `Fatal error`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, 500, apiErr.Status)
				assert.Equal(t, "fallback", UserMessage(err, "fallback"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				io.WriteString(w, tt.body)
			})
			_, err := c.SendMessage(context.Background(), SendRequest{Sender: me, Receiver: chat.UserRef{Type: "teacher", ID: 9}, Text: "x"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestMutationRequiresJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantAPI bool
	}{
		{name: "empty body", body: "", wantErr: ErrMalformedResponse},
		{name: "html body", body: "<br /><b>Warning</b>", wantErr: ErrMalformedResponse},
		{name: "missing success", body: `{}`, wantAPI: true},
		{name: "success false", body: `{"success": "0", "message": "Too late to edit"}`, wantAPI: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			_, err := c.EditMessage(context.Background(), me, 42, "new")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantAPI {
				var apiErr *APIError
				assert.ErrorAs(t, err, &apiErr)
			}

			_, err = c.UnsendMessage(context.Background(), me, 42)
			require.Error(t, err)
		})
	}
}

func TestEditMessageEcho(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 42, body["messageId"])
		assert.Equal(t, "fixed", body["newText"])
		io.WriteString(w, `{"success": true, "message": {"id": 42, "message": "fixed", "is_edited": 1}}`)
	})

	m, err := c.EditMessage(context.Background(), me, 42, "fixed")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.IsEdited)
	assert.Equal(t, "fixed", m.Text)
}

func TestSearchUsersShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":    `[{"user_id": "3", "user_type": "teacher", "name": "Rui"}]`,
		"envelope": `{"success": true, "users": [{"unique_key": "teacher_3", "name": "Rui"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "ru", r.URL.Query().Get("query"))
				io.WriteString(w, body)
			})
			users, err := c.SearchUsers(context.Background(), me, "ru")
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, chat.UserRef{Type: "teacher", ID: 3}, users[0].Ref)
		})
	}
}

func TestCommandsAndCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/mark_read.php":
			io.WriteString(w, `{"success": true}`)
		case "/chat/update_session.php":
		case "/chat/unread_count.php":
			io.WriteString(w, `{"success": 1, "count": "150"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	require.NoError(t, c.MarkRead(ctx, me, chat.UserRef{Type: "teacher", ID: 9}))
	require.NoError(t, c.UpdateSession(ctx, me))
	n, err := c.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 150, n)
}

func TestRequestHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.ListConversations(ctx, me, 1, 20)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		zero bool
		unix int64
	}{
		{in: "", zero: true},
		{in: "0000-00-00 00:00:00", zero: true},
		{in: "1772359200", unix: 1772359200},
		{in: "1772359200000", unix: 1772359200},
		{in: "2026-03-01T10:00:00Z", unix: 1772359200},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in, nil)
		require.NoError(t, err, tt.in)
		if tt.zero {
			assert.True(t, got.IsZero(), tt.in)
			continue
		}
		assert.Equal(t, tt.unix, got.Unix(), tt.in)
	}

	_, err := ParseTime("yesterday", nil)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestZonelessTimestampsUseClientLocation(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success": true, "messages": [
			{"id": 1, "sender_id": 9, "sender_type": "teacher", "receiver_id": 5,
			 "receiver_type": "student", "message": "naive", "timestamp": "2026-03-01 10:00:00"},
			{"id": 2, "sender_id": 9, "sender_type": "teacher", "receiver_id": 5,
			 "receiver_type": "student", "message": "zoned", "timestamp": "2026-03-01T10:00:00Z"}
		]}`)
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithTimeout(2*time.Second), WithLocation(brt))
	require.NoError(t, err)

	page, err := c.GetMessages(context.Background(), me, chat.UserRef{Type: "teacher", ID: 9}, 1, 30)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, int64(1772370000), page.Messages[0].Timestamp.Unix(), "10:00 BRT is 13:00 UTC")
	assert.Equal(t, int64(1772359200), page.Messages[1].Timestamp.Unix(), "explicit zone is kept")

	got, err := ParseTime("2026-03-01 10:00:00", brt)
	require.NoError(t, err)
	assert.Equal(t, int64(1772370000), got.Unix())
}
