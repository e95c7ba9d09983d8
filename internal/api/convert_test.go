package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/status"
)

func TestUpdateThroughCodec(t *testing.T) {
	at := time.UnixMilli(1_760_000_000_000)
	tests := []struct {
		name  string
		evt   bus.Event
		check func(t *testing.T, u *campusv1.Update)
	}{
		{
			name: "thread",
			evt:  bus.Event{ID: "e1", Kind: bus.MessagesUpdated, Timestamp: at, Payload: bus.ThreadChange{PeerKey: "teacher_2", Count: 3}},
			check: func(t *testing.T, u *campusv1.Update) {
				assert.Equal(t, "teacher_2", u.Field("peer_key"))
				assert.Equal(t, 3.0, u.Number("count"))
			},
		},
		{
			name: "send failure",
			evt:  bus.Event{ID: "e2", Kind: bus.SendFailed, Timestamp: at, Payload: bus.SendFailure{PeerKey: "teacher_2", ClientID: "c1", Draft: "hi", Reason: "Failed to send message"}},
			check: func(t *testing.T, u *campusv1.Update) {
				assert.Equal(t, "hi", u.Field("draft"))
				assert.Equal(t, "Failed to send message", u.Field("reason"))
			},
		},
		{
			name: "status",
			evt:  bus.Event{ID: "e3", Kind: bus.StatusChanged, Timestamp: at, Payload: status.StatusChange{From: status.Ready, To: status.Degraded}},
			check: func(t *testing.T, u *campusv1.Update) {
				assert.Equal(t, "DEGRADED", u.Field("to"))
			},
		},
		{
			name: "no payload",
			evt:  bus.Event{ID: "e4", Kind: bus.ConversationsUpdated, Timestamp: at},
			check: func(t *testing.T, u *campusv1.Update) {
				assert.Nil(t, u.Payload)
				assert.Empty(t, u.Field("count"))
			},
		},
	}
	codec := campusv1.Codec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd, err := updateToProto("main", tt.evt)
			require.NoError(t, err)

			data, err := codec.Marshal(upd)
			require.NoError(t, err)
			var got campusv1.Update
			require.NoError(t, codec.Unmarshal(data, &got))

			assert.Equal(t, tt.evt.ID, got.ID)
			assert.Equal(t, "main", got.Session)
			assert.Equal(t, tt.evt.Kind, got.Kind)
			assert.Equal(t, at.UnixMilli(), got.OccurredAtUnixMs)
			tt.check(t, &got)
		})
	}
}

func TestUpdateRejectsUnknownPayload(t *testing.T) {
	_, err := updateToProto("main", bus.Event{Kind: "x", Payload: struct{}{}})
	assert.Error(t, err)
}

func TestMessageToProto(t *testing.T) {
	me := chat.UserRef{Type: "student", ID: 1}
	peer := chat.UserRef{Type: "teacher", ID: 2}
	m := messageToProto(chat.Message{ID: 5, Sender: me, Receiver: peer, Text: chat.RemovedText, Type: chat.TypeText}, me)
	assert.True(t, m.FromMe)
	assert.True(t, m.IsRemoved)
	assert.Equal(t, "teacher_2", m.ReceiverKey)
	assert.Equal(t, campusv1.StateConfirmed, m.State)
}

func TestConversationToProtoKeepsLargeUnread(t *testing.T) {
	c := chat.Conversation{Key: "teacher_2", Name: "Ada Byron", UnreadCount: 1 << 33}
	p := conversationToProto(c)
	assert.Equal(t, int64(1<<33), p.UnreadCount)
	assert.Equal(t, "99+", p.UnreadBadge)
}
