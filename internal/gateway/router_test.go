package gateway

import (
	"testing"
	"time"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

type emitCall struct {
	ch  Channel
	evt Event
}

type recordingEmitter struct{ calls []emitCall }

func (r *recordingEmitter) Emit(ch Channel, evt Event) int {
	r.calls = append(r.calls, emitCall{ch, evt})
	return 1
}

func TestRouter_MessageAppended(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, sender := range []chat.Role{chat.RoleUser, chat.RoleAdmin} {
		rec := &recordingEmitter{}
		r := NewRouter(rec)

		n := r.MessageAppended(&chat.Appended{
			ConversationID: "c1",
			UserID:         "42",
			Message:        chat.Message{Sender: sender, Content: "hi", Timestamp: ts},
		})
		if n != 2 || len(rec.calls) != 2 {
			t.Fatalf("%s: expected 2 emissions, got %d", sender, len(rec.calls))
		}

		user, admin := rec.calls[0], rec.calls[1]
		if user.ch != UserChannel("42") || user.evt.Type != EventMessageReceived {
			t.Fatalf("%s: unexpected user emission %+v", sender, user)
		}
		if got := user.evt.Data.(MessageReceived); got.Sender != sender || got.Content != "hi" || !got.Timestamp.Equal(ts) {
			t.Fatalf("%s: unexpected user payload %+v", sender, got)
		}

		if admin.ch != AdminPool || admin.evt.Type != EventAdminFeedUpdate {
			t.Fatalf("%s: unexpected admin emission %+v", sender, admin)
		}
		feed := admin.evt.Data.(AdminFeedUpdate)
		if feed.ConversationID != "c1" || feed.UserID != "42" || feed.Sender != sender || feed.Content != "hi" {
			t.Fatalf("%s: unexpected admin payload %+v", sender, feed)
		}
	}
}

func TestRouter_ReadMarked(t *testing.T) {
	rec := &recordingEmitter{}
	r := NewRouter(rec)

	r.ReadMarked("42", chat.RoleAdmin)
	r.ReadMarked("42", chat.RoleUser)

	if len(rec.calls) != 2 {
		t.Fatalf("expected 2 emissions, got %d", len(rec.calls))
	}
	if c := rec.calls[0]; c.ch != UserChannel("42") || c.evt.Data != (ReadAcknowledged{By: chat.RoleAdmin}) {
		t.Fatalf("admin read should notify the user channel, got %+v", c)
	}
	if c := rec.calls[1]; c.ch != AdminPool || c.evt.Data != (ReadAcknowledged{UserID: "42", By: chat.RoleUser}) {
		t.Fatalf("user read should notify the admin pool, got %+v", c)
	}
}
