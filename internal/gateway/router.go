package gateway

import (
	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

// Emitter pushes an event to every connection bound to a channel.
type Emitter interface {
	Emit(ch Channel, evt Event) int
}

// Router decides which channels see a committed domain event. It only runs
// after the store accepted the change.
type Router struct {
	emitter Emitter
}

// NewRouter returns a Router emitting through e.
func NewRouter(e Emitter) *Router {
	return &Router{emitter: e}
}

// MessageAppended fans a new message out to the conversation owner's channel
// (self-echo for user sends, delivery for admin replies) and to the admin
// pool so every admin view stays in sync.
func (r *Router) MessageAppended(a *chat.Appended) int {
	delivered := r.emitter.Emit(UserChannel(a.UserID), Event{
		Type: EventMessageReceived,
		Data: MessageReceived{
			Sender:    a.Message.Sender,
			Content:   a.Message.Content,
			Timestamp: a.Message.Timestamp,
		},
	})
	delivered += r.emitter.Emit(AdminPool, Event{
		Type: EventAdminFeedUpdate,
		Data: AdminFeedUpdate{
			ConversationID: a.ConversationID,
			UserID:         a.UserID,
			Sender:         a.Message.Sender,
			Content:        a.Message.Content,
			Timestamp:      a.Message.Timestamp,
		},
	})
	return delivered
}

// ReadMarked notifies the counterpart of reader on userID's conversation.
func (r *Router) ReadMarked(userID string, reader chat.Role) int {
	if reader == chat.RoleAdmin {
		return r.emitter.Emit(UserChannel(userID), Event{
			Type: EventReadAcknowledged,
			Data: ReadAcknowledged{By: chat.RoleAdmin},
		})
	}
	return r.emitter.Emit(AdminPool, Event{
		Type: EventReadAcknowledged,
		Data: ReadAcknowledged{UserID: userID, By: chat.RoleUser},
	})
}
