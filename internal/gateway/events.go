package gateway

import (
	"time"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

// Channel is a fan-out target.
type Channel string

// AdminPool is shared by every connection bound as admin.
const AdminPool Channel = "admin-pool"

// UserChannel is the channel of every connection bound as userID.
func UserChannel(userID string) Channel {
	return Channel("user:" + userID)
}

// Outbound event types.
const (
	EventMessageReceived  = "messageReceived"
	EventAdminFeedUpdate  = "adminFeedUpdate"
	EventReadAcknowledged = "readAcknowledged"
	EventPong             = "pong"
)

// Event is the envelope written to a connection.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// MessageReceived goes to a user's own channel.
type MessageReceived struct {
	Sender    chat.Role `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AdminFeedUpdate goes to the admin pool and names the conversation.
type AdminFeedUpdate struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Sender         chat.Role `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReadAcknowledged tells the counterpart that By has read. UserID is only
// set when the user side read, so admins know which conversation.
type ReadAcknowledged struct {
	UserID string    `json:"userId,omitempty"`
	By     chat.Role `json:"by"`
}
