// Package chat holds the support-chat domain model: one conversation per
// user, an append-only message log and the two unread flags.
package chat

import (
	"context"
	"time"
)

// Role identifies which side of a conversation acted. It doubles as the
// message sender and as the reader in read acknowledgments.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Counterpart returns the opposite side.
func (r Role) Counterpart() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// Message is immutable once appended. Timestamp is assigned by the store.
type Message struct {
	Sender    Role      `json:"sender" bson:"sender"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Conversation is the durable per-user thread.
//
// HasUnreadForAdmin is set when the user wrote something the admin pool has
// not acknowledged; HasUnreadForUser is the mirror for admin replies.
type Conversation struct {
	ID                string    `json:"conversationId"`
	UserID            string    `json:"userId"`
	Messages          []Message `json:"messages"`
	LastMessageAt     time.Time `json:"lastMessageAt"`
	HasUnreadForAdmin bool      `json:"hasUnreadForAdmin"`
	HasUnreadForUser  bool      `json:"hasUnreadForUser"`

	// Persisted is false for the empty shell returned by GetOrCreate.
	Persisted bool `json:"-"`
}

// AdminHasRead reports whether the admin pool has read the user's latest messages.
func (c *Conversation) AdminHasRead() bool {
	return !c.HasUnreadForAdmin
}

// Appended is the committed result of an append.
type Appended struct {
	ConversationID string
	UserID         string
	Message        Message
}

// UserDisplay is the denormalized identity used by the admin overview.
type UserDisplay struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ConversationSummary is a conversation joined with its owner's display data.
type ConversationSummary struct {
	Conversation
	UserDisplay UserDisplay `json:"userDisplay"`
}

// Store is the durable conversation record. Implementations must apply every
// mutation as a single atomic per-document update; callers never do
// read-modify-write.
type Store interface {
	// GetOrCreate returns the stored conversation or an unpersisted empty one.
	GetOrCreate(ctx context.Context, userID string) (*Conversation, error)
	// Append validates content, stamps the message and flips the unread flags.
	// The conversation is created on first append.
	Append(ctx context.Context, userID string, sender Role, content string) (*Appended, error)
	// MarkRead clears the flag owned by reader. ErrNotFound when no
	// conversation exists.
	MarkRead(ctx context.Context, userID string, reader Role) error
	// ReadHistory returns the conversation and clears HasUnreadForUser in the
	// same update. ErrNotFound when no conversation exists.
	ReadHistory(ctx context.Context, userID string) (*Conversation, error)
	// ListAll returns every conversation, most recently active first.
	ListAll(ctx context.Context) ([]*Conversation, error)
}

// UserDirectory resolves display data for user ids. Unknown ids are absent
// from the result.
type UserDirectory interface {
	LookupUsers(ctx context.Context, userIDs []string) (map[string]UserDisplay, error)
}
