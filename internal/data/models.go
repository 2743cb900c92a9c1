package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

// conversationDoc maps to the chats collection: one document per user with
// the embedded, append-only message log.
type conversationDoc struct {
	ID                bson.ObjectID  `bson:"_id,omitempty"`
	UserID            string         `bson:"user_id"`
	Messages          []chat.Message `bson:"messages"`
	LastMessageAt     time.Time      `bson:"last_message_at"`
	HasUnreadForAdmin bool           `bson:"has_unread_for_admin"`
	HasUnreadForUser  bool           `bson:"has_unread_for_user"`
	CreatedAt         time.Time      `bson:"created_at"`
	UpdatedAt         time.Time      `bson:"updated_at"`
}

func (d *conversationDoc) toDomain() *chat.Conversation {
	msgs := d.Messages
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return &chat.Conversation{
		ID:                d.ID.Hex(),
		UserID:            d.UserID,
		Messages:          msgs,
		LastMessageAt:     d.LastMessageAt,
		HasUnreadForAdmin: d.HasUnreadForAdmin,
		HasUnreadForUser:  d.HasUnreadForUser,
		Persisted:         true,
	}
}

// userDoc is the read-only projection of the storefront users collection.
type userDoc struct {
	ID        bson.ObjectID `bson:"_id"`
	Name      string        `bson:"name"`
	Email     string        `bson:"email"`
	AvatarURL string        `bson:"avatarUrl"`
}

// unreadField returns the flag a reader acknowledges.
func unreadField(reader chat.Role) string {
	if reader == chat.RoleAdmin {
		return "has_unread_for_admin"
	}
	return "has_unread_for_user"
}
