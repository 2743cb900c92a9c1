// Package history serves the request/response side of the chat: the full
// transcript a user loads on startup and the conversation overview admins
// work from.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/logging"
)

// History is the response of GetHistory.
type History struct {
	Messages     []chat.Message `json:"messages"`
	AdminHasRead bool           `json:"adminHasRead"`
}

// Service reads conversations for the HTTP surface.
type Service struct {
	store chat.Store
	users chat.UserDirectory
}

// NewService returns a Service. users may be nil, in which case summaries
// carry an empty display.
func NewService(store chat.Store, users chat.UserDirectory) *Service {
	return &Service{store: store, users: users}
}

// GetHistory returns userID's transcript. Reading history counts as reading
// the admin's replies, so HasUnreadForUser is cleared in the same store
// update. A user who never wrote gets an empty transcript and no record is
// created.
func (s *Service) GetHistory(ctx context.Context, userID string) (*History, error) {
	conv, err := s.store.ReadHistory(ctx, userID)
	if errors.Is(err, chat.ErrNotFound) {
		return &History{Messages: []chat.Message{}, AdminHasRead: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", userID, err)
	}

	msgs := conv.Messages
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return &History{Messages: msgs, AdminHasRead: conv.AdminHasRead()}, nil
}

// ListConversations returns every conversation, most recently active first,
// joined with its owner's display data.
func (s *Service) ListConversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	convs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	displays := map[string]chat.UserDisplay{}
	if s.users != nil && len(convs) > 0 {
		ids := make([]string, 0, len(convs))
		for _, c := range convs {
			ids = append(ids, c.UserID)
		}
		found, err := s.users.LookupUsers(ctx, ids)
		if err != nil {
			// the overview is still useful without names
			logging.Warn().Err(err).Int("users", len(ids)).Msg("user display lookup failed")
		} else {
			displays = found
		}
	}

	out := make([]chat.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, chat.ConversationSummary{
			Conversation: *c,
			UserDisplay:  displays[c.UserID],
		})
	}
	return out, nil
}
