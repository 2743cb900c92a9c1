package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/normalize"
)

// MemoryConversationsStore is an in-process chat.Store. Each conversation has
// its own lock; the map lock is only held to find or insert an entry, so
// different conversations never serialize on each other.
type MemoryConversationsStore struct {
	mu    sync.RWMutex
	convs map[string]*memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	mu   sync.Mutex
	conv chat.Conversation
}

var _ chat.Store = (*MemoryConversationsStore)(nil)

// NewMemoryConversationsStore returns an empty store.
func NewMemoryConversationsStore() *MemoryConversationsStore {
	return &MemoryConversationsStore{
		convs: make(map[string]*memoryEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryConversationsStore) lookup(userID string) *memoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convs[userID]
}

func (s *MemoryConversationsStore) lookupOrInsert(userID string) *memoryEntry {
	if e := s.lookup(userID); e != nil {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.convs[userID]; ok {
		return e
	}
	e := &memoryEntry{conv: chat.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Messages:  []chat.Message{},
		Persisted: true,
	}}
	s.convs[userID] = e
	return e
}

// snapshot copies the conversation so callers never share the message slice.
// Must be called with e.mu held.
func (e *memoryEntry) snapshot() *chat.Conversation {
	c := e.conv
	c.Messages = append([]chat.Message(nil), e.conv.Messages...)
	return &c
}

func (s *MemoryConversationsStore) GetOrCreate(ctx context.Context, userID string) (*chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	userID = normalize.UserID(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", chat.ErrValidation)
	}
	e := s.lookup(userID)
	if e == nil {
		return &chat.Conversation{UserID: userID, Messages: []chat.Message{}}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

func (s *MemoryConversationsStore) Append(ctx context.Context, userID string, sender chat.Role, content string) (*chat.Appended, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	userID = normalize.UserID(userID)
	content = normalize.Content(content)
	switch {
	case userID == "":
		return nil, fmt.Errorf("%w: user id required", chat.ErrValidation)
	case !sender.Valid():
		return nil, fmt.Errorf("%w: unknown sender %q", chat.ErrValidation, sender)
	case content == "":
		return nil, fmt.Errorf("%w: empty content", chat.ErrValidation)
	}

	e := s.lookupOrInsert(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	// stamp under the lock so append order and timestamp order agree
	now := s.now()
	if now.Before(e.conv.LastMessageAt) {
		now = e.conv.LastMessageAt
	}
	msg := chat.Message{Sender: sender, Content: content, Timestamp: now}

	e.conv.Messages = append(e.conv.Messages, msg)
	e.conv.LastMessageAt = now
	if sender == chat.RoleUser {
		e.conv.HasUnreadForAdmin = true
	} else {
		e.conv.HasUnreadForUser = true
		e.conv.HasUnreadForAdmin = false
	}

	return &chat.Appended{ConversationID: e.conv.ID, UserID: userID, Message: msg}, nil
}

func (s *MemoryConversationsStore) MarkRead(ctx context.Context, userID string, reader chat.Role) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	userID = normalize.UserID(userID)
	if userID == "" || !reader.Valid() {
		return fmt.Errorf("%w: user id and reader required", chat.ErrValidation)
	}
	e := s.lookup(userID)
	if e == nil {
		return chat.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if reader == chat.RoleAdmin {
		e.conv.HasUnreadForAdmin = false
	} else {
		e.conv.HasUnreadForUser = false
	}
	return nil
}

func (s *MemoryConversationsStore) ReadHistory(ctx context.Context, userID string) (*chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	userID = normalize.UserID(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", chat.ErrValidation)
	}
	e := s.lookup(userID)
	if e == nil {
		return nil, chat.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.HasUnreadForUser = false
	return e.snapshot(), nil
}

func (s *MemoryConversationsStore) ListAll(ctx context.Context) ([]*chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.convs))
	for _, e := range s.convs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*chat.Conversation, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.snapshot())
		e.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

// Len reports how many conversations have been persisted.
func (s *MemoryConversationsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// MemoryUsers is a fixed chat.UserDirectory.
type MemoryUsers map[string]chat.UserDisplay

func (m MemoryUsers) LookupUsers(_ context.Context, userIDs []string) (map[string]chat.UserDisplay, error) {
	out := make(map[string]chat.UserDisplay, len(userIDs))
	for _, id := range userIDs {
		if d, ok := m[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}
