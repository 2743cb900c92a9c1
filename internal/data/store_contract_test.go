package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

// testStoreContract runs the behavior every chat.Store must share against a
// fresh store from newStore.
func testStoreContract(t *testing.T, newStore func(t *testing.T) chat.Store) {
	t.Run("LazyCreation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		conv, err := s.GetOrCreate(ctx, "u-lazy")
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if conv.Persisted || len(conv.Messages) != 0 {
			t.Fatalf("expected unpersisted empty shell, got %+v", conv)
		}

		// The shell must not be visible to readers until an append lands.
		if _, err := s.ReadHistory(ctx, "u-lazy"); !errors.Is(err, chat.ErrNotFound) {
			t.Fatalf("expected ErrNotFound before first append, got %v", err)
		}
		all, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected no conversations, got %d", len(all))
		}

		if _, err := s.Append(ctx, "u-lazy", chat.RoleUser, "hello"); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		conv, err = s.GetOrCreate(ctx, "u-lazy")
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if !conv.Persisted || len(conv.Messages) != 1 {
			t.Fatalf("expected persisted conversation with 1 message, got %+v", conv)
		}
	})

	t.Run("AppendValidation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.Append(ctx, "u1", chat.RoleUser, "   "); !errors.Is(err, chat.ErrValidation) {
			t.Fatalf("expected ErrValidation for blank content, got %v", err)
		}
		if _, err := s.Append(ctx, "", chat.RoleUser, "hi"); !errors.Is(err, chat.ErrValidation) {
			t.Fatalf("expected ErrValidation for missing user, got %v", err)
		}
		if _, err := s.Append(ctx, "u1", chat.Role("bot"), "hi"); !errors.Is(err, chat.ErrValidation) {
			t.Fatalf("expected ErrValidation for unknown sender, got %v", err)
		}
		// failed appends never create the record
		if _, err := s.ReadHistory(ctx, "u1"); !errors.Is(err, chat.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after rejected appends, got %v", err)
		}
	})

	t.Run("UnreadFlags", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		mustAppend(t, s, "u2", chat.RoleUser, "where is my order?")
		conv := mustGet(t, s, "u2")
		if !conv.HasUnreadForAdmin || conv.HasUnreadForUser {
			t.Fatalf("after user send: got admin=%v user=%v", conv.HasUnreadForAdmin, conv.HasUnreadForUser)
		}

		// an admin reply acknowledges the user's messages
		mustAppend(t, s, "u2", chat.RoleAdmin, "shipped today")
		conv = mustGet(t, s, "u2")
		if conv.HasUnreadForAdmin || !conv.HasUnreadForUser {
			t.Fatalf("after admin send: got admin=%v user=%v", conv.HasUnreadForAdmin, conv.HasUnreadForUser)
		}

		if err := s.MarkRead(ctx, "u2", chat.RoleUser); err != nil {
			t.Fatalf("MarkRead(user) failed: %v", err)
		}
		if conv = mustGet(t, s, "u2"); conv.HasUnreadForUser {
			t.Fatal("user flag should be clear after MarkRead(user)")
		}

		mustAppend(t, s, "u2", chat.RoleUser, "thanks")
		if err := s.MarkRead(ctx, "u2", chat.RoleAdmin); err != nil {
			t.Fatalf("MarkRead(admin) failed: %v", err)
		}
		if conv = mustGet(t, s, "u2"); conv.HasUnreadForAdmin {
			t.Fatal("admin flag should be clear after MarkRead(admin)")
		}
	})

	t.Run("MarkReadIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		mustAppend(t, s, "u3", chat.RoleAdmin, "hi there")
		for i := 0; i < 2; i++ {
			if err := s.MarkRead(ctx, "u3", chat.RoleUser); err != nil {
				t.Fatalf("MarkRead #%d failed: %v", i+1, err)
			}
			if conv := mustGet(t, s, "u3"); conv.HasUnreadForUser {
				t.Fatalf("flag set after MarkRead #%d", i+1)
			}
		}

		if err := s.MarkRead(ctx, "nobody", chat.RoleAdmin); !errors.Is(err, chat.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for missing conversation, got %v", err)
		}
	})

	t.Run("ReadHistoryClearsUserFlag", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		mustAppend(t, s, "u4", chat.RoleUser, "one")
		mustAppend(t, s, "u4", chat.RoleAdmin, "two")

		conv, err := s.ReadHistory(ctx, "u4")
		if err != nil {
			t.Fatalf("ReadHistory failed: %v", err)
		}
		if len(conv.Messages) != 2 || conv.Messages[0].Content != "one" || conv.Messages[1].Content != "two" {
			t.Fatalf("unexpected messages: %+v", conv.Messages)
		}
		if conv.HasUnreadForUser {
			t.Fatal("ReadHistory should return the cleared user flag")
		}
		if again := mustGet(t, s, "u4"); again.HasUnreadForUser {
			t.Fatal("user flag should stay clear after ReadHistory")
		}
	})

	t.Run("ConcurrentAppendsKeepEveryMessage", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const perSender = 25
		var wg sync.WaitGroup
		errs := make(chan error, 2*perSender)
		for _, role := range []chat.Role{chat.RoleUser, chat.RoleAdmin} {
			wg.Add(1)
			go func(role chat.Role) {
				defer wg.Done()
				for i := 0; i < perSender; i++ {
					if _, err := s.Append(ctx, "u5", role, fmt.Sprintf("%s-%d", role, i)); err != nil {
						errs <- err
					}
				}
			}(role)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent Append failed: %v", err)
		}

		conv := mustGet(t, s, "u5")
		if len(conv.Messages) != 2*perSender {
			t.Fatalf("expected %d messages, got %d", 2*perSender, len(conv.Messages))
		}

		// each sender's own messages keep their send order
		next := map[chat.Role]int{}
		for i, m := range conv.Messages {
			want := fmt.Sprintf("%s-%d", m.Sender, next[m.Sender])
			if m.Content != want {
				t.Fatalf("message %d = %q, want %q", i, m.Content, want)
			}
			next[m.Sender]++
			if i > 0 && m.Timestamp.Before(conv.Messages[i-1].Timestamp) && !isMongo(s) {
				t.Fatalf("timestamps out of order at %d", i)
			}
		}
	})

	t.Run("ListAllMostRecentFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		// sleeps keep millisecond BSON timestamps distinct
		for _, id := range []string{"a", "b", "c"} {
			mustAppend(t, s, id, chat.RoleUser, "hi from "+id)
			time.Sleep(2 * time.Millisecond)
		}
		mustAppend(t, s, "a", chat.RoleAdmin, "bump a")

		all, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 conversations, got %d", len(all))
		}
		if all[0].UserID != "a" {
			t.Fatalf("expected most recently active first, got %q", all[0].UserID)
		}
		for i := 1; i < len(all); i++ {
			if all[i].LastMessageAt.After(all[i-1].LastMessageAt) {
				t.Fatalf("list not sorted by lastMessageAt desc at %d", i)
			}
		}
	})
}

func mustAppend(t *testing.T, s chat.Store, userID string, sender chat.Role, content string) *chat.Appended {
	t.Helper()
	a, err := s.Append(context.Background(), userID, sender, content)
	if err != nil {
		t.Fatalf("Append(%s, %s) failed: %v", userID, sender, err)
	}
	if a.ConversationID == "" || a.Message.Timestamp.IsZero() {
		t.Fatalf("Append returned incomplete result: %+v", a)
	}
	return a
}

func mustGet(t *testing.T, s chat.Store, userID string) *chat.Conversation {
	t.Helper()
	conv, err := s.GetOrCreate(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetOrCreate(%s) failed: %v", userID, err)
	}
	return conv
}

// isMongo reports whether timestamps may interleave: the MongoDB store stamps
// before the update is applied, so concurrent appends can commit slightly out
// of timestamp order.
func isMongo(s chat.Store) bool {
	_, ok := s.(*ConversationsStore)
	return ok
}
