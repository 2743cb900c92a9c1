package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/data"
	"github.com/PaulBabatuyi/supportchat/internal/db"
	"github.com/PaulBabatuyi/supportchat/internal/history"
)

func TestHistoryAgainstMongo(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	dbClient, err := db.New(ctx, uri, "supportchat_it_"+time.Now().UTC().Format("20060102150405"))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	defer func() {
		_ = dbClient.ConversationsCollection().Drop(context.Background())
		_ = dbClient.UsersCollection().Drop(context.Background())
		_ = dbClient.Close(context.Background())
	}()
	if err := dbClient.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	store := data.NewConversationsStore(dbClient.ConversationsCollection(), 5*time.Second)
	env := newTestEnv(t, store, data.NewUsersStore(dbClient.UsersCollection()), dbClient, 0)

	if rec := env.get(t, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}

	userID := "it-" + time.Now().UTC().Format("150405.000")
	if _, err := store.Append(ctx, userID, chat.RoleUser, "hello from the integration test"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := store.Append(ctx, userID, chat.RoleAdmin, "hello back"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec := env.get(t, "/api/chat/history", env.token(t, userID, chat.RoleUser))
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body history.History
	decodeBody(t, rec, &body)
	if len(body.Messages) != 2 || body.Messages[0].Sender != chat.RoleUser {
		t.Fatalf("unexpected messages %+v", body.Messages)
	}

	conv, err := store.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if conv.HasUnreadForUser {
		t.Fatal("history fetch should clear hasUnreadForUser")
	}

	rec = env.get(t, "/api/admin/chats", env.token(t, "admin", chat.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin chats: expected 200, got %d", rec.Code)
	}
	var list conversationsResponse
	decodeBody(t, rec, &list)
	if len(list.Conversations) == 0 || list.Conversations[0].UserID != userID {
		t.Fatalf("expected %s first, got %+v", userID, list.Conversations)
	}
}
