package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/metrics"
	"github.com/PaulBabatuyi/supportchat/internal/normalize"
)

// ConversationsStore is the MongoDB chat.Store. Every mutation is a single
// update document so concurrent sends to one conversation never lose an
// append or clobber a flag.
type ConversationsStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

var _ chat.Store = (*ConversationsStore)(nil)

// NewConversationsStore returns a store over coll. timeout bounds each call;
// zero disables the store-level deadline.
func NewConversationsStore(coll *mongo.Collection, timeout time.Duration) *ConversationsStore {
	return &ConversationsStore{coll: coll, timeout: timeout}
}

func (s *ConversationsStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetOrCreate returns the stored conversation or an unpersisted empty shell.
// Nothing is written, so idle joins never create empty documents.
func (s *ConversationsStore) GetOrCreate(ctx context.Context, userID string) (conv *chat.Conversation, err error) {
	defer func(start time.Time) { metrics.ObserveStore("get_or_create", start, err) }(time.Now())

	userID = normalize.UserID(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", chat.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc conversationDoc
	err = s.coll.FindOne(ctx, bson.D{{Key: "user_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &chat.Conversation{UserID: userID, Messages: []chat.Message{}}, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return doc.toDomain(), nil
}

// Append pushes a server-stamped message and flips the unread flags in one
// upsert. An admin message marks the user's side unread and also counts as
// the admin pool acknowledging the user's earlier messages.
func (s *ConversationsStore) Append(ctx context.Context, userID string, sender chat.Role, content string) (out *chat.Appended, err error) {
	defer func(start time.Time) { metrics.ObserveStore("append", start, err) }(time.Now())

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

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// BSON dates carry millisecond precision; truncate so the returned
	// timestamp equals the stored one.
	now := time.Now().UTC().Truncate(time.Millisecond)
	msg := chat.Message{Sender: sender, Content: content, Timestamp: now}

	set := bson.D{{Key: "updated_at", Value: now}}
	onInsert := bson.D{{Key: "created_at", Value: now}}
	if sender == chat.RoleUser {
		set = append(set, bson.E{Key: "has_unread_for_admin", Value: true})
		onInsert = append(onInsert, bson.E{Key: "has_unread_for_user", Value: false})
	} else {
		set = append(set,
			bson.E{Key: "has_unread_for_user", Value: true},
			bson.E{Key: "has_unread_for_admin", Value: false},
		)
	}

	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "messages", Value: msg}}},
		{Key: "$max", Value: bson.D{{Key: "last_message_at", Value: now}}},
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: onInsert},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "_id", Value: 1}})

	filter := bson.D{{Key: "user_id", Value: userID}}

	var doc struct {
		ID bson.ObjectID `bson:"_id"`
	}
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Two first messages raced on the unique user_id index; the loser
		// retries as a plain update against the winner's document.
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, unavailable(err)
	}

	return &chat.Appended{ConversationID: doc.ID.Hex(), UserID: userID, Message: msg}, nil
}

// MarkRead clears the flag owned by reader. Clearing an already clear flag
// is a no-op.
func (s *ConversationsStore) MarkRead(ctx context.Context, userID string, reader chat.Role) (err error) {
	defer func(start time.Time) { metrics.ObserveStore("mark_read", start, err) }(time.Now())

	userID = normalize.UserID(userID)
	if userID == "" || !reader.Valid() {
		return fmt.Errorf("%w: user id and reader required", chat.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: unreadField(reader), Value: false}}}},
	)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return chat.ErrNotFound
	}
	return nil
}

// ReadHistory returns the conversation and clears has_unread_for_user in the
// same update: fetching history is the user's read acknowledgment.
func (s *ConversationsStore) ReadHistory(ctx context.Context, userID string) (conv *chat.Conversation, err error) {
	defer func(start time.Time) { metrics.ObserveStore("read_history", start, err) }(time.Now())

	userID = normalize.UserID(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", chat.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc conversationDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "has_unread_for_user", Value: false}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return doc.toDomain(), nil
}

// ListAll returns every conversation sorted by last_message_at descending.
func (s *ConversationsStore) ListAll(ctx context.Context) (convs []*chat.Conversation, err error) {
	defer func(start time.Time) { metrics.ObserveStore("list_all", start, err) }(time.Now())

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	var docs []conversationDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, unavailable(err)
	}

	convs = make([]*chat.Conversation, 0, len(docs))
	for i := range docs {
		convs = append(convs, docs[i].toDomain())
	}
	return convs, nil
}

// unavailable classifies a driver failure as a transient store outage while
// keeping the cause in the chain.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", chat.ErrStoreUnavailable, err)
}
