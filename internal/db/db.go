// Package db manages MongoDB connections and collections.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultDatabase is used when New is given an empty database name.
const DefaultDatabase = "storefront"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is safe for concurrent use and shared by every store
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB, pings the primary and returns a Client.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if database == "" {
		database = DefaultDatabase
	}
	return &Client{client: client, db: client.Database(database)}, nil
}

// ConversationsCollection holds one document per user conversation.
func (c *Client) ConversationsCollection() *mongo.Collection {
	return c.db.Collection("chats")
}

// UsersCollection is owned by the storefront; this service only reads it.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the conversation indexes: a unique key on user_id
// (at most one conversation per user) and a sort key on last_message_at for
// the admin overview.
func (c *Client) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_message_at", Value: -1}},
		},
	}

	if _, err := c.ConversationsCollection().Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}
	return nil
}
