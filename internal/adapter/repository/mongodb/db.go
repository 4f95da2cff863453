// Package mongodb implements the repositories on MongoDB for STORE_DRIVER=mongo.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection     = "users"
	listingsCollection  = "listings"
	interestsCollection = "interests"
	messagesCollection  = "messages"
)

func NewConnection(ctx context.Context, uri string, connectTimeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// index on interests is what rejects a duplicate request under a race.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	interests := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "listing", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"listing": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "pairKey", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection(interestsCollection).Indexes().CreateMany(ctx, interests); err != nil {
		return fmt.Errorf("failed to create interest indexes: %w", err)
	}

	messages := []mongo.IndexModel{
		{Keys: bson.D{{Key: "matchId", Value: 1}, {Key: "createdAt", Value: 1}}},
	}
	if _, err := db.Collection(messagesCollection).Indexes().CreateMany(ctx, messages); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	listings := []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator", Value: 1}}},
		{Keys: bson.D{{Key: "likes", Value: 1}}},
	}
	if _, err := db.Collection(listingsCollection).Indexes().CreateMany(ctx, listings); err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}
