package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

type messageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) repository.MessageRepository {
	return &messageRepository{coll: db.Collection(messagesCollection)}
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = entity.NewMessageID()
	}
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now
	if message.ReadBy == nil {
		message.ReadBy = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, message); err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

// ListByMatch sorts on _id after createdAt: BSON dates keep milliseconds only
// and message ids are time ordered.
func (r *messageRepository) ListByMatch(ctx context.Context, matchID string, limit int) ([]*entity.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"matchId": matchID}, opts)
	if err != nil {
		return nil, errors.Internal("Failed to query messages", err)
	}
	defer cursor.Close(ctx)

	var messages []*entity.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, errors.Internal("Failed to decode messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// unreadFilter matches messages in matchID that userID did not send and has not read.
func unreadFilter(matchID, userID string) bson.M {
	return bson.M{
		"matchId": matchID,
		"sender":  bson.M{"$ne": userID},
		"readBy":  bson.M{"$ne": userID},
	}
}

func (r *messageRepository) MarkRead(ctx context.Context, matchID, userID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		unreadFilter(matchID, userID),
		bson.M{
			"$addToSet": bson.M{"readBy": userID},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return 0, errors.Internal("Failed to mark messages read", err)
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, matchID, userID string) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, unreadFilter(matchID, userID))
	if err != nil {
		return 0, errors.Internal("Failed to count unread messages", err)
	}
	return count, nil
}
