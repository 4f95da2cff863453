package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
	"flatmate/pkg/logger"
)

const messagesCollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

// messages live in a sub-collection of the interest record that is their conversation handle
func (r *firestoreMessageRepository) messages(matchID string) *firestore.CollectionRef {
	return r.client.Collection(interestsCollection).Doc(matchID).Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = entity.NewMessageID()
	}
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now
	if message.ReadBy == nil {
		message.ReadBy = []string{}
	}

	_, err := r.messages(message.MatchID).Doc(message.ID).Create(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) ListByMatch(ctx context.Context, matchID string, limit int) ([]*entity.Message, error) {
	// ids are time ordered, so the document id breaks createdAt ties
	query := r.messages(matchID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for match %s: %v", matchID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}
		message, err := messageFromDoc(doc)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	// newest-first query, oldest-first result
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead adds userID with ArrayUnion, which is a set-add on the server and
// never removes an existing reader.
func (r *firestoreMessageRepository) MarkRead(ctx context.Context, matchID, userID string) (int64, error) {
	docs, err := r.messages(matchID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to load messages", err)
	}

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for _, doc := range docs {
		message, err := messageFromDoc(doc)
		if err != nil {
			continue
		}
		if !message.IsUnreadFor(userID) {
			continue
		}
		job, err := bw.Update(doc.Ref, []firestore.Update{
			{Path: "readBy", Value: firestore.ArrayUnion(userID)},
			{Path: "updatedAt", Value: time.Now()},
		})
		if err != nil {
			bw.End()
			return 0, errors.Internal("Failed to queue read receipt", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var updated int64
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			logger.Warn("MarkRead: failed to update message in match %s: %v", matchID, err)
			continue
		}
		updated++
	}
	return updated, nil
}

func (r *firestoreMessageRepository) CountUnread(ctx context.Context, matchID, userID string) (int64, error) {
	docs, err := r.messages(matchID).Where("senderId", "!=", userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to count unread messages", err)
	}

	var count int64
	for _, doc := range docs {
		message, err := messageFromDoc(doc)
		if err != nil {
			continue
		}
		if message.IsUnreadFor(userID) {
			count++
		}
	}
	return count, nil
}

func messageFromDoc(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	message.ID = doc.Ref.ID
	return &message, nil
}
