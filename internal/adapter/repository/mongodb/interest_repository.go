package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

type interestRepository struct {
	coll *mongo.Collection
}

func NewInterestRepository(db *mongo.Database) repository.InterestRepository {
	return &interestRepository{coll: db.Collection(interestsCollection)}
}

func stamp(record *entity.InterestRecord) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.PairKey = entity.PairKey(record.SenderID, record.ReceiverID)
}

func (r *interestRepository) Create(ctx context.Context, record *entity.InterestRecord) error {
	if record.ID == "" {
		if record.ListingID != "" {
			record.ID = entity.RequestID(record.SenderID, record.ListingID)
		} else {
			record.ID = uuid.New().String()
		}
	}
	stamp(record)

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Conflict("Request already sent")
		}
		return errors.Internal("Failed to create request", err)
	}
	return nil
}

func (r *interestRepository) GetByID(ctx context.Context, id string) (*entity.InterestRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *interestRepository) GetBySenderAndListing(ctx context.Context, senderID, listingID string) (*entity.InterestRecord, error) {
	return r.findOne(ctx, bson.M{"sender": senderID, "listing": listingID}, nil)
}

func (r *interestRepository) ListByReceiver(ctx context.Context, receiverID string) ([]*entity.InterestRecord, error) {
	return r.find(ctx, bson.M{"receiver": receiverID})
}

func (r *interestRepository) ListBySender(ctx context.Context, senderID string) ([]*entity.InterestRecord, error) {
	return r.find(ctx, bson.M{"sender": senderID})
}

func (r *interestRepository) CountPendingByReceiver(ctx context.Context, receiverID string) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"receiver": receiverID, "status": entity.InterestStatusPending})
	if err != nil {
		return 0, errors.Internal("Failed to count requests", err)
	}
	return count, nil
}

// UpdateStatus is a single conditional write: it lands only on a record owned
// by receiverID whose status may still move to status.
func (r *interestRepository) UpdateStatus(ctx context.Context, id, receiverID, status string) (*entity.InterestRecord, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record entity.InterestRecord
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{
			"_id":      id,
			"receiver": receiverID,
			"status":   bson.M{"$in": bson.A{entity.InterestStatusPending, status}},
		},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
		opts,
	).Decode(&record)
	if err == nil {
		return &record, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, errors.Internal("Failed to update request status", err)
	}

	// nothing matched: tell a missing record apart from a refused transition
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.ReceiverID != receiverID {
		return nil, errors.NotFound("Request", nil)
	}
	return nil, errors.Conflict("Request is already " + current.Status)
}

func (r *interestRepository) FindByPair(ctx context.Context, pairKey string) (*entity.InterestRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.findOne(ctx, bson.M{"pairKey": pairKey}, opts)
}

func (r *interestRepository) CreateForPair(ctx context.Context, record *entity.InterestRecord) (*entity.InterestRecord, bool, error) {
	record.ID = entity.PairHandleID(entity.PairKey(record.SenderID, record.ReceiverID))
	stamp(record)

	_, err := r.coll.InsertOne(ctx, record)
	if err == nil {
		return record, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, errors.Internal("Failed to create chat handle", err)
	}

	existing, err := r.GetByID(ctx, record.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *interestRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*entity.InterestRecord, error) {
	if opts == nil {
		opts = options.FindOne()
	}

	var record entity.InterestRecord
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&record); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Request", err)
		}
		return nil, errors.Internal("Failed to get request", err)
	}
	return &record, nil
}

func (r *interestRepository) find(ctx context.Context, filter bson.M) ([]*entity.InterestRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Internal("Failed to query requests", err)
	}
	defer cursor.Close(ctx)

	var records []*entity.InterestRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Internal("Failed to decode requests", err)
	}
	return records, nil
}
