package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

const interestsCollection = "interests"

type firestoreInterestRepository struct {
	client *firestore.Client
}

func NewFirestoreInterestRepository(client *firestore.Client) repository.InterestRepository {
	return &firestoreInterestRepository{
		client: client,
	}
}

// Create keys listing-scoped records by sender and listing, so Firestore's
// create-if-absent rejects a duplicate even when two requests race.
func (r *firestoreInterestRepository) Create(ctx context.Context, record *entity.InterestRecord) error {
	if record.ID == "" {
		if record.ListingID != "" {
			record.ID = entity.RequestID(record.SenderID, record.ListingID)
		} else {
			record.ID = uuid.New().String()
		}
	}
	stampInterest(record)

	_, err := r.client.Collection(interestsCollection).Doc(record.ID).Create(ctx, record)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Request already sent")
		}
		return errors.Internal("Failed to create request", err)
	}
	return nil
}

func stampInterest(record *entity.InterestRecord) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.PairKey = entity.PairKey(record.SenderID, record.ReceiverID)
}

func (r *firestoreInterestRepository) GetByID(ctx context.Context, id string) (*entity.InterestRecord, error) {
	doc, err := r.client.Collection(interestsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Request", err)
		}
		return nil, errors.Internal("Failed to get request", err)
	}
	return interestFromDoc(doc)
}

func (r *firestoreInterestRepository) GetBySenderAndListing(ctx context.Context, senderID, listingID string) (*entity.InterestRecord, error) {
	query := r.client.Collection(interestsCollection).
		Where("sender", "==", senderID).
		Where("listing", "==", listingID).
		Limit(1)
	return r.first(ctx, query)
}

func (r *firestoreInterestRepository) ListByReceiver(ctx context.Context, receiverID string) ([]*entity.InterestRecord, error) {
	query := r.client.Collection(interestsCollection).
		Where("receiver", "==", receiverID).
		OrderBy("createdAt", firestore.Desc)
	return r.list(ctx, query)
}

func (r *firestoreInterestRepository) ListBySender(ctx context.Context, senderID string) ([]*entity.InterestRecord, error) {
	query := r.client.Collection(interestsCollection).
		Where("sender", "==", senderID).
		OrderBy("createdAt", firestore.Desc)
	return r.list(ctx, query)
}

func (r *firestoreInterestRepository) CountPendingByReceiver(ctx context.Context, receiverID string) (int64, error) {
	docs, err := r.client.Collection(interestsCollection).
		Where("receiver", "==", receiverID).
		Where("status", "==", entity.InterestStatusPending).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to count requests", err)
	}
	return int64(len(docs)), nil
}

// UpdateStatus re-checks the receiver and the current status inside the
// transaction so the write is conditional on the snapshot it was checked against.
func (r *firestoreInterestRepository) UpdateStatus(ctx context.Context, id, receiverID, newStatus string) (*entity.InterestRecord, error) {
	ref := r.client.Collection(interestsCollection).Doc(id)

	var updated *entity.InterestRecord
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		record, err := interestFromDoc(doc)
		if err != nil {
			return err
		}
		if record.ReceiverID != receiverID {
			return errors.NotFound("Request", nil)
		}
		if !entity.CanMoveTo(record.Status, newStatus) {
			return errors.Conflict("Request is already " + record.Status)
		}

		now := time.Now()
		record.Status = newStatus
		record.UpdatedAt = now
		updated = record

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: newStatus},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Request", err)
		}
		if errors.Is(err, errors.CodeNotFound) || errors.Is(err, errors.CodeConflict) {
			return nil, err
		}
		return nil, errors.Internal("Failed to update request status", err)
	}
	return updated, nil
}

func (r *firestoreInterestRepository) FindByPair(ctx context.Context, pairKey string) (*entity.InterestRecord, error) {
	query := r.client.Collection(interestsCollection).
		Where("pairKey", "==", pairKey).
		OrderBy("createdAt", firestore.Asc).
		Limit(1)
	return r.first(ctx, query)
}

func (r *firestoreInterestRepository) CreateForPair(ctx context.Context, record *entity.InterestRecord) (*entity.InterestRecord, bool, error) {
	record.ID = entity.PairHandleID(entity.PairKey(record.SenderID, record.ReceiverID))
	stampInterest(record)

	ref := r.client.Collection(interestsCollection).Doc(record.ID)
	_, err := ref.Create(ctx, record)
	if err == nil {
		return record, true, nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return nil, false, errors.Internal("Failed to create chat handle", err)
	}

	existing, err := r.GetByID(ctx, record.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *firestoreInterestRepository) first(ctx context.Context, query firestore.Query) (*entity.InterestRecord, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Request", nil)
		}
		return nil, errors.Internal("Failed to query requests", err)
	}
	return interestFromDoc(doc)
}

func (r *firestoreInterestRepository) list(ctx context.Context, query firestore.Query) ([]*entity.InterestRecord, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var records []*entity.InterestRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate requests", err)
		}
		record, err := interestFromDoc(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func interestFromDoc(doc *firestore.DocumentSnapshot) (*entity.InterestRecord, error) {
	var record entity.InterestRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, errors.Internal("Failed to parse request data", err)
	}
	record.ID = doc.Ref.ID
	return &record, nil
}
