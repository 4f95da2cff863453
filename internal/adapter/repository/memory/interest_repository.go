package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

type interestRepository struct {
	mu      sync.RWMutex
	records map[string]*entity.InterestRecord
	order   []string
}

func NewInterestRepository() repository.InterestRepository {
	return &interestRepository{records: make(map[string]*entity.InterestRecord)}
}

func (r *interestRepository) Create(ctx context.Context, record *entity.InterestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ListingID != "" {
		for _, existing := range r.records {
			if existing.SenderID == record.SenderID &&
				existing.ReceiverID == record.ReceiverID &&
				existing.ListingID == record.ListingID {
				return errors.Conflict("Request already sent")
			}
		}
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if _, exists := r.records[record.ID]; exists {
		return errors.Conflict("Request already sent")
	}
	r.insert(record)
	return nil
}

func (r *interestRepository) insert(record *entity.InterestRecord) {
	t := now()
	record.CreatedAt = t
	record.UpdatedAt = t
	record.PairKey = entity.PairKey(record.SenderID, record.ReceiverID)
	r.records[record.ID] = cloneInterest(record)
	r.order = append(r.order, record.ID)
}

func (r *interestRepository) GetByID(ctx context.Context, id string) (*entity.InterestRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound("Request", nil)
	}
	return cloneInterest(rec), nil
}

func (r *interestRepository) GetBySenderAndListing(ctx context.Context, senderID, listingID string) (*entity.InterestRecord, error) {
	found := r.filter(false, func(rec *entity.InterestRecord) bool {
		return rec.SenderID == senderID && rec.ListingID == listingID
	})
	if len(found) == 0 {
		return nil, errors.NotFound("Request", nil)
	}
	return found[0], nil
}

func (r *interestRepository) ListByReceiver(ctx context.Context, receiverID string) ([]*entity.InterestRecord, error) {
	return r.filter(true, func(rec *entity.InterestRecord) bool { return rec.ReceiverID == receiverID }), nil
}

func (r *interestRepository) ListBySender(ctx context.Context, senderID string) ([]*entity.InterestRecord, error) {
	return r.filter(true, func(rec *entity.InterestRecord) bool { return rec.SenderID == senderID }), nil
}

func (r *interestRepository) CountPendingByReceiver(ctx context.Context, receiverID string) (int64, error) {
	found := r.filter(false, func(rec *entity.InterestRecord) bool {
		return rec.ReceiverID == receiverID && rec.Status == entity.InterestStatusPending
	})
	return int64(len(found)), nil
}

func (r *interestRepository) UpdateStatus(ctx context.Context, id, receiverID, status string) (*entity.InterestRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.ReceiverID != receiverID {
		return nil, errors.NotFound("Request", nil)
	}
	if !entity.CanMoveTo(rec.Status, status) {
		return nil, errors.Conflict("Request is already " + rec.Status)
	}
	rec.Status = status
	rec.UpdatedAt = now()
	return cloneInterest(rec), nil
}

func (r *interestRepository) FindByPair(ctx context.Context, pairKey string) (*entity.InterestRecord, error) {
	found := r.filter(false, func(rec *entity.InterestRecord) bool { return rec.PairKey == pairKey })
	if len(found) == 0 {
		return nil, errors.NotFound("Request", nil)
	}
	return found[0], nil
}

func (r *interestRepository) CreateForPair(ctx context.Context, record *entity.InterestRecord) (*entity.InterestRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = entity.PairHandleID(entity.PairKey(record.SenderID, record.ReceiverID))
	if existing, ok := r.records[record.ID]; ok {
		return cloneInterest(existing), false, nil
	}
	r.insert(record)
	return cloneInterest(record), true, nil
}

// filter walks records in insertion order, or newest first when newestFirst is set.
func (r *interestRepository) filter(newestFirst bool, keep func(*entity.InterestRecord) bool) []*entity.InterestRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.InterestRecord
	for i := range r.order {
		idx := i
		if newestFirst {
			idx = len(r.order) - 1 - i
		}
		if rec := r.records[r.order[idx]]; keep(rec) {
			out = append(out, cloneInterest(rec))
		}
	}
	return out
}
