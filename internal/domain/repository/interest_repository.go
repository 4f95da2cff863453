package repository

import (
	"context"

	"flatmate/internal/domain/entity"
)

type InterestRepository interface {
	// Create fails with a CONFLICT AppError when a record for the same
	// (sender, receiver, listing) triple already exists.
	Create(ctx context.Context, record *entity.InterestRecord) error
	GetByID(ctx context.Context, id string) (*entity.InterestRecord, error)
	GetBySenderAndListing(ctx context.Context, senderID, listingID string) (*entity.InterestRecord, error)
	ListByReceiver(ctx context.Context, receiverID string) ([]*entity.InterestRecord, error)
	ListBySender(ctx context.Context, senderID string) ([]*entity.InterestRecord, error)
	CountPendingByReceiver(ctx context.Context, receiverID string) (int64, error)
	// UpdateStatus writes status only if the record's receiver is receiverID.
	UpdateStatus(ctx context.Context, id, receiverID, status string) (*entity.InterestRecord, error)
	// FindByPair returns the oldest record linking the unordered pair, either direction.
	FindByPair(ctx context.Context, pairKey string) (*entity.InterestRecord, error)
	// CreateForPair stores record under an id derived from its pair key. If such a
	// record already exists it is returned instead and created is false.
	CreateForPair(ctx context.Context, record *entity.InterestRecord) (stored *entity.InterestRecord, created bool, err error)
}
