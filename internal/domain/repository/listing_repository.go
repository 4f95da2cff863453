package repository

import (
	"context"

	"flatmate/internal/domain/entity"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*entity.Listing, error)
	// ListLikedBy returns every listing whose likes set contains userID.
	ListLikedBy(ctx context.Context, userID string) ([]*entity.Listing, error)
	// ToggleLike flips userID's membership in the listing's likes set in a single
	// atomic storage operation.
	ToggleLike(ctx context.Context, listingID, userID string) (*entity.LikeResult, error)
}
