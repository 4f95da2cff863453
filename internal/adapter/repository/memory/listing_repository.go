package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

type listingRepository struct {
	mu       sync.RWMutex
	listings map[string]*entity.Listing
	order    []string
}

func NewListingRepository() repository.ListingRepository {
	return &listingRepository{listings: make(map[string]*entity.Listing)}
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	t := now()
	listing.CreatedAt = t
	listing.UpdatedAt = t
	if listing.Likes == nil {
		listing.Likes = []string{}
	}
	if listing.LikedAt == nil {
		listing.LikedAt = make(map[string]time.Time)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.listings[listing.ID]; !exists {
		r.order = append(r.order, listing.ID)
	}
	r.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return cloneListing(l), nil
}

func (r *listingRepository) ListByCreator(ctx context.Context, creatorID string) ([]*entity.Listing, error) {
	return r.filter(func(l *entity.Listing) bool { return l.Creator == creatorID }), nil
}

func (r *listingRepository) ListLikedBy(ctx context.Context, userID string) ([]*entity.Listing, error) {
	return r.filter(func(l *entity.Listing) bool { return l.LikedBy(userID) }), nil
}

func (r *listingRepository) filter(keep func(*entity.Listing) bool) []*entity.Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// newest first
	var out []*entity.Listing
	for i := len(r.order) - 1; i >= 0; i-- {
		if l := r.listings[r.order[i]]; keep(l) {
			out = append(out, cloneListing(l))
		}
	}
	return out
}

func (r *listingRepository) ToggleLike(ctx context.Context, listingID, userID string) (*entity.LikeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}

	liked := !l.LikedBy(userID)
	if liked {
		l.Likes = append(l.Likes, userID)
		l.LikedAt[userID] = now()
	} else {
		kept := l.Likes[:0]
		for _, id := range l.Likes {
			if id != userID {
				kept = append(kept, id)
			}
		}
		l.Likes = kept
		delete(l.LikedAt, userID)
	}
	l.UpdatedAt = now()

	return &entity.LikeResult{Liked: liked, LikesCount: len(l.Likes)}, nil
}
