package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/pkg/errors"
)

const listingsCollection = "listings"

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		doc := r.client.Collection(listingsCollection).NewDoc()
		listing.ID = doc.ID
	}

	now := time.Now()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	if listing.Likes == nil {
		listing.Likes = []string{}
	}
	if listing.LikedAt == nil {
		listing.LikedAt = map[string]time.Time{}
	}

	_, err := r.client.Collection(listingsCollection).Doc(listing.ID).Set(ctx, listing)
	if err != nil {
		return errors.Internal("Failed to create listing", err)
	}
	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection(listingsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Internal("Failed to get listing", err)
	}
	return listingFromDoc(doc)
}

func (r *firestoreListingRepository) ListByCreator(ctx context.Context, creatorID string) ([]*entity.Listing, error) {
	query := r.client.Collection(listingsCollection).Where("creator", "==", creatorID)
	return r.list(ctx, query)
}

func (r *firestoreListingRepository) ListLikedBy(ctx context.Context, userID string) ([]*entity.Listing, error) {
	query := r.client.Collection(listingsCollection).Where("likes", "array-contains", userID)
	return r.list(ctx, query)
}

func (r *firestoreListingRepository) list(ctx context.Context, query firestore.Query) ([]*entity.Listing, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query listings", err)
	}

	listings := make([]*entity.Listing, 0, len(docs))
	for _, doc := range docs {
		listing, err := listingFromDoc(doc)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// ToggleLike reads and rewrites the likes set inside one transaction, so two
// concurrent toggles by the same user cannot lose an update.
func (r *firestoreListingRepository) ToggleLike(ctx context.Context, listingID, userID string) (*entity.LikeResult, error) {
	ref := r.client.Collection(listingsCollection).Doc(listingID)

	var result *entity.LikeResult
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		listing, err := listingFromDoc(doc)
		if err != nil {
			return err
		}

		now := time.Now()
		liked := !listing.LikedBy(userID)
		count := len(listing.Likes)

		var updates []firestore.Update
		if liked {
			count++
			updates = []firestore.Update{
				{Path: "likes", Value: firestore.ArrayUnion(userID)},
				{FieldPath: firestore.FieldPath{"likedAt", userID}, Value: now},
				{Path: "updatedAt", Value: now},
			}
		} else {
			count--
			updates = []firestore.Update{
				{Path: "likes", Value: firestore.ArrayRemove(userID)},
				{FieldPath: firestore.FieldPath{"likedAt", userID}, Value: firestore.Delete},
				{Path: "updatedAt", Value: now},
			}
		}

		result = &entity.LikeResult{Liked: liked, LikesCount: count}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		if errors.Is(err, errors.CodeInternal) {
			return nil, err
		}
		return nil, errors.Internal("Failed to toggle like", err)
	}
	return result, nil
}

func listingFromDoc(doc *firestore.DocumentSnapshot) (*entity.Listing, error) {
	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing.ID = doc.Ref.ID
	return &listing, nil
}
