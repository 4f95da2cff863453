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

// maxToggleAttempts bounds the add/remove retry loop when another writer
// flips the same like between our two conditional updates.
const maxToggleAttempts = 3

type listingRepository struct {
	coll *mongo.Collection
}

func NewListingRepository(db *mongo.Database) repository.ListingRepository {
	return &listingRepository{coll: db.Collection(listingsCollection)}
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.Likes == nil {
		listing.Likes = []string{}
	}
	if listing.LikedAt == nil {
		listing.LikedAt = make(map[string]time.Time)
	}

	if _, err := r.coll.InsertOne(ctx, listing); err != nil {
		return errors.Internal("Failed to create listing", err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	var listing entity.Listing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&listing); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Internal("Failed to get listing", err)
	}
	return &listing, nil
}

func (r *listingRepository) ListByCreator(ctx context.Context, creatorID string) ([]*entity.Listing, error) {
	return r.find(ctx, bson.M{"creator": creatorID})
}

func (r *listingRepository) ListLikedBy(ctx context.Context, userID string) ([]*entity.Listing, error) {
	return r.find(ctx, bson.M{"likes": userID})
}

func (r *listingRepository) find(ctx context.Context, filter bson.M) ([]*entity.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Internal("Failed to query listings", err)
	}
	defer cursor.Close(ctx)

	var listings []*entity.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, errors.Internal("Failed to decode listings", err)
	}
	return listings, nil
}

// ToggleLike flips userID's like with two conditional single-document updates.
// Each update only matches when the like is in the state it expects, so two
// concurrent toggles never both add or both remove.
func (r *listingRepository) ToggleLike(ctx context.Context, listingID, userID string) (*entity.LikeResult, error) {
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	likedAtPath := "likedAt." + userID

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		now := time.Now()

		var listing entity.Listing
		err := r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": listingID, "likes": bson.M{"$ne": userID}},
			bson.M{
				"$addToSet": bson.M{"likes": userID},
				"$set":      bson.M{likedAtPath: now, "updatedAt": now},
			},
			after,
		).Decode(&listing)
		if err == nil {
			return &entity.LikeResult{Liked: true, LikesCount: len(listing.Likes)}, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, errors.Internal("Failed to like listing", err)
		}

		err = r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": listingID, "likes": userID},
			bson.M{
				"$pull":  bson.M{"likes": userID},
				"$unset": bson.M{likedAtPath: ""},
				"$set":   bson.M{"updatedAt": now},
			},
			after,
		).Decode(&listing)
		if err == nil {
			return &entity.LikeResult{Liked: false, LikesCount: len(listing.Likes)}, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, errors.Internal("Failed to unlike listing", err)
		}

		count, err := r.coll.CountDocuments(ctx, bson.M{"_id": listingID})
		if err != nil {
			return nil, errors.Internal("Failed to get listing", err)
		}
		if count == 0 {
			return nil, errors.NotFound("Listing", nil)
		}
	}
	return nil, errors.Conflict("Listing changed concurrently, try again")
}
