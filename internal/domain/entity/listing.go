package entity

import "time"

const (
	ListingTypeOwner = "owner"
	ListingTypeBuyer = "buyer"
)

// Listing is owned by the listing service. The chat core reads it and mutates
// only Likes/LikedAt through the like toggle.
type Listing struct {
	ID                string               `json:"id" firestore:"id" bson:"_id"`
	Creator           string               `json:"creator" firestore:"creator" bson:"creator"`
	ListingType       string               `json:"listing_type" firestore:"listingType" bson:"listingType"`
	PropertyType      string               `json:"property_type,omitempty" firestore:"propertyType" bson:"propertyType"`
	AccommodationType string               `json:"accommodation_type,omitempty" firestore:"accommodationType" bson:"accommodationType"`
	Address           string               `json:"address,omitempty" firestore:"address" bson:"address"`
	Rent              float64              `json:"rent,omitempty" firestore:"rent" bson:"rent"`
	Images            []string             `json:"images,omitempty" firestore:"images" bson:"images"`
	Likes             []string             `json:"likes" firestore:"likes" bson:"likes"`
	LikedAt           map[string]time.Time `json:"-" firestore:"likedAt" bson:"likedAt"`
	CreatedAt         time.Time            `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time            `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

func (l *Listing) LikedBy(userID string) bool {
	for _, id := range l.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// LikeTime returns when userID liked the listing. Likes written before LikedAt
// existed fall back to the listing's last update.
func (l *Listing) LikeTime(userID string) time.Time {
	if t, ok := l.LikedAt[userID]; ok {
		return t
	}
	return l.UpdatedAt
}

type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// ListingSummary is the slice of a listing shown inside a Match.
type ListingSummary struct {
	ID                string   `json:"id"`
	ListingType       string   `json:"listing_type"`
	PropertyType      string   `json:"property_type,omitempty"`
	AccommodationType string   `json:"accommodation_type,omitempty"`
	Address           string   `json:"address,omitempty"`
	Rent              float64  `json:"rent,omitempty"`
	Images            []string `json:"images,omitempty"`
}

func (l *Listing) Summary() *ListingSummary {
	if l == nil {
		return nil
	}
	return &ListingSummary{
		ID:                l.ID,
		ListingType:       l.ListingType,
		PropertyType:      l.PropertyType,
		AccommodationType: l.AccommodationType,
		Address:           l.Address,
		Rent:              l.Rent,
		Images:            l.Images,
	}
}
