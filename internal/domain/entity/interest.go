package entity

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	InterestStatusPending  = "pending"
	InterestStatusAccepted = "accepted"
	InterestStatusRejected = "rejected"

	// InterestOriginRequest marks a record created by a user expressing interest;
	// InterestOriginMatch marks one created by the match detector as a chat handle.
	InterestOriginRequest = "interest"
	InterestOriginMatch   = "match"
)

// InterestRecord is a directed expression of interest from Sender to Receiver.
// Its ID doubles as the conversation handle (matchId) once the pair has matched.
type InterestRecord struct {
	ID            string          `json:"id" firestore:"id" bson:"_id"`
	SenderID      string          `json:"sender_id" firestore:"sender" bson:"sender"`
	ReceiverID    string          `json:"receiver_id" firestore:"receiver" bson:"receiver"`
	ListingID     string          `json:"listing_id,omitempty" firestore:"listing,omitempty" bson:"listing,omitempty"`
	Status        string          `json:"status" firestore:"status" bson:"status"`
	Origin        string          `json:"origin" firestore:"origin" bson:"origin"`
	PairKey       string          `json:"-" firestore:"pairKey" bson:"pairKey"`
	SenderProfile ProfileSnapshot `json:"sender_profile" firestore:"senderProfile" bson:"senderProfile"`
	CreatedAt     time.Time       `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time       `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

// PairKey identifies the unordered pair {a, b}. The first id is length
// prefixed so ids containing the separator cannot collide.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strconv.Itoa(len(ids[0])) + ":" + ids[0] + "|" + ids[1]
}

// idNamespace scopes the name-based ids derived below.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("flatmate/interest"))

// PairHandleID is the document id of the chat handle the match detector creates
// for a pair, so concurrent scans of the same pair converge on one record.
func PairHandleID(pairKey string) string {
	return "pair_" + uuid.NewSHA1(idNamespace, []byte(pairKey)).String()
}

// RequestID is the document id of a listing-scoped interest, one per sender and listing.
func RequestID(senderID, listingID string) string {
	key := strconv.Itoa(len(senderID)) + ":" + senderID + "|" + listingID
	return "req_" + uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func (r *InterestRecord) HasParticipant(userID string) bool {
	return userID != "" && (r.SenderID == userID || r.ReceiverID == userID)
}

// Counterpart returns the other participant, or "" if userID is not one.
func (r *InterestRecord) Counterpart(userID string) string {
	switch userID {
	case r.SenderID:
		return r.ReceiverID
	case r.ReceiverID:
		return r.SenderID
	}
	return ""
}

func IsValidStatusTransition(status string) bool {
	return status == InterestStatusAccepted || status == InterestStatusRejected
}

// CanMoveTo reports whether a record in status current may be set to next.
// A pending record moves once to accepted or rejected; re-applying the
// current status is allowed.
func CanMoveTo(current, next string) bool {
	if !IsValidStatusTransition(next) {
		return false
	}
	return current == InterestStatusPending || current == next
}

type InterestView struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Sender        *UserSummary    `json:"sender"`
	Receiver      *UserSummary    `json:"receiver"`
	Listing       *ListingSummary `json:"listing,omitempty"`
	SenderProfile ProfileSnapshot `json:"sender_profile"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToPublicView projects a record for callerID. Contact numbers are included only
// when the record is accepted and the caller is one of its participants. A nil
// sender falls back to the stored profile snapshot.
func ToPublicView(r *InterestRecord, callerID string, sender, receiver *User, listing *Listing) *InterestView {
	reveal := r.Status == InterestStatusAccepted && r.HasParticipant(callerID)

	view := &InterestView{
		ID:            r.ID,
		Status:        r.Status,
		Sender:        sender.Summary(reveal),
		Receiver:      receiver.Summary(reveal),
		Listing:       listing.Summary(),
		SenderProfile: r.SenderProfile,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if view.Sender == nil {
		view.Sender = &UserSummary{
			ID:             r.SenderID,
			Name:           r.SenderProfile.Name,
			Age:            r.SenderProfile.Age,
			Gender:         r.SenderProfile.Gender,
			JobType:        r.SenderProfile.JobType,
			City:           r.SenderProfile.City,
			Area:           r.SenderProfile.Area,
			ProfilePicture: r.SenderProfile.ProfilePicture,
			Bio:            r.SenderProfile.Bio,
		}
	}
	if view.Receiver == nil {
		view.Receiver = &UserSummary{ID: r.ReceiverID}
	}
	return view
}

type ListingInterestStatus struct {
	Sent      bool       `json:"sent"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
