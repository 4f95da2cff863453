package entity

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        string    `json:"id" firestore:"id" bson:"_id"`
	MatchID   string    `json:"match_id" firestore:"matchId" bson:"matchId"`
	SenderID  string    `json:"sender_id" firestore:"senderId" bson:"sender"`
	Content   string    `json:"content" firestore:"content" bson:"content"`
	ReadBy    []string  `json:"read_by" firestore:"readBy" bson:"readBy"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

// NewMessageID returns a time-ordered id. Messages created in the same clock
// tick still sort by id in creation order.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Precedes orders messages by creation time, then by id.
func (m *Message) Precedes(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

func (m *Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// IsUnreadFor reports whether userID still has to read m. Own messages never count.
func (m *Message) IsUnreadFor(userID string) bool {
	return m.SenderID != userID && !m.IsReadBy(userID)
}

// MessageView is a Message plus the sender's display name, as sent to clients.
type MessageView struct {
	*Message
	SenderName string `json:"sender_name"`
}
