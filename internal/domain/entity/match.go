package entity

import "time"

// Match is derived on read from listing likes; it is never stored.
type Match struct {
	MatchedUser  *UserSummary    `json:"matched_user"`
	MyListing    *ListingSummary `json:"my_listing"`
	TheirListing *ListingSummary `json:"their_listing"`
	MatchedAt    time.Time       `json:"matched_at"`
	ChatID       string          `json:"chat_id"`
}
