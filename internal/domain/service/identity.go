package service

import "context"

// IdentityVerifier resolves a bearer credential to a user id. Implementations
// keep no session state; every call re-verifies.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// UserDirectory resolves display names for message views.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) string
}

// EventPublisher fans domain events out to other services. Publishing is best
// effort and never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{})
}

const (
	SubjectInterestCreated = "flatmate.interest.created"
	SubjectInterestStatus  = "flatmate.interest.status"
	SubjectMatchCreated    = "flatmate.match.created"
	SubjectMessageCreated  = "flatmate.message.created"
)

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) {}
