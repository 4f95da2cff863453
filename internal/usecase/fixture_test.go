package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"flatmate/internal/adapter/repository/memory"
	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type staticDirectory map[string]string

func (d staticDirectory) DisplayName(ctx context.Context, userID string) string {
	return d[userID]
}

type fixture struct {
	t   *testing.T
	ctx context.Context

	users     repository.UserRepository
	listings  repository.ListingRepository
	interests repository.InterestRepository
	messages  repository.MessageRepository
	events    *recordingPublisher

	interest     *InterestUseCase
	match        *MatchUseCase
	conversation *ConversationUseCase
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		users:     memory.NewUserRepository(),
		listings:  memory.NewListingRepository(),
		interests: memory.NewInterestRepository(),
		messages:  memory.NewMessageRepository(),
		events:    &recordingPublisher{},
	}
	f.interest = NewInterestUseCase(f.interests, f.listings, f.users, f.events)
	f.match = NewMatchUseCase(f.listings, f.interests, f.users, f.events)
	f.conversation = NewConversationUseCase(f.messages, f.interests, staticDirectory{
		"alice": "Alice",
		"bob":   "Bob",
	}, f.events, 0)
	return f
}

func (f *fixture) user(id, name, contact string) *entity.User {
	u := &entity.User{
		ID:            id,
		Name:          name,
		Age:           27,
		City:          "Pune",
		ContactNumber: contact,
		Bio:           "quiet, tidy",
	}
	require.NoError(f.t, f.users.Create(f.ctx, u))
	return u
}

func (f *fixture) listing(id, creator, listingType string) *entity.Listing {
	l := &entity.Listing{
		ID:          id,
		Creator:     creator,
		ListingType: listingType,
		Address:     id + " street",
		Rent:        12000,
	}
	require.NoError(f.t, f.listings.Create(f.ctx, l))
	return l
}

func (f *fixture) like(userID, listingID string) {
	res, err := f.interest.ToggleLike(f.ctx, userID, listingID)
	require.NoError(f.t, err)
	require.True(f.t, res.Liked)
}

// chat creates an accepted conversation between sender and receiver and returns its id.
func (f *fixture) chat(sender, receiver string) string {
	rec := &entity.InterestRecord{
		SenderID:   sender,
		ReceiverID: receiver,
		Status:     entity.InterestStatusAccepted,
		Origin:     entity.InterestOriginMatch,
	}
	stored, _, err := f.interests.CreateForPair(f.ctx, rec)
	require.NoError(f.t, err)
	return stored.ID
}
