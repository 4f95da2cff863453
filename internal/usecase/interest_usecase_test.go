package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/service"
	"flatmate/pkg/errors"
)

func TestExpressInterestSnapshotsSender(t *testing.T) {
	f := newFixture(t)
	f.user("alice", "Alice", "+91-111")
	f.user("bob", "Bob", "+91-222")
	f.listing("L2", "bob", entity.ListingTypeOwner)

	view, err := f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.NoError(t, err)

	assert.Equal(t, entity.InterestStatusPending, view.Status)
	assert.Equal(t, "alice", view.Sender.ID)
	assert.Equal(t, "bob", view.Receiver.ID)
	assert.Empty(t, view.Sender.ContactNumber)
	assert.Empty(t, view.Receiver.ContactNumber)
	assert.Equal(t, "Alice", view.SenderProfile.Name)
	assert.Equal(t, "L2", view.Listing.ID)

	stored, err := f.interests.GetByID(f.ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.SenderProfile.Name)
	assert.Equal(t, "quiet, tidy", stored.SenderProfile.Bio)
	assert.Equal(t, entity.InterestOriginRequest, stored.Origin)
	assert.Equal(t, 1, f.events.count(service.SubjectInterestCreated))
}

func TestExpressInterestTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.user("alice", "Alice", "+91-111")
	f.listing("L2", "bob", entity.ListingTypeOwner)

	_, err := f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.NoError(t, err)

	_, err = f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	sent, err := f.interest.ListSent(f.ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}

func TestExpressInterestErrors(t *testing.T) {
	f := newFixture(t)
	f.listing("L1", "alice", entity.ListingTypeOwner)

	_, err := f.interest.ExpressInterest(f.ctx, "alice", "missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = f.interest.ExpressInterest(f.ctx, "alice", "L1")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestToggleLikeIsSymmetric(t *testing.T) {
	f := newFixture(t)
	f.listing("L1", "bob", entity.ListingTypeOwner)

	first, err := f.interest.ToggleLike(f.ctx, "alice", "L1")
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.LikesCount)

	second, err := f.interest.ToggleLike(f.ctx, "alice", "L1")
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.LikesCount)

	status, err := f.interest.LikeStatus(f.ctx, "alice", "L1")
	require.NoError(t, err)
	assert.False(t, status.Liked)

	_, err = f.interest.ToggleLike(f.ctx, "alice", "missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestToggleLikeConcurrentUsers(t *testing.T) {
	f := newFixture(t)
	f.listing("L1", "owner", entity.ListingTypeOwner)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_, err := f.interest.ToggleLike(f.ctx, string(rune('a'+i)), "L1")
			assert.NoError(t, err)
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	l, err := f.listings.GetByID(f.ctx, "L1")
	require.NoError(t, err)
	assert.Len(t, l.Likes, 20)
}

func TestSetStatusOnlyByReceiver(t *testing.T) {
	f := newFixture(t)
	f.user("alice", "Alice", "+91-111")
	f.user("bob", "Bob", "+91-222")
	f.listing("L2", "bob", entity.ListingTypeOwner)

	view, err := f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.NoError(t, err)

	_, err = f.interest.SetStatus(f.ctx, view.ID, "alice", entity.InterestStatusAccepted)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.interest.SetStatus(f.ctx, view.ID, "bob", "maybe")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.interest.SetStatus(f.ctx, "missing", "bob", entity.InterestStatusAccepted)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	accepted, err := f.interest.SetStatus(f.ctx, view.ID, "bob", entity.InterestStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, entity.InterestStatusAccepted, accepted.Status)
	assert.Equal(t, "+91-111", accepted.Sender.ContactNumber)
	assert.Equal(t, "+91-222", accepted.Receiver.ContactNumber)

	again, err := f.interest.SetStatus(f.ctx, view.ID, "bob", entity.InterestStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, entity.InterestStatusAccepted, again.Status)
	assert.Equal(t, 2, f.events.count(service.SubjectInterestStatus))
}

func TestDecidedStatusIsFinal(t *testing.T) {
	f := newFixture(t)
	f.listing("L2", "bob", entity.ListingTypeOwner)
	f.listing("L3", "bob", entity.ListingTypeOwner)

	first, err := f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.NoError(t, err)
	second, err := f.interest.ExpressInterest(f.ctx, "alice", "L3")
	require.NoError(t, err)

	_, err = f.interest.SetStatus(f.ctx, first.ID, "bob", entity.InterestStatusAccepted)
	require.NoError(t, err)
	_, err = f.interest.SetStatus(f.ctx, first.ID, "bob", entity.InterestStatusRejected)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	_, err = f.interest.SetStatus(f.ctx, second.ID, "bob", entity.InterestStatusRejected)
	require.NoError(t, err)
	_, err = f.interest.SetStatus(f.ctx, second.ID, "bob", entity.InterestStatusAccepted)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	stored, err := f.interests.GetByID(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InterestStatusAccepted, stored.Status)
	stored, err = f.interests.GetByID(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InterestStatusRejected, stored.Status)
	assert.Equal(t, 2, f.events.count(service.SubjectInterestStatus))
}

func TestMatchChatCannotBeRejected(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")

	_, err := f.interest.SetStatus(f.ctx, chatID, "bob", entity.InterestStatusRejected)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	_, err = f.conversation.Authorize(f.ctx, chatID, "alice")
	assert.NoError(t, err)
}

func TestListsRevealContactOnlyWhenAccepted(t *testing.T) {
	f := newFixture(t)
	f.user("alice", "Alice", "+91-111")
	f.user("bob", "Bob", "+91-222")
	f.user("carol", "Carol", "+91-333")
	f.listing("L2", "bob", entity.ListingTypeOwner)

	fromAlice, err := f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.NoError(t, err)
	_, err = f.interest.ExpressInterest(f.ctx, "carol", "L2")
	require.NoError(t, err)

	_, err = f.interest.SetStatus(f.ctx, fromAlice.ID, "bob", entity.InterestStatusAccepted)
	require.NoError(t, err)

	incoming, err := f.interest.ListIncoming(f.ctx, "bob")
	require.NoError(t, err)
	require.Len(t, incoming, 2)

	contacts := map[string]string{}
	for _, v := range incoming {
		contacts[v.Sender.ID] = v.Sender.ContactNumber
	}
	assert.Equal(t, "+91-111", contacts["alice"])
	assert.Empty(t, contacts["carol"])

	sent, err := f.interest.ListSent(f.ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "+91-222", sent[0].Receiver.ContactNumber)

	count, err := f.interest.PendingCount(f.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetAndStatusForListing(t *testing.T) {
	f := newFixture(t)
	f.listing("L2", "bob", entity.ListingTypeOwner)

	status, err := f.interest.StatusForListing(f.ctx, "alice", "L2")
	require.NoError(t, err)
	assert.False(t, status.Sent)

	view, err := f.interest.ExpressInterest(f.ctx, "alice", "L2")
	require.NoError(t, err)

	status, err = f.interest.StatusForListing(f.ctx, "alice", "L2")
	require.NoError(t, err)
	assert.True(t, status.Sent)
	assert.Equal(t, entity.InterestStatusPending, status.Status)
	require.NotNil(t, status.CreatedAt)

	got, err := f.interest.Get(f.ctx, view.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	_, err = f.interest.Get(f.ctx, view.ID, "mallory")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}
