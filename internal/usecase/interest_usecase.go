package usecase

import (
	"context"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/internal/domain/service"
	"flatmate/pkg/errors"
	"flatmate/pkg/logger"
)

type InterestUseCase struct {
	interestRepo repository.InterestRepository
	listingRepo  repository.ListingRepository
	userRepo     repository.UserRepository
	events       service.EventPublisher
}

func NewInterestUseCase(
	interestRepo repository.InterestRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	events service.EventPublisher,
) *InterestUseCase {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &InterestUseCase{
		interestRepo: interestRepo,
		listingRepo:  listingRepo,
		userRepo:     userRepo,
		events:       events,
	}
}

type InterestEvent struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	ListingID  string `json:"listing_id,omitempty"`
	Status     string `json:"status"`
}

func interestEvent(r *entity.InterestRecord) InterestEvent {
	return InterestEvent{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		ListingID:  r.ListingID,
		Status:     r.Status,
	}
}

func (uc *InterestUseCase) ExpressInterest(ctx context.Context, senderID, listingID string) (*entity.InterestView, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.Creator == senderID {
		return nil, errors.InvalidArgument("Cannot send a request for your own listing")
	}

	sender, err := uc.lookupUser(ctx, senderID)
	if err != nil {
		return nil, err
	}

	record := &entity.InterestRecord{
		SenderID:   senderID,
		ReceiverID: listing.Creator,
		ListingID:  listing.ID,
		Status:     entity.InterestStatusPending,
		Origin:     entity.InterestOriginRequest,
	}
	if sender != nil {
		record.SenderProfile = sender.Snapshot()
	}

	if err := uc.interestRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Info("Interest %s created: %s -> %s for listing %s", record.ID, senderID, listing.Creator, listing.ID)
	uc.events.Publish(ctx, service.SubjectInterestCreated, interestEvent(record))

	receiver, _ := uc.lookupUser(ctx, listing.Creator)
	return entity.ToPublicView(record, senderID, sender, receiver, listing), nil
}

func (uc *InterestUseCase) ToggleLike(ctx context.Context, userID, listingID string) (*entity.LikeResult, error) {
	result, err := uc.listingRepo.ToggleLike(ctx, listingID, userID)
	if err != nil {
		return nil, err
	}
	logger.Debug("User %s toggled like on listing %s: liked=%t count=%d", userID, listingID, result.Liked, result.LikesCount)
	return result, nil
}

func (uc *InterestUseCase) LikeStatus(ctx context.Context, userID, listingID string) (*entity.LikeResult, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return &entity.LikeResult{
		Liked:      listing.LikedBy(userID),
		LikesCount: len(listing.Likes),
	}, nil
}

// SetStatus moves a pending request to accepted or rejected. Only the receiver
// may do it. A decided request keeps its status; setting the same status twice
// is allowed.
func (uc *InterestUseCase) SetStatus(ctx context.Context, requestID, callerID, status string) (*entity.InterestView, error) {
	if !entity.IsValidStatusTransition(status) {
		return nil, errors.InvalidArgument("Status must be accepted or rejected")
	}

	record, err := uc.interestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if record.ReceiverID != callerID {
		return nil, errors.Forbidden("Only the receiver can update this request", nil)
	}
	if !entity.CanMoveTo(record.Status, status) {
		return nil, errors.Conflict("Request is already " + record.Status)
	}

	updated, err := uc.interestRepo.UpdateStatus(ctx, requestID, callerID, status)
	if err != nil {
		return nil, err
	}

	logger.Info("Interest %s set to %s by %s", requestID, status, callerID)
	uc.events.Publish(ctx, service.SubjectInterestStatus, interestEvent(updated))

	return uc.view(ctx, updated, callerID, nil), nil
}

func (uc *InterestUseCase) ListIncoming(ctx context.Context, userID string) ([]*entity.InterestView, error) {
	records, err := uc.interestRepo.ListByReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.views(ctx, records, userID), nil
}

func (uc *InterestUseCase) ListSent(ctx context.Context, userID string) ([]*entity.InterestView, error) {
	records, err := uc.interestRepo.ListBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.views(ctx, records, userID), nil
}

func (uc *InterestUseCase) Get(ctx context.Context, requestID, callerID string) (*entity.InterestView, error) {
	record, err := uc.interestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !record.HasParticipant(callerID) {
		return nil, errors.Forbidden("You are not a participant of this request", nil)
	}
	return uc.view(ctx, record, callerID, nil), nil
}

func (uc *InterestUseCase) StatusForListing(ctx context.Context, userID, listingID string) (*entity.ListingInterestStatus, error) {
	record, err := uc.interestRepo.GetBySenderAndListing(ctx, userID, listingID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return &entity.ListingInterestStatus{Sent: false}, nil
		}
		return nil, err
	}
	createdAt := record.CreatedAt
	return &entity.ListingInterestStatus{
		Sent:      true,
		Status:    record.Status,
		CreatedAt: &createdAt,
	}, nil
}

func (uc *InterestUseCase) PendingCount(ctx context.Context, userID string) (int64, error) {
	return uc.interestRepo.CountPendingByReceiver(ctx, userID)
}

func (uc *InterestUseCase) views(ctx context.Context, records []*entity.InterestRecord, callerID string) []*entity.InterestView {
	users := make(map[string]*entity.User)
	out := make([]*entity.InterestView, 0, len(records))
	for _, r := range records {
		out = append(out, uc.view(ctx, r, callerID, users))
	}
	return out
}

// view resolves the participants and listing of r. users memoises lookups
// across a list call and may be nil.
func (uc *InterestUseCase) view(ctx context.Context, r *entity.InterestRecord, callerID string, users map[string]*entity.User) *entity.InterestView {
	if users == nil {
		users = make(map[string]*entity.User)
	}
	resolve := func(id string) *entity.User {
		if u, ok := users[id]; ok {
			return u
		}
		u, err := uc.lookupUser(ctx, id)
		if err != nil {
			logger.Warn("Failed to load user %s for request %s: %v", id, r.ID, err)
		}
		users[id] = u
		return u
	}

	var listing *entity.Listing
	if r.ListingID != "" {
		l, err := uc.listingRepo.GetByID(ctx, r.ListingID)
		if err != nil && !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("Failed to load listing %s for request %s: %v", r.ListingID, r.ID, err)
		}
		listing = l
	}

	return entity.ToPublicView(r, callerID, resolve(r.SenderID), resolve(r.ReceiverID), listing)
}

// lookupUser treats a missing profile as nil so a deleted profile does not
// break the ledger.
func (uc *InterestUseCase) lookupUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
