package usecase

import (
	"context"
	"sort"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/internal/domain/service"
	"flatmate/pkg/errors"
	"flatmate/pkg/logger"
)

type MatchUseCase struct {
	listingRepo  repository.ListingRepository
	interestRepo repository.InterestRepository
	userRepo     repository.UserRepository
	events       service.EventPublisher
}

func NewMatchUseCase(
	listingRepo repository.ListingRepository,
	interestRepo repository.InterestRepository,
	userRepo repository.UserRepository,
	events service.EventPublisher,
) *MatchUseCase {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &MatchUseCase{
		listingRepo:  listingRepo,
		interestRepo: interestRepo,
		userRepo:     userRepo,
		events:       events,
	}
}

type MatchEvent struct {
	ChatID string   `json:"chat_id"`
	Users  []string `json:"users"`
}

// FindMatches returns one Match per user who has liked one of userID's
// listings while userID has liked one of theirs, newest match first.
func (uc *MatchUseCase) FindMatches(ctx context.Context, userID string) ([]*entity.Match, error) {
	mine, err := uc.listingRepo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(mine) == 0 {
		return []*entity.Match{}, nil
	}

	liked, err := uc.listingRepo.ListLikedBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	matches := make([]*entity.Match, 0)
	for _, theirs := range liked {
		other := theirs.Creator
		if other == "" || other == userID || seen[other] {
			continue
		}

		var myListing *entity.Listing
		for _, l := range mine {
			if l.LikedBy(other) {
				myListing = l
				break
			}
		}
		if myListing == nil {
			continue
		}
		seen[other] = true

		chatID, err := uc.resolveChat(ctx, userID, other)
		if err != nil {
			return nil, err
		}

		matchedAt := theirs.LikeTime(userID)
		if t := myListing.LikeTime(other); t.After(matchedAt) {
			matchedAt = t
		}

		matches = append(matches, &entity.Match{
			MatchedUser:  uc.counterpart(ctx, other),
			MyListing:    myListing.Summary(),
			TheirListing: theirs.Summary(),
			MatchedAt:    matchedAt,
			ChatID:       chatID,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchedAt.After(matches[j].MatchedAt)
	})
	return matches, nil
}

// resolveChat returns the id of the oldest record linking the pair, creating a
// pre-accepted one under the pair's deterministic id when none exists.
func (uc *MatchUseCase) resolveChat(ctx context.Context, userID, otherID string) (string, error) {
	pairKey := entity.PairKey(userID, otherID)

	existing, err := uc.interestRepo.FindByPair(ctx, pairKey)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return "", err
	}

	record := &entity.InterestRecord{
		SenderID:   userID,
		ReceiverID: otherID,
		Status:     entity.InterestStatusAccepted,
		Origin:     entity.InterestOriginMatch,
	}
	if sender, err := uc.userRepo.GetByID(ctx, userID); err == nil {
		record.SenderProfile = sender.Snapshot()
	}

	stored, created, err := uc.interestRepo.CreateForPair(ctx, record)
	if err != nil {
		return "", err
	}
	if created {
		logger.Info("Created chat handle %s for match %s", stored.ID, pairKey)
		uc.events.Publish(ctx, service.SubjectMatchCreated, MatchEvent{
			ChatID: stored.ID,
			Users:  []string{stored.SenderID, stored.ReceiverID},
		})
	}
	return stored.ID, nil
}

// counterpart returns the matched user's profile with contact number, which a
// match always reveals.
func (uc *MatchUseCase) counterpart(ctx context.Context, id string) *entity.UserSummary {
	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("Failed to load matched user %s: %v", id, err)
		}
		return &entity.UserSummary{ID: id}
	}
	return u.Summary(true)
}
