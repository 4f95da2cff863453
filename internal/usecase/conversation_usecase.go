package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/internal/domain/service"
	"flatmate/pkg/errors"
	"flatmate/pkg/logger"
)

const (
	DefaultHistoryLimit = 500
	MaxMessageLength    = 4000
)

type ConversationUseCase struct {
	messageRepo  repository.MessageRepository
	interestRepo repository.InterestRepository
	directory    service.UserDirectory
	events       service.EventPublisher
	historyLimit int
}

func NewConversationUseCase(
	messageRepo repository.MessageRepository,
	interestRepo repository.InterestRepository,
	directory service.UserDirectory,
	events service.EventPublisher,
	historyLimit int,
) *ConversationUseCase {
	if events == nil {
		events = service.NopPublisher{}
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &ConversationUseCase{
		messageRepo:  messageRepo,
		interestRepo: interestRepo,
		directory:    directory,
		events:       events,
		historyLimit: historyLimit,
	}
}

// Authorize resolves matchID to its record and checks userID takes part in it.
func (uc *ConversationUseCase) Authorize(ctx context.Context, matchID, userID string) (*entity.InterestRecord, error) {
	if matchID == "" {
		return nil, errors.InvalidArgument("match_id is required")
	}
	record, err := uc.interestRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, err
	}
	if !record.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}
	return record, nil
}

func (uc *ConversationUseCase) AppendMessage(ctx context.Context, matchID, senderID, content string) (*entity.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.InvalidArgument("Message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, errors.InvalidArgument("Message content is too long")
	}

	if _, err := uc.Authorize(ctx, matchID, senderID); err != nil {
		return nil, err
	}

	message := &entity.Message{
		MatchID:  matchID,
		SenderID: senderID,
		Content:  content,
		ReadBy:   []string{},
	}
	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	view := &entity.MessageView{
		Message:    message,
		SenderName: uc.displayName(ctx, senderID),
	}
	uc.events.Publish(ctx, service.SubjectMessageCreated, view)
	return view, nil
}

// History returns the latest limit messages oldest first and marks the ones
// the caller did not send as read by the caller.
func (uc *ConversationUseCase) History(ctx context.Context, matchID, callerID string, limit int) ([]*entity.MessageView, error) {
	if _, err := uc.Authorize(ctx, matchID, callerID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > uc.historyLimit {
		limit = uc.historyLimit
	}

	if _, err := uc.messageRepo.MarkRead(ctx, matchID, callerID); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListByMatch(ctx, matchID, limit)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	views := make([]*entity.MessageView, 0, len(messages))
	for _, m := range messages {
		name, ok := names[m.SenderID]
		if !ok {
			name = uc.displayName(ctx, m.SenderID)
			names[m.SenderID] = name
		}
		views = append(views, &entity.MessageView{Message: m, SenderName: name})
	}
	return views, nil
}

func (uc *ConversationUseCase) UnreadCount(ctx context.Context, matchID, callerID string) (int64, error) {
	if _, err := uc.Authorize(ctx, matchID, callerID); err != nil {
		return 0, err
	}
	return uc.messageRepo.CountUnread(ctx, matchID, callerID)
}

// MarkRead is the read reconciliation run when a user enters a conversation.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, matchID, userID string) (int64, error) {
	if _, err := uc.Authorize(ctx, matchID, userID); err != nil {
		return 0, err
	}
	updated, err := uc.messageRepo.MarkRead(ctx, matchID, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		logger.Debug("Marked %d messages read in %s for %s", updated, matchID, userID)
	}
	return updated, nil
}

func (uc *ConversationUseCase) displayName(ctx context.Context, userID string) string {
	if uc.directory == nil {
		return ""
	}
	return uc.directory.DisplayName(ctx, userID)
}
