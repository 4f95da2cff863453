package repository

import (
	"context"

	"flatmate/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	// ListByMatch returns up to limit messages in ascending creation order.
	ListByMatch(ctx context.Context, matchID string, limit int) ([]*entity.Message, error)
	// MarkRead adds userID to readBy of every message in the conversation not
	// authored by userID. It only ever adds.
	MarkRead(ctx context.Context, matchID, userID string) (int64, error)
	CountUnread(ctx context.Context, matchID, userID string) (int64, error)
}
