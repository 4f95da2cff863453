package memory

import (
	"context"
	"sort"
	"sync"

	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
)

type messageRepository struct {
	mu      sync.RWMutex
	byMatch map[string][]*entity.Message
}

func NewMessageRepository() repository.MessageRepository {
	return &messageRepository{byMatch: make(map[string][]*entity.Message)}
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = entity.NewMessageID()
	}
	t := now()
	message.CreatedAt = t
	message.UpdatedAt = t
	if message.ReadBy == nil {
		message.ReadBy = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append(r.byMatch[message.MatchID], cloneMessage(message))
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Precedes(msgs[j]) })
	r.byMatch[message.MatchID] = msgs
	return nil
}

func (r *messageRepository) ListByMatch(ctx context.Context, matchID string, limit int) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.byMatch[matchID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, matchID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, m := range r.byMatch[matchID] {
		if m.IsUnreadFor(userID) {
			m.ReadBy = append(m.ReadBy, userID)
			m.UpdatedAt = now()
			updated++
		}
	}
	return updated, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, matchID, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, m := range r.byMatch[matchID] {
		if m.IsUnreadFor(userID) {
			count++
		}
	}
	return count, nil
}
