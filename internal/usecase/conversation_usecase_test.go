package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatmate/internal/domain/service"
	"flatmate/pkg/errors"
)

func TestAppendMessage(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")

	view, err := f.conversation.AppendMessage(f.ctx, chatID, "alice", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", view.Content)
	assert.Equal(t, "Alice", view.SenderName)
	assert.Equal(t, chatID, view.MatchID)
	assert.Empty(t, view.ReadBy)
	assert.Equal(t, 1, f.events.count(service.SubjectMessageCreated))
}

func TestAppendMessageRejects(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")

	_, err := f.conversation.AppendMessage(f.ctx, chatID, "mallory", "hi")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.conversation.AppendMessage(f.ctx, chatID, "alice", "   ")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.conversation.AppendMessage(f.ctx, chatID, "alice", strings.Repeat("x", MaxMessageLength+1))
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.conversation.AppendMessage(f.ctx, "missing", "alice", "hi")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	history, err := f.conversation.History(f.ctx, chatID, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryMarksReadAndIsMonotonic(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")

	for _, content := range []string{"one", "two", "three"} {
		_, err := f.conversation.AppendMessage(f.ctx, chatID, "alice", content)
		require.NoError(t, err)
	}
	_, err := f.conversation.AppendMessage(f.ctx, chatID, "bob", "reply")
	require.NoError(t, err)

	unread, err := f.conversation.UnreadCount(f.ctx, chatID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	history, err := f.conversation.History(f.ctx, chatID, "bob", 0)
	require.NoError(t, err)
	require.Len(t, history, 4)

	var contents []string
	for _, m := range history {
		contents = append(contents, m.Content)
		if m.SenderID == "alice" {
			assert.Equal(t, []string{"bob"}, m.ReadBy)
		} else {
			assert.NotContains(t, m.ReadBy, "bob")
		}
	}
	assert.Equal(t, []string{"one", "two", "three", "reply"}, contents)

	for i := 0; i < 3; i++ {
		again, err := f.conversation.History(f.ctx, chatID, "bob", 0)
		require.NoError(t, err)
		for _, m := range again {
			if m.SenderID == "alice" {
				assert.Equal(t, []string{"bob"}, m.ReadBy)
			}
		}
	}

	unread, err = f.conversation.UnreadCount(f.ctx, chatID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	unread, err = f.conversation.UnreadCount(f.ctx, chatID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestHistoryForbiddenForStranger(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")
	_, err := f.conversation.AppendMessage(f.ctx, chatID, "alice", "secret")
	require.NoError(t, err)

	_, err = f.conversation.History(f.ctx, chatID, "mallory", 0)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.conversation.UnreadCount(f.ctx, chatID, "mallory")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.conversation.MarkRead(f.ctx, chatID, "mallory")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	history, err := f.conversation.History(f.ctx, chatID, "bob", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []string{"bob"}, history[0].ReadBy)
}

func TestHistoryLimitReturnsLatest(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")
	for i := 0; i < 10; i++ {
		_, err := f.conversation.AppendMessage(f.ctx, chatID, "alice", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	history, err := f.conversation.History(f.ctx, chatID, "bob", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "m7", history[0].Content)
	assert.Equal(t, "m9", history[2].Content)

	unread, err := f.conversation.UnreadCount(f.ctx, chatID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestMarkReadCountsNewlyRead(t *testing.T) {
	f := newFixture(t)
	chatID := f.chat("alice", "bob")
	_, err := f.conversation.AppendMessage(f.ctx, chatID, "alice", "one")
	require.NoError(t, err)

	n, err := f.conversation.MarkRead(f.ctx, chatID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.conversation.MarkRead(f.ctx, chatID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = f.conversation.MarkRead(f.ctx, chatID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
