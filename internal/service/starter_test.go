package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

func TestStartOrGetConversationIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.client(t, "alice", "Alice", "")
	f := env.freelancer(t, "freddy", "Fred", "")

	first, err := env.svc.StartOrGetConversation(ctx, client, f.ID)
	require.NoError(t, err)
	second, err := env.svc.StartOrGetConversation(ctx, client, f.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, first, second)

	messages, err := env.store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.SeedMessageText, messages[0].Text)
	assert.Equal(t, "1", messages[0].Sender)
	assert.Equal(t, "1", messages[0].ReceiverID)
	assert.Equal(t, "2:00 PM", messages[0].Timestamp)

	assert.Len(t, env.publisher.events, 1)
	require.Len(t, env.notifier.recipients, 1)
	assert.Equal(t, []string{"client:1", "freelancer:1"}, env.notifier.recipients[0])
}

func TestStartOrGetConversationMonotonicIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.client(t, "alice", "Alice", "")
	f1 := env.freelancer(t, "freddy", "Fred", "")
	f2 := env.freelancer(t, "gina", "Gina", "")

	id1, err := env.svc.StartOrGetConversation(ctx, client, f1.ID)
	require.NoError(t, err)
	id2, err := env.svc.StartOrGetConversation(ctx, client, f2.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, []int64{id1, id2})
}

func TestStartOrGetConversationContinuesAfterExistingIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insert(t, 4, "7", "8", "old", "9:00 AM")
	client := env.client(t, "alice", "Alice", "")
	f := env.freelancer(t, "freddy", "Fred", "")

	id, err := env.svc.StartOrGetConversation(ctx, client, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestStartOrGetConversationFreelancerUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.freelancer(t, "freddy", "Fred", "")

	_, err := env.svc.StartOrGetConversation(ctx, f, f.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	messages, err := env.store.ListMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStartOrGetConversationUnknownFreelancer(t *testing.T) {
	env := newTestEnv(t)
	client := env.client(t, "alice", "Alice", "")

	_, err := env.svc.StartOrGetConversation(context.Background(), client, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
