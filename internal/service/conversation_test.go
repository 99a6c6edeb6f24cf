package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

func TestGetConversationExampleScenario(t *testing.T) {
	env := newTestEnv(t)
	env.insert(t, 1, "5", "9", "Hi", "2:00 PM")
	env.insert(t, 1, "9", "5", "Hello back", "2:01 PM")

	viewer := domain.Viewer{Role: domain.RoleClient, ID: 5}
	detail, err := env.svc.GetConversation(context.Background(), viewer, 1)
	require.NoError(t, err)

	assert.Equal(t, "9", detail.CounterpartyID)
	assert.Equal(t, "Conversation 1", detail.Name)
	require.Len(t, detail.Messages, 2)
	assert.True(t, detail.Messages[0].IsOwn)
	assert.False(t, detail.Messages[1].IsOwn)
	assert.Equal(t, "Hello back", detail.Messages[1].Text)

	list, err := env.svc.ListConversations(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Hello back", list[0].LastMessage)
	assert.Equal(t, "2:01 PM", list[0].Timestamp)
	assert.Equal(t, domain.DefaultAvatar, list[0].Avatar)
}

func TestCounterpartySymmetry(t *testing.T) {
	env := newTestEnv(t)
	env.insert(t, 1, "5", "9", "ping", "2:00 PM")
	env.insert(t, 1, "9", "5", "pong", "2:01 PM")

	asA, err := env.svc.GetConversation(context.Background(), domain.Viewer{Role: domain.RoleClient, ID: 5}, 1)
	require.NoError(t, err)
	asB, err := env.svc.GetConversation(context.Background(), domain.Viewer{Role: domain.RoleFreelancer, ID: 9}, 1)
	require.NoError(t, err)

	assert.Equal(t, "9", asA.CounterpartyID)
	assert.Equal(t, "5", asB.CounterpartyID)
	assert.Equal(t, []bool{false, true}, []bool{asB.Messages[0].IsOwn, asB.Messages[1].IsOwn})
}

func TestCounterpartyNamesComeFromOppositeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.client(t, "alice", "Alice", "Ng")
	env.freelancer(t, "first", "First", "")
	bob := env.freelancer(t, "bobby", "Bob", "Stone")

	convID, err := env.svc.StartOrGetConversation(ctx, client, bob.ID)
	require.NoError(t, err)

	asClient, err := env.svc.GetConversation(ctx, client, convID)
	require.NoError(t, err)
	assert.Equal(t, "Bob Stone", asClient.Name)
	assert.Equal(t, "2", asClient.CounterpartyID)

	asFreelancer, err := env.svc.GetConversation(ctx, bob, convID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Ng", asFreelancer.Name)
	assert.Equal(t, "1", asFreelancer.CounterpartyID)
}

func TestSeedOnlyConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.client(t, "alice", "Alice", "")
	f := env.freelancer(t, "freddy", "Fred", "")

	_, err := env.svc.StartOrGetConversation(ctx, client, f.ID)
	require.NoError(t, err)

	list, err := env.svc.ListConversations(ctx, client)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SeedMessageText, list[0].LastMessage)
	assert.Equal(t, "2:00 PM", list[0].Timestamp)
}

func TestSelfChatFallsBackToLabel(t *testing.T) {
	env := newTestEnv(t)
	env.insert(t, 4, "5", "5", "note to self", "2:00 PM")

	detail, err := env.svc.GetConversation(context.Background(), domain.Viewer{Role: domain.RoleClient, ID: 5}, 4)
	require.NoError(t, err)
	assert.Equal(t, "", detail.CounterpartyID)
	assert.Equal(t, "Conversation 4", detail.Name)
	assert.True(t, detail.Messages[0].IsOwn)
}

func TestServerSenderIsNeverCounterparty(t *testing.T) {
	env := newTestEnv(t)
	env.insert(t, 2, domain.SenderServer, "", domain.AutoReplyText, "2:00 PM")
	env.insert(t, 2, "5", "9", "Hi", "2:01 PM")

	detail, err := env.svc.GetConversation(context.Background(), domain.Viewer{Role: domain.RoleClient, ID: 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, "9", detail.CounterpartyID)
}

func TestResolveCounterpartyPrefersSenders(t *testing.T) {
	msgs := []domain.Message{
		{Sender: "5", ReceiverID: "9"},
		{Sender: "7", ReceiverID: "5"},
	}
	assert.Equal(t, "7", resolveCounterparty(msgs, "5"))
	assert.Equal(t, "9", resolveCounterparty(msgs[:1], "5"))
	assert.Equal(t, "", resolveCounterparty([]domain.Message{{Sender: domain.SenderServer}}, "5"))
}

func TestListConversationsFirstObservedOrder(t *testing.T) {
	env := newTestEnv(t)
	env.insert(t, 3, "5", "9", "a", "1:00 PM")
	env.insert(t, 1, "5", "8", "b", "1:01 PM")
	env.insert(t, 3, "9", "5", "c", "1:02 PM")
	env.insert(t, 2, "5", "7", "d", "1:03 PM")

	list, err := env.svc.ListConversations(context.Background(), domain.Viewer{Role: domain.RoleClient, ID: 5})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "c", list[0].LastMessage)
	assert.Len(t, list[0].Messages, 2)
}

func TestListConversationsEmpty(t *testing.T) {
	env := newTestEnv(t)
	list, err := env.svc.ListConversations(context.Background(), domain.Viewer{Role: domain.RoleFreelancer, ID: 1})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetConversationNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.GetConversation(context.Background(), domain.Viewer{Role: domain.RoleClient, ID: 5}, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvalidViewerUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ListConversations(context.Background(), domain.Viewer{Role: "admin", ID: 1})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
