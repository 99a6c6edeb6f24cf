package rpc

import (
	"context"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/marketplace/internal/adapter/events"
	"github.com/xiaot623/gogo/marketplace/internal/adapter/predictor"
	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/hub"
	"github.com/xiaot623/gogo/marketplace/internal/policy"
	"github.com/xiaot623/gogo/marketplace/internal/predictionlog"
	"github.com/xiaot623/gogo/marketplace/internal/repository"
	"github.com/xiaot623/gogo/marketplace/internal/service"
	"github.com/xiaot623/gogo/marketplace/tests/helpers"
)

func newTestRPC(t *testing.T) (*store.SQLiteStore, *rpc.Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	publisher, err := events.NewPublisher("", "", nil)
	require.NoError(t, err)
	h := hub.NewHub(nil)
	go h.Run(ctx)

	db := helpers.NewTestSQLiteStore(t)
	svc := service.New(db, policyEngine, publisher, h,
		predictor.NewClient("", time.Second),
		predictionlog.New(filepath.Join(t.TempDir(), "roles.json")),
		nil)

	srv, err := NewServer(svc)
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	})

	client, err := jsonrpc.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return db, client
}

func TestRPCConversationFlow(t *testing.T) {
	db, client := newTestRPC(t)

	alice := helpers.SeedClient(t, db, "alice", "Alice")
	helpers.SeedFreelancer(t, db, "pat", "Pat")
	fred := helpers.SeedFreelancer(t, db, "fred", "Fred")

	clientViewer := ViewerArgs{Role: alice.Role, ID: alice.ID}
	freelancerViewer := ViewerArgs{Role: fred.Role, ID: fred.ID}

	var started StartConversationResponse
	require.NoError(t, client.Call(ServiceName+".StartConversation",
		&StartConversationArgs{Viewer: clientViewer, FreelancerID: fred.ID}, &started))
	assert.Equal(t, int64(1), started.ConversationID)

	var sent domain.AppendedMessage
	require.NoError(t, client.Call(ServiceName+".SendMessage", &SendMessageArgs{
		Viewer:         clientViewer,
		ConversationID: started.ConversationID,
		ReceiverID:     fred.Key(),
		Text:           "hello over rpc",
	}, &sent))
	assert.True(t, sent.IsOwn)
	assert.Equal(t, "hello over rpc", sent.Text)

	var reply domain.AppendedMessage
	require.NoError(t, client.Call(ServiceName+".AutoReply",
		&ConversationArgs{Viewer: clientViewer, ConversationID: started.ConversationID}, &reply))
	assert.False(t, reply.IsOwn)
	assert.Equal(t, domain.AutoReplyText, reply.Text)

	var listed ListConversationsResponse
	require.NoError(t, client.Call(ServiceName+".ListConversations", &freelancerViewer, &listed))
	require.Len(t, listed.Conversations, 1)
	assert.Equal(t, "Alice", listed.Conversations[0].Name)
	assert.Equal(t, domain.AutoReplyText, listed.Conversations[0].LastMessage)

	var detail domain.ConversationDetail
	require.NoError(t, client.Call(ServiceName+".GetConversation",
		&ConversationArgs{Viewer: freelancerViewer, ConversationID: started.ConversationID}, &detail))
	require.Len(t, detail.Messages, 3)
	assert.Equal(t, domain.SeedMessageText, detail.Messages[0].Text)
	assert.False(t, detail.Messages[1].IsOwn)
}

func TestRPCRejectsUnknownViewer(t *testing.T) {
	_, client := newTestRPC(t)

	var listed ListConversationsResponse
	err := client.Call(ServiceName+".ListConversations", &ViewerArgs{Role: domain.RoleClient, ID: 42}, &listed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	err = client.Call(ServiceName+".ListConversations", &ViewerArgs{Role: "admin", ID: 1}, &listed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "viewer identity required")
}

func TestRPCSendValidation(t *testing.T) {
	db, client := newTestRPC(t)
	alice := helpers.SeedClient(t, db, "alice", "Alice")

	var sent domain.AppendedMessage
	err := client.Call(ServiceName+".SendMessage", &SendMessageArgs{
		Viewer:         ViewerArgs{Role: domain.RoleClient, ID: alice.ID},
		ConversationID: 1,
		ReceiverID:     "2",
		Text:           "   ",
	}, &sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text")
}
