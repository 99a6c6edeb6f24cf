package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/policy"
	"github.com/xiaot623/gogo/marketplace/internal/predictionlog"
	"github.com/xiaot623/gogo/marketplace/internal/repository"
	"github.com/xiaot623/gogo/marketplace/tests/helpers"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.MessageEvent
}

func (p *recordingPublisher) PublishMessage(_ context.Context, event domain.MessageEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

type recordingNotifier struct {
	mu         sync.Mutex
	recipients [][]string
}

func (n *recordingNotifier) Notify(participantIDs []string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, participantIDs)
	return nil
}

type stubPredictor struct {
	got    domain.PredictionRequest
	result *domain.PredictionResult
	err    error
}

func (p *stubPredictor) Predict(_ context.Context, req domain.PredictionRequest) (*domain.PredictionResult, error) {
	p.got = req
	return p.result, p.err
}

type memoryPredictionLog struct {
	entries []domain.PredictionEntry
	missing bool
}

func (l *memoryPredictionLog) Append(result *domain.PredictionResult) (domain.PredictionEntry, error) {
	entry := domain.PredictionEntry{ID: "e1", NeedStatement: result.NeedStatement, Roles: result.PredictedRoles}
	l.entries = append(l.entries, entry)
	l.missing = false
	return entry, nil
}

func (l *memoryPredictionLog) Drain() ([]domain.PredictionEntry, error) {
	if l.missing {
		return nil, predictionlog.ErrMissing
	}
	out := l.entries
	l.entries = nil
	return out, nil
}

type testEnv struct {
	svc       *Service
	store     *store.SQLiteStore
	publisher *recordingPublisher
	notifier  *recordingNotifier
	predictor *stubPredictor
	predLog   *memoryPredictionLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	env := &testEnv{
		store:     helpers.NewTestSQLiteStore(t),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		predictor: &stubPredictor{},
		predLog:   &memoryPredictionLog{missing: true},
	}
	env.svc = New(env.store, engine, env.publisher, env.notifier, env.predictor, env.predLog, nil)
	env.svc.SetClock(func() time.Time { return time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC) })
	return env
}

func (e *testEnv) client(t *testing.T, username, first, last string) domain.Viewer {
	t.Helper()
	c, err := e.svc.RegisterClient(context.Background(), domain.ClientRegistration{Username: username, FirstName: first, LastName: last})
	require.NoError(t, err)
	return domain.Viewer{Role: domain.RoleClient, ID: c.ID}
}

func (e *testEnv) freelancer(t *testing.T, username, first, last string) domain.Viewer {
	t.Helper()
	f, err := e.svc.RegisterFreelancer(context.Background(), domain.FreelancerRegistration{
		Username: username, Email: username + "@example.com", FirstName: first, LastName: last,
	})
	require.NoError(t, err)
	return domain.Viewer{Role: domain.RoleFreelancer, ID: f.ID}
}

func (e *testEnv) insert(t *testing.T, convID int64, sender, receiver, text, ts string) {
	t.Helper()
	require.NoError(t, e.store.AppendMessage(context.Background(), &domain.Message{
		ConversationID: convID, Sender: sender, ReceiverID: receiver, Text: text, Timestamp: ts, CreatedAt: time.Now(),
	}))
}

func rawRoles(s string) json.RawMessage { return json.RawMessage(s) }
