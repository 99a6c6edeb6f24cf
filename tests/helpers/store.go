package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/repository"
)

// NewTestSQLiteStore opens an in-memory marketplace store closed at test end.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedClient inserts a client row and returns it as a viewer.
func SeedClient(t *testing.T, s store.Store, username, firstName string) domain.Viewer {
	t.Helper()

	c := &domain.Client{Username: username, FirstName: firstName}
	if err := s.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("failed to seed client %s: %v", username, err)
	}
	return domain.Viewer{Role: domain.RoleClient, ID: c.ID}
}

// SeedFreelancer inserts a freelancer row and returns it as a viewer.
func SeedFreelancer(t *testing.T, s store.Store, username, firstName string) domain.Viewer {
	t.Helper()

	f := &domain.Freelancer{Username: username, Email: username + "@example.com", FirstName: firstName}
	if err := s.CreateFreelancer(context.Background(), f); err != nil {
		t.Fatalf("failed to seed freelancer %s: %v", username, err)
	}
	return domain.Viewer{Role: domain.RoleFreelancer, ID: f.ID}
}
