// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Message operations
	AppendMessage(ctx context.Context, msg *domain.Message) error
	StartConversation(ctx context.Context, seed *domain.Message) (int64, bool, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
	GetConversationMessages(ctx context.Context, conversationID int64) ([]domain.Message, error)

	// Client operations
	CreateClient(ctx context.Context, client *domain.Client) error
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	DeleteClient(ctx context.Context, id int64) (bool, error)

	// Freelancer operations
	CreateFreelancer(ctx context.Context, freelancer *domain.Freelancer) error
	GetFreelancer(ctx context.Context, id int64) (*domain.Freelancer, error)
	ListFreelancers(ctx context.Context) ([]domain.Freelancer, error)
	DeleteFreelancer(ctx context.Context, id int64) (bool, error)

	// Shared account lookups
	GetIdentity(ctx context.Context, role domain.Role, id int64) (*domain.Identity, error)
	UsernameExists(ctx context.Context, role domain.Role, username string) (bool, error)
	EmailExists(ctx context.Context, role domain.Role, email string) (bool, error)

	// Lifecycle
	Close() error
}

// Open picks an implementation from the database URL scheme.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewSQLiteStore(databaseURL)
}

func accountTable(role domain.Role) (string, error) {
	switch role {
	case domain.RoleClient:
		return "clients", nil
	case domain.RoleFreelancer:
		return "freelancers", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
