package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

func TestRegisterClientValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		reg   domain.ClientRegistration
		field string
	}{
		{"short username", domain.ClientRegistration{Username: "abc"}, "username"},
		{"long username", domain.ClientRegistration{Username: "abcdefghijklmnopqrstu"}, "username"},
		{"long first name", domain.ClientRegistration{Username: "alice", FirstName: "Abcdefghijklmnopqrstu"}, "first_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.RegisterClient(ctx, tt.reg)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterClient(ctx, domain.ClientRegistration{Username: "alice", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = env.svc.RegisterClient(ctx, domain.ClientRegistration{Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.RegisterClient(ctx, domain.ClientRegistration{Username: "alice2", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Roles have separate namespaces.
	_, err = env.svc.RegisterFreelancer(ctx, domain.FreelancerRegistration{Username: "alice", Email: "a@example.com", FirstName: "Alice"})
	assert.NoError(t, err)
}

func TestRegisterFreelancerRequiresEmailAndFirstName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterFreelancer(ctx, domain.FreelancerRegistration{Username: "freddy", FirstName: "Fred"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.RegisterFreelancer(ctx, domain.FreelancerRegistration{Username: "freddy", Email: "f@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAvailabilityChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freelancer(t, "freddy", "Fred", "")

	ok, err := env.svc.UsernameAvailable(ctx, domain.RoleFreelancer, "freddy")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = env.svc.UsernameAvailable(ctx, domain.RoleClient, "freddy")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := env.svc.EmailExists(ctx, domain.RoleFreelancer, "freddy@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = env.svc.EmailExists(ctx, domain.RoleFreelancer, "  ")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFreelancerCards(t *testing.T) {
	env := newTestEnv(t)
	env.freelancer(t, "freddy", "Fred", "Doe")
	env.freelancer(t, "maria", "Maria", "")

	cards, err := env.svc.ListFreelancerCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, domain.FreelancerCard{
		UniqueID:    1,
		Name:        "Fred Doe",
		Username:    "freddy",
		Role:        "Developer",
		Image:       domain.DefaultAvatar,
		Rate:        "₹60/hr",
		Rating:      3.6,
		RatingCount: 25,
		RatingIcon:  domain.RatingIcon,
	}, cards[0])
	assert.Equal(t, domain.FemaleAvatar, cards[1].Image)
	assert.Equal(t, "₹70/hr", cards[1].Rate)
	assert.Equal(t, 3.7, cards[1].Rating)
}

func TestFreelancerCardRatingWraps(t *testing.T) {
	card := freelancerCard(domain.Freelancer{ID: 15, Username: "zed"})
	assert.Equal(t, 3.5, card.Rating)
	card = freelancerCard(domain.Freelancer{ID: 14, Username: "zed"})
	assert.Equal(t, 4.9, card.Rating)
}

func TestDeleteAccountAndProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.client(t, "alice", "Alice", "")

	profile, err := env.svc.Profile(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.(*domain.Client).Username)

	exists, err := env.svc.ViewerExists(ctx, client)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, env.svc.DeleteAccount(ctx, client))
	assert.ErrorIs(t, env.svc.DeleteAccount(ctx, client), domain.ErrNotFound)

	_, err = env.svc.Profile(ctx, client)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	exists, err = env.svc.ViewerExists(ctx, client)
	require.NoError(t, err)
	assert.False(t, exists)
}
