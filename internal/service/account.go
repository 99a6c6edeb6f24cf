package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

const (
	minUsernameLength = 4
	maxUsernameLength = 20
	maxEmailLength    = 120
	maxNameLength     = 20
)

// RegisterClient validates and stores a new client.
func (s *Service) RegisterClient(ctx context.Context, reg domain.ClientRegistration) (*domain.Client, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)

	if err := validateUsername(reg.Username); err != nil {
		return nil, err
	}
	if err := maxLength("email", reg.Email, maxEmailLength); err != nil {
		return nil, err
	}
	if err := maxLength("first_name", reg.FirstName, maxNameLength); err != nil {
		return nil, err
	}
	if err := maxLength("last_name", reg.LastName, maxNameLength); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, domain.RoleClient, reg.Username, reg.Email); err != nil {
		return nil, err
	}

	client := &domain.Client{
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	s.logger.Info("client registered", "client_id", client.ID, "username", client.Username)
	return client, nil
}

// RegisterFreelancer validates and stores a new freelancer.
func (s *Service) RegisterFreelancer(ctx context.Context, reg domain.FreelancerRegistration) (*domain.Freelancer, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)

	if err := validateUsername(reg.Username); err != nil {
		return nil, err
	}
	if reg.Email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if err := maxLength("email", reg.Email, maxEmailLength); err != nil {
		return nil, err
	}
	if reg.FirstName == "" {
		return nil, domain.NewValidationError("first_name", "is required")
	}
	if err := maxLength("first_name", reg.FirstName, maxNameLength); err != nil {
		return nil, err
	}
	if err := maxLength("last_name", reg.LastName, maxNameLength); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, domain.RoleFreelancer, reg.Username, reg.Email); err != nil {
		return nil, err
	}

	freelancer := &domain.Freelancer{
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Tagline:   strings.TrimSpace(reg.Tagline),
		Location:  strings.TrimSpace(reg.Location),
		Roles:     strings.TrimSpace(reg.Roles),
	}
	if err := s.store.CreateFreelancer(ctx, freelancer); err != nil {
		return nil, err
	}
	s.logger.Info("freelancer registered", "freelancer_id", freelancer.ID, "username", freelancer.Username)
	return freelancer, nil
}

// UsernameAvailable reports whether nobody of the role uses username.
func (s *Service) UsernameAvailable(ctx context.Context, role domain.Role, username string) (bool, error) {
	exists, err := s.store.UsernameExists(ctx, role, strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return !exists, nil
}

// EmailExists reports whether email is registered for the role. Blank emails never exist.
func (s *Service) EmailExists(ctx context.Context, role domain.Role, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	exists, err := s.store.EmailExists(ctx, role, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// ViewerExists reports whether the account behind viewer is still present.
func (s *Service) ViewerExists(ctx context.Context, viewer domain.Viewer) (bool, error) {
	ident, err := s.store.GetIdentity(ctx, viewer.Role, viewer.ID)
	if err != nil {
		return false, err
	}
	return ident != nil, nil
}

// Profile returns the viewer's own account.
func (s *Service) Profile(ctx context.Context, viewer domain.Viewer) (any, error) {
	var (
		account any
		err     error
	)
	switch viewer.Role {
	case domain.RoleClient:
		var c *domain.Client
		c, err = s.store.GetClient(ctx, viewer.ID)
		if c != nil {
			account = c
		}
	case domain.RoleFreelancer:
		var f *domain.Freelancer
		f, err = s.store.GetFreelancer(ctx, viewer.ID)
		if f != nil {
			account = f
		}
	default:
		return nil, fmt.Errorf("%w: invalid viewer", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s %d", domain.ErrNotFound, viewer.Role, viewer.ID)
	}
	return account, nil
}

// DeleteAccount removes the viewer's own account. Messages stay in the log.
func (s *Service) DeleteAccount(ctx context.Context, viewer domain.Viewer) error {
	if err := s.authorize(ctx, viewer, domain.ActionAccountDelete); err != nil {
		return err
	}

	var (
		deleted bool
		err     error
	)
	if viewer.Role == domain.RoleClient {
		deleted, err = s.store.DeleteClient(ctx, viewer.ID)
	} else {
		deleted, err = s.store.DeleteFreelancer(ctx, viewer.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s %d", domain.ErrNotFound, viewer.Role, viewer.ID)
	}
	s.logger.Info("account deleted", "role", viewer.Role, "id", viewer.ID)
	return nil
}

// ListFreelancerCards returns the public listing of all freelancers.
func (s *Service) ListFreelancerCards(ctx context.Context) ([]domain.FreelancerCard, error) {
	freelancers, err := s.store.ListFreelancers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list freelancers: %w", err)
	}
	cards := make([]domain.FreelancerCard, 0, len(freelancers))
	for _, f := range freelancers {
		cards = append(cards, freelancerCard(f))
	}
	return cards, nil
}

func freelancerCard(f domain.Freelancer) domain.FreelancerCard {
	image := domain.DefaultAvatar
	if f.Username != "" && strings.ContainsRune("aeiou", rune(f.Username[len(f.Username)-1])) {
		image = domain.FemaleAvatar
	}
	return domain.FreelancerCard{
		UniqueID:    f.ID,
		Name:        domain.Identity{FirstName: f.FirstName, LastName: f.LastName}.DisplayName(),
		Username:    f.Username,
		Role:        "Developer",
		Tagline:     f.Tagline,
		Location:    f.Location,
		Image:       image,
		Rate:        fmt.Sprintf("₹%d/hr", 50+f.ID*10),
		Rating:      math.Round((3.5+float64(f.ID%15)/10)*10) / 10,
		RatingCount: 20 + f.ID*5,
		RatingIcon:  domain.RatingIcon,
	}
}

func (s *Service) ensureAvailable(ctx context.Context, role domain.Role, username, email string) error {
	taken, err := s.store.UsernameExists(ctx, role, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return domain.NewValidationError("username", "already exists")
	}
	if email == "" {
		return nil
	}
	taken, err = s.store.EmailExists(ctx, role, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return domain.NewValidationError("email", "already registered")
	}
	return nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return domain.NewValidationError("username", fmt.Sprintf("must be %d-%d characters", minUsernameLength, maxUsernameLength))
	}
	return nil
}

func maxLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d characters", limit))
	}
	return nil
}
