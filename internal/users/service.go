package users

import (
	"context"
	"fmt"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map. It
// returns (nil, nil) when the claims carry no subject.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	p := identity.FromClaims(claims)
	if p == nil {
		return nil, nil
	}
	return s.upsert(ctx, p)
}

func (s *Service) upsert(ctx context.Context, p *identity.Principal) (*models.User, error) {
	u := &models.User{
		ID:       p.ID,
		Username: p.Handle(),
		Email:    p.Email,
		Name:     p.Name,
	}
	return s.repo.UpsertBySub(ctx, u)
}

// EnsurePrincipal records p so that posts can reference it as their owner.
func (s *Service) EnsurePrincipal(ctx context.Context, p *identity.Principal) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("ensure principal: missing subject")
	}
	if _, err := s.upsert(ctx, p); err != nil {
		return fmt.Errorf("ensure principal %s: %w", p.ID, err)
	}
	return nil
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}
