package service

import (
	"context"
	"errors"
	"time"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/akm-xdd/igap-club/internal/post/repository"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/akm-xdd/igap-club/pkg/metrics"
)

// DefaultAuthor is recorded on posts created without a principal or an
// explicit author.
const DefaultAuthor = "akm-xdd"

// Service defines the post operations used by the handler layer.
type Service interface {
	List(ctx context.Context) ([]*post.Post, error)
	Get(ctx context.Context, id string) (*post.Post, error)
	Create(ctx context.Context, in post.CreateInput, p *identity.Principal) (*post.Post, error)
	Update(ctx context.Context, id string, in post.UpdateInput, p *identity.Principal) (*post.Post, error)
	Delete(ctx context.Context, id string, p *identity.Principal) error
}

// Policy selects which mutations need a principal and which are restricted
// to the post's owner.
type Policy struct {
	RequireAuth   bool
	OwnerOnUpdate bool
	OwnerOnDelete bool
}

// OpenPolicy is the legacy file-backed behaviour: anyone may mutate.
func OpenPolicy() Policy { return Policy{} }

// OwnedPolicy requires a principal for every mutation and restricts delete to
// the owner. Update is owner-only when ownerOnUpdate is set.
func OwnedPolicy(ownerOnUpdate bool) Policy {
	return Policy{RequireAuth: true, OwnerOnUpdate: ownerOnUpdate, OwnerOnDelete: true}
}

// PrincipalStore makes sure a principal exists before posts reference it.
type PrincipalStore interface {
	EnsurePrincipal(ctx context.Context, p *identity.Principal) error
}

type Options struct {
	Policy Policy
	// Principals is optional; the relational store needs it for its FK.
	Principals    PrincipalStore
	DefaultAuthor string
	Clock         func() time.Time
}

type postService struct {
	repo          repository.Repository
	policy        Policy
	principals    PrincipalStore
	defaultAuthor string
	now           func() time.Time
}

func New(repo repository.Repository, opts Options) Service {
	s := &postService{
		repo:          repo,
		policy:        opts.Policy,
		principals:    opts.Principals,
		defaultAuthor: opts.DefaultAuthor,
		now:           opts.Clock,
	}
	if s.defaultAuthor == "" {
		s.defaultAuthor = DefaultAuthor
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, post.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, post.ErrNotFound):
		return "not_found"
	case errors.Is(err, post.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, post.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

func observe(op string, err error) {
	metrics.PostOperations.WithLabelValues(op, outcome(err)).Inc()
	if err != nil && errors.Is(err, post.ErrStorage) {
		logger.Errorf("post %s: %v", op, err)
	}
}

func (s *postService) List(ctx context.Context) (out []*post.Post, err error) {
	defer func() { observe("list", err) }()
	return s.repo.List(ctx)
}

func (s *postService) Get(ctx context.Context, id string) (out *post.Post, err error) {
	defer func() { observe("get", err) }()
	return s.repo.Get(ctx, id)
}

func (s *postService) Create(ctx context.Context, in post.CreateInput, p *identity.Principal) (out *post.Post, err error) {
	defer func() { observe("create", err) }()
	if s.policy.RequireAuth && p == nil {
		return nil, post.ErrUnauthorized
	}
	valid, words, err := post.ValidateCreate(in)
	if err != nil {
		return nil, err
	}

	np := &post.Post{
		Title:       valid.Title,
		Description: valid.Description,
		Content:     valid.Content,
		Tags:        valid.Tags,
		WordCount:   words,
	}
	// ungated stores never record ownership, even for a caller holding a token
	switch {
	case s.policy.RequireAuth:
		np.Author = p.Handle()
		np.AuthorID = p.ID
	case valid.Author != "":
		np.Author = valid.Author
	default:
		np.Author = s.defaultAuthor
	}
	if s.policy.RequireAuth && s.principals != nil {
		if err := s.principals.EnsurePrincipal(ctx, p); err != nil {
			return nil, post.StorageFault("register principal", err)
		}
	}
	now := s.now().UTC()
	np.CreatedAt = now
	np.UpdatedAt = now

	out, err = s.repo.Create(ctx, np)
	if err != nil {
		return nil, err
	}
	logger.Debugf("post %s created by %s (%d words)", out.ID, out.Author, out.WordCount)
	return out, nil
}

// checkOwner loads the post and compares its owner with p.
func (s *postService) checkOwner(ctx context.Context, id string, p *identity.Principal) error {
	if p == nil {
		return post.ErrUnauthorized
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != p.ID {
		return post.ErrForbidden
	}
	return nil
}

func (s *postService) Update(ctx context.Context, id string, in post.UpdateInput, p *identity.Principal) (out *post.Post, err error) {
	defer func() { observe("update", err) }()
	if s.policy.RequireAuth && p == nil {
		return nil, post.ErrUnauthorized
	}
	patch, err := post.ValidateUpdate(in)
	if err != nil {
		return nil, err
	}
	if s.policy.OwnerOnUpdate {
		if err := s.checkOwner(ctx, id, p); err != nil {
			return nil, err
		}
	}
	patch.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, id, patch)
}

func (s *postService) Delete(ctx context.Context, id string, p *identity.Principal) (err error) {
	defer func() { observe("delete", err) }()
	if s.policy.RequireAuth && p == nil {
		return post.ErrUnauthorized
	}
	if s.policy.OwnerOnDelete {
		if err := s.checkOwner(ctx, id, p); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Debugf("post %s deleted", id)
	return nil
}
