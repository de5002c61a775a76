package repository

import (
	"context"
	"sort"

	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/google/uuid"
)

// Repository is the storage contract shared by every post backend.
type Repository interface {
	// List returns every post newest-first by CreatedAt, without bodies.
	List(ctx context.Context) ([]*post.Post, error)
	// Get returns the full post, post.ErrNotFound, or (file-backed only)
	// post.ErrContentNotFound when the body artifact is gone.
	Get(ctx context.Context, id string) (*post.Post, error)
	// Create stores p, assigning an ID when p.ID is empty.
	Create(ctx context.Context, p *post.Post) (*post.Post, error)
	Update(ctx context.Context, id string, patch post.Patch) (*post.Post, error)
	Delete(ctx context.Context, id string) error
}

func newID() string { return uuid.NewString() }

func sortNewestFirst(posts []*post.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
