// Package migrate copies posts between storage backends, typically from the
// legacy file store into a relational one.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/akm-xdd/igap-club/internal/post/repository"
	"github.com/akm-xdd/igap-club/internal/post/service"
	"github.com/akm-xdd/igap-club/pkg/logger"
)

// Result counts what Copy did with each source post.
type Result struct {
	Copied int
	// Existing posts were already present in the destination.
	Existing int
	// Missing posts had no body in the source and were left behind.
	Missing int
}

// Copy moves every post of src into dst under owner. IDs, timestamps and
// word counts are kept; the author becomes the owner's handle. Running it
// twice is harmless since posts already in dst are skipped.
func Copy(ctx context.Context, src, dst repository.Repository, owner *identity.Principal, principals service.PrincipalStore) (Result, error) {
	var res Result
	if owner == nil || owner.ID == "" {
		return res, fmt.Errorf("migrate: owner id is required")
	}
	if principals != nil {
		if err := principals.EnsurePrincipal(ctx, owner); err != nil {
			return res, fmt.Errorf("migrate: register owner: %w", err)
		}
	}

	summaries, err := src.List(ctx)
	if err != nil {
		return res, fmt.Errorf("migrate: list source: %w", err)
	}
	// oldest first so the destination's insertion order matches creation
	for i := len(summaries) - 1; i >= 0; i-- {
		id := summaries[i].ID
		if _, err := dst.Get(ctx, id); err == nil {
			res.Existing++
			continue
		} else if !errors.Is(err, post.ErrNotFound) {
			return res, fmt.Errorf("migrate: check %s: %w", id, err)
		}

		p, err := src.Get(ctx, id)
		if errors.Is(err, post.ErrContentNotFound) {
			logger.Warnf("migrate: post %s has no body, skipped", id)
			res.Missing++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("migrate: read %s: %w", id, err)
		}

		p.Author = owner.Handle()
		p.AuthorID = owner.ID
		p.Filename = ""
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		if _, err := dst.Create(ctx, p); err != nil {
			return res, fmt.Errorf("migrate: write %s: %w", id, err)
		}
		res.Copied++
	}
	logger.Infof("migrate: copied=%d existing=%d missing=%d", res.Copied, res.Existing, res.Missing)
	return res, nil
}
