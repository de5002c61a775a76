package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/akm-xdd/igap-club/internal/storage"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/akm-xdd/igap-club/pkg/metrics"
	"github.com/spf13/afero"
)

// FileOptions configures a FileRepo.
type FileOptions struct {
	// Fs holds the JSON index. Defaults to the OS filesystem.
	Fs afero.Fs
	// IndexPath is the location of the JSON index, e.g. "data/posts.json".
	IndexPath string
	// Bodies stores one Markdown file per post, named "{id}.md".
	Bodies storage.BodyStore
}

// FileRepo is the legacy flat-file store: a JSON index holding post metadata
// next to one Markdown body per post. Every write re-reads the whole index,
// mutates it in memory and rewrites it. The mutex serializes those cycles
// inside one process; separate processes sharing the files can still lose
// each other's index writes.
type FileRepo struct {
	mu        sync.RWMutex
	fs        afero.Fs
	indexPath string
	bodies    storage.BodyStore
}

func NewFileRepo(opts FileOptions) (*FileRepo, error) {
	if opts.IndexPath == "" {
		return nil, fmt.Errorf("file repo: index path is required")
	}
	if opts.Bodies == nil {
		return nil, fmt.Errorf("file repo: body store is required")
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileRepo{fs: fs, indexPath: opts.IndexPath, bodies: opts.Bodies}, nil
}

func bodyName(id string) string { return id + ".md" }

func (r *FileRepo) readIndex() ([]*post.Post, error) {
	b, err := afero.ReadFile(r.fs, r.indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*post.Post{}, nil
		}
		return nil, post.StorageFault("read index", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []*post.Post{}, nil
	}
	var posts []*post.Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, post.StorageFault("decode index", err)
	}
	for _, p := range posts {
		if p.Filename == "" {
			p.Filename = bodyName(p.ID)
		}
		p.Content = ""
	}
	return posts, nil
}

// writeIndex replaces the whole index through a temp file and a rename.
func (r *FileRepo) writeIndex(posts []*post.Post) error {
	b, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return post.StorageFault("encode index", err)
	}
	if err := r.fs.MkdirAll(path.Dir(r.indexPath), 0o755); err != nil {
		return post.StorageFault("create data dir", err)
	}
	tmp := r.indexPath + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, b, 0o644); err != nil {
		return post.StorageFault("write index", err)
	}
	if err := r.fs.Rename(tmp, r.indexPath); err != nil {
		_ = r.fs.Remove(tmp)
		return post.StorageFault("replace index", err)
	}
	return nil
}

func find(posts []*post.Post, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *FileRepo) List(ctx context.Context) ([]*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	posts, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (r *FileRepo) Get(ctx context.Context, id string) (*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	posts, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	i := find(posts, id)
	if i < 0 {
		return nil, post.ErrNotFound
	}
	p := posts[i]
	content, err := r.bodies.Get(ctx, p.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warnf("post %s: body %s missing", id, p.Filename)
			return nil, post.ErrContentNotFound
		}
		return nil, post.StorageFault("read body", err)
	}
	p.Content = content
	return p, nil
}

// Create writes the body first. A failed body write leaves the index alone;
// a failed index write after a successful body write leaves an orphan body,
// which is logged and reported as a storage error.
func (r *FileRepo) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	p.Filename = bodyName(p.ID)
	if err := r.bodies.Put(ctx, p.Filename, p.Content); err != nil {
		return nil, post.StorageFault("write body", err)
	}

	posts, err := r.readIndex()
	if err == nil {
		posts = append(posts, p.Summary())
		err = r.writeIndex(posts)
	}
	if err != nil {
		metrics.StorageInconsistencies.WithLabelValues("create").Inc()
		logger.Errorf("post %s: body %s written but index update failed, orphan left behind: %v", p.ID, p.Filename, err)
		return nil, err
	}
	return clone(p), nil
}

// Update overwrites the body in place only when the patch carries content.
// The returned post includes Content only in that case.
func (r *FileRepo) Update(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	posts, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	i := find(posts, id)
	if i < 0 {
		return nil, post.ErrNotFound
	}
	p := posts[i]
	if patch.ContentChanged() {
		if err := r.bodies.Put(ctx, p.Filename, *patch.Content); err != nil {
			return nil, post.StorageFault("write body", err)
		}
	}
	patch.Apply(p)
	out := clone(p)
	p.Content = ""
	if err := r.writeIndex(posts); err != nil {
		if patch.ContentChanged() {
			metrics.StorageInconsistencies.WithLabelValues("update").Inc()
			logger.Errorf("post %s: body rewritten but index update failed: %v", id, err)
		}
		return nil, err
	}
	return out, nil
}

// Delete removes the body and then the index entry. A body that cannot be
// removed is logged and counted; the index entry is dropped regardless.
func (r *FileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	posts, err := r.readIndex()
	if err != nil {
		return err
	}
	i := find(posts, id)
	if i < 0 {
		return post.ErrNotFound
	}
	if err := r.bodies.Delete(ctx, posts[i].Filename); err != nil {
		metrics.StorageInconsistencies.WithLabelValues("delete").Inc()
		logger.Warnf("post %s: could not delete body %s: %v", id, posts[i].Filename, err)
	}
	posts = append(posts[:i], posts[i+1:]...)
	return r.writeIndex(posts)
}
