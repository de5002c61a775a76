package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akm-xdd/igap-club/internal/database"
	"github.com/akm-xdd/igap-club/internal/post"
)

// SQLRepo stores metadata and body in one row of the posts table. Each
// operation is a single statement, so row atomicity is left to the engine.
type SQLRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQLRepo(db *sql.DB, d database.Dialect) *SQLRepo {
	return &SQLRepo{db: db, dialect: d}
}

const summaryColumns = `id, title, description, tags, author, author_id, word_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner, withContent bool) (*post.Post, error) {
	var (
		p                post.Post
		tags             string
		created, updated string
	)
	dest := []any{&p.ID, &p.Title, &p.Description, &tags, &p.Author, &p.AuthorID, &p.WordCount, &created, &updated}
	if withContent {
		dest = append(dest, &p.Content)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	var err error
	if p.CreatedAt, err = database.ParseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = database.ParseTime(updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func (r *SQLRepo) List(ctx context.Context) ([]*post.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, post.StorageFault("query posts", err)
	}
	defer rows.Close()

	out := []*post.Post{}
	for rows.Next() {
		p, err := scanPost(rows, false)
		if err != nil {
			return nil, post.StorageFault("scan post", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, post.StorageFault("iterate posts", err)
	}
	return out, nil
}

func (r *SQLRepo) Get(ctx context.Context, id string) (*post.Post, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+summaryColumns+`, content FROM posts WHERE id = ?`), id)
	p, err := scanPost(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, post.StorageFault("get post", err)
	}
	return p, nil
}

func (r *SQLRepo) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	if p.AuthorID == "" {
		return nil, post.StorageFault("insert post", errors.New("author_id is required"))
	}
	if p.ID == "" {
		p.ID = newID()
	}
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return nil, post.StorageFault("encode tags", err)
	}
	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO posts (id, title, description, content, tags, author, author_id, word_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Title, p.Description, p.Content, tags, p.Author, p.AuthorID, p.WordCount,
		database.FormatTime(p.CreatedAt), database.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return nil, post.StorageFault("insert post", err)
	}
	p.Filename = ""
	return clone(p), nil
}

func (r *SQLRepo) Update(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Tags != nil {
		tags, err := encodeTags(patch.Tags)
		if err != nil {
			return nil, post.StorageFault("encode tags", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if patch.ContentChanged() {
		sets = append(sets, "content = ?", "word_count = ?")
		args = append(args, *patch.Content, patch.WordCount)
	}
	if !patch.UpdatedAt.IsZero() {
		sets = append(sets, "updated_at = ?")
		args = append(args, database.FormatTime(patch.UpdatedAt))
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	args = append(args, id)
	q := r.dialect.Rebind(`UPDATE posts SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, post.StorageFault("update post", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, post.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return post.StorageFault("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return post.StorageFault("delete post", err)
	}
	if n == 0 {
		return post.ErrNotFound
	}
	return nil
}
