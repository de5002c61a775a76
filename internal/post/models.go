package post

import "time"

// Post is the persistent post model shared by every storage variant.
// Content is left empty in list summaries; Filename is only set by the
// file-backed store and AuthorID only by the authenticated stores.
type Post struct {
	ID          string    `json:"id" bson:"id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Content     string    `json:"content,omitempty" bson:"content,omitempty"`
	Tags        []string  `json:"tags" bson:"tags"`
	Author      string    `json:"author" bson:"author"`
	AuthorID    string    `json:"authorId,omitempty" bson:"authorId,omitempty"`
	WordCount   int       `json:"wordCount" bson:"wordCount"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
	Filename    string    `json:"filename,omitempty" bson:"-"`
}

// Summary returns a copy of p without its body.
func (p *Post) Summary() *Post {
	cp := *p
	cp.Content = ""
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}

// CreateInput is the raw caller payload for a new post.
type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author,omitempty"`
}

// UpdateInput carries a partial update; nil fields were not supplied.
type UpdateInput struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Patch is a validated, normalized UpdateInput ready to be applied by a
// repository. Tags is nil when tags were not supplied.
type Patch struct {
	Title       *string
	Description *string
	Content     *string
	Tags        []string
	WordCount   int
	UpdatedAt   time.Time
}

// Apply copies the supplied fields of the patch onto p.
func (pt Patch) Apply(p *Post) {
	if pt.Title != nil {
		p.Title = *pt.Title
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Tags != nil {
		p.Tags = append([]string(nil), pt.Tags...)
	}
	if pt.Content != nil {
		p.Content = *pt.Content
		p.WordCount = pt.WordCount
	}
	if !pt.UpdatedAt.IsZero() {
		p.UpdatedAt = pt.UpdatedAt
	}
}

// ContentChanged reports whether the patch rewrites the body.
func (pt Patch) ContentChanged() bool { return pt.Content != nil }
