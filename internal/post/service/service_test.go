package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/akm-xdd/igap-club/internal/post/repository"
	"github.com/akm-xdd/igap-club/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	alice = &identity.Principal{ID: "u-alice", Username: "alice"}
	bob   = &identity.Principal{ID: "u-bob", Name: "Bob B"}
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingStore struct {
	seen []string
	err  error
}

func (r *recordingStore) EnsurePrincipal(ctx context.Context, p *identity.Principal) error {
	r.seen = append(r.seen, p.ID)
	return r.err
}

func validInput() post.CreateInput {
	return post.CreateInput{
		Title:       "  Hello  ",
		Description: "A short post",
		Content:     "  word `code` here  ",
		Tags:        []string{" Go ", "WEB"},
	}
}

func newOwned(t *testing.T, ownerOnUpdate bool) (Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	svc := New(repository.NewMemoryRepo(), Options{Policy: OwnedPolicy(ownerOnUpdate), Clock: clock.Now})
	return svc, clock
}

func TestCreate_NormalizesAndStamps(t *testing.T) {
	ctx := context.Background()
	svc, clock := newOwned(t, false)
	p, err := svc.Create(ctx, validInput(), alice)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "Hello", p.Title)
	require.Equal(t, "word `code` here", p.Content)
	require.Equal(t, 3, p.WordCount)
	require.Equal(t, []string{"go", "web"}, p.Tags)
	require.Equal(t, "alice", p.Author)
	require.Equal(t, "u-alice", p.AuthorID)
	require.True(t, p.CreatedAt.Equal(clock.t))
	require.True(t, p.UpdatedAt.Equal(p.CreatedAt))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Content, got.Content)
}

func TestCreate_RequiresPrincipal(t *testing.T) {
	svc, _ := newOwned(t, false)
	_, err := svc.Create(context.Background(), validInput(), nil)
	require.ErrorIs(t, err, post.ErrUnauthorized)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreate_AuthCheckedBeforeValidation(t *testing.T) {
	svc, _ := newOwned(t, false)
	_, err := svc.Create(context.Background(), post.CreateInput{}, nil)
	require.ErrorIs(t, err, post.ErrUnauthorized)
}

func TestCreate_ValidationFailures(t *testing.T) {
	svc, _ := newOwned(t, false)
	cases := map[string]func(in *post.CreateInput){
		"title":       func(in *post.CreateInput) { in.Title = "   " },
		"description": func(in *post.CreateInput) { in.Description = strings.Repeat("d", 201) },
		"content":     func(in *post.CreateInput) { in.Content = strings.Repeat("w ", 301) },
		"tags":        func(in *post.CreateInput) { in.Tags = nil },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), in, alice)
			require.ErrorIs(t, err, post.ErrInvalidInput)
			var ve *post.ValidationError
			require.True(t, errors.As(err, &ve))
			require.Equal(t, field, ve.Field)
		})
	}
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list, "nothing persisted")
}

func TestCreate_ExactlyMaxWordsAccepted(t *testing.T) {
	svc, _ := newOwned(t, false)
	in := validInput()
	in.Content = strings.TrimSpace(strings.Repeat("w ", post.MaxWords))
	p, err := svc.Create(context.Background(), in, alice)
	require.NoError(t, err)
	require.Equal(t, post.MaxWords, p.WordCount)
}

func TestCreate_OpenPolicyAuthors(t *testing.T) {
	ctx := context.Background()
	svc := New(repository.NewMemoryRepo(), Options{Policy: OpenPolicy()})

	p, err := svc.Create(ctx, validInput(), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultAuthor, p.Author)
	require.Empty(t, p.AuthorID)

	in := validInput()
	in.Author = "guest"
	p, err = svc.Create(ctx, in, nil)
	require.NoError(t, err)
	require.Equal(t, "guest", p.Author)

	// a token holder gets no ownership on an ungated store
	in.Author = "someone"
	p, err = svc.Create(ctx, in, bob)
	require.NoError(t, err)
	require.Equal(t, "someone", p.Author)
	require.Empty(t, p.AuthorID)

	p, err = svc.Create(ctx, validInput(), bob)
	require.NoError(t, err)
	require.Equal(t, DefaultAuthor, p.Author)
	require.Empty(t, p.AuthorID)
}

func TestCreate_OpenPolicySkipsPrincipalStore(t *testing.T) {
	store := &recordingStore{}
	svc := New(repository.NewMemoryRepo(), Options{Policy: OpenPolicy(), Principals: store})
	_, err := svc.Create(context.Background(), validInput(), alice)
	require.NoError(t, err)
	require.Empty(t, store.seen)
}

func TestCreate_RegistersPrincipal(t *testing.T) {
	store := &recordingStore{}
	svc := New(repository.NewMemoryRepo(), Options{Policy: OwnedPolicy(false), Principals: store})
	_, err := svc.Create(context.Background(), validInput(), alice)
	require.NoError(t, err)
	require.Equal(t, []string{"u-alice"}, store.seen)

	store.err = errors.New("db down")
	_, err = svc.Create(context.Background(), validInput(), alice)
	require.ErrorIs(t, err, post.ErrStorage)
}

func TestUpdate_PartialAndTimestamps(t *testing.T) {
	ctx := context.Background()
	svc, clock := newOwned(t, false)
	created, err := svc.Create(ctx, validInput(), alice)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	title := "  New title "
	updated, err := svc.Update(ctx, created.ID, post.UpdateInput{Title: &title}, alice)
	require.NoError(t, err)
	require.Equal(t, "New title", updated.Title)
	require.Equal(t, created.WordCount, updated.WordCount, "word count untouched without content")
	require.True(t, updated.UpdatedAt.Equal(clock.t))
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	content := "one two three four"
	updated, err = svc.Update(ctx, created.ID, post.UpdateInput{Content: &content}, alice)
	require.NoError(t, err)
	require.Equal(t, 4, updated.WordCount)

	empty := []string{}
	_, err = svc.Update(ctx, created.ID, post.UpdateInput{Tags: &empty}, alice)
	require.ErrorIs(t, err, post.ErrInvalidInput)

	_, err = svc.Update(ctx, "missing", post.UpdateInput{Title: &title}, alice)
	require.ErrorIs(t, err, post.ErrNotFound)
}

func TestUpdate_ValidationBeforeLookup(t *testing.T) {
	svc, _ := newOwned(t, true)
	blank := " "
	_, err := svc.Update(context.Background(), "missing", post.UpdateInput{Title: &blank}, alice)
	require.ErrorIs(t, err, post.ErrInvalidInput)
}

func TestUpdate_Ownership(t *testing.T) {
	ctx := context.Background()
	title := "Changed"

	t.Run("non-owner allowed when owner check disabled", func(t *testing.T) {
		svc, _ := newOwned(t, false)
		created, err := svc.Create(ctx, validInput(), alice)
		require.NoError(t, err)
		updated, err := svc.Update(ctx, created.ID, post.UpdateInput{Title: &title}, bob)
		require.NoError(t, err)
		require.Equal(t, "Changed", updated.Title)
		require.Equal(t, "alice", updated.Author, "author is never re-synced")
	})

	t.Run("non-owner forbidden when owner check enabled", func(t *testing.T) {
		svc, _ := newOwned(t, true)
		created, err := svc.Create(ctx, validInput(), alice)
		require.NoError(t, err)
		_, err = svc.Update(ctx, created.ID, post.UpdateInput{Title: &title}, bob)
		require.ErrorIs(t, err, post.ErrForbidden)
		got, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "Hello", got.Title)
	})

	t.Run("anonymous unauthorized", func(t *testing.T) {
		svc, _ := newOwned(t, false)
		created, err := svc.Create(ctx, validInput(), alice)
		require.NoError(t, err)
		_, err = svc.Update(ctx, created.ID, post.UpdateInput{Title: &title}, nil)
		require.ErrorIs(t, err, post.ErrUnauthorized)
	})
}

func TestDelete_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOwned(t, false)
	created, err := svc.Create(ctx, validInput(), alice)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, created.ID, nil), post.ErrUnauthorized)
	require.ErrorIs(t, svc.Delete(ctx, created.ID, bob), post.ErrForbidden)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err, "post survives a forbidden delete")

	require.NoError(t, svc.Delete(ctx, created.ID, alice))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, post.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID, alice), post.ErrNotFound)
}

func TestDelete_OpenPolicy(t *testing.T) {
	ctx := context.Background()
	svc := New(repository.NewMemoryRepo(), Options{Policy: OpenPolicy()})
	created, err := svc.Create(ctx, validInput(), nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID, nil))
	require.ErrorIs(t, svc.Delete(ctx, created.ID, nil), post.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, clock := newOwned(t, false)
	first, err := svc.Create(ctx, validInput(), alice)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := svc.Create(ctx, validInput(), alice)
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
	require.Empty(t, list[0].Content)
}

func TestOperationMetrics(t *testing.T) {
	svc, _ := newOwned(t, false)
	okBefore := testutil.ToFloat64(metrics.PostOperations.WithLabelValues("create", "ok"))
	unauthBefore := testutil.ToFloat64(metrics.PostOperations.WithLabelValues("create", "unauthorized"))

	_, err := svc.Create(context.Background(), validInput(), alice)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validInput(), nil)
	require.Error(t, err)

	require.Equal(t, okBefore+1, testutil.ToFloat64(metrics.PostOperations.WithLabelValues("create", "ok")))
	require.Equal(t, unauthBefore+1, testutil.ToFloat64(metrics.PostOperations.WithLabelValues("create", "unauthorized")))
}

func TestListNewestFirstThreePostsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	svc, clock := newOwned(t, false)
	base := clock.t
	ids := map[string]string{}
	for _, step := range []struct {
		name   string
		offset time.Duration
	}{{"middle", 0}, {"newest", time.Hour}, {"oldest", -time.Hour}} {
		clock.t = base.Add(step.offset)
		p, err := svc.Create(ctx, validInput(), alice)
		require.NoError(t, err)
		ids[step.name] = p.ID
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{ids["newest"], ids["middle"], ids["oldest"]}, []string{list[0].ID, list[1].ID, list[2].ID})
}
