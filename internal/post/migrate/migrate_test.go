package migrate

import (
	"context"
	"testing"
	"time"

	"github.com/akm-xdd/igap-club/internal/database"
	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/akm-xdd/igap-club/internal/post/repository"
	"github.com/akm-xdd/igap-club/internal/storage"
	"github.com/akm-xdd/igap-club/internal/users"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func seedFileRepo(t *testing.T) (*repository.FileRepo, afero.Fs, []*post.Post) {
	t.Helper()
	fs := afero.NewMemMapFs()
	src, err := repository.NewFileRepo(repository.FileOptions{
		Fs:        fs,
		IndexPath: "data/posts.json",
		Bodies:    storage.NewFSBodyStore(fs, "data/posts"),
	})
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var seeded []*post.Post
	for i, title := range []string{"one", "two", "three"} {
		created := base.Add(time.Duration(i) * time.Hour)
		p, err := src.Create(context.Background(), &post.Post{
			Title:       title,
			Description: "desc " + title,
			Content:     "body of " + title,
			Tags:        []string{"go"},
			Author:      "akm-xdd",
			WordCount:   3,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
		require.NoError(t, err)
		seeded = append(seeded, p)
	}
	return src, fs, seeded
}

func newSQLTarget(t *testing.T) (*repository.SQLRepo, *users.Service) {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQL(ctx, database.SQLite, ":memory:", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))
	return repository.NewSQLRepo(db, database.SQLite), users.NewService(users.NewSQLUserRepository(db, database.SQLite))
}

func TestCopyFileToSQL(t *testing.T) {
	ctx := context.Background()
	src, fs, seeded := seedFileRepo(t)
	dst, usersSvc := newSQLTarget(t)
	owner := &identity.Principal{ID: "gh-7", Username: "akm-xdd"}

	// one body lost on disk
	require.NoError(t, fs.Remove("data/posts/"+seeded[1].ID+".md"))

	res, err := Copy(ctx, src, dst, owner, usersSvc)
	require.NoError(t, err)
	require.Equal(t, Result{Copied: 2, Missing: 1}, res)

	u, err := usersSvc.GetBySub(ctx, "gh-7")
	require.NoError(t, err)
	require.NotNil(t, u)

	got, err := dst.Get(ctx, seeded[0].ID)
	require.NoError(t, err)
	require.Equal(t, "body of one", got.Content)
	require.Equal(t, "gh-7", got.AuthorID)
	require.Equal(t, "akm-xdd", got.Author)
	require.True(t, got.CreatedAt.Equal(seeded[0].CreatedAt))

	_, err = dst.Get(ctx, seeded[1].ID)
	require.ErrorIs(t, err, post.ErrNotFound)

	list, err := dst.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "three", list[0].Title)

	again, err := Copy(ctx, src, dst, owner, usersSvc)
	require.NoError(t, err)
	require.Equal(t, Result{Existing: 2, Missing: 1}, again)
}

func TestCopyRequiresOwner(t *testing.T) {
	src, _, _ := seedFileRepo(t)
	_, err := Copy(context.Background(), src, repository.NewMemoryRepo(), &identity.Principal{}, nil)
	require.Error(t, err)
}

func TestCopyWithoutUserStoreFailsOnForeignKey(t *testing.T) {
	ctx := context.Background()
	src, _, _ := seedFileRepo(t)
	dst, _ := newSQLTarget(t)

	res, err := Copy(ctx, src, dst, &identity.Principal{ID: "nobody"}, nil)
	require.ErrorIs(t, err, post.ErrStorage)
	require.Zero(t, res.Copied)
}
