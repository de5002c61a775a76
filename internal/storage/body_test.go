package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFSBodyStore_PutGetDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFSBodyStore(fs, "data/posts")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc.md", "# hi\n\nbody"))
	raw, err := afero.ReadFile(fs, "data/posts/abc.md")
	require.NoError(t, err)
	require.Equal(t, "# hi\n\nbody", string(raw), "body is stored verbatim")

	got, err := s.Get(ctx, "abc.md")
	require.NoError(t, err)
	require.Equal(t, "# hi\n\nbody", got)

	require.NoError(t, s.Put(ctx, "abc.md", "replaced"))
	got, err = s.Get(ctx, "abc.md")
	require.NoError(t, err)
	require.Equal(t, "replaced", got)

	require.NoError(t, s.Delete(ctx, "abc.md"))
	_, err = s.Get(ctx, "abc.md")
	require.ErrorIs(t, err, ErrObjectNotFound)
	require.ErrorIs(t, s.Delete(ctx, "abc.md"), ErrObjectNotFound)
}

func TestFSBodyStore_NameCannotEscapeDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFSBodyStore(fs, "posts")
	require.NoError(t, s.Put(context.Background(), "../outside.md", "x"))

	ok, err := afero.Exists(fs, "posts/outside.md")
	require.NoError(t, err)
	require.True(t, ok)
	ok, _ = afero.Exists(fs, "outside.md")
	require.False(t, ok)
}

func TestFSBodyStore_ReadOnlyFails(t *testing.T) {
	s := NewFSBodyStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "posts")
	require.Error(t, s.Put(context.Background(), "a.md", "x"))
}
