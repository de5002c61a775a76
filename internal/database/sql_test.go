package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := `UPDATE posts SET title = ?, tags = ? WHERE id = ?`
	require.Equal(t, q, SQLite.Rebind(q))
	require.Equal(t, `UPDATE posts SET title = $1, tags = $2 WHERE id = $3`, Postgres.Rebind(q))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	require.Equal(t, Postgres, d)
	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	require.Equal(t, SQLite, d)
	_, err = ParseDialect("oracle")
	require.Error(t, err)
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	a := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	b := a.Add(time.Nanosecond)
	c := a.Add(10 * time.Hour)
	require.Less(t, FormatTime(a), FormatTime(b))
	require.Less(t, FormatTime(b), FormatTime(c))

	back, err := ParseTime(FormatTime(b))
	require.NoError(t, err)
	require.True(t, back.Equal(b))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(ctx, SQLite, ":memory:", 5*time.Second)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations are idempotent")

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	require.Equal(t, 1, fk)
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	require.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	require.Equal(t, "file:x.db?cache=shared&_pragma=foreign_keys(1)", sqliteDSN("file:x.db?cache=shared"))
	require.Equal(t, "x.db?_pragma=foreign_keys(0)", sqliteDSN("x.db?_pragma=foreign_keys(0)"))
}

func TestForeignKeysSurviveReconnect(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(ctx, SQLite, filepath.Join(t.TempDir(), "fk.db"), 5*time.Second)
	require.NoError(t, err)
	defer db.Close()
	// no idle connections: every query runs on a freshly opened one
	db.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var fk int
		require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
		require.Equal(t, 1, fk)
	}
}
