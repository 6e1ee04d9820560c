package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpm-project/gpm/internal/process"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	specs := []process.Spec{
		{Name: "api", Command: "node server.js", Instances: 2, AutoRestart: true},
		{Name: "worker", Command: "python worker.py", MaxMemoryMB: 512},
	}
	require.NoError(t, s.SaveSpecs(ctx, specs))

	got, err := s.LoadSpecs(ctx)
	require.NoError(t, err)
	require.Equal(t, specs, got)
}

func TestSQLiteSaveReplacesSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSpecs(ctx, []process.Spec{
		{Name: "a", Command: "sleep 1"},
		{Name: "b", Command: "sleep 1"},
	}))
	require.NoError(t, s.SaveSpecs(ctx, []process.Spec{
		{Name: "c", Command: "sleep 1"},
	}))
	got, err := s.LoadSpecs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "c", got[0].Name)
}

func TestSQLiteLoadEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadSpecs(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSQLiteCorruptSpecAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gpm_specs (name, spec, saved_at) VALUES ('bad', '{not json', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = s.LoadSpecs(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLiteMissingFieldsAreCorrupt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gpm_specs (name, spec, saved_at) VALUES ('empty', '{}', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = s.LoadSpecs(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLiteFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpm.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.SaveSpecs(ctx, []process.Spec{{Name: "x", Command: "sleep 1"}}))
	require.NoError(t, s.Close())

	// Reopen and confirm the data survived.
	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()
	got, err := s2.LoadSpecs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFactory(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	_ = s.Close()

	_, err = Open(Config{Type: "bogus"})
	require.Error(t, err)

	require.Contains(t, SupportedTypes(), "sqlite")
	require.Contains(t, SupportedTypes(), "postgres")
}
