package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDB_DefaultsAndSave(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	r, err := db.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Record{Theme: ThemeLight}, r)

	want := Record{SessionCode: "K3F9Q", Theme: ThemeDark, VisitCounted: true}
	require.NoError(t, db.Save(ctx, want))
	r, err = db.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, r)

	require.NoError(t, db.Save(ctx, Record{Theme: "neon"}))
	r, err = db.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, r.Theme)
	require.Empty(t, r.SessionCode)
}

func TestDB_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Save(ctx, Record{SessionCode: "ABCDE", Theme: ThemeDark}))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	r, err := db.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "ABCDE", r.SessionCode)
	require.Equal(t, ThemeDark, r.Theme)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := &Memory{}
	r, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, ThemeLight, r.Theme)
	require.NoError(t, m.Save(context.Background(), Record{SessionCode: "X"}))
	require.Equal(t, "X", m.Rec.SessionCode)
}
