package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLocal_RequiresRoot(t *testing.T) {
	_, err := NewLocal("  ", "")
	require.Error(t, err)
}

func TestLocal_PutRemove(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	obj, err := l.Put(ctx, "sessions/K3F9Q/abc-my file.txt", strings.NewReader("payload"), 7, "text/plain")
	require.NoError(t, err)
	require.Equal(t, "sessions/K3F9Q/abc-my file.txt", obj.Path)
	require.Equal(t, "http://localhost:8080/files/sessions/K3F9Q/abc-my%20file.txt", obj.URL)

	b, err := os.ReadFile(filepath.Join(l.Root(), "sessions", "K3F9Q", "abc-my file.txt"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(b))

	require.NoError(t, l.Remove(ctx, obj.Path))
	_, err = os.Stat(filepath.Join(l.Root(), "sessions", "K3F9Q", "abc-my file.txt"))
	require.True(t, os.IsNotExist(err))

	// idempotent release
	require.NoError(t, l.Remove(ctx, obj.Path))
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	for _, k := range []string{"", "../etc/passwd", "a/../../b", "a//b"} {
		_, err := l.Put(ctx, k, strings.NewReader("x"), 1, "")
		require.Error(t, err, "key %q", k)
		require.Error(t, l.Remove(ctx, k), "key %q", k)
	}
}

func TestLocal_CanceledContext(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Put(ctx, "a", strings.NewReader("x"), 1, "")
	require.ErrorIs(t, err, context.Canceled)
}
