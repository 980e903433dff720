package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "chatHistory")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "chatHistory", []byte(`[1]`)))
	require.NoError(t, s.Save(ctx, "chatHistory", []byte(`[1,2]`)))
	got, err := s.Load(ctx, "chatHistory")
	require.NoError(t, err)
	require.Equal(t, `[1,2]`, string(got))

	require.NoError(t, s.Delete(ctx, "chatHistory"))
	_, err = s.Load(ctx, "chatHistory")
	require.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	require.NoError(t, s.Delete(ctx, "chatHistory"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Save(context.Background(), "k", []byte("abc")))
	got, err := m.Load(context.Background(), "k")
	require.NoError(t, err)
	got[0] = 'z'
	again, err := m.Load(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(again))
}

func TestFile(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFile_KeyIsEscaped(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "chatHistory#a/b", []byte("{}")))

	_, err = os.Stat(filepath.Join(dir, "chatHistory%23a%2Fb.json"))
	require.NoError(t, err)
}

func TestNewFile_EmptyDir(t *testing.T) {
	_, err := NewFile("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}

func TestMemory_Lease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Acquire(ctx, "chatHistory#a", "owner-1", time.Minute))
	require.ErrorIs(t, m.Acquire(ctx, "chatHistory#a", "owner-2", time.Minute), ErrLocked)
	require.ErrorIs(t, m.Acquire(ctx, "chatHistory#a", "owner-1", time.Minute), ErrLocked)
	require.NoError(t, m.Acquire(ctx, "chatHistory#b", "owner-2", time.Minute))

	// only the holder releases
	require.NoError(t, m.Release(ctx, "chatHistory#a", "owner-2"))
	require.ErrorIs(t, m.Acquire(ctx, "chatHistory#a", "owner-2", time.Minute), ErrLocked)

	require.NoError(t, m.Release(ctx, "chatHistory#a", "owner-1"))
	require.NoError(t, m.Acquire(ctx, "chatHistory#a", "owner-2", time.Minute))
}

func TestMemory_LeaseExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Acquire(ctx, "k", "owner-1", -time.Second))
	require.NoError(t, m.Acquire(ctx, "k", "owner-2", time.Minute))
}
