package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "meta", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	older := Record{
		ID: uuid.NewString(), Filename: "a.pdf", User: "alice",
		UploadTime: time.Now().Add(-time.Hour), SHA256: "aa", FileSize: 10, ContentType: "application/pdf",
	}
	newer := Record{
		ID: uuid.NewString(), Filename: "b.txt", User: "alice",
		UploadTime: time.Now(), SHA256: "bb", FileSize: 20, ContentType: "text/plain",
	}
	other := Record{
		ID: uuid.NewString(), Filename: "c.txt", User: "bob",
		UploadTime: time.Now(), SHA256: "cc", FileSize: 30, ContentType: "text/plain",
	}
	for _, rec := range []Record{older, newer, other} {
		require.NoError(t, s.Save(ctx, rec))
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "b.txt", alice[0].Filename, "newest first")
	assert.Equal(t, "a.pdf", alice[1].Filename)
}

func TestSaveReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := Record{ID: "fixed", Filename: "v1.txt", User: "alice", UploadTime: time.Now(), SHA256: "aa", FileSize: 1, ContentType: "text/plain"}
	require.NoError(t, s.Save(ctx, rec))
	rec.Filename = "v2.txt"
	require.NoError(t, s.Save(ctx, rec))

	all, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2.txt", all[0].Filename)
}

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := FileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
