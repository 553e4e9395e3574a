package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()

	want := filepath.Join(tmp, "data")
	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()

	first, err := EnsureDir(filepath.Join(tmp, "data"))
	require.NoError(t, err)

	second, err := EnsureDir(filepath.Join(tmp, "data"))
	require.NoError(t, err)

	require.Equal(t, first, second)
	fi, err := os.Stat(second)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "data")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestRemoveDatabase(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "store.db")
	for _, p := range []string{path, path + "-wal"} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}

	require.NoError(t, RemoveDatabase(path))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + "-wal")
	require.True(t, os.IsNotExist(err))

	// Removing again is a no-op.
	require.NoError(t, RemoveDatabase(path))
}
