package enumerate

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, roots []string, mode Mode) []string {
	t.Helper()
	done := make(chan struct{})
	defer close(done)

	var paths []string
	for entry := range Roots(done, roots, mode) {
		paths = append(paths, entry.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestRootsRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0600))

	paths := collect(t, []string{root}, ModeDirectoryRecursive)
	require.Len(t, paths, 2)
}

func TestRootsDirectoryNonRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0600))

	paths := collect(t, []string{root}, ModeDirectory)
	require.Len(t, paths, 1)
}

func TestRootsSingleFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0600))

	paths := collect(t, []string{file}, ModeSingleFile)
	require.Equal(t, []string{file}, paths)
}

func TestRootsSwallowsMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	paths := collect(t, []string{missing}, ModeDirectoryRecursive)
	require.Empty(t, paths)
}

func TestEstimateCountNeverErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	require.Equal(t, 0, EstimateCount([]string{missing}, ModeDirectoryRecursive))
}
