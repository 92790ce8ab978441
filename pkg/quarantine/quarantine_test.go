package quarantine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

func testKey() [32]byte {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelDisabled, os.Stderr)
}

func openStore(t *testing.T) *Store {
	root := t.TempDir()
	store, err := Open(root, testKey(), testLogger())
	require.NoError(t, err)
	return store
}

func TestQuarantineFileThenRestore(t *testing.T) {
	store := openStore(t)
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "eicar.txt")
	require.NoError(t, os.WriteFile(src, []byte("malicious content"), 0600))

	entry, err := store.QuarantineFile(context.Background(), src, "Test.Signature", 3, time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)

	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err))

	// Restore refuses destinations under os.TempDir(), and srcDir lives
	// there; point TMPDIR at a sibling directory so srcDir is outside it.
	t.Setenv("TMPDIR", t.TempDir())
	dest := filepath.Join(srcDir, "restored.txt")
	require.NoError(t, store.Restore(entry.ID, dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "malicious content", string(content))
}

func TestSealedPayloadIsNotPlaintext(t *testing.T) {
	store := openStore(t)
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "evil.exe")
	const plaintext = "this text must not appear on disk unencrypted"
	require.NoError(t, os.WriteFile(src, []byte(plaintext), 0600))

	entry, err := store.QuarantineFile(context.Background(), src, "Test.Signature", 3, time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	sealedPath := filepath.Join(store.root, itemsDir, entry.ID+".sealed")
	sealed, err := os.ReadFile(sealedPath)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), plaintext)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := openStore(t)
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "evil.exe")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0600))

	entry, err := store.QuarantineFile(context.Background(), src, "Test.Signature", 3, time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, store.Delete(entry.ID))
	require.NoError(t, store.Delete(entry.ID))

	_, ok := store.Get(entry.ID)
	require.False(t, ok)
}

func TestRestorePersistsAcrossReopen(t *testing.T) {
	root := t.TempDir()
	key := testKey()
	store, err := Open(root, key, testLogger())
	require.NoError(t, err)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "evil.exe")
	require.NoError(t, os.WriteFile(src, []byte("persisted"), 0600))

	entry, err := store.QuarantineFile(context.Background(), src, "Test.Signature", 3, time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	reopened, err := Open(root, key, testLogger())
	require.NoError(t, err)

	got, ok := reopened.Get(entry.ID)
	require.True(t, ok)
	require.Equal(t, entry.SHA256, got.SHA256)

	// Restore refuses destinations under os.TempDir(), and srcDir lives
	// there; point TMPDIR at a sibling directory so srcDir is outside it.
	t.Setenv("TMPDIR", t.TempDir())
	dest := filepath.Join(srcDir, "restored.txt")
	require.NoError(t, reopened.Restore(entry.ID, dest))
}

func TestRestoreRejectsUnsafeDestination(t *testing.T) {
	store := openStore(t)
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "evil.exe")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0600))

	entry, err := store.QuarantineFile(context.Background(), src, "Test.Signature", 3, time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	err = store.Restore(entry.ID, "/etc")
	require.Error(t, err)
}

func TestAtomicMoveFailsImmediatelyWhenSourceMissing(t *testing.T) {
	srcDir := t.TempDir()
	pendingRoot := t.TempDir()
	missing := filepath.Join(srcDir, "gone.exe")

	start := time.Now()
	_, err := TryAtomicMove(missing, pendingRoot, 5, 50*time.Millisecond, time.Second)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Less(t, elapsed, 25*time.Millisecond, "a missing source must fail before the retry/backoff schedule runs")
}

func TestAtomicMoveExhaustsRetriesAndFails(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "locked.exe")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0600))

	// pendingRoot never exists, so every rename attempt fails with the
	// same persistent error, exhausting the retry budget.
	pendingRoot := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := TryAtomicMove(src, pendingRoot, 2, time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)

	_, statErr := os.Stat(src)
	require.NoError(t, statErr, "source must remain in place after every attempt fails")
}

func TestAtomicMoveSucceedsAfterTransientFailureClears(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "locked.exe")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0600))

	// pendingRoot doesn't exist yet, so the first attempts fail the same
	// way a locked file would; it's created a few milliseconds in,
	// clearing the failure before the retry budget is exhausted.
	pendingRoot := filepath.Join(t.TempDir(), "appears-later")
	time.AfterFunc(20*time.Millisecond, func() {
		require.NoError(t, os.MkdirAll(pendingRoot, 0700))
	})

	moved, err := TryAtomicMove(src, pendingRoot, 10, 10*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, moved)

	_, statErr := os.Stat(src)
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(moved)
	require.NoError(t, statErr)
}

func TestIsRestoreTargetSafe(t *testing.T) {
	require.False(t, IsRestoreTargetSafe("/"))
	require.False(t, IsRestoreTargetSafe("/etc"))
	require.True(t, IsRestoreTargetSafe("/home/user/restored.txt"))
}
