package daemon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelDisabled, os.Stderr)
}

func TestAcquireThenReleaseLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestSecondAcquireFailsWhileHeld(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, testLogger())
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireLock(dir, testLogger())
	require.Error(t, err)
}

func TestAcquireSucceedsAfterRelease(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	lock2, err := AcquireLock(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}

func TestSocketPathAndLockPathDiffer(t *testing.T) {
	dir := t.TempDir()
	lockPath, err := LockPath(dir)
	require.NoError(t, err)
	socketPath, err := SocketPath(dir)
	require.NoError(t, err)
	require.NotEqual(t, lockPath, socketPath)
}
