//go:build !windows

package daemon

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/must"
)

// Lock represents the process-wide daemon lock, held by exactly one
// running agent instance at a time. Grounded on mutagen's
// pkg/filesystem/locking.Locker (lock via an advisory file lock held for
// the lifetime of the process), using golang.org/x/sys/unix.Flock rather
// than the teacher's syscall.FcntlFlock so the lock is released
// automatically if the process dies without a clean shutdown.
type Lock struct {
	file   *os.File
	logger *logging.Logger
}

// AcquireLock attempts to acquire the daemon's single-instance lock. It
// fails immediately (non-blocking) if another instance already holds it.
func AcquireLock(baseDir string, logger *logging.Logger) (*Lock, error) {
	path, err := LockPath(baseDir)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open daemon lock file")
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		must.Close(file, logger)
		return nil, errors.Wrap(err, "daemon lock is held by another process")
	}

	return &Lock{file: file, logger: logger}, nil
}

// Release releases the daemon lock.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		must.Close(l.file, l.logger)
		return errors.Wrap(err, "unable to release daemon lock")
	}
	return l.file.Close()
}
