// Package daemon implements the process-lifetime concerns shared by the
// privileged agent process: a single-instance lock and well-known state
// directory paths, grounded on mutagen's pkg/daemon/paths.go and
// pkg/daemon/lock.go.
package daemon

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	lockName   = "agent.lock"
	socketName = "agent.sock"
)

// stateRoot returns the directory holding the daemon's lock and socket
// files, creating it if necessary.
func stateRoot(baseDir string) (string, error) {
	if baseDir == "" {
		baseDir = "/var/run/shieldai"
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return "", errors.Wrapf(err, "unable to create state directory %q", baseDir)
	}
	return baseDir, nil
}

// LockPath returns the path to the daemon's single-instance lock file.
func LockPath(baseDir string) (string, error) {
	root, err := stateRoot(baseDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, lockName), nil
}

// SocketPath returns the path to the daemon's IPC socket.
func SocketPath(baseDir string) (string, error) {
	root, err := stateRoot(baseDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, socketName), nil
}
