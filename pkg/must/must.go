// Package must provides small helpers for cleanup operations whose errors
// can only be logged, not meaningfully handled — typically in defer
// statements on a path that is already failing.
package must

import (
	"io"
	"os"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

// Close closes c, logging any error.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %v", err)
	}
}

// OSRemove removes the named file, logging any error other than
// not-exist.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove '%s': %v", name, err)
	}
}

// Unlock unlocks locker, logging any error.
func Unlock(locker interface{ Unlock() error }, logger *logging.Logger) {
	if err := locker.Unlock(); err != nil {
		logger.Warnf("unable to unlock: %v", err)
	}
}
