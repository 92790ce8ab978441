//go:build !windows

package quarantine

import "syscall"

// errCrossDevice is the error os.Rename wraps when a rename fails because
// the source and destination live on different devices. Matching it lets
// TryAtomicMove fall back to copy+remove only in that specific case,
// grounded on mutagen's pkg/filesystem/atomic_posix.go isCrossDeviceError.
const errCrossDevice = syscall.EXDEV
