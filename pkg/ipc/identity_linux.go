//go:build linux

package ipc

import (
	"net"

	"golang.org/x/sys/unix"
)

// NewPeerCredentialIdentityChecker returns an IdentityChecker that treats a
// connection as privileged when its peer's effective UID matches
// adminUID (typically 0, or another administrator account on the host) or
// is 0; root is always privileged, whatever adminUID is.
// It reads the kernel-verified peer credentials via SO_PEERCRED, the same
// mechanism mutagen's daemon relies on the OS transport to provide rather
// than trusting anything the client claims over the wire.
func NewPeerCredentialIdentityChecker(adminUID uint32) IdentityChecker {
	return func(conn net.Conn) bool {
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			return false
		}
		raw, err := unixConn.SyscallConn()
		if err != nil {
			return false
		}
		var privileged bool
		controlErr := raw.Control(func(fd uintptr) {
			ucred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
			if err != nil {
				return
			}
			privileged = ucred.Uid == adminUID || ucred.Uid == 0
		})
		if controlErr != nil {
			return false
		}
		return privileged
	}
}
