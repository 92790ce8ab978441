//go:build !linux

package ipc

import "net"

// NewPeerCredentialIdentityChecker is unavailable outside Linux (SO_PEERCRED
// has no portable equivalent used here); it returns a checker that never
// grants privilege, matching defaultIdentityChecker.
func NewPeerCredentialIdentityChecker(adminUID uint32) IdentityChecker {
	return func(net.Conn) bool { return false }
}
