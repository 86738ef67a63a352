//go:build !windows

package ipc

import (
	"net"

	"golang.org/x/sys/unix"
)

// bindListener creates the Unix domain socket at path. A stale socket
// file left behind by a previous, uncleanly terminated run is
// unlinked first so bind doesn't fail with "address already in use".
// The umask is tightened around the bind call so the socket file
// itself is created with mode 0700, not whatever the ambient umask
// would otherwise leave it at; this is restored immediately after.
func bindListener(path string) (net.Listener, error) {
	_ = unix.Unlink(path)

	old := unix.Umask(0o077)
	defer unix.Umask(old)

	return net.Listen("unix", path)
}

// removeEndpoint unlinks the socket file on shutdown. Errors are
// ignored: the file may already be gone, and leaving a stale socket
// around is harmless since the next run's bindListener unlinks it too.
func removeEndpoint(path string) {
	_ = unix.Unlink(path)
}
