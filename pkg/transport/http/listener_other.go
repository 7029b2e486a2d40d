//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package http

import (
	"syscall"

	"github.com/rhuss/expresso/pkg/debug"
)

func listenControl(reusePort bool) func(network, address string, c syscall.RawConn) error {
	if reusePort {
		debug.Log(debug.Server, "SO_REUSEPORT not supported on this platform, ignoring")
	}
	return nil
}
