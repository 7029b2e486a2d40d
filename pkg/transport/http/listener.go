package http

import (
	"context"
	"net"
)

// Listen opens a TCP listener on addr with SO_REUSEADDR set, so a restarted
// server can bind while old connections linger in TIME_WAIT. reusePort
// additionally sets SO_REUSEPORT where the platform supports it.
func Listen(ctx context.Context, addr string, reusePort bool) (net.Listener, error) {
	lc := net.ListenConfig{Control: listenControl(reusePort)}
	return lc.Listen(ctx, "tcp", addr)
}
