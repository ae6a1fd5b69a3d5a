// Package shutdown ties long-running commands to the operating system's
// interrupt signals.
package shutdown

import (
	"context"
	"os/signal"
)

// Context returns a copy of parent that is cancelled on the first shutdown
// signal. The returned stop function unregisters the handler and must be
// called once the caller is done.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
