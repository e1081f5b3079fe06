package database

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dbsmedya/corpfetch/internal/logger"
)

// SetupSignalHandler returns a context that is cancelled on SIGTERM or
// SIGINT. In-flight fetches and load transactions observe the context and
// stop; uncommitted rows are rolled back. The returned cancel func releases
// the signal subscription.
func SetupSignalHandler(log *logger.Logger) (context.Context, context.CancelFunc) {
	return SetupSignalHandlerWithCallback(func(sig os.Signal) {
		if log != nil {
			log.Warnw("Shutdown signal received, stopping", "signal", sig.String())
		}
	})
}

// SetupSignalHandlerWithCallback is SetupSignalHandler with a custom
// callback invoked before the context is cancelled.
func SetupSignalHandlerWithCallback(callback func(os.Signal)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			if callback != nil {
				callback(sig)
			}
			cancel()
		case <-ctx.Done():
			// Context was cancelled elsewhere
		}
	}()

	return ctx, cancel
}
