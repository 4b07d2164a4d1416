// Package shutdown runs the daemon's timer driver until it is told to
// stop and bounds how long the final save may take.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Signals end the daemon.
var Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// RunWithGracefulShutdown runs runner until ctx is done, runner returns, or
// one of Signals arrives. On a signal or cancellation, stop is called and
// runner gets up to timeout to finish its final save.
func RunWithGracefulShutdown(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	stop func(ctx context.Context) error,
) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, Signals...)
	defer signal.Stop(sigCh)
	return run(ctx, sigCh, logger, timeout, runner, stop)
}

func run(
	ctx context.Context,
	sigCh <-chan os.Signal,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	stop func(ctx context.Context) error,
) error {
	if logger == nil {
		logger = slog.Default()
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- runner(runCtx)
	}()

	select {
	case err := <-runDone:
		return err
	case sig := <-sigCh:
		logger.Info("received signal, initiating shutdown", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutdown requested")
	}
	runCancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()

	if err := stop(stopCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	select {
	case err := <-runDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-stopCtx.Done():
		logger.Warn("shutdown timeout exceeded, final save may be incomplete")
	}

	logger.Info("shutdown complete")
	return nil
}
