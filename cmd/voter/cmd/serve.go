package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"edu-voting/internal/api"
	"edu-voting/internal/config"
	"edu-voting/internal/evm"
	"edu-voting/internal/watch"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and keep tallies live",
		Long: `serve restores an authorised wallet session if there is one, exposes the
session over HTTP and refreshes the candidate list on every Voted or
CandidateAdded log (or on an interval when no WebSocket endpoint is set).
Database migrations are applied on start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(o)
		},
	}

	cmd.Flags().String("api-addr", "", "HTTP listen address (default 127.0.0.1:8080)")
	cmd.Flags().Duration("refresh-interval", 0, "polling interval when no WebSocket endpoint is set (default 30s, 0 disables)")
	bindFlags(o.v, cmd.Flags(), map[string]string{
		"api-addr":         config.KeyAPIAddr,
		"refresh-interval": config.KeyRefreshInterval,
	})

	return cmd
}

func runServe(o *rootOptions) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	logger := o.logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()
	a.checkNodeChain(ctx)

	session := a.session()
	if err := session.Start(ctx); err != nil {
		// the error is visible in /api/state; the operator can retry via /api/connect
		logger.Warn("session start", zap.Error(err))
	}

	server := api.NewServer(api.Options{
		Session: session,
		Journal: a.journal,
		Tallies: a.tallies,
		Logger:  logger,
	})

	var ws evm.WSClient
	interval := cfg.RefreshInterval
	if cfg.NodeWSURL != "" {
		client, err := evm.NewWSClient(ctx, cfg.NodeWSURL, nil, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		ws = client
		interval = 0
	}
	watcher := watch.New(watch.Options{
		WS:        ws,
		Contract:  a.voting.Address(),
		Refresher: session,
		Interval:  interval,
		Logger:    logger,
	})

	done := make(chan struct{})
	defer close(done)
	handleSignals(cancel, done, logger)

	errCh := make(chan error, 2)
	go func() {
		if err := server.Listen(cfg.APIAddr); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("component failed", zap.Error(err))
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("api shutdown", zap.Error(shutdownErr))
	}

	// let background settlements reach the journal
	session.Wait()
	logger.Info("shutdown complete")
	return err
}

// handleSignals cancels on the first SIGINT/SIGTERM and exits on the second
// or when graceful shutdown takes longer than shutdownTimeout.
func handleSignals(cancel context.CancelFunc, done <-chan struct{}, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()
}
