package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/devraulu/normurl/pkg/server"
	"github.com/devraulu/normurl/pkg/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalizer over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			store, err := openRegistry(ctx, a.cfg.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(a.n, store, a.cfg.Batch.Workers),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("starting web server", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
				slog.Info("context done, stopping")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			slog.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// openRegistry connects to Postgres, or falls back to a process-local
// registry when dsn is empty.
func openRegistry(ctx context.Context, dsn string) (storage.Storage, error) {
	if dsn == "" {
		slog.Warn("no dsn configured, using in-memory registry")
		return storage.NewMemoryStorage(), nil
	}
	return storage.Open(ctx, dsn)
}
