package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/server"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion API over HTTP",
	Long: `Start an HTTP server exposing:
  GET /health                     liveness probe
  GET /api/repos/ingest?url=...   ingest a repository, streaming progress as JSON chunks
  GET /api/cache                  list cached corpora`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		orchestrator, err := newOrchestrator(cache)
		if err != nil {
			return err
		}

		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}
		srv := server.New(orchestrator, cache)

		errCh := make(chan error, 1)
		go func() {
			internal.LogInfo("Listening on :%s", port)
			errCh <- srv.Listen(":" + port)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
		}

		internal.LogInfo("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from settings, 3001)")
}
