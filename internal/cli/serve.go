package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "ledger/internal/http"
	"ledger/internal/log"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Run the HTTP API",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationFullLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			logger := a.logger.WithComponent(log.ComponentHTTP)
			srv := apphttp.NewServer(":"+a.cfg.Port, svc, logger, apphttp.WithMetrics(a.cfg.MetricsEnabled))
			return runServer(cmd.Context(), srv, a)
		},
	}
	cmd.Flags().StringVarP(&a.port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

// runServer serves until SIGINT or SIGTERM, then drains in-flight requests
// for at most the configured shutdown timeout.
func runServer(ctx context.Context, srv *apphttp.Server, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting ledger server",
			log.FieldOperation, log.OpStartup,
			"port", a.cfg.Port,
			"backend", a.cfg.DataBackend,
			"metrics", a.cfg.MetricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Server error", log.FieldError, err, "port", a.cfg.Port)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
