package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gardencore/internal/adapters/designs"
	"gardencore/internal/blob"
	"gardencore/internal/httpapi"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON API, design exports, environment estimates and Prometheus
metrics. Listens on GARDENCORE_HTTP_ADDR unless --addr is given.`,
		Args: cobra.NoArgs,
		RunE: withApp(appOptions{metrics: true, events: true}, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := blob.OpenConfig(ctx, a.cfg.Blob())
			if err != nil {
				return err
			}
			worker := designs.NewWorker(a.svc, store, designs.NewMemoryAuditLog())
			worker.Start()

			srv := httpapi.New(a.svc,
				httpapi.WithExporter(worker),
				httpapi.WithEnvironment(a.environment()),
				httpapi.WithGatherer(a.registry),
				httpapi.WithLogger(a.log),
			)
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.Start(addr) }()
			a.log.Info("listening", "addr", addr, "storage", a.cfg.StorageDriver, "blob", store.Driver())

			select {
			case err = <-errc:
			case <-ctx.Done():
				a.log.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return errors.Join(err, srv.Shutdown(shutdownCtx), worker.Stop(shutdownCtx))
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default GARDENCORE_HTTP_ADDR)")
	return cmd
}
