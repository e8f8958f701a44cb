// Package cli implements the gardencore command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gardencore/internal/config"
	"gardencore/internal/core"
	"gardencore/internal/environment"
	"gardencore/internal/events"
	"gardencore/internal/logging"
	"gardencore/plugins/invasive"
)

// app holds the process-wide dependencies built from configuration.
type app struct {
	cfg       config.Config
	zap       *zap.Logger
	log       *logging.Adapter
	store     core.PersistentStore
	svc       *core.Service
	publisher events.Publisher
	registry  *prometheus.Registry
}

type appOptions struct {
	metrics bool
	events  bool
}

// openApp loads configuration and opens storage. Callers must call close.
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	zl, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, zap: zl, log: logging.NewAdapter(zl), publisher: events.NopPublisher{}}

	a.store, err = core.OpenStorage(cfg.Storage(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}

	svcOpts := []core.ServiceOption{
		core.WithLogger(a.log),
		core.WithDesignDefaults(cfg.DesignDefaults()),
	}
	if opts.metrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		svcOpts = append(svcOpts, core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(a.registry)))
	}
	if kafkaCfg, ok := cfg.Kafka(); ok && opts.events {
		pub, err := events.NewKafkaPublisher(kafkaCfg)
		if err != nil {
			_ = a.close()
			return nil, err
		}
		a.publisher = pub
		svcOpts = append(svcOpts, core.WithEventPublisher(pub))
		a.log.Info("publishing design events", "brokers", kafkaCfg.Brokers, "topic", kafkaCfg.Topic)
	}

	a.svc = core.NewService(a.store, svcOpts...)
	if _, err := a.svc.InstallPlugin(invasive.New()); err != nil {
		_ = a.close()
		return nil, err
	}
	return a, nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(envFile)
}

func newEnvironment(cfg config.Config) *environment.Service {
	return environment.NewService(environment.WithCache(0, cfg.EnvironmentTTL))
}

func (a *app) environment() *environment.Service {
	return newEnvironment(a.cfg)
}

func (a *app) close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if c, ok := a.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

func withApp(opts appOptions, fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd.Context(), cmd, a, args)
	}
}
