package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"busdelay/config"
	"busdelay/features"
	bhttp "busdelay/http"
	"busdelay/logging"
	"busdelay/metrics"
)

func newServeCmd(load configLoader) *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the predictor pages, the JSON API and the live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Http.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	serveCmd.Flags().IntVar(&port, "port", 8501, "HTTP port, overrides the configuration")
	return serveCmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	stop, err := loadVariant(cfg, "stop", cfg.ML.StopVisit, features.StopVisitSchema, collector, logger, true)
	if err != nil {
		return err
	}
	schedule, err := loadVariant(cfg, "schedule", cfg.ML.Schedule, features.ScheduleDelaySchema, collector, logger, true)
	if err != nil {
		return err
	}

	if cfg.ML.Watch {
		for _, v := range []*variant{stop, schedule} {
			go func() {
				err := v.store.Watch(ctx, func(reloadErr error) {
					collector.ObserveReload(v.schema.Name, v.store.Current().Generation(), reloadErr)
				})
				if err != nil {
					logger.Error("artifact watcher stopped", zap.String("variant", v.name), zap.Error(err))
				}
			}()
		}
		logger.Info("watching artifacts for changes")
	}

	handler, err := bhttp.NewHandler(bhttp.HandlerConfig{
		Stop:            stop.predictor,
		Schedule:        schedule.predictor,
		Metrics:         collector,
		Logger:          logger,
		AllowedOrigins:  cfg.Http.AllowedOrigins,
		MaxMessageBytes: cfg.Http.MaxBodyBytes,
	})
	if err != nil {
		return err
	}
	server := bhttp.NewServer(bhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("exiting")
	return nil
}
