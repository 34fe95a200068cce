// Package cmd holds the busdelay command line.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"busdelay/config"
	"busdelay/features"
	"busdelay/inference"
	"busdelay/metrics"
	"busdelay/ml"
)

const defaultConfigPath = "config.yaml"

// Execute runs the CLI root command
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "busdelay",
		Short: "Predict whether a Sydney bus will be delayed at a stop",
		Long: "busdelay serves the stop visit and schedule delay predictor pages and\n" +
			"answers one-shot predictions from the command line.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the YAML configuration file")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		path := configPath
		if !cmd.Flags().Changed("config") {
			// the default file is optional
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				path = ""
			}
		}
		return config.Load(path)
	}

	rootCmd.AddCommand(newServeCmd(load), newPredictCmd(load))
	return rootCmd
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)

// variant is one form flow: its schema, artifacts and predictor.
type variant struct {
	name      string
	schema    features.Schema
	store     *ml.Store
	predictor *inference.Predictor
}

// loadVariant reads the artifacts of one flow. Failing to load is fatal;
// a schema mismatch is only logged, it surfaces on every prediction.
func loadVariant(cfg *config.Config, name string, artifacts config.ArtifactConfig, schema features.Schema,
	collector *metrics.Collector, logger *zap.Logger, cache bool) (*variant, error) {
	loaded, err := ml.LoadArtifacts(artifacts.Spec(schema))
	if err != nil {
		return nil, err
	}
	if err := loaded.CheckSchema(); err != nil {
		logger.Warn("artifacts do not match schema", zap.String("variant", name), zap.Error(err))
	}
	collector.ObserveReload(schema.Name, loaded.Generation(), nil)
	logger.Info("artifacts loaded",
		zap.String("variant", name),
		zap.String("scaler", artifacts.ScalerPath),
		zap.String("model", artifacts.ModelPath),
		zap.String("model_type", artifacts.ModelType),
		zap.Uint64("generation", loaded.Generation()),
	)

	store := ml.NewStore(loaded, logger)
	opts := inference.Options{
		Variant: name,
		Locale:  cfg.ML.Locale,
		Metrics: collector,
		Logger:  logger,
	}
	if cache {
		opts.CacheSize = cfg.ML.CacheSize
	}
	predictor, err := inference.New(store, opts)
	if err != nil {
		return nil, err
	}
	return &variant{name: name, schema: schema, store: store, predictor: predictor}, nil
}
