// Package main implements jobrecctl, the offline companion of the jobrec
// server: it builds artifacts and queries them without HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/config"
	logpkg "github.com/kailas-cloud/jobrec/internal/logger"
	"github.com/kailas-cloud/jobrec/internal/version"
)

var (
	// env selects config/<env>.yaml
	env string
	// logLevel overrides the config log level
	logLevel string
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobrecctl",
		Short: "Build and query job recommendation artifacts",
		Long: `jobrecctl builds the TF-IDF artifact from a postings source and
queries the published artifact directly from the configured store.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newBuildCmd(), newRecommendCmd(), newInspectCmd())
	return root
}

// setup loads the config and a CLI logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger("cli", level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
