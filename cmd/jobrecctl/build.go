package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/app"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/metrics"
	amqpTransport "github.com/kailas-cloud/jobrec/internal/transport/amqp"
	builduc "github.com/kailas-cloud/jobrec/internal/usecase/build"
)

func newBuildCmd() *cobra.Command {
	var maxFeatures int
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fit the vector space and publish a new artifact",
		Long: `Load postings from the configured source, normalize them, fit the
TF-IDF vector space and publish the artifact to the configured store.
Servers subscribed to artifact events reload it automatically.

Examples:
  # Build from config/local.yaml
  jobrecctl build

  # Build for prod with a smaller vocabulary
  jobrecctl build --env prod --max-features 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cmd.Flags().Changed("max-features") {
				cfg.Model.MaxFeatures = maxFeatures
			}

			metrics.RegisterBuildMetrics()

			ctx := cmd.Context()
			deps := app.New(cfg, logger)
			defer deps.Close()

			source, err := deps.Source(ctx)
			if err != nil {
				return err
			}
			store, err := deps.ArtifactStore(ctx)
			if err != nil {
				return err
			}
			normalizer, err := text.NewNormalizer(cfg.Text.Normalizer())
			if err != nil {
				return err
			}

			var notifier builduc.Notifier
			if cfg.Events.Enabled() {
				conn, err := amqpTransport.Dial(cfg.Events.AMQPURL)
				if err != nil {
					return err
				}
				defer func() { _ = conn.Close() }()
				pub, err := amqpTransport.NewPublisher(conn, cfg.Events.Exchange, logger.Named("events"))
				if err != nil {
					return err
				}
				notifier = pub
			}

			svc := builduc.New(source, store, normalizer, cfg.Model.FitOptions(), notifier, logger.Named("build"))
			m, err := svc.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("Build complete", zap.String("version", m.Version))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(m); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxFeatures, "max-features", 0, "vocabulary cap, 0 or negative means unlimited (overrides model.max_features)")
	return cmd
}
