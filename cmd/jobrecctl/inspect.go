package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	recommenduc "github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the published artifact",
		Long: `Load the current artifact from the configured store, validate it and
print its version, dimensions and normalizer settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, closeFn, err := loadService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			st, err := svc.Stats()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			return writeStats(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func writeStats(w io.Writer, st recommenduc.Stats) error {
	maxFeatures := "unlimited"
	if st.MaxFeatures > 0 {
		maxFeatures = fmt.Sprint(st.MaxFeatures)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "version:\t%s\n", st.Version)
	fmt.Fprintf(tw, "created:\t%s\n", st.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "postings:\t%d\n", st.Rows)
	fmt.Fprintf(tw, "vocabulary:\t%d (max %s)\n", st.Cols, maxFeatures)
	fmt.Fprintf(tw, "non-zeros:\t%d\n", st.NNZ)
	fmt.Fprintf(tw, "language:\t%s\n", st.Normalizer.Language)
	fmt.Fprintf(tw, "stemming:\t%t\n", st.Normalizer.Stem)
	fmt.Fprintf(tw, "strip digits:\t%t\n", st.Normalizer.StripDigits)
	fmt.Fprintf(tw, "min token length:\t%d\n", st.Normalizer.MinTokenLength)
	if len(st.Normalizer.ExtraStopwords) > 0 {
		fmt.Fprintf(tw, "extra stopwords:\t%s\n", strings.Join(st.Normalizer.ExtraStopwords, ", "))
	}
	return tw.Flush()
}
