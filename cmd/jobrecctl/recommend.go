package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/app"
	"github.com/kailas-cloud/jobrec/internal/config"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	"github.com/kailas-cloud/jobrec/internal/repository/resume"
	recommenduc "github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

type recommendFlags struct {
	k          int
	resume     string
	levels     []string
	minSalary  float64
	remoteOnly bool
	minScore   float64
	asJSON     bool
}

func newRecommendCmd() *cobra.Command {
	var f recommendFlags
	cmd := &cobra.Command{
		Use:   "recommend [text|-]",
		Short: "Recommend postings for a profile text",
		Long: `Rank the postings of the published artifact against a profile text.
The text comes from the argument, from stdin when the argument is "-",
or from a resume file (txt, pdf, docx) given with --resume.

Examples:
  jobrecctl recommend "python developer with django and sql"
  cat profile.txt | jobrecctl recommend - --k 10
  jobrecctl recommend --resume cv.pdf --level senior --remote-only`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(args, f.resume, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var minSalary *float64
			if cmd.Flags().Changed("min-salary") {
				minSalary = &f.minSalary
			}
			filters, err := filter.New(f.levels, minSalary, f.remoteOnly)
			if err != nil {
				return err
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			req, err := request.New(query, f.k, filters, f.minScore, cfg.Recommend.Limits())
			if err != nil {
				return err
			}
			svc, closeFn, err := loadService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toOutput(resp))
			}
			return writeResults(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVar(&f.k, "k", 0, "number of recommendations (default from config)")
	cmd.Flags().StringVar(&f.resume, "resume", "", "read the profile from a txt, pdf or docx file")
	cmd.Flags().StringSliceVar(&f.levels, "level", nil, "experience levels to keep: junior, pleno, senior, na")
	cmd.Flags().Float64Var(&f.minSalary, "min-salary", 0, "minimum annual salary")
	cmd.Flags().BoolVar(&f.remoteOnly, "remote-only", false, "only remote postings")
	cmd.Flags().Float64Var(&f.minScore, "min-score", 0, "minimum similarity in [0,1]")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// readQuery resolves the profile text from a resume file, stdin or the argument.
func readQuery(args []string, resumePath string, stdin io.Reader) (string, error) {
	switch {
	case resumePath != "":
		if len(args) > 0 {
			return "", fmt.Errorf("pass either a text argument or --resume, not both")
		}
		data, err := os.ReadFile(filepath.Clean(resumePath))
		if err != nil {
			return "", fmt.Errorf("read resume: %w", err)
		}
		return resume.ExtractFile(filepath.Base(resumePath), "", data)
	case len(args) == 0:
		return "", fmt.Errorf("profile text is required (argument, \"-\" or --resume)")
	case args[0] == "-":
		data, err := io.ReadAll(io.LimitReader(stdin, request.MaxTextLength+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		return args[0], nil
	}
}

// loadService opens the artifact store and loads the current artifact.
func loadService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*recommenduc.Service, func(), error) {
	deps := app.New(cfg, logger)
	store, err := deps.ArtifactStore(ctx)
	if err != nil {
		deps.Close()
		return nil, nil, err
	}
	svc := recommenduc.New(store, nil, logger.Named("recommend"))
	if err := svc.Load(ctx); err != nil {
		deps.Close()
		return nil, nil, err
	}
	return svc, deps.Close, nil
}

type resultOutput struct {
	Rank    int     `json:"rank"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
	JobID   string  `json:"job_id"`
	Title   string  `json:"title"`
	Company string  `json:"company"`
	URL     string  `json:"url"`
}

type recommendOutput struct {
	Version   string         `json:"version"`
	NoMatches bool           `json:"no_matches"`
	Results   []resultOutput `json:"results"`
}

func toOutput(resp recommenduc.Response) recommendOutput {
	out := recommendOutput{Version: resp.Version, NoMatches: resp.NoMatches, Results: make([]resultOutput, 0, len(resp.Results))}
	for _, r := range resp.Results {
		p := r.Posting()
		out.Results = append(out.Results, resultOutput{
			Rank:    r.Rank(),
			Index:   r.Index(),
			Score:   r.Score(),
			JobID:   p.ID(),
			Title:   p.Title(),
			Company: p.Company(),
			URL:     p.URL(),
		})
	}
	return out
}

func writeResults(w io.Writer, resp recommenduc.Response) error {
	if resp.NoMatches || len(resp.Results) == 0 {
		_, err := fmt.Fprintln(w, "no matching postings")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tJOB ID\tTITLE\tCOMPANY\tURL")
	for _, r := range resp.Results {
		p := r.Posting()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Rank(), strconv.FormatFloat(r.Score(), 'f', 4, 64), p.ID(), oneLine(p.Title()), oneLine(p.Company()), p.URL())
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
