package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nqm/internal/importer"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/shorturl"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Input        string
	InFormat     string
	Limit        int
	Progress     bool
	SkipExisting bool
	Output       string
	TargetGraph  string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a named query set into the registry",
		Long: `Import the queries of a named query set file into the registry.

Queries that carry only a short URL are resolved first. Records that cannot
be used are reported and skipped; the rest of the batch is still stored.

Example:
  nqm import --input scholia.yaml --progress
  nqm import --input examples.json --limit 100 --skip-existing`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "named query set file (required)")
	cmd.Flags().StringVar(&opts.InFormat, "in-format", string(model.FormatAuto), "input format (auto|json|yaml)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "import at most this many queries (0: all)")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "show progress on stderr")
	cmd.Flags().BoolVar(&opts.SkipExisting, "skip-existing", false, "keep queries already stored under the same url or name")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the collected set to this file instead of the registry")
	cmd.Flags().StringVar(&opts.TargetGraph, "target-graph", "", "graph recorded in the exported set (default: the input's)")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Input == "" {
		return NewExitError(ExitUsage, `required flag "input" not set`)
	}
	if opts.Limit < 0 {
		return NewExitError(ExitUsage, "--limit must not be negative")
	}
	format, err := model.ParseSetFormat(opts.InFormat)
	if err != nil {
		return WrapExitError(ExitUsage, "invalid --in-format", err)
	}
	if err := opts.checkGraph(opts.TargetGraph); err != nil {
		return err
	}
	producer, err := importer.NewFileProducer(opts.Input, format)
	if err != nil {
		return WrapExitError(ExitImport, "failed to read query set", err)
	}
	targetGraph := opts.TargetGraph
	if targetGraph == "" {
		targetGraph = producer.Set.TargetGraphName
	}

	p := &importer.Pipeline{
		Producer:     producer,
		Resolver:     shorturl.New(shorturl.Config{Logger: opts.log()}),
		Logger:       opts.log(),
		SkipExisting: opts.SkipExisting,
		TargetGraph:  targetGraph,
	}
	if opts.Progress {
		total := len(producer.Set.Queries)
		if opts.Limit > 0 {
			total = min(total, opts.Limit)
		}
		p.Progress = progressPrinter(cmd.ErrOrStderr(), total)
	}

	if opts.Output != "" && !opts.SkipExisting {
		report, err := p.Export(ctx, opts.Limit, opts.Output, model.FormatAuto)
		if err != nil {
			return WrapExitError(ExitImport, "failed to export query set", err)
		}
		return finishImport(opts.RootOptions, cmd, report)
	}

	st, cleanup, err := opts.openStore()
	if err != nil {
		return err
	}
	defer cleanup()
	p.Registry = st

	var report importer.Report
	if opts.Output != "" {
		report, err = p.Export(ctx, opts.Limit, opts.Output, model.FormatAuto)
	} else {
		report, err = p.Store(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitImport, "import failed", err)
	}
	return finishImport(opts.RootOptions, cmd, report)
}

// progressPrinter reports done/total on one rewritten line.
func progressPrinter(w io.Writer, total int) importer.Progress {
	return func(done int, nq model.NamedQuery) {
		fmt.Fprintf(w, "\r%d/%d %s", done, total, nq.QueryID())
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

// importSummary is the JSON form of an importer.Report.
type importSummary struct {
	Producer   string        `json:"producer"`
	Extracted  int           `json:"extracted"`
	Resolved   int           `json:"resolved"`
	Duplicates int           `json:"duplicates"`
	Stored     int           `json:"stored"`
	Skipped    []skippedItem `json:"skipped,omitempty"`
}

type skippedItem struct {
	Name   string `json:"name,omitempty"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

func (s importSummary) String() string {
	return fmt.Sprintf("%s: %d extracted, %d resolved, %d duplicates, %d stored, %d skipped",
		s.Producer, s.Extracted, s.Resolved, s.Duplicates, s.Stored, len(s.Skipped))
}

// finishImport prints the report. Skipped records never fail the command.
func finishImport(opts *RootOptions, cmd *cobra.Command, r importer.Report) error {
	summary := importSummary{
		Producer:   r.Producer,
		Extracted:  r.Extracted,
		Resolved:   r.Resolved,
		Duplicates: r.Duplicates,
		Stored:     r.Stored,
	}
	for _, sk := range r.Skipped {
		item := skippedItem{Name: sk.Name, URL: sk.URL, Reason: sk.Reason}
		if sk.Err != nil {
			item.Error = sk.Err.Error()
		}
		summary.Skipped = append(summary.Skipped, item)
	}

	out := opts.formatter(cmd)
	out.Writer = cmd.ErrOrStderr()
	for _, sk := range summary.Skipped {
		out.VerboseLog("skipped %s %s: %s %s", sk.Name, sk.URL, sk.Reason, sk.Error)
	}
	return out.Success(summary)
}
