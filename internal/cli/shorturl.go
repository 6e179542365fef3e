package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/nqm/internal/importer"
	"github.com/roach88/nqm/internal/shorturl"
	"github.com/roach88/nqm/internal/store"
)

// ShortURLOptions holds flags for the shorturl command.
type ShortURLOptions struct {
	*RootOptions
	Domain    string
	Namespace string
	Graph     string
	Output    string
	Store     bool
	Progress  bool
}

// NewShortURLCommand creates the shorturl command.
func NewShortURLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShortURLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shorturl <url>...",
		Short: "Build a named query set from short URLs",
		Long: `Resolve w.wiki or QLever short URLs to their SPARQL and collect the
queries into a named query set. Each query is named after the last path
segment of its short URL.

Example:
  nqm shorturl https://w.wiki/6UCU https://w.wiki/6UCV --namespace short_urls
  nqm shorturl https://w.wiki/6UCU --store`,
		Args:          usageArgs(cobra.MinimumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShortURL(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Domain, "domain", "wikidata.org", "domain of the created queries")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "short_urls", "namespace of the created queries")
	cmd.Flags().StringVar(&opts.Graph, "target-graph", "wikidata", "graph the set is meant for")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the set to this file (default: YAML on stdout)")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "upsert the queries into the registry instead")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "show progress on stderr")

	return cmd
}

func runShortURL(ctx context.Context, opts *ShortURLOptions, urls []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := opts.checkGraph(opts.Graph); err != nil {
		return err
	}
	p := &importer.Pipeline{
		Producer: &importer.ShortURLProducer{URLs: urls, Domain: opts.Domain, Namespace: opts.Namespace},
		Resolver: shorturl.New(shorturl.Config{Logger: opts.log()}),
		Logger:   opts.log(),
	}
	if opts.Progress {
		p.Progress = progressPrinter(cmd.ErrOrStderr(), len(urls))
	}

	var report importer.Report
	if opts.Store {
		st, cleanup, err := opts.openStore()
		if err != nil {
			return err
		}
		defer cleanup()
		p.Registry = st
		report, err = p.Store(ctx, 0)
		if err != nil {
			return WrapExitError(ExitImport, "failed to store short url queries", err)
		}
	} else {
		set, r, err := p.Set(ctx, 0, opts.Domain, opts.Namespace, opts.Graph)
		report = r
		if err != nil {
			return WrapExitError(ExitImport, "failed to resolve short urls", err)
		}
		if err := writeSet(cmd.OutOrStdout(), set, opts.Output); err != nil {
			return WrapExitError(ExitImport, "failed to write query set", err)
		}
	}

	return finishImport(opts.RootOptions, cmd, report)
}

// openStore opens the configured registry.
func (o *RootOptions) openStore() (*store.Store, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, nil, WrapExitError(ExitExecution, "failed to prepare solutions directory", err)
	}
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, WrapExitError(ExitExecution, "failed to open registry", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			o.log().Error("error closing registry", "error", err)
		}
	}, nil
}
