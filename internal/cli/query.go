package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nqm/internal/auth"
	"github.com/roach88/nqm/internal/engine"
	"github.com/roach88/nqm/internal/format"
	"github.com/roach88/nqm/internal/model"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Namespace string
	Name      string
	Domain    string
	Graph     string
	Limit     int
	Format    string
	Params    []string
	Merger    string
	Strict    bool
	Orcid     string
	ShowQuery bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a named query",
		Long: `Run a named query against an endpoint and print the result table.

Placeholders are bound with --param; every {{ name }} in the query needs one.

Example:
  nqm query --namespace wikidata-examples --name cats --limit 10 --format github
  nqm query --name "properties of" --param q=Q80 --endpoint wikidata-qlever
  nqm query --name cats --graph wikidata`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Namespace, "namespace", model.DefaultNamespace, "query namespace")
	cmd.Flags().StringVar(&opts.Name, "name", "", "query name (required)")
	cmd.Flags().StringVar(&opts.Domain, "domain", model.DefaultDomain, "query domain")
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "run against the default endpoint of this graph (--endpoint wins)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "cap the number of rows (0: as the query says)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(format.JSON), "output format ("+format.Names()+")")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "placeholder binding k=v (repeatable)")
	cmd.Flags().StringVar(&opts.Merger, "merger", string(engine.DefaultMerger), "prefix merger (RAW|SIMPLE_MERGER|ANALYSIS_MERGER)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject parameters no placeholder uses")
	cmd.Flags().StringVar(&opts.Orcid, "orcid", "", "ORCID iD to enrich missing metadata with")
	cmd.Flags().BoolVar(&opts.ShowQuery, "show-query", false, "print the SPARQL instead of running it")

	return cmd
}

// parseParams turns k=v pairs into a binding map. A later pair wins.
func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("parameter %q: want key=value", pair)
		}
		out[k] = v
	}
	return out, nil
}

func runQuery(ctx context.Context, opts *QueryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Name == "" {
		return NewExitError(ExitUsage, `required flag "name" not set`)
	}
	f, err := format.ParseFormat(opts.Format)
	if err != nil {
		return WrapExitError(ExitUsage, "invalid format", err)
	}
	bindings, err := parseParams(opts.Params)
	if err != nil {
		return WrapExitError(ExitUsage, "invalid parameter", err)
	}
	if opts.Limit < 0 {
		return NewExitError(ExitUsage, "--limit must not be negative")
	}

	rt, err := opts.openRuntime("cli", nil)
	if err != nil {
		return err
	}
	defer rt.close(opts.RootOptions)

	req := engine.Request{
		Name:     model.NewQueryName(opts.Name, opts.Namespace, opts.Domain),
		Endpoint: opts.Endpoint,
		Graph:    opts.Graph,
		Params:   bindings,
		Strict:   opts.Strict,
		Limit:    opts.Limit,
		Merger:   engine.ParseMerger(opts.Merger),
	}
	if opts.Orcid != "" {
		req.CanEnrich = rt.rights.Has(opts.Orcid, auth.RightLLM)
	}
	out := opts.formatter(cmd)

	if opts.ShowQuery {
		p, err := rt.engine.Prepare(ctx, req)
		if err != nil {
			return executionExit(err)
		}
		fmt.Fprintln(out.Writer, p.SPARQL)
		return nil
	}

	res, err := rt.engine.Execute(ctx, req)
	if err != nil {
		exit := executionExit(err)
		if exit.Code == ExitExecution {
			_ = (&OutputFormatter{Format: out.Format, Writer: out.GetErrWriter(), Verbose: out.Verbose}).Error("E300", err)
		}
		return exit
	}

	if err := format.Write(out.Writer, f, engine.Results{Vars: res.Vars, Rows: res.Rows}); err != nil {
		return WrapExitError(ExitExecution, "failed to write results", err)
	}
	out.VerboseLog("%d rows from %s in %dms (%s)", len(res.Rows), res.Stats.EndpointName, res.Stats.DurationMS, res.Stats.QueryID)
	return nil
}
