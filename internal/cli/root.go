package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nqm/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	JSON     bool   // status output as JSON
	Database string // overrides the registry path
	Endpoint string // overrides the default endpoint

	ListEndpoints bool

	// Getenv resolves configuration; defaults to os.Getenv.
	Getenv func(string) string

	logger *slog.Logger
}

// NewRootCommand creates the root command for the nqm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nqm",
		Short: "nqm - named SPARQL queries",
		Long: `Store, share and run SPARQL queries by name.

Queries are addressed as name--namespace@domain, may carry {{ placeholders }}
and run against any configured endpoint. Configuration lives in the solutions
directory ($NQM_HOME, default ~/.solutions/snapquery).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.initLogger(cmd.ErrOrStderr(), false)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ListEndpoints {
				return listEndpoints(opts, cmd)
			}
			return cmd.Help()
		},
	}
	cmd.SetFlagErrorFunc(flagError)

	cmd.Flags().BoolVar(&opts.ListEndpoints, "listEndpoints", false, "print the configured endpoints")

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "status output as JSON")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "registry database (default: <solutions dir>/named_queries.db)")
	cmd.PersistentFlags().StringVar(&opts.Endpoint, "endpoint", "", "endpoint to run queries against (default: wikidata)")

	// Add subcommands
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewShortURLCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewEndpointsCommand(opts))
	cmd.AddCommand(NewGraphsCommand(opts))

	return cmd
}

func flagError(cmd *cobra.Command, err error) error {
	return WrapExitError(ExitUsage, "invalid arguments", err)
}

// usageArgs reports positional argument errors with ExitUsage.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitUsage, "invalid arguments", err)
		}
		return nil
	}
}

// initLogger installs a slog handler on stderr. The server logs JSON.
func (o *RootOptions) initLogger(w io.Writer, jsonLogs bool) {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if jsonLogs {
		if !o.Verbose {
			handlerOpts.Level = slog.LevelInfo
		}
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	o.logger = slog.New(handler)
	slog.SetDefault(o.logger)
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// formatter returns the status output writer for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	f := &OutputFormatter{
		Format:    "text",
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
	if o.JSON {
		f.Format = "json"
	}
	return f
}

// config resolves the configuration and applies the global flag overrides.
func (o *RootOptions) config() (config.Config, error) {
	getenv := o.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg, err := config.FromEnv(getenv)
	if err != nil {
		return config.Config{}, WrapExitError(ExitUsage, "invalid configuration", err)
	}
	if o.Database != "" {
		cfg.DatabasePath = o.Database
	}
	if o.Endpoint != "" {
		cfg.DefaultEndpoint = o.Endpoint
	}
	return cfg, nil
}

func listEndpoints(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	dir, err := cfg.Endpoints()
	if err != nil {
		return WrapExitError(ExitUsage, "failed to load endpoints", err)
	}

	out := opts.formatter(cmd)
	if out.Format == "json" {
		return out.Success(dir.Redacted())
	}
	for _, ep := range dir.All() {
		marker := " "
		if ep.Name == cfg.DefaultEndpoint {
			marker = "*"
		}
		fmt.Fprintf(out.Writer, "%s %-20s %-7s %-11s %s\n", marker, ep.Name, ep.Language(), ep.Database, ep.URL)
	}
	return nil
}

// NewEndpointsCommand creates the endpoints command, an alias of
// --listEndpoints.
func NewEndpointsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "endpoints",
		Short:         "List configured endpoints",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEndpoints(rootOpts, cmd)
		},
	}
}

// checkGraph rejects a graph name the graph directory does not know. An
// empty name passes.
func (o *RootOptions) checkGraph(name string) error {
	if name == "" {
		return nil
	}
	cfg, err := o.config()
	if err != nil {
		return err
	}
	dir, err := cfg.Endpoints()
	if err != nil {
		return WrapExitError(ExitUsage, "failed to load endpoints", err)
	}
	graphs, err := cfg.Graphs(dir)
	if err != nil {
		return WrapExitError(ExitUsage, "failed to load graphs", err)
	}
	if _, ok := graphs.Get(name); !ok {
		return NewExitError(ExitUsage, fmt.Sprintf("unknown graph %q", name))
	}
	return nil
}

func listGraphs(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	dir, err := cfg.Endpoints()
	if err != nil {
		return WrapExitError(ExitUsage, "failed to load endpoints", err)
	}
	graphs, err := cfg.Graphs(dir)
	if err != nil {
		return WrapExitError(ExitUsage, "failed to load graphs", err)
	}

	out := opts.formatter(cmd)
	if out.Format == "json" {
		return out.Success(graphs.All())
	}
	for _, g := range graphs.All() {
		fmt.Fprintf(out.Writer, "%-20s %-20s %s\n", g.Name, g.DefaultEndpointName, g.Description)
	}
	return nil
}

// NewGraphsCommand creates the graphs command.
func NewGraphsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "graphs",
		Short:         "List configured graphs and their default endpoints",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listGraphs(rootOpts, cmd)
		},
	}
}
