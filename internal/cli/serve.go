package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/nqm/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		Long: `Serve named queries over HTTP until interrupted.

  GET /api/endpoints
  GET /api/queries?namespace=...&name=...
  GET /api/sparql/{namespace}/{name}?domain=...&limit=...&<param>=...
  GET /api/query/{namespace}/{name}.{format}
  GET /metrics
  GET /healthz

Example:
  nqm serve --addr :9862`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":9862", "listen address")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	opts.initLogger(cmd.ErrOrStderr(), true)
	log := opts.log()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt, err := opts.openRuntime("api", reg)
	if err != nil {
		return err
	}
	defer rt.close(opts.RootOptions)

	srv, err := server.New(server.Options{
		Engine:    rt.engine,
		Endpoints: rt.endpoints,
		Registry:  rt.store,
		Rights:    rt.rights,
		Gatherer:  reg,
		Logger:    log,
	})
	if err != nil {
		return WrapExitError(ExitExecution, "failed to create server", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("serving", "addr", opts.Addr, "db", rt.cfg.DatabasePath, "endpoints", len(rt.endpoints.Names()))
	if err := srv.Run(ctx, opts.Addr); err != nil {
		return WrapExitError(ExitExecution, "server error", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
