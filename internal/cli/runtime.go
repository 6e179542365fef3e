package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/nqm/internal/auth"
	"github.com/roach88/nqm/internal/config"
	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/engine"
	"github.com/roach88/nqm/internal/store"
)

// runtime is everything a query-running command needs.
type runtime struct {
	cfg       config.Config
	endpoints *endpoint.Directory
	graphs    *endpoint.Graphs
	store     *store.Store
	engine    *engine.Engine
	rights    *auth.Authorization
}

// openRuntime loads the configuration, opens the registry and builds the
// engine. Metrics are registered on reg when it is not nil. Callers must
// call close.
func (o *RootOptions) openRuntime(statsContext string, reg prometheus.Registerer) (*runtime, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.Endpoints()
	if err != nil {
		return nil, WrapExitError(ExitUsage, "failed to load endpoints", err)
	}
	graphs, err := cfg.Graphs(dir)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "failed to load graphs", err)
	}
	rights, err := cfg.Rights()
	if err != nil {
		return nil, WrapExitError(ExitUsage, "failed to load user rights", err)
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, WrapExitError(ExitExecution, "failed to prepare solutions directory", err)
	}

	log := o.log()
	log.Debug("opening registry", "path", cfg.DatabasePath)
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, WrapExitError(ExitExecution, "failed to open registry", err)
	}

	engOpts := engine.Options{
		Registry:        st,
		Endpoints:       dir,
		Graphs:          graphs,
		Logger:          log,
		DefaultEndpoint: cfg.DefaultEndpoint,
		DefaultTimeout:  cfg.HTTPTimeout,
		TimeoutSlack:    cfg.TimeoutSlack,
		Context:         statsContext,
	}
	if reg != nil {
		m := engine.NewMetrics()
		if err := m.Register(reg); err != nil {
			_ = st.Close()
			return nil, WrapExitError(ExitExecution, "failed to register metrics", err)
		}
		engOpts.Metrics = m
	}
	enricher, err := cfg.Enricher()
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitUsage, "failed to configure enrichment", err)
	}
	if enricher != nil {
		engOpts.Enricher = enricher
	}

	eng, err := engine.New(engOpts)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return &runtime{cfg: cfg, endpoints: dir, graphs: graphs, store: st, engine: eng, rights: rights}, nil
}

func (r *runtime) close(o *RootOptions) {
	if err := r.store.Close(); err != nil {
		o.log().Error("error closing registry", "error", err)
	}
}
