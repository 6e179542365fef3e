package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/nqm/internal/classify"
	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/model"
)

// Registry is the part of the Named Query Registry the engine needs.
type Registry interface {
	Lookup(ctx context.Context, qn model.QueryName) (model.NamedQuery, error)
	Add(ctx context.Context, nq model.NamedQuery) error
	StoreStats(ctx context.Context, stats []model.QueryStats) error
}

// Endpoints resolves endpoint names.
type Endpoints interface {
	Get(name string) (endpoint.Endpoint, bool)
}

// Graphs resolves named graphs.
type Graphs interface {
	Get(name string) (endpoint.Graph, bool)
}

// Enricher fills in a missing title or description of a named query.
type Enricher interface {
	Enrich(ctx context.Context, nq model.NamedQuery) (model.NamedQuery, error)
}

// Defaults for Options.
const (
	DefaultEndpointName = "wikidata"
	DefaultTimeout      = 60 * time.Second
	DefaultTimeoutSlack = 2 * time.Second
)

// Options configures an Engine. Registry and Endpoints are required. Without
// Graphs, requests naming a graph fail.
type Options struct {
	Registry  Registry
	Endpoints Endpoints
	Graphs    Graphs
	Client    *http.Client
	Merger    Merger
	Metrics   *Metrics
	Enricher  Enricher
	Logger    *slog.Logger
	Clock     Clock
	IDs       IDGenerator

	DefaultEndpoint string
	// DefaultTimeout applies to endpoints without a configured timeout.
	DefaultTimeout time.Duration
	// TimeoutSlack is added to every endpoint timeout.
	TimeoutSlack time.Duration
	// Context tags stats of requests that carry none.
	Context string
}

func (o *Options) defaults() {
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Merger == "" {
		o.Merger = DefaultMerger
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.IDs == nil {
		o.IDs = UUIDv7Generator{}
	}
	if o.DefaultEndpoint == "" {
		o.DefaultEndpoint = DefaultEndpointName
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.TimeoutSlack < 0 {
		o.TimeoutSlack = 0
	} else if o.TimeoutSlack == 0 {
		o.TimeoutSlack = DefaultTimeoutSlack
	}
}

// Engine executes named queries. It holds no mutable state of its own;
// concurrent Execute calls are independent and share only the Registry.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	if opts.Endpoints == nil {
		return nil, errors.New("engine: endpoints are required")
	}
	opts.defaults()
	return &Engine{opts: opts}, nil
}

// Request is one execution. Either Query or Name identifies the query.
type Request struct {
	Name  model.QueryName
	Query *model.NamedQuery

	// Endpoint defaults to the default endpoint of Graph, then to
	// Options.DefaultEndpoint.
	Endpoint string
	Graph    string
	Params   map[string]string
	// Strict rejects params matching no placeholder.
	Strict bool
	// Limit > 0 caps the result size.
	Limit int
	// Merger overrides Options.Merger when set.
	Merger Merger
	// Context tags the stats record.
	Context string
	// CanEnrich reports that the caller holds the right to have missing
	// metadata filled in by the Enricher.
	CanEnrich bool
}

// Result is a successful execution.
type Result struct {
	Query   model.NamedQuery
	Details model.QueryDetails
	// SPARQL is the text sent to the endpoint.
	SPARQL string
	Vars   []string
	Rows   []Row
	Stats  model.QueryStats
}

// Prepared is a query assembled for an endpoint but not yet sent.
type Prepared struct {
	Query    model.NamedQuery
	Details  model.QueryDetails
	Endpoint endpoint.Endpoint
	SPARQL   string
}

// Resolve returns the request's named query, looking it up when the request
// does not carry it.
func (e *Engine) Resolve(ctx context.Context, req Request) (model.NamedQuery, error) {
	if req.Query != nil {
		return req.Query.Normalize(), nil
	}
	nq, err := e.opts.Registry.Lookup(ctx, req.Name)
	if err != nil {
		return model.NamedQuery{}, err
	}
	return nq, nil
}

func (e *Engine) endpointName(req Request) (string, error) {
	if req.Endpoint != "" {
		return req.Endpoint, nil
	}
	if req.Graph == "" {
		return e.opts.DefaultEndpoint, nil
	}
	if e.opts.Graphs == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownGraph, req.Graph)
	}
	g, ok := e.opts.Graphs.Get(req.Graph)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGraph, req.Graph)
	}
	return g.DefaultEndpointName, nil
}

// Prepare runs every assembly stage: lookup, details, parameter binding,
// prefix merging, WITH rewriting and the limit. Nothing is sent.
func (e *Engine) Prepare(ctx context.Context, req Request) (Prepared, error) {
	nq, err := e.Resolve(ctx, req)
	if err != nil {
		return Prepared{}, err
	}

	name, err := e.endpointName(req)
	if err != nil {
		return Prepared{}, err
	}
	ep, ok := e.opts.Endpoints.Get(name)
	if !ok {
		return Prepared{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	if ep.Language() != endpoint.LangSPARQL {
		return Prepared{}, fmt.Errorf("endpoint %s: %w: %s", ep.Name, ErrUnsupportedLanguage, ep.Language())
	}

	details := Details(nq)
	text := nq.SPARQL
	if details.HasParams() || len(req.Params) > 0 {
		text, err = Render(nq.SPARQL, req.Params, req.Strict)
		if err != nil {
			return Prepared{}, fmt.Errorf("render %s: %w", nq.QueryID(), err)
		}
	}

	policy := e.opts.Merger
	if req.Merger != "" {
		policy = req.Merger
	}
	text = Merge(policy, ep, text)
	text = Portable(ep, text)
	text = Limit(text, req.Limit)

	return Prepared{Query: nq, Details: details, Endpoint: ep, SPARQL: text}, nil
}

// Execute assembles the query, dispatches it and records a QueryStats for
// the attempt. Endpoint-side failures are returned as *EndpointError with
// the stats attached. No retries are made and rows are returned only when
// the whole result was read. A stats write failure after a successful
// dispatch is logged, not returned.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	p, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	stats := model.QueryStats{
		StatsID:      e.opts.IDs.Generate(),
		QueryID:      p.Query.QueryID(),
		EndpointName: p.Endpoint.Name,
		Context:      req.Context,
	}
	if stats.Context == "" {
		stats.Context = e.opts.Context
	}

	start := e.opts.Clock.Now()
	res, dispatchErr := e.Dispatch(ctx, p.Endpoint, p.SPARQL)
	end := e.opts.Clock.Now()

	stats.Timestamp = start
	stats.DurationMS = end.Sub(start).Milliseconds()

	var epErr *EndpointError
	if dispatchErr != nil {
		raw := dispatchErr.Error()
		c := classify.Classify(raw)
		stats.Outcome = model.Failure{Category: c.Category, Raw: raw, Filtered: c.Message}
		epErr = &EndpointError{
			Endpoint: p.Endpoint.Name,
			Category: c.Category,
			Raw:      raw,
			Filtered: c.Message,
			Stats:    stats,
		}
	} else {
		stats.Outcome = model.Success{Records: len(res.Rows)}
	}

	e.opts.Metrics.RecordExecution(stats, end.Sub(start))

	// Stats are persisted even when the caller has gone away.
	storeErr := e.opts.Registry.StoreStats(context.WithoutCancel(ctx), []model.QueryStats{stats})
	if storeErr != nil {
		storeErr = fmt.Errorf("record stats %s: %w", stats.StatsID, storeErr)
		e.opts.Logger.Error("stats not recorded", "query_id", stats.QueryID, "stats_id", stats.StatsID, "error", storeErr)
	}

	if epErr != nil {
		e.opts.Logger.Warn("query failed",
			"query_id", stats.QueryID,
			"endpoint", stats.EndpointName,
			"category", epErr.Category,
			"duration_ms", stats.DurationMS,
		)
		return nil, errors.Join(epErr, storeErr)
	}

	e.opts.Logger.Debug("query executed",
		"query_id", stats.QueryID,
		"endpoint", stats.EndpointName,
		"records", len(res.Rows),
		"duration_ms", stats.DurationMS,
	)

	nq := p.Query
	if req.CanEnrich && req.Query == nil {
		nq = e.enrich(ctx, nq)
	}

	return &Result{
		Query:   nq,
		Details: p.Details,
		SPARQL:  p.SPARQL,
		Vars:    res.Vars,
		Rows:    res.Rows,
		Stats:   stats,
	}, nil
}

// enrich fills in missing metadata and re-submits the query to the
// registry. Failures leave the query as it was.
func (e *Engine) enrich(ctx context.Context, nq model.NamedQuery) model.NamedQuery {
	if e.opts.Enricher == nil || (nq.Title != "" && nq.Description != "") {
		return nq
	}
	enriched, err := e.opts.Enricher.Enrich(ctx, nq)
	if err != nil {
		e.opts.Logger.Warn("enrichment failed", "query_id", nq.QueryID(), "error", err)
		return nq
	}
	enriched.QueryName = nq.QueryName
	if err := e.opts.Registry.Add(ctx, enriched); err != nil {
		e.opts.Logger.Warn("enriched query not stored", "query_id", nq.QueryID(), "error", err)
		return nq
	}
	return enriched
}
