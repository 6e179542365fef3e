// Package importer ingests named queries from producers into the registry.
//
// A Producer yields NamedQuery records. The Pipeline resolves records that
// carry only a short URL, drops duplicates, and either upserts the batch
// into the registry (Store) or writes it as a NamedQuerySet (Export). A bad
// record is logged, reported in Report.Skipped and never aborts the batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/nqm/internal/model"
)

// Producer is a source of named queries. Extract yields at most limit
// records when limit > 0. A yielded error concerns a single record.
type Producer interface {
	Name() string
	Extract(ctx context.Context, limit int) iter.Seq2[model.NamedQuery, error]
}

// Registry is the part of the registry an import writes to.
type Registry interface {
	AddAll(ctx context.Context, queries []model.NamedQuery) error
	UniqueSets(ctx context.Context, domain, namespace string) (urls, names map[string]struct{}, err error)
}

// Resolver fetches the SPARQL behind a short URL.
type Resolver interface {
	Resolve(ctx context.Context, shortURL string) (string, error)
}

// Skipped is a record left out of an import.
type Skipped struct {
	Name   string
	URL    string
	Reason string
	Err    error
}

// Report summarizes an import.
type Report struct {
	Producer   string
	Extracted  int
	Resolved   int
	Duplicates int
	Stored     int
	Skipped    []Skipped
}

// Progress is called once per extracted record.
type Progress func(done int, nq model.NamedQuery)

// DefaultBatchSize bounds one AddAll transaction.
const DefaultBatchSize = 500

// Pipeline drives one producer.
type Pipeline struct {
	Producer Producer
	// Resolver is required only for records without SPARQL.
	Resolver Resolver
	Registry Registry
	Logger   *slog.Logger
	Progress Progress

	// SkipExisting drops records whose URL or name is already stored
	// under the same domain and namespace.
	SkipExisting bool
	BatchSize    int
	// TargetGraph names the graph an exported set is meant for.
	TargetGraph string
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Collect extracts, resolves and deduplicates up to limit records.
func (p *Pipeline) Collect(ctx context.Context, limit int) ([]model.NamedQuery, Report, error) {
	if p.Producer == nil {
		return nil, Report{}, errors.New("import: no producer")
	}
	report := Report{Producer: p.Producer.Name()}
	log := p.logger().With("producer", report.Producer)

	var (
		out      []model.NamedQuery
		position = map[string]int{}
		existing = map[[2]string]*known{}
	)

	skip := func(nq model.NamedQuery, reason string, err error) {
		report.Skipped = append(report.Skipped, Skipped{Name: nq.Name, URL: nq.URL, Reason: reason, Err: err})
		log.Warn("import item skipped", "name", nq.Name, "url", nq.URL, "reason", reason, "error", err)
	}

	for nq, err := range p.Producer.Extract(ctx, limit) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, report, ctxErr
		}
		report.Extracted++
		if p.Progress != nil {
			p.Progress(report.Extracted, nq)
		}
		if err != nil {
			skip(nq, "extract failed", err)
			continue
		}

		if nq.SPARQL == "" {
			if nq.URL == "" {
				skip(nq, "neither sparql nor url", nil)
				continue
			}
			if p.Resolver == nil {
				skip(nq, "no resolver for short url", nil)
				continue
			}
			sparql, err := p.Resolver.Resolve(ctx, nq.URL)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return out, report, ctxErr
				}
				skip(nq, "short url not resolved", err)
				continue
			}
			nq.SPARQL = sparql
			report.Resolved++
		}

		if nq.Name == "" {
			skip(nq, "missing name", nil)
			continue
		}
		nq = nq.Normalize()

		if p.SkipExisting && p.Registry != nil {
			k, err := p.known(ctx, existing, nq)
			if err != nil {
				return out, report, err
			}
			if k.has(nq) {
				report.Duplicates++
				continue
			}
		}

		// Later records replace earlier ones with the same identifier.
		if i, ok := position[nq.QueryID()]; ok {
			out[i] = nq
			report.Duplicates++
			continue
		}
		position[nq.QueryID()] = len(out)
		out = append(out, nq)
	}
	if err := ctx.Err(); err != nil {
		return out, report, err
	}
	return out, report, nil
}

type known struct {
	urls, names map[string]struct{}
}

func (k *known) has(nq model.NamedQuery) bool {
	if _, ok := k.names[nq.Name]; ok {
		return true
	}
	if nq.URL != "" {
		if _, ok := k.urls[nq.URL]; ok {
			return true
		}
	}
	return false
}

func (p *Pipeline) known(ctx context.Context, cache map[[2]string]*known, nq model.NamedQuery) (*known, error) {
	key := [2]string{nq.Domain, nq.Namespace}
	if k, ok := cache[key]; ok {
		return k, nil
	}
	urls, names, err := p.Registry.UniqueSets(ctx, nq.Domain, nq.Namespace)
	if err != nil {
		return nil, fmt.Errorf("import: existing queries of %s/%s: %w", nq.Domain, nq.Namespace, err)
	}
	k := &known{urls: urls, names: names}
	cache[key] = k
	return k, nil
}

// Store collects records and upserts them in batches.
func (p *Pipeline) Store(ctx context.Context, limit int) (Report, error) {
	if p.Registry == nil {
		return Report{}, errors.New("import: no registry")
	}
	queries, report, err := p.Collect(ctx, limit)
	if err != nil {
		return report, err
	}

	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(queries); start += size {
		end := min(start+size, len(queries))
		if err := p.Registry.AddAll(ctx, queries[start:end]); err != nil {
			return report, fmt.Errorf("import: store batch %d-%d: %w", start, end, err)
		}
		report.Stored += end - start
	}

	p.logger().Info("import stored",
		"producer", report.Producer,
		"extracted", report.Extracted,
		"stored", report.Stored,
		"duplicates", report.Duplicates,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// Set collects records into a NamedQuerySet. Records keep their own domain
// and namespace; the set header takes those of the first record unless
// domain or namespace are given.
func (p *Pipeline) Set(ctx context.Context, limit int, domain, namespace, targetGraph string) (*model.NamedQuerySet, Report, error) {
	queries, report, err := p.Collect(ctx, limit)
	if err != nil {
		return nil, report, err
	}
	if len(queries) > 0 {
		if domain == "" {
			domain = queries[0].Domain
		}
		if namespace == "" {
			namespace = queries[0].Namespace
		}
	}
	set := model.NewNamedQuerySet(domain, namespace, targetGraph)
	set.Queries = append(set.Queries, queries...)
	return set, report, nil
}

// Export collects records and writes them as a NamedQuerySet tagged with
// TargetGraph.
func (p *Pipeline) Export(ctx context.Context, limit int, path string, format model.SetFormat) (Report, error) {
	set, report, err := p.Set(ctx, limit, "", "", p.TargetGraph)
	if err != nil {
		return report, err
	}
	if err := model.SaveSet(set, path, format); err != nil {
		return report, fmt.Errorf("import: export: %w", err)
	}
	return report, nil
}
