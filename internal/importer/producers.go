package importer

import (
	"context"
	"iter"
	"strings"

	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/shorturl"
)

// ShortURLProducer yields one unresolved record per short URL; the
// Pipeline fetches the SPARQL.
type ShortURLProducer struct {
	URLs      []string
	Domain    string
	Namespace string
}

// Name implements Producer.
func (p *ShortURLProducer) Name() string { return "shorturl" }

// Extract implements Producer.
func (p *ShortURLProducer) Extract(ctx context.Context, limit int) iter.Seq2[model.NamedQuery, error] {
	return func(yield func(model.NamedQuery, error) bool) {
		for i, u := range p.URLs {
			if limit > 0 && i >= limit {
				return
			}
			if ctx.Err() != nil {
				return
			}
			u = strings.TrimSpace(u)
			nq := model.NamedQuery{
				QueryName: model.NewQueryName(shorturl.Name(u), p.Namespace, p.Domain),
				URL:       u,
			}
			if !yield(nq, nil) {
				return
			}
		}
	}
}

// SetProducer yields the queries of a NamedQuerySet. Queries without a
// domain or namespace take the set's.
type SetProducer struct {
	Set *model.NamedQuerySet
	// Label names the producer in reports; defaults to "set".
	Label string
}

// NewFileProducer loads a set from path.
func NewFileProducer(path string, format model.SetFormat) (*SetProducer, error) {
	set, err := model.LoadSet(path, format)
	if err != nil {
		return nil, err
	}
	return &SetProducer{Set: set, Label: path}, nil
}

// Name implements Producer.
func (p *SetProducer) Name() string {
	if p.Label == "" {
		return "set"
	}
	return p.Label
}

// Extract implements Producer.
func (p *SetProducer) Extract(ctx context.Context, limit int) iter.Seq2[model.NamedQuery, error] {
	return func(yield func(model.NamedQuery, error) bool) {
		if p.Set == nil {
			return
		}
		for i, nq := range p.Set.Queries {
			if limit > 0 && i >= limit {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if nq.Domain == "" {
				nq.Domain = p.Set.Domain
			}
			if nq.Namespace == "" {
				nq.Namespace = p.Set.Namespace
			}
			if !yield(nq, nil) {
				return
			}
		}
	}
}
