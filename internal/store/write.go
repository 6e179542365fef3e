package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/nqm/internal/model"
)

const upsertQuery = `
	INSERT INTO NamedQuery
	(query_id, domain, namespace, name, title, description, url, sparql, comment)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(query_id) DO UPDATE SET
		domain = excluded.domain,
		namespace = excluded.namespace,
		name = excluded.name,
		title = excluded.title,
		description = excluded.description,
		url = excluded.url,
		sparql = excluded.sparql,
		comment = excluded.comment
`

// Add upserts a named query by query_id. On conflict every non-derived field
// is replaced by the caller's value in a single statement.
func (s *Store) Add(ctx context.Context, nq model.NamedQuery) error {
	nq, err := prepare(nq)
	if err != nil {
		return fmt.Errorf("add query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery, upsertArgs(nq)...); err != nil {
		return fmt.Errorf("add query %s: %w", nq.QueryID(), err)
	}
	return nil
}

// AddAll upserts a batch in one transaction. The batch applies in order, so
// a later entry with the same query_id wins.
func (s *Store) AddAll(ctx context.Context, queries []model.NamedQuery) error {
	prepared := make([]model.NamedQuery, 0, len(queries))
	for _, nq := range queries {
		p, err := prepare(nq)
		if err != nil {
			return fmt.Errorf("add queries: %w", err)
		}
		prepared = append(prepared, p)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add queries: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("add queries: prepare: %w", err)
	}
	defer stmt.Close()

	for _, nq := range prepared {
		if _, err := stmt.ExecContext(ctx, upsertArgs(nq)...); err != nil {
			return fmt.Errorf("add query %s: %w", nq.QueryID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add queries: commit: %w", err)
	}
	return nil
}

func prepare(nq model.NamedQuery) (model.NamedQuery, error) {
	nq = nq.Normalize()
	if nq.Name == "" {
		return nq, errors.New("named query without name")
	}
	return nq, nil
}

func upsertArgs(nq model.NamedQuery) []any {
	return []any{
		nq.QueryID(),
		nq.Domain,
		nq.Namespace,
		nq.Name,
		nq.Title,
		nq.Description,
		nq.URL,
		nq.SPARQL,
		nq.Comment,
	}
}

// StoreStats appends execution statistics. Every stat is validated before the
// batch is written; the batch is persisted in one transaction.
func (s *Store) StoreStats(ctx context.Context, stats []model.QueryStats) error {
	for _, st := range stats {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("store stats: %w", err)
		}
	}
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store stats: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO QueryStats
		(stats_id, query_id, endpoint_name, context, records, duration_ms,
		 raw_error_msg, filtered_msg, error_category, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store stats: prepare: %w", err)
	}
	defer stmt.Close()

	for _, st := range stats {
		cols := statsColumns(st)
		_, err := stmt.ExecContext(ctx,
			st.StatsID,
			st.QueryID,
			st.EndpointName,
			st.Context,
			cols.records,
			st.DurationMS,
			cols.raw,
			cols.filtered,
			cols.category,
			formatTime(st.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("store stats %s: %w", st.StatsID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store stats: commit: %w", err)
	}
	return nil
}
