package store

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/nqm/internal/model"
)

// searchPageSize bounds how many rows a Search holds per round trip. Rows are
// not kept open while the caller consumes results, so the caller may use the
// store inside the loop.
const searchPageSize = 100

// Lookup returns the query registered under qn.
//
// The match is on the (domain, namespace, name) triple rather than the
// primary key, so a corrupted table holding the same triple under two keys
// surfaces as ErrAmbiguous.
func (s *Store) Lookup(ctx context.Context, qn model.QueryName) (model.NamedQuery, error) {
	qn = model.NewQueryName(qn.Name, qn.Namespace, qn.Domain)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+namedQueryColumns+`
		FROM NamedQuery
		WHERE domain = ? AND namespace = ? AND name = ?
		LIMIT 2
	`, qn.Domain, qn.Namespace, qn.Name)
	if err != nil {
		return model.NamedQuery{}, fmt.Errorf("lookup %s: %w", qn, err)
	}
	defer rows.Close()

	var found []model.NamedQuery
	for rows.Next() {
		nq, err := scanNamedQuery(rows)
		if err != nil {
			return model.NamedQuery{}, fmt.Errorf("lookup %s: %w", qn, err)
		}
		found = append(found, nq)
	}
	if err := rows.Err(); err != nil {
		return model.NamedQuery{}, fmt.Errorf("lookup %s: %w", qn, err)
	}

	switch len(found) {
	case 0:
		return model.NamedQuery{}, fmt.Errorf("lookup %s: %w", qn, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return model.NamedQuery{}, fmt.Errorf("lookup %s: %w", qn, ErrAmbiguous)
	}
}

// LookupID is Lookup on the canonical string form.
func (s *Store) LookupID(ctx context.Context, queryID string) (model.NamedQuery, error) {
	qn, err := model.ParseQueryName(queryID)
	if err != nil {
		return model.NamedQuery{}, fmt.Errorf("lookup %q: %w", queryID, err)
	}
	return s.Lookup(ctx, qn)
}

// Filter selects queries by component prefix. A trailing % is the wildcard
// and is implied; an empty prefix matches everything. Limit <= 0 means no
// limit.
type Filter struct {
	Domain    string
	Namespace string
	Name      string
	Limit     int
}

// Search returns a lazy sequence of matches, exact matches first, then
// ordered by (domain, namespace, name). Iteration stops at the first error.
func (s *Store) Search(ctx context.Context, f Filter) iter.Seq2[model.NamedQuery, error] {
	return func(yield func(model.NamedQuery, error) bool) {
		emitted := 0
		for offset := 0; ; offset += searchPageSize {
			pageSize := searchPageSize
			if f.Limit > 0 && f.Limit-emitted < pageSize {
				pageSize = f.Limit - emitted
			}
			if pageSize <= 0 {
				return
			}
			page, err := s.searchPage(ctx, f, offset, pageSize)
			if err != nil {
				yield(model.NamedQuery{}, err)
				return
			}
			for _, nq := range page {
				if !yield(nq, nil) {
					return
				}
				emitted++
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}

// SearchAll collects Search into a slice.
func (s *Store) SearchAll(ctx context.Context, f Filter) ([]model.NamedQuery, error) {
	out := []model.NamedQuery{}
	for nq, err := range s.Search(ctx, f) {
		if err != nil {
			return nil, err
		}
		out = append(out, nq)
	}
	return out, nil
}

func (s *Store) searchPage(ctx context.Context, f Filter, offset, limit int) ([]model.NamedQuery, error) {
	d, dExact := likePattern(f.Domain)
	ns, nsExact := likePattern(f.Namespace)
	n, nExact := likePattern(f.Name)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+namedQueryColumns+`
		FROM NamedQuery
		WHERE domain LIKE ? ESCAPE '\'
		  AND namespace LIKE ? ESCAPE '\'
		  AND name LIKE ? ESCAPE '\'
		ORDER BY
			(name = ?) DESC,
			(namespace = ?) DESC,
			(domain = ?) DESC,
			domain COLLATE BINARY ASC,
			namespace COLLATE BINARY ASC,
			name COLLATE BINARY ASC
		LIMIT ? OFFSET ?
	`, d, ns, n, nExact, nsExact, dExact, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search queries: %w", err)
	}
	defer rows.Close()

	var out []model.NamedQuery
	for rows.Next() {
		nq, err := scanNamedQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("search queries: %w", err)
		}
		out = append(out, nq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return out, nil
}

// likePattern turns a prefix into a LIKE pattern and the literal it must
// equal for an exact match. Only a trailing % acts as a wildcard; _ and
// interior % match themselves.
func likePattern(prefix string) (pattern, exact string) {
	exact = strings.TrimSuffix(prefix, "%")
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(exact) + "%", exact
}

// Stats returns the recorded executions of a query, oldest first.
func (s *Store) Stats(ctx context.Context, queryID string) ([]model.QueryStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statsSelectColumns+`
		FROM QueryStats
		WHERE query_id = ?
		ORDER BY timestamp ASC, stats_id COLLATE BINARY ASC
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	out := []model.QueryStats{}
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}

// UniqueSets returns the origin URLs and names already registered under
// (domain, namespace), for import deduplication.
func (s *Store) UniqueSets(ctx context.Context, domain, namespace string) (urls, names map[string]struct{}, err error) {
	qn := model.NewQueryName("_", namespace, domain)
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, name FROM NamedQuery
		WHERE domain = ? AND namespace = ?
	`, qn.Domain, qn.Namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("unique sets: %w", err)
	}
	defer rows.Close()

	urls = make(map[string]struct{})
	names = make(map[string]struct{})
	for rows.Next() {
		var u, n string
		if err := rows.Scan(&u, &n); err != nil {
			return nil, nil, fmt.Errorf("unique sets: %w", err)
		}
		if u != "" {
			urls[u] = struct{}{}
		}
		names[n] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("unique sets: %w", err)
	}
	return urls, names, nil
}

// Count returns the number of registered queries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM NamedQuery`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queries: %w", err)
	}
	return n, nil
}
