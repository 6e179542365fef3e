package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/nqm/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// outcomeColumns is the column form of a model.Outcome. Success sets only
// records; Failure sets only the three message columns.
type outcomeColumns struct {
	records  sql.NullInt64
	raw      sql.NullString
	filtered sql.NullString
	category sql.NullString
}

func statsColumns(st model.QueryStats) outcomeColumns {
	var c outcomeColumns
	switch o := st.Outcome.(type) {
	case model.Success:
		c.records = sql.NullInt64{Int64: int64(o.Records), Valid: true}
	case model.Failure:
		c.raw = sql.NullString{String: o.Raw, Valid: true}
		c.filtered = sql.NullString{String: o.Filtered, Valid: true}
		c.category = sql.NullString{String: string(o.Category), Valid: true}
	}
	return c
}

func (c outcomeColumns) outcome() model.Outcome {
	if c.records.Valid {
		return model.Success{Records: int(c.records.Int64)}
	}
	return model.Failure{
		Category: model.ErrorCategory(c.category.String),
		Raw:      c.raw.String,
		Filtered: c.filtered.String,
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const namedQueryColumns = `domain, namespace, name, title, description, url, sparql, comment`

func scanNamedQuery(row scanner) (model.NamedQuery, error) {
	var nq model.NamedQuery
	err := row.Scan(
		&nq.Domain,
		&nq.Namespace,
		&nq.Name,
		&nq.Title,
		&nq.Description,
		&nq.URL,
		&nq.SPARQL,
		&nq.Comment,
	)
	if err != nil {
		return model.NamedQuery{}, err
	}
	return nq, nil
}

const statsSelectColumns = `stats_id, query_id, endpoint_name, context, records, duration_ms,
	raw_error_msg, filtered_msg, error_category, timestamp`

func scanStats(row scanner) (model.QueryStats, error) {
	var (
		st   model.QueryStats
		cols outcomeColumns
		ts   string
	)
	err := row.Scan(
		&st.StatsID,
		&st.QueryID,
		&st.EndpointName,
		&st.Context,
		&cols.records,
		&st.DurationMS,
		&cols.raw,
		&cols.filtered,
		&cols.category,
		&ts,
	)
	if err != nil {
		return model.QueryStats{}, fmt.Errorf("scan stats: %w", err)
	}
	st.Timestamp, err = parseTime(ts)
	if err != nil {
		return model.QueryStats{}, err
	}
	st.Outcome = cols.outcome()
	return st, nil
}
