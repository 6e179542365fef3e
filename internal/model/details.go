package model

// QueryDetails are facts derived from a query's SPARQL text. They are
// recomputed on demand and never stored.
type QueryDetails struct {
	QueryID       string            `json:"query_id"`
	Params        []string          `json:"params"`
	ParamTypes    map[string]string `json:"param_types,omitempty"`
	HasWithClause bool              `json:"has_with_clause"`
	Declared      map[string]string `json:"declared_prefixes"`
	Used          []string          `json:"used_prefixes"`
	Missing       []string          `json:"missing_prefixes"`
}

// HasParams reports whether the query has placeholders to bind.
func (d QueryDetails) HasParams() bool {
	return len(d.Params) > 0
}
