package model

import (
	"encoding/json"
	"strings"
)

// NamedQuery is a registry entry: a SPARQL text under a QueryName.
//
// The SPARQL may contain {{ name }} placeholders and Blazegraph named
// subqueries (WITH { ... } AS %x ... INCLUDE %x).
type NamedQuery struct {
	QueryName   `yaml:",inline"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	SPARQL      string `json:"sparql,omitempty" yaml:"sparql,omitempty"`
	Comment     string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Normalize fills default domain and namespace, normalizes the name
// components and collapses the title to a single line.
func (nq NamedQuery) Normalize() NamedQuery {
	nq.QueryName = NewQueryName(nq.Name, nq.Namespace, nq.Domain)
	nq.Title = strings.Join(strings.Fields(nq.Title), " ")
	return nq
}

// namedQueryJSON adds the derived query_id to the JSON form.
type namedQueryJSON struct {
	QueryID string `json:"query_id,omitempty"`
	QueryName
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	SPARQL      string `json:"sparql,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// MarshalJSON emits the entry including its derived query_id.
func (nq NamedQuery) MarshalJSON() ([]byte, error) {
	out := namedQueryJSON{
		QueryName:   nq.QueryName,
		Title:       nq.Title,
		Description: nq.Description,
		URL:         nq.URL,
		SPARQL:      nq.SPARQL,
		Comment:     nq.Comment,
	}
	if !nq.QueryName.IsZero() {
		out.QueryID = nq.QueryID()
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the form written by MarshalJSON. A query_id field is
// ignored; it is always derived from the name components.
func (nq *NamedQuery) UnmarshalJSON(data []byte) error {
	var in namedQueryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*nq = NamedQuery{
		QueryName:   in.QueryName,
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		SPARQL:      in.SPARQL,
		Comment:     in.Comment,
	}
	return nil
}
