package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one result row: projected variable name to value. Unbound
// variables map to "".
type Row map[string]string

// Results is a parsed SPARQL JSON results document.
type Results struct {
	Vars []string
	Rows []Row
}

// askVar is the column an ASK result is reported under.
const askVar = "boolean"

type resultsDoc struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results *struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// ParseBindings flattens an application/sparql-results+json document into
// rows keyed by head.vars. An ASK result yields one row {"boolean": "true"}
// or {"boolean": "false"}.
func ParseBindings(data []byte) (Results, error) {
	var doc resultsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Results{}, fmt.Errorf("invalid sparql results: %w", err)
	}

	if doc.Boolean != nil {
		return Results{
			Vars: []string{askVar},
			Rows: []Row{{askVar: strconv.FormatBool(*doc.Boolean)}},
		}, nil
	}
	if doc.Results == nil {
		return Results{}, fmt.Errorf("invalid sparql results: neither results nor boolean present")
	}

	vars := doc.Head.Vars
	if vars == nil {
		vars = []string{}
	}
	rows := make([]Row, 0, len(doc.Results.Bindings))
	for _, b := range doc.Results.Bindings {
		row := make(Row, len(vars))
		for _, v := range vars {
			row[v] = b[v].Value
		}
		rows = append(rows, row)
	}
	return Results{Vars: vars, Rows: rows}, nil
}
