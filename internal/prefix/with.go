package prefix

import (
	"fmt"
	"log/slog"
	"strings"
)

// maxWithDepth bounds nested WITH blocks and INCLUDE expansion chains.
const maxWithDepth = 32

type withClause struct {
	name  string
	body  string
	start int
	end   int
}

// HasWithClause reports whether the query uses Blazegraph named subqueries
// (WITH { ... } AS %name).
func HasWithClause(query string) bool {
	tokens, _ := lex(query)
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].is(tokWord, "WITH") && tokens[i+1].is(tokPunct, "{") {
			return true
		}
	}
	return false
}

// TransformWithClauseToSubquery rewrites every WITH { ... } AS %name block
// into a subquery placed where INCLUDE %name appears, so engines without the
// Blazegraph extension accept the query. Nested blocks are rewritten
// innermost first. A query without WITH blocks is returned unchanged, which
// makes the rewrite idempotent.
func TransformWithClauseToSubquery(query string) string {
	out, err := transformWith(query, 0)
	if err != nil {
		slog.Warn("named subquery rewrite failed, query left unchanged", "error", err)
		return query
	}
	return out
}

func transformWith(src string, depth int) (string, error) {
	if depth > maxWithDepth {
		return "", fmt.Errorf("named subqueries nested deeper than %d", maxWithDepth)
	}
	clauses, err := findWithClauses(src)
	if err != nil {
		return "", err
	}
	if len(clauses) == 0 {
		return src, nil
	}

	bodies := map[string]string{}
	var rest strings.Builder
	last := 0
	for _, c := range clauses {
		body, err := transformWith(c.body, depth+1)
		if err != nil {
			return "", err
		}
		bodies[c.name] = strings.TrimSpace(body)
		rest.WriteString(src[last:c.start])
		last = c.end
	}
	rest.WriteString(src[last:])

	return expandIncludes(rest.String(), bodies, 0)
}

// findWithClauses locates top-level WITH blocks.
func findWithClauses(src string) ([]withClause, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	var clauses []withClause
	depth := 0
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.is(tokPunct, "{"):
			depth++
			continue
		case t.is(tokPunct, "}"):
			depth--
			continue
		}
		if depth != 0 || !t.is(tokWord, "WITH") || i+1 >= len(tokens) || !tokens[i+1].is(tokPunct, "{") {
			continue
		}

		open := i + 1
		closeIdx := matchBrace(tokens, open)
		if closeIdx < 0 {
			return nil, fmt.Errorf("offset %d: unbalanced WITH block", t.start)
		}
		if closeIdx+2 >= len(tokens) || !tokens[closeIdx+1].is(tokWord, "AS") || tokens[closeIdx+2].kind != tokSubqueryRef {
			return nil, fmt.Errorf("offset %d: WITH block without AS %%name", t.start)
		}
		ref := tokens[closeIdx+2]
		clauses = append(clauses, withClause{
			name:  ref.text[1:],
			body:  src[tokens[open].end:tokens[closeIdx].start],
			start: t.start,
			end:   ref.end,
		})
		i = closeIdx + 2
	}
	return clauses, nil
}

func matchBrace(tokens []token, open int) int {
	depth := 0
	for j := open; j < len(tokens); j++ {
		switch {
		case tokens[j].is(tokPunct, "{"):
			depth++
		case tokens[j].is(tokPunct, "}"):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// expandIncludes replaces INCLUDE %name with { body } for every known name.
// Bodies may include other bodies.
func expandIncludes(src string, bodies map[string]string, depth int) (string, error) {
	if depth > maxWithDepth {
		return "", fmt.Errorf("INCLUDE chain longer than %d (cyclic named subqueries?)", maxWithDepth)
	}
	tokens, err := lex(src)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	last := 0
	for i := 0; i+1 < len(tokens); i++ {
		if !tokens[i].is(tokWord, "INCLUDE") || tokens[i+1].kind != tokSubqueryRef {
			continue
		}
		body, ok := bodies[tokens[i+1].text[1:]]
		if !ok {
			continue
		}
		expanded, err := expandIncludes(body, bodies, depth+1)
		if err != nil {
			return "", err
		}
		out.WriteString(src[last:tokens[i].start])
		out.WriteString("{\n")
		out.WriteString(expanded)
		out.WriteString("\n}")
		last = tokens[i+1].end
		i++
	}
	out.WriteString(src[last:])
	return out.String(), nil
}
