package prefix

import (
	"strings"

	"github.com/roach88/nqm/internal/params"
)

var queryForms = map[string]bool{
	"SELECT": true, "ASK": true, "CONSTRUCT": true, "DESCRIBE": true,
}

var updateForms = map[string]bool{
	"INSERT": true, "DELETE": true, "LOAD": true, "CLEAR": true, "DROP": true,
	"CREATE": true, "ADD": true, "MOVE": true, "COPY": true, "WITH": true,
}

// IsValid is a best-effort syntax check after prefix injection: the text
// must lex, start with a prologue and a query or update form, balance its
// brackets, contain no placeholders or Blazegraph named subqueries and
// declare every prefix it uses.
func IsValid(query string) bool {
	return Check(query) == ""
}

// Check returns the reason a query is rejected by IsValid, or "".
func Check(query string) string {
	if params.HasParameter(query) {
		return "unbound placeholder"
	}
	q := AddMissingPrefixes(query)
	tokens, err := lex(q)
	if err != nil {
		return err.Error()
	}

	i := 0
prologue:
	for i < len(tokens) {
		switch {
		case tokens[i].is(tokWord, "PREFIX"):
			if i+2 >= len(tokens) || tokens[i+1].kind != tokPName || tokens[i+1].local != "" || tokens[i+2].kind != tokIRI {
				return "malformed PREFIX declaration"
			}
			i += 3
			continue
		case tokens[i].is(tokWord, "BASE"):
			if i+1 >= len(tokens) || tokens[i+1].kind != tokIRI {
				return "malformed BASE declaration"
			}
			i += 2
			continue
		}
		break prologue
	}
	if i >= len(tokens) {
		return "no query form"
	}
	form := strings.ToUpper(tokens[i].text)
	if tokens[i].kind != tokWord || (!queryForms[form] && !updateForms[form]) {
		return "unknown query form " + tokens[i].text
	}
	if form == "WITH" && (i+1 >= len(tokens) || tokens[i+1].kind != tokIRI) {
		return "named subquery WITH block"
	}

	var stack []string
	pairs := map[string]string{"}": "{", ")": "(", "]": "["}
	hasGroup := false
	for _, t := range tokens[i:] {
		switch t.kind {
		case tokParam:
			return "unbound placeholder " + t.text
		case tokSubqueryRef:
			return "named subquery reference " + t.text
		case tokPunct:
			switch t.text {
			case "{", "(", "[":
				if t.text == "{" {
					hasGroup = true
				}
				stack = append(stack, t.text)
			case "}", ")", "]":
				if len(stack) == 0 || stack[len(stack)-1] != pairs[t.text] {
					return "unbalanced " + t.text
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) > 0 {
		return "unclosed " + stack[len(stack)-1]
	}
	if queryForms[form] && form != "DESCRIBE" && !hasGroup {
		return "missing group graph pattern"
	}

	a, _ := analyze(q)
	if missing := a.Missing(); len(missing) > 0 {
		return "undeclared prefix " + missing[0]
	}
	return ""
}
