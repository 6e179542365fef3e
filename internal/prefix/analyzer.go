package prefix

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/nqm/internal/params"
)

var placeholderAt = regexp.MustCompile(`^\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\}`)

// Analysis is the prefix usage of a query.
type Analysis struct {
	// Declared maps each PREFIX label to its IRI. A label declared twice keeps
	// the last binding.
	Declared map[string]string
	// Used is the set of labels referenced by prefixed names outside the
	// PREFIX declarations.
	Used map[string]struct{}
}

// Missing returns used labels with no declaration, sorted.
func (a Analysis) Missing() []string {
	var missing []string
	for label := range a.Used {
		if _, ok := a.Declared[label]; !ok {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)
	return missing
}

// UsedList returns the used labels sorted.
func (a Analysis) UsedList() []string {
	used := make([]string, 0, len(a.Used))
	for label := range a.Used {
		used = append(used, label)
	}
	sort.Strings(used)
	return used
}

func analyze(query string) (Analysis, error) {
	a := Analysis{Declared: map[string]string{}, Used: map[string]struct{}{}}
	tokens, err := lex(query)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.is(tokWord, "PREFIX") && i+2 < len(tokens) &&
			tokens[i+1].kind == tokPName && tokens[i+1].local == "" &&
			tokens[i+2].kind == tokIRI {
			a.Declared[tokens[i+1].prefix] = strings.Trim(tokens[i+2].text, "<>")
			i += 2
			continue
		}
		if t.kind == tokPName {
			a.Used[t.prefix] = struct{}{}
		}
	}
	return a, err
}

// ExtractUsedPrefixes returns the declared prefix map and the set of used
// labels. On lexing failure the analysis of the readable part is returned
// and a warning is logged.
func ExtractUsedPrefixes(query string) (map[string]string, map[string]struct{}) {
	a, err := analyze(query)
	if err != nil {
		slog.Warn("prefix analysis incomplete", "error", err)
	}
	return a.Declared, a.Used
}

// Analyze is ExtractUsedPrefixes returning the Analysis value.
func Analyze(query string) Analysis {
	declared, used := ExtractUsedPrefixes(query)
	return Analysis{Declared: declared, Used: used}
}

// MissingPrefixes lists used but undeclared labels that KnownPrefixes can
// supply.
func MissingPrefixes(query string) []string {
	a, _ := analyze(query)
	var known []string
	for _, label := range a.Missing() {
		if _, ok := KnownPrefixes[label]; ok {
			known = append(known, label)
		}
	}
	return known
}

// AddMissingPrefixes prepends declarations for used but undeclared labels
// found in KnownPrefixes. Labels outside the table are left undeclared. An
// unreadable query is returned unchanged.
func AddMissingPrefixes(query string) string {
	probe := FillWithSampleParameters(query)
	a, err := analyze(probe)
	if err != nil {
		slog.Warn("query not parseable, prefixes left unchanged", "error", err)
		return query
	}
	var add []string
	for _, label := range a.Missing() {
		if _, ok := KnownPrefixes[label]; ok {
			add = append(add, label)
		}
	}
	if len(add) == 0 {
		return query
	}
	return Block(add) + query
}

// HasParameter reports whether the query contains {{ name }} placeholders.
func HasParameter(query string) bool {
	return params.HasParameter(query)
}

// QueryParameters returns the distinct placeholder names.
func QueryParameters(query string) []string {
	return params.Schema(query)
}
