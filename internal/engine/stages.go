package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/params"
	"github.com/roach88/nqm/internal/prefix"
)

// Merger is the prefix merge policy.
type Merger string

const (
	// MergerRaw uses the query as is.
	MergerRaw Merger = "RAW"
	// MergerSimple prepends the endpoint's default prefix block.
	MergerSimple Merger = "SIMPLE_MERGER"
	// MergerAnalysis injects only the missing prefixes known to the analyzer.
	MergerAnalysis Merger = "ANALYSIS_MERGER"

	DefaultMerger = MergerSimple
)

// ParseMerger resolves a policy name case-insensitively. Unknown names
// resolve to DefaultMerger.
func ParseMerger(s string) Merger {
	switch Merger(strings.ToUpper(strings.TrimSpace(s))) {
	case MergerRaw, "NONE":
		return MergerRaw
	case MergerAnalysis, "ANALYSIS":
		return MergerAnalysis
	default:
		return DefaultMerger
	}
}

// Details computes the derived facts of a named query.
func Details(nq model.NamedQuery) model.QueryDetails {
	a := prefix.Analyze(prefix.FillWithSampleParameters(nq.SPARQL))
	d := model.QueryDetails{
		Params:        params.Schema(nq.SPARQL),
		HasWithClause: prefix.HasWithClause(nq.SPARQL),
		Declared:      a.Declared,
		Used:          a.UsedList(),
		Missing:       a.Missing(),
	}
	if !nq.QueryName.IsZero() {
		d.QueryID = nq.QueryID()
	}
	if len(d.Params) > 0 {
		d.ParamTypes = map[string]string{}
		for name, typ := range params.Declared(nq.SPARQL) {
			d.ParamTypes[name] = string(typ)
		}
	}
	return d
}

// Render validates values against the declared parameter types and binds
// them. With strict set, values that match no placeholder are rejected.
func Render(query string, values map[string]string, strict bool) (string, error) {
	if err := params.Validate(query, values); err != nil {
		return "", err
	}
	if strict {
		return params.BindStrict(query, values)
	}
	return params.Bind(query, values)
}

// Merge applies a prefix merge policy for an endpoint.
func Merge(policy Merger, ep endpoint.Endpoint, query string) string {
	switch policy {
	case MergerRaw:
		return query
	case MergerAnalysis:
		return prefix.AddMissingPrefixes(query)
	default:
		return simpleMerge(ep.Prefixes, query)
	}
}

// simpleMerge prepends the endpoint prefix block, leaving out declarations of
// labels the query already declares itself.
func simpleMerge(block, query string) string {
	if strings.TrimSpace(block) == "" {
		return query
	}
	declared, _ := prefix.ExtractUsedPrefixes(prefix.FillWithSampleParameters(query))
	var keep []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineDecl, _ := prefix.ExtractUsedPrefixes(line)
		redundant := len(lineDecl) > 0
		for label := range lineDecl {
			if _, ok := declared[label]; !ok {
				redundant = false
			}
		}
		if !redundant {
			keep = append(keep, line)
		}
	}
	if len(keep) == 0 {
		return query
	}
	return strings.Join(keep, "\n") + "\n" + query
}

// Portable rewrites named subqueries for endpoints without the Blazegraph
// WITH extension.
func Portable(ep endpoint.Endpoint, query string) string {
	if ep.BlazegraphCompatible() || !prefix.HasWithClause(query) {
		return query
	}
	return prefix.TransformWithClauseToSubquery(query)
}

var trailingLimit = regexp.MustCompile(`(?i)\bLIMIT\s+\d+(\s+OFFSET\s+\d+)?\s*$`)

// Limit caps the result size: a trailing LIMIT clause is replaced, otherwise
// one is appended. Trailing comments are dropped first. n <= 0 leaves the
// query unchanged.
func Limit(query string, n int) string {
	if n <= 0 {
		return query
	}
	query = prefix.TrimTrailingComments(query)
	clause := "LIMIT " + strconv.Itoa(n)
	if loc := trailingLimit.FindStringSubmatchIndex(query); loc != nil {
		offset := ""
		if loc[2] >= 0 {
			offset = query[loc[2]:loc[3]]
		}
		return query[:loc[0]] + clause + offset
	}
	return fmt.Sprintf("%s\n%s", query, clause)
}
