// Package params detects {{ name }} placeholders in stored SPARQL and renders
// queries with caller-supplied bindings.
//
// Values are substituted literally. Parameters range over IRIs, literals and
// expressions, so no quoting or escaping is applied; callers pass values
// that are already valid SPARQL terms.
package params

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrMissingParameter is returned when a placeholder has no binding.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrUnknownParameter is returned by BindStrict for bindings that match
	// no placeholder.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidValue is returned when a value does not match the declared type.
	ErrInvalidValue = errors.New("invalid parameter value")
)

// placeholderRe matches {{ name }} with optional surrounding whitespace.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// BindingError reports placeholder/binding mismatches.
type BindingError struct {
	Kind  error
	Names []string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(e.Names, ", "))
}

func (e *BindingError) Unwrap() error {
	return e.Kind
}

// HasParameter reports whether the query contains any placeholder.
func HasParameter(query string) bool {
	return placeholderRe.MatchString(query)
}

// Schema returns the distinct placeholder names in sorted order.
func Schema(query string) []string {
	seen := map[string]struct{}{}
	for _, m := range placeholderRe.FindAllStringSubmatch(query, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Bind renders the query with the given values. Extra bindings are ignored.
// A query without placeholders is returned unchanged.
func Bind(query string, values map[string]string) (string, error) {
	var missing []string
	for _, name := range Schema(query) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &BindingError{Kind: ErrMissingParameter, Names: missing}
	}
	return substitute(query, values), nil
}

// BindStrict is Bind but also rejects bindings that match no placeholder.
func BindStrict(query string, values map[string]string) (string, error) {
	known := map[string]struct{}{}
	for _, n := range Schema(query) {
		known[n] = struct{}{}
	}
	var extra []string
	for name := range values {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return "", &BindingError{Kind: ErrUnknownParameter, Names: extra}
	}
	return Bind(query, values)
}

// Fill substitutes every placeholder using fn. It never fails.
func Fill(query string, fn func(name string) string) string {
	return placeholderRe.ReplaceAllStringFunc(query, func(m string) string {
		return fn(placeholderRe.FindStringSubmatch(m)[1])
	})
}

func substitute(query string, values map[string]string) string {
	return Fill(query, func(name string) string { return values[name] })
}
