package params

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Type is the declared type of a placeholder.
type Type string

const (
	TypeString           Type = "string"
	TypeInt              Type = "int"
	TypeWikidataItem     Type = "WikidataItem"
	TypeWikidataProperty Type = "WikidataProperty"
	TypeIRI              Type = "IRI"
)

// declRe matches a type declaration comment: "# param q: WikidataItem".
var declRe = regexp.MustCompile(`(?m)^\s*#\s*param\s+([A-Za-z_][A-Za-z0-9_]*)\s*:\s*([A-Za-z]+)\s*$`)

var (
	intRe  = regexp.MustCompile(`^-?[0-9]+$`)
	qidRe  = regexp.MustCompile(`^(wd:)?Q[0-9]+$`)
	pidRe  = regexp.MustCompile(`^(wdt:|p:|ps:|pq:)?P[0-9]+$`)
	iriRef = regexp.MustCompile(`^<[^<>"{}|^\x60\\\s]*>$`)
)

// ParseType maps a declaration to a Type. Unknown names are strings.
func ParseType(s string) Type {
	switch strings.ToLower(s) {
	case "int", "integer":
		return TypeInt
	case "wikidataitem", "qid", "item":
		return TypeWikidataItem
	case "wikidataproperty", "pid", "property":
		return TypeWikidataProperty
	case "iri", "uri":
		return TypeIRI
	}
	return TypeString
}

// Declared returns the declared type of every placeholder in the query.
// Placeholders without a declaration are TypeString.
func Declared(query string) map[string]Type {
	types := map[string]Type{}
	for _, name := range Schema(query) {
		types[name] = TypeString
	}
	for _, m := range declRe.FindAllStringSubmatch(query, -1) {
		if _, ok := types[m[1]]; ok {
			types[m[1]] = ParseType(m[2])
		}
	}
	return types
}

// Check validates a value against its type. Strings are never rejected.
func (t Type) Check(value string) error {
	ok := true
	switch t {
	case TypeInt:
		ok = intRe.MatchString(value)
	case TypeWikidataItem:
		ok = qidRe.MatchString(value)
	case TypeWikidataProperty:
		ok = pidRe.MatchString(value)
	case TypeIRI:
		ok = iriRef.MatchString(value) || isAbsoluteURL(value)
	}
	if !ok {
		return fmt.Errorf("%w: %q is not a %s", ErrInvalidValue, value, t)
	}
	return nil
}

// Validate checks every bound value against the declared types.
func Validate(query string, values map[string]string) error {
	for name, typ := range Declared(query) {
		v, ok := values[name]
		if !ok {
			continue
		}
		if err := typ.Check(v); err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
	}
	return nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != "" && !strings.ContainsAny(s, " <>\"")
}
