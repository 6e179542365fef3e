package model

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Default identifier components.
const (
	DefaultDomain    = "wikidata.org"
	DefaultNamespace = "examples"
)

const (
	namespaceSep = "--"
	domainSep    = "@"
)

// QueryName is the triadic identifier of a named query.
type QueryName struct {
	Domain    string `json:"domain" yaml:"domain"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name" yaml:"name"`
}

// NewQueryName builds a QueryName, filling empty domain and namespace with the
// defaults. Components are NFC normalized.
func NewQueryName(name, namespace, domain string) QueryName {
	if domain == "" {
		domain = DefaultDomain
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return QueryName{
		Domain:    norm.NFC.String(domain),
		Namespace: norm.NFC.String(namespace),
		Name:      norm.NFC.String(name),
	}
}

// String returns the canonical URL-safe form name--namespace@domain.
// Components are NFC normalized first, so a literal QueryName and the one
// NewQueryName builds from the same text share an identifier.
func (qn QueryName) String() string {
	return escapeComponent(norm.NFC.String(qn.Name)) + namespaceSep +
		escapeComponent(norm.NFC.String(qn.Namespace)) + domainSep +
		escapeComponent(norm.NFC.String(qn.Domain))
}

// Normalized returns qn with every component NFC normalized.
func (qn QueryName) Normalized() QueryName {
	return QueryName{
		Domain:    norm.NFC.String(qn.Domain),
		Namespace: norm.NFC.String(qn.Namespace),
		Name:      norm.NFC.String(qn.Name),
	}
}

// QueryID returns the registry key, identical to String.
func (qn QueryName) QueryID() string {
	return qn.String()
}

// IsZero reports whether no name is set.
func (qn QueryName) IsZero() bool {
	return qn.Name == ""
}

// ParseQueryName parses name, name--namespace or name--namespace@domain.
// Missing components take the defaults.
func ParseQueryName(s string) (QueryName, error) {
	if s == "" {
		return QueryName{}, fmt.Errorf("parse query name: empty identifier")
	}

	rest := s
	domain := ""
	if i := strings.LastIndex(rest, domainSep); i >= 0 {
		domain = rest[i+len(domainSep):]
		rest = rest[:i]
		if domain == "" {
			return QueryName{}, fmt.Errorf("parse query name %q: empty domain", s)
		}
	}

	namespace := ""
	name := rest
	if i := strings.Index(rest, namespaceSep); i >= 0 {
		name = rest[:i]
		namespace = rest[i+len(namespaceSep):]
		if namespace == "" {
			return QueryName{}, fmt.Errorf("parse query name %q: empty namespace", s)
		}
	}
	if name == "" {
		return QueryName{}, fmt.Errorf("parse query name %q: empty name", s)
	}

	var err error
	if name, err = url.PathUnescape(name); err != nil {
		return QueryName{}, fmt.Errorf("parse query name %q: name: %w", s, err)
	}
	if namespace, err = url.PathUnescape(namespace); err != nil {
		return QueryName{}, fmt.Errorf("parse query name %q: namespace: %w", s, err)
	}
	if domain, err = url.PathUnescape(domain); err != nil {
		return QueryName{}, fmt.Errorf("parse query name %q: domain: %w", s, err)
	}

	return NewQueryName(name, namespace, domain), nil
}

// escapeComponent percent-encodes everything outside [A-Za-z0-9._~-]. A dash
// is kept literal only when it is interior and not adjacent to another dash,
// so an encoded component never contains the "--" separator.
func escapeComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c):
			b.WriteByte(c)
		case c == '-' && i > 0 && i < len(s)-1 && s[i-1] != '-' && s[i+1] != '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c == '.' || c == '_' || c == '~'
}
