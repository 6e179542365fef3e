// Package endpoint holds the Endpoint and Graph directories: the SPARQL
// services a named query can run against and the logical graphs that
// reference them. Both are loaded once at startup and are read-only
// afterwards, so a *Directory may be shared without locking.
package endpoint

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrConfig is the sentinel for unreadable or invalid configuration.
var ErrConfig = errors.New("invalid configuration")

// ConfigError reports a configuration problem at a file path.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s", e.Path, msg)
	}
	return "config: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Languages and methods an endpoint may declare.
const (
	LangSPARQL = "sparql"
	LangSQL    = "sql"

	MethodGET  = "GET"
	MethodPOST = "POST"

	AuthBasic = "BASIC"

	// DatabaseBlazegraph marks endpoints that accept WITH ... AS %name.
	DatabaseBlazegraph = "blazegraph"

	RedactedPassword = "***"
)

// Endpoint is one configured SPARQL (or SQL) service.
type Endpoint struct {
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"endpoint" yaml:"endpoint"`
	Lang     string `json:"lang,omitempty" yaml:"lang,omitempty"`
	Method   string `json:"method,omitempty" yaml:"method,omitempty"`
	Prefixes string `json:"prefixes,omitempty" yaml:"prefixes,omitempty"`
	Auth     string `json:"auth,omitempty" yaml:"auth,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Website  string `json:"website,omitempty" yaml:"website,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Timeout is the server-side query timeout in seconds; 0 means unknown.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// HTTPMethod returns the configured method, POST when unset.
func (e Endpoint) HTTPMethod() string {
	if strings.EqualFold(e.Method, MethodGET) {
		return MethodGET
	}
	return MethodPOST
}

// Language returns the configured query language, sparql when unset.
func (e Endpoint) Language() string {
	if e.Lang == "" {
		return LangSPARQL
	}
	return strings.ToLower(e.Lang)
}

// BasicAuth reports whether requests carry HTTP basic credentials.
func (e Endpoint) BasicAuth() bool {
	return strings.EqualFold(e.Auth, AuthBasic)
}

// BlazegraphCompatible reports whether the endpoint understands named
// subqueries natively.
func (e Endpoint) BlazegraphCompatible() bool {
	return strings.EqualFold(e.Database, DatabaseBlazegraph)
}

// ServerTimeout returns Timeout as a duration.
func (e Endpoint) ServerTimeout() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// Redacted returns a copy safe to show to callers.
func (e Endpoint) Redacted() Endpoint {
	if e.Password != "" {
		e.Password = RedactedPassword
	}
	return e
}

// Directory maps endpoint names to endpoints.
type Directory struct {
	byName map[string]Endpoint
}

// NewDirectory builds a directory, rejecting duplicate or empty names.
func NewDirectory(eps ...Endpoint) (*Directory, error) {
	d := &Directory{byName: make(map[string]Endpoint, len(eps))}
	for _, ep := range eps {
		if ep.Name == "" {
			return nil, &ConfigError{Reason: "endpoint without name"}
		}
		if _, dup := d.byName[ep.Name]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate endpoint %q", ep.Name)}
		}
		d.byName[ep.Name] = ep
	}
	return d, nil
}

// Get returns the endpoint with the given name.
func (d *Directory) Get(name string) (Endpoint, bool) {
	ep, ok := d.byName[name]
	return ep, ok
}

// Names returns all endpoint names in lexical order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.byName))
	for n := range d.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of endpoints.
func (d *Directory) Len() int { return len(d.byName) }

// All returns the endpoints ordered by name.
func (d *Directory) All() []Endpoint {
	out := make([]Endpoint, 0, len(d.byName))
	for _, n := range d.Names() {
		out = append(out, d.byName[n])
	}
	return out
}

// Redacted returns name -> endpoint with passwords masked.
func (d *Directory) Redacted() map[string]Endpoint {
	out := make(map[string]Endpoint, len(d.byName))
	for n, ep := range d.byName {
		out[n] = ep.Redacted()
	}
	return out
}
