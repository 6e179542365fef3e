package endpoint

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource []byte

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVal  cue.Value
	schemaErr  error
)

// schema compiles the embedded CUE schema once. cue.Context is not safe for
// concurrent use, so validation below serializes on schemaMu.
func schema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaVal = schemaCtx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
		schemaErr = schemaVal.Err()
	})
	return schemaCtx, schemaVal, schemaErr
}

var schemaMu sync.Mutex

func validate(def string, v any) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, s, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	d := s.LookupPath(cue.ParsePath(def))
	if err := d.Err(); err != nil {
		return fmt.Errorf("lookup %s: %w", def, err)
	}
	return d.Unify(ctx.Encode(v)).Validate(cue.Concrete(true))
}

// Validate checks an endpoint against the schema and the cross-field rules
// the schema does not express.
func Validate(ep Endpoint) error {
	if err := validate("#Endpoint", ep); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("endpoint %q", ep.Name), Err: err}
	}
	if ep.BasicAuth() && ep.User == "" {
		return &ConfigError{Reason: fmt.Sprintf("endpoint %q: auth BASIC requires user", ep.Name)}
	}
	return nil
}

// ValidateGraph checks a graph against the schema.
func ValidateGraph(g Graph) error {
	if err := validate("#Graph", g); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("graph %q", g.Name), Err: err}
	}
	return nil
}

// LoadEndpoints reads an endpoints.yaml file: a mapping of endpoint name to
// endpoint record. A missing file yields the built-in defaults.
func LoadEndpoints(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultEndpoints(), nil
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "read", Err: err}
	}
	d, err := ParseEndpoints(data)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) && ce.Path == "" {
			ce.Path = path
		}
		return nil, err
	}
	return d, nil
}

// ParseEndpoints decodes and validates endpoints.yaml content.
func ParseEndpoints(data []byte) (*Directory, error) {
	var raw map[string]Endpoint
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Reason: "parse yaml", Err: err}
	}
	if len(raw) == 0 {
		return nil, &ConfigError{Reason: "no endpoints defined"}
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	eps := make([]Endpoint, 0, len(raw))
	for _, key := range keys {
		ep := raw[key]
		if ep.Name == "" {
			ep.Name = key
		}
		if ep.Name != key {
			return nil, &ConfigError{Reason: fmt.Sprintf("endpoint key %q does not match name %q", key, ep.Name)}
		}
		if err := Validate(ep); err != nil {
			return nil, err
		}
		if ep.Method != "" {
			ep.Method = strings.ToUpper(ep.Method)
		}
		if ep.Auth != "" {
			ep.Auth = strings.ToUpper(ep.Auth)
		}
		eps = append(eps, ep)
	}
	return NewDirectory(eps...)
}

// SaveEndpoints writes the directory as endpoints.yaml.
func SaveEndpoints(path string, d *Directory) error {
	out := make(map[string]Endpoint, d.Len())
	for _, ep := range d.All() {
		out[ep.Name] = ep
	}
	return writeYAML(path, out)
}

// LoadGraphs reads a graphs.yaml file keyed by graph name. Default
// endpoints are checked against d. A missing file yields the defaults.
func LoadGraphs(path string, d *Directory) (*Graphs, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultGraphs(d)
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "read", Err: err}
	}
	var raw map[string]Graph
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Path: path, Reason: "parse yaml", Err: err}
	}
	graphs := make([]Graph, 0, len(raw))
	for key, g := range raw {
		if g.Name == "" {
			g.Name = key
		}
		if err := ValidateGraph(g); err != nil {
			err.(*ConfigError).Path = path
			return nil, err
		}
		graphs = append(graphs, g)
	}
	out, err := NewGraphs(d, graphs...)
	if err != nil {
		err.(*ConfigError).Path = path
		return nil, err
	}
	return out, nil
}

// SaveGraphs writes the graph directory as graphs.yaml.
func SaveGraphs(path string, g *Graphs) error {
	out := make(map[string]Graph, len(g.byName))
	for n, gr := range g.byName {
		out[n] = gr
	}
	return writeYAML(path, out)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
