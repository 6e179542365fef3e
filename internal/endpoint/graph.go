package endpoint

import (
	"fmt"
	"sort"
)

// Graph is a named logical graph served by a default endpoint.
type Graph struct {
	Name                string `json:"name" yaml:"name"`
	DefaultEndpointName string `json:"default_endpoint_name" yaml:"default_endpoint_name"`
	Description         string `json:"description,omitempty" yaml:"description,omitempty"`
	URL                 string `json:"url,omitempty" yaml:"url,omitempty"`
	Comment             string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Graphs maps graph names to graphs.
type Graphs struct {
	byName map[string]Graph
}

// NewGraphs builds a graph directory. When endpoints is non-nil every
// graph's default endpoint must exist in it.
func NewGraphs(endpoints *Directory, graphs ...Graph) (*Graphs, error) {
	g := &Graphs{byName: make(map[string]Graph, len(graphs))}
	for _, gr := range graphs {
		if gr.Name == "" {
			return nil, &ConfigError{Reason: "graph without name"}
		}
		if _, dup := g.byName[gr.Name]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate graph %q", gr.Name)}
		}
		if endpoints != nil {
			if _, ok := endpoints.Get(gr.DefaultEndpointName); !ok {
				return nil, &ConfigError{Reason: fmt.Sprintf("graph %q: unknown endpoint %q", gr.Name, gr.DefaultEndpointName)}
			}
		}
		g.byName[gr.Name] = gr
	}
	return g, nil
}

// Get returns the graph with the given name.
func (g *Graphs) Get(name string) (Graph, bool) {
	gr, ok := g.byName[name]
	return gr, ok
}

// Names returns all graph names in lexical order.
func (g *Graphs) Names() []string {
	names := make([]string, 0, len(g.byName))
	for n := range g.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the graphs in name order.
func (g *Graphs) All() []Graph {
	out := make([]Graph, 0, len(g.byName))
	for _, n := range g.Names() {
		out = append(out, g.byName[n])
	}
	return out
}

// EndpointFor resolves a graph name to its default endpoint.
func (g *Graphs) EndpointFor(d *Directory, graph string) (Endpoint, bool) {
	gr, ok := g.byName[graph]
	if !ok {
		return Endpoint{}, false
	}
	return d.Get(gr.DefaultEndpointName)
}
