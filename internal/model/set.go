package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetFormat is a NamedQuerySet transport encoding.
type SetFormat string

const (
	FormatAuto SetFormat = "auto"
	FormatJSON SetFormat = "json"
	FormatYAML SetFormat = "yaml"
)

// ParseSetFormat maps a flag value to a SetFormat. "yml" is accepted.
func ParseSetFormat(s string) (SetFormat, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown set format %q: must be one of auto, json, yaml", s)
}

// NamedQuerySet is a batch of queries sharing domain and namespace. It is a
// transport unit for import and export and is not persisted as such.
type NamedQuerySet struct {
	Domain          string       `json:"domain" yaml:"domain"`
	Namespace       string       `json:"namespace" yaml:"namespace"`
	TargetGraphName string       `json:"target_graph_name" yaml:"target_graph_name"`
	Queries         []NamedQuery `json:"queries" yaml:"queries"`
}

// NewNamedQuerySet creates an empty set.
func NewNamedQuerySet(domain, namespace, targetGraph string) *NamedQuerySet {
	return &NamedQuerySet{
		Domain:          domain,
		Namespace:       namespace,
		TargetGraphName: targetGraph,
		Queries:         []NamedQuery{},
	}
}

// Add appends a query, forcing it onto the set's domain and namespace.
func (s *NamedQuerySet) Add(nq NamedQuery) {
	nq.Domain = s.Domain
	nq.Namespace = s.Namespace
	s.Queries = append(s.Queries, nq.Normalize())
}

// EncodeSet serializes the set. JSON uses a two-space indent.
func EncodeSet(s *NamedQuerySet, format SetFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode set: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encode set: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode set: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("encode set: unsupported format %q", format)
}

// DecodeSet parses a set. With FormatAuto, JSON is tried first, then YAML.
func DecodeSet(data []byte, format SetFormat) (*NamedQuerySet, error) {
	var s NamedQuerySet
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode json set: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode yaml set: %w", err)
		}
	case FormatAuto:
		jsonErr := json.Unmarshal(data, &s)
		if jsonErr != nil {
			s = NamedQuerySet{}
			if err := yaml.Unmarshal(data, &s); err != nil {
				return nil, fmt.Errorf("decode set: not json (%v) nor yaml: %w", jsonErr, err)
			}
		}
	default:
		return nil, fmt.Errorf("decode set: unsupported format %q", format)
	}
	if s.Queries == nil {
		s.Queries = []NamedQuery{}
	}
	return &s, nil
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) SetFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatAuto
}

// LoadSet reads a set from disk, detecting the format from the extension
// when format is FormatAuto.
func LoadSet(path string, format SetFormat) (*NamedQuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load set: %w", err)
	}
	if format == FormatAuto {
		format = FormatForPath(path)
	}
	return DecodeSet(data, format)
}

// SaveSet writes a set to disk.
func SaveSet(s *NamedQuerySet, path string, format SetFormat) error {
	if format == FormatAuto {
		format = FormatForPath(path)
		if format == FormatAuto {
			format = FormatYAML
		}
	}
	data, err := EncodeSet(s, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save set: %w", err)
	}
	return nil
}
