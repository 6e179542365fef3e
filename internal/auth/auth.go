// Package auth maps ORCID identifiers to the rights they hold. The map is
// kept in userrights.yaml as orcid: "right right ...".
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Known rights.
const (
	// RightLLM allows execution to fill in missing metadata with the LLM.
	RightLLM = "llm"
	// RightAdmin implies every other right.
	RightAdmin = "admin"
)

var orcidRe = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ValidORCID reports whether s has the shape of an ORCID iD.
func ValidORCID(s string) bool {
	return orcidRe.MatchString(s)
}

// Authorization is the ORCID to rights map. It is safe for concurrent use.
type Authorization struct {
	mu     sync.RWMutex
	rights map[string]string
}

// New creates an empty map.
func New() *Authorization {
	return &Authorization{rights: map[string]string{}}
}

// Load reads userrights.yaml. A missing file yields an empty map.
func Load(path string) (*Authorization, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user rights: %w", err)
	}
	return Parse(data)
}

// Parse decodes the YAML form.
func Parse(data []byte) (*Authorization, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse user rights: %w", err)
	}
	a := New()
	for orcid, rights := range raw {
		if !ValidORCID(orcid) {
			return nil, fmt.Errorf("parse user rights: invalid orcid %q", orcid)
		}
		if r := normalize(rights); r != "" {
			a.rights[orcid] = r
		}
	}
	return a, nil
}

// Save writes the map to path.
func (a *Authorization) Save(path string) error {
	a.mu.RLock()
	data, err := yaml.Marshal(a.rights)
	a.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("save user rights: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save user rights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save user rights: %w", err)
	}
	return nil
}

// Rights returns the sorted rights held by orcid.
func (a *Authorization) Rights(orcid string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.rights[orcid]
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// Has reports whether orcid holds right, directly or through admin.
func (a *Authorization) Has(orcid, right string) bool {
	if orcid == "" {
		return false
	}
	rights := a.Rights(orcid)
	return slices.Contains(rights, right) || slices.Contains(rights, RightAdmin)
}

// Grant adds rights to orcid.
func (a *Authorization) Grant(orcid string, rights ...string) error {
	if !ValidORCID(orcid) {
		return fmt.Errorf("grant: invalid orcid %q", orcid)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rights[orcid] = normalize(a.rights[orcid] + " " + strings.Join(rights, " "))
	return nil
}

// Revoke removes rights from orcid.
func (a *Authorization) Revoke(orcid string, rights ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var kept []string
	for _, r := range strings.Fields(a.rights[orcid]) {
		if !slices.Contains(rights, r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(a.rights, orcid)
		return
	}
	a.rights[orcid] = strings.Join(kept, " ")
}

// Users returns every ORCID with at least one right, sorted.
func (a *Authorization) Users() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	users := make([]string, 0, len(a.rights))
	for orcid := range a.rights {
		users = append(users, orcid)
	}
	sort.Strings(users)
	return users
}

// normalize dedupes and sorts a space-separated rights string.
func normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	sort.Strings(fields)
	return strings.Join(slices.Compact(fields), " ")
}
