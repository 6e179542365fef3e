// Package config locates the solutions directory and the files kept in it,
// and applies environment overrides.
//
// Layout of the solutions directory (default $HOME/.solutions/snapquery):
//
//	endpoints.yaml     endpoint directory
//	graphs.yaml        graph directory
//	userrights.yaml    ORCID -> rights
//	named_queries.db   registry
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/roach88/nqm/internal/auth"
	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/enrich"
)

// Environment variables.
const (
	EnvHome          = "NQM_HOME"
	EnvDatabase      = "NQM_DB"
	EnvEndpoint      = "NQM_ENDPOINT"
	EnvTimeout       = "NQM_TIMEOUT"
	EnvOpenAIBaseURL = "NQM_OPENAI_BASE_URL"
	EnvOpenAIModel   = "NQM_OPENAI_MODEL"
	EnvOpenAIKey     = "OPENAI_API_KEY"
)

// File names inside the solutions directory.
const (
	EndpointsFile = "endpoints.yaml"
	GraphsFile    = "graphs.yaml"
	RightsFile    = "userrights.yaml"
	DatabaseFile  = "named_queries.db"
)

// LLM configures enrichment. It is disabled when neither APIKey nor
// BaseURL is set.
type LLM struct {
	BaseURL string
	Model   string
	APIKey  string
}

// Enabled reports whether enrichment can be configured.
func (l LLM) Enabled() bool {
	return l.APIKey != "" || l.BaseURL != ""
}

// Config is the resolved process configuration.
type Config struct {
	SolutionsDir    string
	DatabasePath    string
	EndpointsPath   string
	GraphsPath      string
	RightsPath      string
	DefaultEndpoint string
	// HTTPTimeout is used for endpoints without a configured timeout.
	HTTPTimeout  time.Duration
	TimeoutSlack time.Duration
	LLM          LLM
}

// Defaults.
const (
	DefaultEndpoint     = "wikidata"
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultTimeoutSlack = 2 * time.Second
)

// Load resolves the configuration from the environment.
func Load() (Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration using getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	dir := getenv(EnvHome)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".solutions", "snapquery")
	}

	cfg := ForDir(dir)
	if db := getenv(EnvDatabase); db != "" {
		cfg.DatabasePath = db
	}
	if ep := getenv(EnvEndpoint); ep != "" {
		cfg.DefaultEndpoint = ep
	}
	if s := getenv(EnvTimeout); s != "" {
		d, err := parseTimeout(s)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		cfg.HTTPTimeout = d
	}
	cfg.LLM = LLM{
		BaseURL: getenv(EnvOpenAIBaseURL),
		Model:   getenv(EnvOpenAIModel),
		APIKey:  getenv(EnvOpenAIKey),
	}
	return cfg, nil
}

// ForDir returns the default configuration rooted at dir.
func ForDir(dir string) Config {
	return Config{
		SolutionsDir:    dir,
		DatabasePath:    filepath.Join(dir, DatabaseFile),
		EndpointsPath:   filepath.Join(dir, EndpointsFile),
		GraphsPath:      filepath.Join(dir, GraphsFile),
		RightsPath:      filepath.Join(dir, RightsFile),
		DefaultEndpoint: DefaultEndpoint,
		HTTPTimeout:     DefaultHTTPTimeout,
		TimeoutSlack:    DefaultTimeoutSlack,
	}
}

// parseTimeout accepts a Go duration or a number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, errors.New("timeout must be positive")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("timeout must be positive")
	}
	return d, nil
}

// EnsureDir creates the solutions directory and the database's parent.
func (c Config) EnsureDir() error {
	for _, dir := range []string{c.SolutionsDir, filepath.Dir(c.DatabasePath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return nil
}

// Endpoints loads the endpoint directory. A missing file yields the
// built-in defaults. The default endpoint must exist.
func (c Config) Endpoints() (*endpoint.Directory, error) {
	d, err := endpoint.LoadEndpoints(c.EndpointsPath)
	if err != nil {
		return nil, err
	}
	if _, ok := d.Get(c.DefaultEndpoint); !ok {
		return nil, &endpoint.ConfigError{
			Path:   c.EndpointsPath,
			Reason: fmt.Sprintf("default endpoint %q is not configured", c.DefaultEndpoint),
		}
	}
	return d, nil
}

// Graphs loads the graph directory for d.
func (c Config) Graphs(d *endpoint.Directory) (*endpoint.Graphs, error) {
	return endpoint.LoadGraphs(c.GraphsPath, d)
}

// Rights loads the authorization map.
func (c Config) Rights() (*auth.Authorization, error) {
	return auth.Load(c.RightsPath)
}

// Enricher builds the LLM enricher. It returns nil when enrichment is not
// configured.
func (c Config) Enricher() (*enrich.Enricher, error) {
	if !c.LLM.Enabled() {
		return nil, nil
	}
	return enrich.New(enrich.Config{
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
		APIKey:  c.LLM.APIKey,
	})
}
