package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nqm/internal/endpoint"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Home(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FromEnv(env(map[string]string{EnvHome: dir}))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.SolutionsDir)
	assert.Equal(t, filepath.Join(dir, "named_queries.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "endpoints.yaml"), cfg.EndpointsPath)
	assert.Equal(t, filepath.Join(dir, "graphs.yaml"), cfg.GraphsPath)
	assert.Equal(t, filepath.Join(dir, "userrights.yaml"), cfg.RightsPath)
	assert.Equal(t, "wikidata", cfg.DefaultEndpoint)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.False(t, cfg.LLM.Enabled())
}

func TestFromEnv_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".solutions", "snapquery"), cfg.SolutionsDir)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		EnvHome:          "/srv/nqm",
		EnvDatabase:      "/data/q.db",
		EnvEndpoint:      "wikidata-qlever",
		EnvTimeout:       "90",
		EnvOpenAIBaseURL: "http://localhost:8080/v1",
		EnvOpenAIModel:   "llama3",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/data/q.db", cfg.DatabasePath)
	assert.Equal(t, "wikidata-qlever", cfg.DefaultEndpoint)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "llama3", cfg.LLM.Model)
}

func TestFromEnv_Timeout(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{EnvHome: "/x", EnvTimeout: "1m30s"}))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)

	for _, bad := range []string{"0", "-5", "soon"} {
		_, err := FromEnv(env(map[string]string{EnvHome: "/x", EnvTimeout: bad}))
		assert.Error(t, err, bad)
	}
}

func TestEndpoints_DefaultsWhenMissing(t *testing.T) {
	cfg := ForDir(t.TempDir())

	d, err := cfg.Endpoints()
	require.NoError(t, err)
	_, ok := d.Get("wikidata")
	assert.True(t, ok)

	g, err := cfg.Graphs(d)
	require.NoError(t, err)
	assert.NotEmpty(t, g.Names())

	rights, err := cfg.Rights()
	require.NoError(t, err)
	assert.Empty(t, rights.Users())
}

func TestEndpoints_UnknownDefault(t *testing.T) {
	cfg := ForDir(t.TempDir())
	cfg.DefaultEndpoint = "nowhere"

	_, err := cfg.Endpoints()
	assert.ErrorIs(t, err, endpoint.ErrConfig)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	cfg := ForDir(dir)
	require.NoError(t, cfg.EnsureDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnricher(t *testing.T) {
	e, err := ForDir(t.TempDir()).Enricher()
	require.NoError(t, err)
	assert.Nil(t, e)

	cfg := ForDir(t.TempDir())
	cfg.LLM.APIKey = "sk-test"
	e, err = cfg.Enricher()
	require.NoError(t, err)
	assert.NotNil(t, e)
}
