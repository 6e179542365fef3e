package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nqm/internal/config"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/store"
	"github.com/roach88/nqm/internal/testutil"
)

// solutions is a throwaway solutions directory selected through NQM_HOME.
type solutions struct {
	dir  string
	fake *testutil.FakeEndpoint
}

// newSolutions configures a single "wikidata" endpoint backed by a fake
// when respond is not nil; otherwise the built-in endpoints apply.
func newSolutions(t *testing.T, respond testutil.Responder) *solutions {
	t.Helper()
	s := &solutions{dir: t.TempDir()}
	for _, env := range []string{config.EnvDatabase, config.EnvEndpoint, config.EnvTimeout,
		config.EnvOpenAIBaseURL, config.EnvOpenAIModel, config.EnvOpenAIKey} {
		t.Setenv(env, "")
	}
	t.Setenv(config.EnvHome, s.dir)

	if respond != nil {
		s.fake = testutil.NewFakeEndpoint(t, respond)
		yaml := fmt.Sprintf("wikidata:\n  endpoint: %s\n  method: POST\n  database: blazegraph\n  timeout: 5\n", s.fake.URL)
		require.NoError(t, os.WriteFile(filepath.Join(s.dir, config.EndpointsFile), []byte(yaml), 0o644))
	}
	return s
}

func (s *solutions) dbPath() string {
	return filepath.Join(s.dir, config.DatabaseFile)
}

func (s *solutions) seed(t *testing.T, queries ...model.NamedQuery) {
	t.Helper()
	st, err := store.Open(s.dbPath())
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.AddAll(context.Background(), queries))
}

func (s *solutions) open(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(s.dbPath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func example(name, sparql string) model.NamedQuery {
	return model.NamedQuery{QueryName: model.NewQueryName(name, "wikidata-examples", "wikidata.org"), SPARQL: sparql}
}

// execute runs the root command with args.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
