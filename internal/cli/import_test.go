package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nqm/internal/model"
)

func TestImport_StoresSet(t *testing.T) {
	s := newSolutions(t, nil)
	in := filepath.Join(t.TempDir(), "set.yaml")
	writeTestSet(t, in)

	_, stderr, err := execute(t, "import", "--input", in, "--progress")
	require.NoError(t, err)
	assert.Contains(t, stderr, "2/2 horses--wikidata-examples@wikidata.org")
	assert.Contains(t, stderr, "2 stored")

	st := s.open(t)
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	nq, err := st.LookupID(context.Background(), "cats--wikidata-examples@wikidata.org")
	require.NoError(t, err)
	assert.Equal(t, "Cats", nq.Title)
}

func TestImport_Limit(t *testing.T) {
	s := newSolutions(t, nil)
	in := filepath.Join(t.TempDir(), "set.json")
	writeTestSet(t, in)

	_, _, err := execute(t, "import", "--input", in, "--limit", "1")
	require.NoError(t, err)

	n, err := s.open(t).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImport_Export(t *testing.T) {
	newSolutions(t, nil)
	dir := t.TempDir()
	in := filepath.Join(dir, "set.json")
	out := filepath.Join(dir, "out.yaml")
	writeTestSet(t, in)

	_, _, err := execute(t, "import", "--input", in, "--output", out)
	require.NoError(t, err)

	set, err := model.LoadSet(out, model.FormatAuto)
	require.NoError(t, err)
	assert.Len(t, set.Queries, 2)
	assert.Equal(t, "wikidata-examples", set.Namespace)

	_, _, err = execute(t, "import", "--input", in, "--output", out, "--target-graph", "dblp")
	require.NoError(t, err)
	set, err = model.LoadSet(out, model.FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, "dblp", set.TargetGraphName)

	_, _, err = execute(t, "import", "--input", in, "--output", out, "--target-graph", "nowhere")
	assert.Equal(t, ExitUsage, GetExitCode(err))
}

func TestImport_Errors(t *testing.T) {
	newSolutions(t, nil)

	_, _, err := execute(t, "import", "--input", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitImport, GetExitCode(err))

	_, _, err = execute(t, "import")
	assert.Equal(t, ExitUsage, GetExitCode(err))

	_, _, err = execute(t, "import", "--input", "x.yaml", "--limit", "-1")
	assert.Equal(t, ExitUsage, GetExitCode(err))
}
