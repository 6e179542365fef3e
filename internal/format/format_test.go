package format

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nqm/internal/engine"
)

// sample has one plain row and one row whose label needs escaping in every
// format, with an unbound count.
var sample = engine.Results{
	Vars: []string{"item", "itemLabel", "count"},
	Rows: []engine.Row{
		{"item": "http://www.wikidata.org/entity/Q146", "itemLabel": "house cat", "count": "3"},
		{"item": "http://www.wikidata.org/entity/Q5", "itemLabel": `R&D | "x" 100% <b>`, "count": ""},
	},
}

func TestWrite_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			out, err := String(f, sample)
			require.NoError(t, err)
			g.Assert(t, "sample."+string(f), []byte(out))
		})
	}
}

func TestWrite_Deterministic(t *testing.T) {
	for _, f := range Formats {
		a, err := String(f, sample)
		require.NoError(t, err)
		b, err := String(f, sample)
		require.NoError(t, err)
		assert.Equal(t, a, b, "format %s", f)
	}
}

func TestWrite_Empty(t *testing.T) {
	empty := engine.Results{Vars: []string{"x"}}

	out, err := String(JSON, empty)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = String(CSV, empty)
	require.NoError(t, err)
	assert.Equal(t, "x\n", out)

	out, err = String(GitHub, empty)
	require.NoError(t, err)
	assert.Equal(t, "| x |\n| --- |\n", out)
}

func TestWrite_MultilineCellsStayOnOneLine(t *testing.T) {
	res := engine.Results{Vars: []string{"v"}, Rows: []engine.Row{{"v": "two\nlines"}}}

	for _, f := range []Format{MediaWiki, GitHub, LaTeX} {
		out, err := String(f, res)
		require.NoError(t, err)
		assert.Contains(t, out, "two lines", "format %s", f)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	_, err := String(Format("yaml"), sample)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":      JSON,
		"CSV":       CSV,
		"mediawiki": MediaWiki,
		"github":    GitHub,
		"markdown":  GitHub,
		"md":        GitHub,
		"latex":     LaTeX,
		"tex":       LaTeX,
		" html ":    HTML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, "json, csv, mediawiki, github, latex, html")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", JSON.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", CSV.ContentType())
	assert.Equal(t, "text/html; charset=utf-8", HTML.ContentType())
	assert.Equal(t, "text/plain; charset=utf-8", LaTeX.ContentType())
}
