package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tblQuery = `PREFIX target: <http://www.wikidata.org/entity/{{ q }}> SELECT ?p WHERE { target: ?p ?o } LIMIT 5`

func TestSchema_DistinctNamesIgnoringWhitespace(t *testing.T) {
	q := `SELECT * WHERE { {{q}} ?p {{ q }} . ?x ?y {{   other	}} . {{q }} }`
	assert.Equal(t, []string{"other", "q"}, Schema(q))
	assert.True(t, HasParameter(q))

	assert.Empty(t, Schema("SELECT * WHERE { ?s ?p ?o }"))
	assert.False(t, HasParameter("SELECT * WHERE { ?s ?p ?o }"))
}

func TestBind_TimBernersLee(t *testing.T) {
	out, err := Bind(tblQuery, map[string]string{"q": "Q80"})
	require.NoError(t, err)
	assert.Contains(t, out, "target: <http://www.wikidata.org/entity/Q80>")
	assert.NotContains(t, out, "{{")
}

func TestBind_Missing(t *testing.T) {
	_, err := Bind(tblQuery, map[string]string{"x": "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"q"}, be.Names)
}

func TestBind_ExtraIgnored(t *testing.T) {
	out, err := Bind(tblQuery, map[string]string{"q": "Q1", "unused": "x"})
	require.NoError(t, err)
	assert.Contains(t, out, "entity/Q1>")
}

func TestBind_IdempotentWithoutPlaceholders(t *testing.T) {
	out, err := Bind(tblQuery, map[string]string{"q": "Q80"})
	require.NoError(t, err)

	again, err := Bind(out, map[string]string{"q": "Q99"})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestBind_LiteralSubstitution(t *testing.T) {
	out, err := Bind(`SELECT * WHERE { ?s rdfs:label {{ label }} }`, map[string]string{"label": `"Tim"@en`})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * WHERE { ?s rdfs:label "Tim"@en }`, out)
}

func TestBindStrict_Unknown(t *testing.T) {
	_, err := BindStrict(tblQuery, map[string]string{"q": "Q1", "zz": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownParameter))
}

func TestDeclared_AndValidate(t *testing.T) {
	q := "# param q: WikidataItem\n# param n: int\nSELECT * WHERE { wd:{{q}} ?p ?o } LIMIT {{ n }} # {{ s }}"
	types := Declared(q)
	assert.Equal(t, TypeWikidataItem, types["q"])
	assert.Equal(t, TypeInt, types["n"])
	assert.Equal(t, TypeString, types["s"])

	assert.NoError(t, Validate(q, map[string]string{"q": "Q80", "n": "10", "s": "anything"}))
	err := Validate(q, map[string]string{"q": "Tim", "n": "10"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestType_Check(t *testing.T) {
	cases := []struct {
		typ   Type
		value string
		ok    bool
	}{
		{TypeInt, "42", true},
		{TypeInt, "4.2", false},
		{TypeWikidataItem, "Q5", true},
		{TypeWikidataItem, "wd:Q5", true},
		{TypeWikidataItem, "P31", false},
		{TypeWikidataProperty, "P31", true},
		{TypeWikidataProperty, "wdt:P31", true},
		{TypeIRI, "<http://example.org/x>", true},
		{TypeIRI, "http://example.org/x", true},
		{TypeIRI, "not an iri", false},
		{TypeString, "", true},
	}
	for _, c := range cases {
		err := c.typ.Check(c.value)
		if c.ok {
			assert.NoError(t, err, "%s %q", c.typ, c.value)
		} else {
			assert.Error(t, err, "%s %q", c.typ, c.value)
		}
	}
}
