package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryName_RoundTrip(t *testing.T) {
	cases := []QueryName{
		NewQueryName("cats", "wikidata-examples", "wikidata.org"),
		NewQueryName("Scholia author by name", "scholia", "wikidata.org"),
		NewQueryName("a/b/c", "ns/with/slash", "example.com/path"),
		NewQueryName("x--y", "--", "a@b"),
		NewQueryName("-leading", "trailing-", "mid-dle"),
		NewQueryName("50% off?", "q&a=1#frag", "host:8080"),
		NewQueryName("Zürich", "ñandú", "例え.jp"),
		NewQueryName("---", "-", "@@"),
	}

	for _, qn := range cases {
		t.Run(qn.Name, func(t *testing.T) {
			s := qn.String()
			assert.NotContains(t, s[:len(s)-len(escapeComponent(qn.Domain))-1], "@",
				"encoded name/namespace must not contain @")

			parsed, err := ParseQueryName(s)
			require.NoError(t, err)
			assert.Equal(t, qn, parsed)
		})
	}
}

func TestQueryName_StringForm(t *testing.T) {
	qn := NewQueryName("cats", "wikidata-examples", "wikidata.org")
	assert.Equal(t, "cats--wikidata-examples@wikidata.org", qn.String())
	assert.Equal(t, qn.String(), qn.QueryID())

	qn = NewQueryName("my query", "a/b", "wikidata.org")
	assert.Equal(t, "my%20query--a%2Fb@wikidata.org", qn.String())
}

func TestParseQueryName_CompactForms(t *testing.T) {
	qn, err := ParseQueryName("cats")
	require.NoError(t, err)
	assert.Equal(t, QueryName{Domain: DefaultDomain, Namespace: DefaultNamespace, Name: "cats"}, qn)

	qn, err = ParseQueryName("cats--wikidata-examples")
	require.NoError(t, err)
	assert.Equal(t, "wikidata-examples", qn.Namespace)
	assert.Equal(t, DefaultDomain, qn.Domain)

	qn, err = ParseQueryName("authors--scholia@wikidata.org")
	require.NoError(t, err)
	assert.Equal(t, NewQueryName("authors", "scholia", "wikidata.org"), qn)
}

func TestParseQueryName_Invalid(t *testing.T) {
	for _, s := range []string{"", "--ns", "name--", "name--ns@", "bad%zz"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseQueryName(s)
			assert.Error(t, err)
		})
	}
}

func TestNewQueryName_Defaults(t *testing.T) {
	qn := NewQueryName("q", "", "")
	assert.Equal(t, DefaultDomain, qn.Domain)
	assert.Equal(t, DefaultNamespace, qn.Namespace)
}

func TestNewQueryName_NFC(t *testing.T) {
	decomposed := "Zürich"
	qn := NewQueryName(decomposed, "", "")
	assert.Equal(t, "Zürich", qn.Name)
}

func TestQueryName_DecomposedLiteralRoundTrips(t *testing.T) {
	literal := QueryName{Name: "café", Namespace: "séries", Domain: "wikidata.org"}
	built := NewQueryName(literal.Name, literal.Namespace, literal.Domain)

	assert.Equal(t, built.String(), literal.String())
	assert.Equal(t, built.QueryID(), literal.QueryID())

	parsed, err := ParseQueryName(literal.String())
	require.NoError(t, err)
	assert.Equal(t, built, parsed)
	assert.Equal(t, literal.Normalized(), parsed)
	assert.Equal(t, literal.String(), parsed.String())
}

func TestQueryName_NormalizedRoundTripIsExact(t *testing.T) {
	for _, qn := range []QueryName{
		NewQueryName("cafe\u0301", "", ""),
		NewQueryName("Zürich", "My Ns", "example.org"),
		NewQueryName("100%", "a-b", "x"),
	} {
		parsed, err := ParseQueryName(qn.String())
		require.NoError(t, err)
		assert.Equal(t, qn, parsed)
	}
}
