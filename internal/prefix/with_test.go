package prefix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoWithQuery = `SELECT ?item ?count
WITH {
  SELECT ?item WHERE { ?item wdt:P31 wd:Q5 } LIMIT 10
} AS %items
WITH {
  SELECT ?item (COUNT(?work) AS ?count) WHERE {
    INCLUDE %items
    ?work wdt:P50 ?item .
  } GROUP BY ?item
} AS %counts
WHERE {
  INCLUDE %counts
}`

// authorNameStringsQuery follows the Scholia author-name-strings panel.
const authorNameStringsQuery = `# title: Author name strings of a researcher
PREFIX target: <http://www.wikidata.org/entity/{{ q }}>

SELECT
  ?count ?string ?example_work ?example_workLabel
WITH {
  SELECT DISTINCT ?string WHERE {
    { target: rdfs:label ?label . BIND(STR(?label) AS ?string) }
    UNION
    { target: skos:altLabel ?label . BIND(STR(?label) AS ?string) }
  }
} AS %strings
WITH {
  SELECT (COUNT(?work) AS ?count) ?string (SAMPLE(?work) AS ?example_work) WHERE {
    INCLUDE %strings
    ?work wdt:P2093 ?string .
    MINUS { ?work wdt:P50 target: }
  }
  GROUP BY ?string
} AS %result
WHERE {
  INCLUDE %result
  SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en". }
}
ORDER BY DESC(?count)`

func TestHasWithClause(t *testing.T) {
	assert.True(t, HasWithClause(twoWithQuery))
	assert.False(t, HasWithClause(catsQuery))
	assert.False(t, HasWithClause(`SELECT * WHERE { ?s rdfs:comment "WITH { x } AS %y" }`))
	assert.False(t, HasWithClause(`WITH <http://g> DELETE { ?s ?p ?o } WHERE { ?s ?p ?o }`))
}

func TestTransformWithClause_TwoBlocks(t *testing.T) {
	assert.False(t, IsValid(twoWithQuery))

	out := TransformWithClauseToSubquery(twoWithQuery)
	assert.False(t, HasWithClause(out))
	assert.NotContains(t, out, "INCLUDE")
	assert.NotContains(t, out, "%items")
	assert.Contains(t, out, "SELECT ?item WHERE { ?item wdt:P31 wd:Q5 } LIMIT 10")
	assert.True(t, IsValid(out), Check(out))
}

func TestTransformWithClause_Idempotent(t *testing.T) {
	for _, q := range []string{twoWithQuery, authorNameStringsQuery, catsQuery} {
		once := TransformWithClauseToSubquery(q)
		assert.Equal(t, once, TransformWithClauseToSubquery(once))
	}
}

func TestTransformWithClause_Nested(t *testing.T) {
	q := `SELECT ?a WITH {
  SELECT ?a WITH { SELECT ?a WHERE { ?a ?b ?c } } AS %inner WHERE { INCLUDE %inner }
} AS %outer WHERE { INCLUDE %outer }`
	out := TransformWithClauseToSubquery(q)
	assert.False(t, HasWithClause(out))
	assert.NotContains(t, out, "INCLUDE")
	assert.Contains(t, out, "SELECT ?a WHERE { ?a ?b ?c }")
	assert.True(t, IsValid(out), Check(out))
}

func TestTransformWithClause_CycleLeavesInput(t *testing.T) {
	q := `SELECT * WITH { SELECT * WHERE { INCLUDE %b } } AS %a WITH { SELECT * WHERE { INCLUDE %a } } AS %b WHERE { INCLUDE %a }`
	assert.Equal(t, q, TransformWithClauseToSubquery(q))
}

func TestTransformWithClause_MalformedLeavesInput(t *testing.T) {
	q := `SELECT * WITH { SELECT * WHERE { ?s ?p ?o } } WHERE { }`
	assert.Equal(t, q, TransformWithClauseToSubquery(q))
}

func TestAuthorNameStrings_PipelineIsValid(t *testing.T) {
	q := AddMissingPrefixes(authorNameStringsQuery)
	q = FillWith(q, map[string]string{"q": "Q1"})
	q = TransformWithClauseToSubquery(q)

	require.False(t, HasWithClause(q))
	assert.Contains(t, q, "<http://www.wikidata.org/entity/Q1>")
	assert.True(t, IsValid(q), Check(q))
}
