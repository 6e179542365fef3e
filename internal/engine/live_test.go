package engine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/testutil"
)

// TestLive_Wikidata runs the cats and parameterized examples against the
// public Wikidata Query Service.
func TestLive_Wikidata(t *testing.T) {
	if os.Getenv("NQM_LIVE") != "1" {
		t.Skip("set NQM_LIVE=1 to query query.wikidata.org")
	}

	st := testutil.NewStore(t)
	e, err := New(Options{Registry: st, Endpoints: endpoint.DefaultEndpoints(), Context: "live-test"})
	require.NoError(t, err)
	ctx := context.Background()

	cats := model.NamedQuery{QueryName: model.NewQueryName("cats", "wikidata-examples", ""), SPARQL: catsSPARQL}
	require.NoError(t, st.Add(ctx, cats))
	res, err := e.Execute(ctx, Request{Name: cats.QueryName})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.Rows), 200)

	tbl := model.NamedQuery{
		QueryName: model.NewQueryName("properties", "wikidata-examples", ""),
		SPARQL:    `PREFIX target: <http://www.wikidata.org/entity/{{ q }}> SELECT ?p WHERE { target: ?p ?o } LIMIT 5`,
	}
	require.NoError(t, st.Add(ctx, tbl))
	res, err = e.Execute(ctx, Request{Name: tbl.QueryName, Params: map[string]string{"q": "Q80"}})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Rows)
}
