package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/params"
	"github.com/roach88/nqm/internal/store"
	"github.com/roach88/nqm/internal/testutil"
)

const catsSPARQL = `SELECT ?item ?itemLabel WHERE { ?item wdt:P31 wd:Q146. SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en". } }`

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine *Engine
	store  *store.Store
	fake   *testutil.FakeEndpoint
	ep     endpoint.Endpoint
}

// newFixture wires an engine to a fresh registry and a fake endpoint that
// stands in for "wikidata". Each execution takes 250ms on the step clock.
func newFixture(t *testing.T, respond testutil.Responder, tweak ...func(*endpoint.Endpoint, *Options)) *fixture {
	t.Helper()

	fake := testutil.NewFakeEndpoint(t, respond)
	ep := endpoint.Endpoint{
		Name:     "wikidata",
		URL:      fake.URL,
		Lang:     endpoint.LangSPARQL,
		Method:   endpoint.MethodPOST,
		Database: endpoint.DatabaseBlazegraph,
		Prefixes: "PREFIX wd: <http://www.wikidata.org/entity/>\nPREFIX wdt: <http://www.wikidata.org/prop/direct/>\nPREFIX wikibase: <http://wikiba.se/ontology#>\nPREFIX bd: <http://www.bigdata.com/rdf#>",
	}
	st := testutil.NewStore(t)
	opts := Options{
		Registry: st,
		Clock:    NewStepClock(start, 250*time.Millisecond),
		IDs:      testutil.NewSequentialIDs(""),
		Client:   fake.Client(),
	}
	for _, fn := range tweak {
		fn(&ep, &opts)
	}

	dir, err := endpoint.NewDirectory(ep)
	require.NoError(t, err)
	opts.Endpoints = dir

	e, err := New(opts)
	require.NoError(t, err)
	return &fixture{engine: e, store: st, fake: fake, ep: ep}
}

func (f *fixture) register(t *testing.T, name, sparql string) model.QueryName {
	t.Helper()
	nq := model.NamedQuery{
		QueryName: model.NewQueryName(name, "wikidata-examples", "wikidata.org"),
		SPARQL:    sparql,
	}
	require.NoError(t, f.store.Add(context.Background(), nq))
	return nq.QueryName
}

func TestExecute_Cats(t *testing.T) {
	f := newFixture(t, testutil.Cats(250))
	qn := f.register(t, "cats", catsSPARQL)

	res, err := f.engine.Execute(context.Background(), Request{Name: qn, Context: "test"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(res.Rows), 200)
	for _, row := range res.Rows {
		assert.Contains(t, row, "item")
		assert.Contains(t, row, "itemLabel")
	}
	assert.Equal(t, []string{"item", "itemLabel"}, res.Vars)

	n, ok := res.Stats.Records()
	require.True(t, ok)
	assert.Equal(t, len(res.Rows), n)
	assert.Equal(t, "stats-0001", res.Stats.StatsID)
	assert.Equal(t, "cats--wikidata-examples@wikidata.org", res.Stats.QueryID)
	assert.Equal(t, int64(250), res.Stats.DurationMS)
	assert.Equal(t, start, res.Stats.Timestamp)

	stored, err := f.store.Stats(context.Background(), qn.QueryID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Stats.StatsID, stored[0].StatsID)
	assert.Equal(t, "test", stored[0].Context)
	_, failed := stored[0].Failure()
	assert.False(t, failed)
}

func TestExecute_ParameterizedPrefix(t *testing.T) {
	f := newFixture(t, testutil.OK(testutil.Bindings([]string{"p"},
		map[string]string{"p": "http://www.wikidata.org/prop/direct/P31"})))
	qn := f.register(t, "tbl", `PREFIX target: <http://www.wikidata.org/entity/{{ q }}> SELECT ?p WHERE { target: ?p ?o } LIMIT 5`)

	res, err := f.engine.Execute(context.Background(), Request{Name: qn, Params: map[string]string{"q": "Q80"}})
	require.NoError(t, err)

	assert.Contains(t, res.SPARQL, "target: <http://www.wikidata.org/entity/Q80>")
	assert.Contains(t, f.fake.Last(t).Query, "target: <http://www.wikidata.org/entity/Q80>")
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"q"}, res.Details.Params)
}

func TestExecute_SyntaxError(t *testing.T) {
	f := newFixture(t, testutil.Status(http.StatusBadRequest, "text/plain",
		testutil.BlazegraphMalformed(`Encountered " <PNAME_LN> "SELET "" at line 1, column 1.`)))
	qn := f.register(t, "bad", "SELET * WHERE {}")

	res, err := f.engine.Execute(context.Background(), Request{Name: qn})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEndpointFailure)

	var ee *EndpointError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, model.CategorySyntaxError, ee.Category)
	assert.NotEmpty(t, ee.Filtered)
	assert.NotContains(t, ee.Filtered, "org.eclipse.jetty")
	assert.Contains(t, ee.Raw, "org.eclipse.jetty")

	stored, err := f.store.Stats(context.Background(), qn.QueryID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	fail, ok := stored[0].Failure()
	require.True(t, ok)
	assert.Equal(t, model.CategorySyntaxError, fail.Category)
	assert.Equal(t, ee.Filtered, fail.Filtered)
	_, hasRecords := stored[0].Records()
	assert.False(t, hasRecords)
}

func TestExecute_QLeverSyntaxErrorMessage(t *testing.T) {
	body := `{"exception":"Invalid SPARQL query: Token \"SELET\": mismatched input 'SELET' expecting {'ask', 'select'}","query":"SELET * WHERE {}","status":"ERROR"}`
	f := newFixture(t, testutil.Status(http.StatusBadRequest, "application/json", body),
		func(ep *endpoint.Endpoint, _ *Options) { ep.Database = "qlever" })
	qn := f.register(t, "bad", "SELET * WHERE {}")

	_, err := f.engine.Execute(context.Background(), Request{Name: qn})
	var ee *EndpointError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, model.CategorySyntaxError, ee.Category)
	assert.Contains(t, ee.Filtered, "Invalid SPARQL query: Token \"SELET\": mismatched input 'SELET'")
	assert.NotContains(t, ee.Filtered, "HTTP Error")
}

func TestExecute_StatusCategories(t *testing.T) {
	tests := []struct {
		status int
		want   model.ErrorCategory
	}{
		{http.StatusTooManyRequests, model.CategoryTooManyRequests},
		{http.StatusServiceUnavailable, model.CategoryServiceUnavailable},
		{http.StatusBadGateway, model.CategoryBadGateway},
		{http.StatusGatewayTimeout, model.CategoryTimeout},
		{http.StatusUnauthorized, model.CategoryAuthorizationError},
		{http.StatusInternalServerError, model.CategoryEndpointInternalError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := newFixture(t, testutil.Status(tt.status, "text/plain", ""))
			qn := f.register(t, "q", "SELECT * WHERE { ?s ?p ?o }")

			_, err := f.engine.Execute(context.Background(), Request{Name: qn})
			cat, ok := CategoryOf(err)
			require.True(t, ok, "error %v", err)
			assert.Equal(t, tt.want, cat)
			assert.Len(t, f.fake.Received(), 1, "no retries")
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(string) testutil.Reply {
		<-release
		return testutil.Reply{Body: testutil.Bindings([]string{"x"})}
	}, func(ep *endpoint.Endpoint, o *Options) {
		o.DefaultTimeout = 50 * time.Millisecond
		o.TimeoutSlack = -1
	})
	defer close(release)
	qn := f.register(t, "slow", "SELECT * WHERE { ?s ?p ?o }")

	_, err := f.engine.Execute(context.Background(), Request{Name: qn})
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "error %v", err)

	stored, err := f.store.Stats(context.Background(), qn.QueryID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	fail, ok := stored[0].Failure()
	require.True(t, ok)
	assert.Equal(t, model.CategoryTimeout, fail.Category)
}

func TestExecute_CancelledContextIsTimeout(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))
	nq := model.NamedQuery{QueryName: model.NewQueryName("cats", "", ""), SPARQL: catsSPARQL}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Execute(ctx, Request{Query: &nq})
	assert.True(t, IsTimeout(err), "error %v", err)

	stored, err := f.store.Stats(context.Background(), nq.QueryID())
	require.NoError(t, err)
	assert.Len(t, stored, 1, "stats recorded after cancellation")
}

func TestExecute_ConnectionRefused(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))
	f.fake.Close()
	qn := f.register(t, "cats", catsSPARQL)

	_, err := f.engine.Execute(context.Background(), Request{Name: qn})
	cat, ok := CategoryOf(err)
	require.True(t, ok, "error %v", err)
	assert.Equal(t, model.CategoryConnectionError, cat)
}

func TestExecute_GetAndBasicAuth(t *testing.T) {
	f := newFixture(t, testutil.Cats(3), func(ep *endpoint.Endpoint, _ *Options) {
		ep.Method = endpoint.MethodGET
		ep.Auth = endpoint.AuthBasic
		ep.User = "scott"
		ep.Password = "tiger"
	})
	qn := f.register(t, "cats", catsSPARQL)

	_, err := f.engine.Execute(context.Background(), Request{Name: qn})
	require.NoError(t, err)

	got := f.fake.Last(t)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.True(t, got.HasAuth)
	assert.Equal(t, "scott", got.User)
	assert.Equal(t, "tiger", got.Password)
	assert.Equal(t, "application/sparql-results+json", got.Accept)
	assert.Contains(t, got.Query, "wdt:P31 wd:Q146")
}

func TestExecute_PostForm(t *testing.T) {
	f := newFixture(t, testutil.Cats(3))
	qn := f.register(t, "cats", catsSPARQL)

	_, err := f.engine.Execute(context.Background(), Request{Name: qn, Limit: 2})
	require.NoError(t, err)

	got := f.fake.Last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "application/x-www-form-urlencoded", got.ContentType)
	assert.False(t, got.HasAuth)
	assert.True(t, strings.HasSuffix(got.Query, "LIMIT 2"), got.Query)
	assert.True(t, strings.HasPrefix(got.Query, "PREFIX wd:"), "simple merger prepends the endpoint block")
}

func TestExecute_NotFound(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))

	_, err := f.engine.Execute(context.Background(), Request{Name: model.NewQueryName("nope", "", "")})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.fake.Received())
}

func TestExecute_MissingParameter(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))
	qn := f.register(t, "p", "SELECT ?p WHERE { wd:{{ q }} ?p ?o }")

	_, err := f.engine.Execute(context.Background(), Request{Name: qn})
	assert.ErrorIs(t, err, params.ErrMissingParameter)
	assert.Empty(t, f.fake.Received(), "nothing sent")

	stored, err := f.store.Stats(context.Background(), qn.QueryID())
	require.NoError(t, err)
	assert.Empty(t, stored, "no stats before dispatch")
}

func TestExecute_StrictRejectsUnknownParameter(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))
	qn := f.register(t, "p", "SELECT ?p WHERE { wd:{{ q }} ?p ?o }")

	req := Request{Name: qn, Params: map[string]string{"q": "Q1", "extra": "x"}}
	_, err := f.engine.Execute(context.Background(), req)
	require.NoError(t, err)

	req.Strict = true
	_, err = f.engine.Execute(context.Background(), req)
	assert.ErrorIs(t, err, params.ErrUnknownParameter)
}

func TestExecute_UnknownEndpoint(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))
	qn := f.register(t, "cats", catsSPARQL)

	_, err := f.engine.Execute(context.Background(), Request{Name: qn, Endpoint: "nowhere"})
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestExecute_GraphSelectsEndpoint(t *testing.T) {
	graphs, err := endpoint.NewGraphs(nil,
		endpoint.Graph{Name: "wikidata-main", DefaultEndpointName: "wikidata"},
		endpoint.Graph{Name: "dangling", DefaultEndpointName: "gone"},
	)
	require.NoError(t, err)
	f := newFixture(t, testutil.Cats(2), func(_ *endpoint.Endpoint, o *Options) {
		o.Graphs = graphs
		o.DefaultEndpoint = "unset"
	})
	qn := f.register(t, "cats", catsSPARQL)

	res, err := f.engine.Execute(context.Background(), Request{Name: qn, Graph: "wikidata-main"})
	require.NoError(t, err)
	assert.Equal(t, "wikidata", res.Stats.EndpointName)
	assert.Len(t, f.fake.Received(), 1)

	_, err = f.engine.Execute(context.Background(), Request{Name: qn, Graph: "nowhere"})
	assert.ErrorIs(t, err, ErrUnknownGraph)

	_, err = f.engine.Execute(context.Background(), Request{Name: qn, Graph: "dangling"})
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	_, err = f.engine.Execute(context.Background(), Request{Name: qn, Graph: "nowhere", Endpoint: "wikidata"})
	require.NoError(t, err, "an explicit endpoint wins over the graph")
}

func TestExecute_GraphWithoutDirectory(t *testing.T) {
	f := newFixture(t, testutil.Cats(1))
	qn := f.register(t, "cats", catsSPARQL)

	_, err := f.engine.Execute(context.Background(), Request{Name: qn, Graph: "wikidata"})
	assert.ErrorIs(t, err, ErrUnknownGraph)
}

func TestExecute_SQLEndpointUnsupported(t *testing.T) {
	f := newFixture(t, testutil.Cats(1), func(ep *endpoint.Endpoint, _ *Options) {
		ep.Lang = endpoint.LangSQL
	})
	qn := f.register(t, "cats", catsSPARQL)

	_, err := f.engine.Execute(context.Background(), Request{Name: qn})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestExecute_AdHocQuery(t *testing.T) {
	f := newFixture(t, testutil.Cats(2))
	nq := model.NamedQuery{QueryName: model.QueryName{Name: "adhoc"}, SPARQL: catsSPARQL}

	res, err := f.engine.Execute(context.Background(), Request{Query: &nq})
	require.NoError(t, err)
	assert.Equal(t, "adhoc--examples@wikidata.org", res.Stats.QueryID)
}

func TestExecute_NonBlazegraphRewritesWith(t *testing.T) {
	f := newFixture(t, testutil.Cats(1), func(ep *endpoint.Endpoint, _ *Options) {
		ep.Database = "qlever"
	})
	qn := f.register(t, "with", "SELECT ?item WHERE { WITH { SELECT ?item WHERE { ?item wdt:P31 wd:Q146 } } AS %cats INCLUDE %cats }")

	_, err := f.engine.Execute(context.Background(), Request{Name: qn, Merger: MergerRaw})
	require.NoError(t, err)
	sent := f.fake.Last(t).Query
	assert.NotContains(t, sent, "INCLUDE")
	assert.NotContains(t, sent, "WITH {")
}

type stubEnricher struct {
	calls int
	err   error
}

func (s *stubEnricher) Enrich(_ context.Context, nq model.NamedQuery) (model.NamedQuery, error) {
	s.calls++
	if s.err != nil {
		return nq, s.err
	}
	nq.Title = "Cats"
	nq.Description = "Items that are instances of house cat."
	return nq, nil
}

func TestExecute_EnrichmentRequiresRight(t *testing.T) {
	enricher := &stubEnricher{}
	f := newFixture(t, testutil.Cats(2), func(_ *endpoint.Endpoint, o *Options) {
		o.Enricher = enricher
	})
	qn := f.register(t, "cats", catsSPARQL)

	res, err := f.engine.Execute(context.Background(), Request{Name: qn})
	require.NoError(t, err)
	assert.Equal(t, 0, enricher.calls)
	assert.Empty(t, res.Query.Title)

	res, err = f.engine.Execute(context.Background(), Request{Name: qn, CanEnrich: true})
	require.NoError(t, err)
	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, "Cats", res.Query.Title)

	stored, err := f.store.Lookup(context.Background(), qn)
	require.NoError(t, err)
	assert.Equal(t, "Cats", stored.Title)
	assert.Equal(t, catsSPARQL, stored.SPARQL)

	_, err = f.engine.Execute(context.Background(), Request{Name: qn, CanEnrich: true})
	require.NoError(t, err)
	assert.Equal(t, 1, enricher.calls, "complete metadata is not enriched again")
}

func TestExecute_EnrichmentFailureKeepsQuery(t *testing.T) {
	enricher := &stubEnricher{err: errors.New("model unavailable")}
	f := newFixture(t, testutil.Cats(2), func(_ *endpoint.Endpoint, o *Options) {
		o.Enricher = enricher
	})
	qn := f.register(t, "cats", catsSPARQL)

	res, err := f.engine.Execute(context.Background(), Request{Name: qn, CanEnrich: true})
	require.NoError(t, err)
	assert.Empty(t, res.Query.Title)
}

func TestExecute_Concurrent(t *testing.T) {
	f := newFixture(t, testutil.Cats(5))
	qn := f.register(t, "cats", catsSPARQL)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := f.engine.Execute(context.Background(), Request{Name: qn})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	stored, err := f.store.Stats(context.Background(), qn.QueryID())
	require.NoError(t, err)
	assert.Len(t, stored, n)
}

func TestNew_RequiresRegistryAndEndpoints(t *testing.T) {
	_, err := New(Options{Endpoints: endpoint.DefaultEndpoints()})
	assert.Error(t, err)

	_, err = New(Options{Registry: testutil.NewStore(t)})
	assert.Error(t, err)
}
