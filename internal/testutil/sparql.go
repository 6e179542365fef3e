package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Received is one request seen by a FakeEndpoint.
type Received struct {
	Method      string
	Query       string
	Accept      string
	ContentType string
	User        string
	Password    string
	HasAuth     bool
}

// Reply is a scripted endpoint answer.
type Reply struct {
	Status int
	Body   string
	// Header is merged into the response headers.
	Header http.Header
}

// Responder decides the reply for a query text.
type Responder func(query string) Reply

// FakeEndpoint is an httptest SPARQL endpoint that records every request
// and answers through a Responder.
type FakeEndpoint struct {
	*httptest.Server

	mu       sync.Mutex
	received []Received
	respond  Responder
}

// NewFakeEndpoint starts a fake endpoint closed at test cleanup.
func NewFakeEndpoint(t testing.TB, respond Responder) *FakeEndpoint {
	t.Helper()
	f := &FakeEndpoint{respond: respond}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeEndpoint) serve(w http.ResponseWriter, r *http.Request) {
	rec := Received{
		Method:      r.Method,
		Accept:      r.Header.Get("Accept"),
		ContentType: r.Header.Get("Content-Type"),
	}
	rec.User, rec.Password, rec.HasAuth = r.BasicAuth()

	switch r.Method {
	case http.MethodGet:
		rec.Query = r.URL.Query().Get("query")
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Query = r.PostForm.Get("query")
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f.mu.Lock()
	f.received = append(f.received, rec)
	respond := f.respond
	f.mu.Unlock()

	reply := respond(rec.Query)
	for k, vs := range reply.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/sparql-results+json")
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply.Body))
}

// SetResponder replaces the responder.
func (f *FakeEndpoint) SetResponder(respond Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

// Received returns a copy of the requests seen so far.
func (f *FakeEndpoint) Received() []Received {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Received, len(f.received))
	copy(out, f.received)
	return out
}

// Last returns the most recent request. It fails the test when none arrived.
func (f *FakeEndpoint) Last(t testing.TB) Received {
	t.Helper()
	got := f.Received()
	if len(got) == 0 {
		t.Fatalf("fake endpoint %s received no request", f.URL)
	}
	return got[len(got)-1]
}

// Bindings builds an application/sparql-results+json body. Each row maps a
// variable to its value; empty values are left unbound. IRIs are typed uri.
func Bindings(vars []string, rows ...map[string]string) string {
	type term struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	bindings := make([]map[string]term, 0, len(rows))
	for _, row := range rows {
		b := map[string]term{}
		for _, v := range vars {
			val, ok := row[v]
			if !ok || val == "" {
				continue
			}
			typ := "literal"
			if strings.HasPrefix(val, "http://") || strings.HasPrefix(val, "https://") {
				typ = "uri"
			}
			b[v] = term{Type: typ, Value: val}
		}
		bindings = append(bindings, b)
	}
	doc := map[string]any{
		"head":    map[string]any{"vars": vars},
		"results": map[string]any{"bindings": bindings},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// OK replies 200 with body.
func OK(body string) Responder {
	return func(string) Reply { return Reply{Body: body} }
}

// Status replies with a fixed status and body.
func Status(status int, contentType, body string) Responder {
	return func(string) Reply {
		return Reply{Status: status, Body: body, Header: http.Header{"Content-Type": {contentType}}}
	}
}

// Cats answers with n cat items in the shape of the Wikidata "cats" example.
func Cats(n int) Responder {
	rows := make([]map[string]string, n)
	for i := range rows {
		rows[i] = map[string]string{
			"item":      fmt.Sprintf("http://www.wikidata.org/entity/Q%d", 100000+i),
			"itemLabel": fmt.Sprintf("Cat %d", i+1),
		}
	}
	return OK(Bindings([]string{"item", "itemLabel"}, rows...))
}

// BlazegraphMalformed is the 400 body Blazegraph returns for a query that
// does not parse, including the Jetty stack frames it appends.
func BlazegraphMalformed(detail string) string {
	return "SPARQL-QUERY: queryStr=" + url.QueryEscape("SELET") + "\n" +
		"java.util.concurrent.ExecutionException: org.openrdf.query.MalformedQueryException: " + detail + "\n" +
		"\tat java.util.concurrent.FutureTask.report(FutureTask.java:122)\n" +
		"\tat org.eclipse.jetty.server.handler.ScopedHandler.handle(ScopedHandler.java:141)\n" +
		"\tat org.eclipse.jetty.server.Server.handle(Server.java:497)\n"
}
