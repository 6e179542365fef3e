package classify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nqm/internal/model"
)

const blazegraphSyntax = "HTTP Error 400: Bad Request\nResponse: b'SPARQL-QUERY: queryStr=SELET * WHERE {}\\njava.util.concurrent.ExecutionException: org.openrdf.query.MalformedQueryException: Encountered \" <PNAME_LN> \"SELET \"\" at line 1, column 1.\\nWas expecting one of:\\n    \"ask\" ...\\n\\tat java.util.concurrent.FutureTask.report(FutureTask.java:122)\\n\\tat org.eclipse.jetty.server.handler.ScopedHandler.handle(ScopedHandler.java:141)\\n'"

const blazegraphRaw = "SPARQL-QUERY: queryStr=SELET * WHERE {}\njava.util.concurrent.ExecutionException: org.openrdf.query.MalformedQueryException: Encountered \" <PNAME_LN> \"SELET \"\" at line 1, column 1.\n\tat java.util.concurrent.FutureTask.report(FutureTask.java:122)\n\tat org.eclipse.jetty.server.Server.handle(Server.java:503)\n"

const blazegraphTimeout = "HTTP Error 500: Internal Server Error\nResponse: b'SPARQL-QUERY: queryStr=SELECT ...\\njava.util.concurrent.ExecutionException: java.util.concurrent.TimeoutException\\n\\tat java.util.concurrent.FutureTask.report(FutureTask.java:122)\\n\\tat org.eclipse.jetty.server.Server.handle(Server.java:503)'"

const virtuosoSyntax = "HTTP Error 400: Bad Request\nResponse: b'Virtuoso 37000 Error SP030: SPARQL compiler, line 1: syntax error at \\'SELET\\' before \\'*\\'\\n\\nSPARQL query:\\nSELET * WHERE {}'"

const triplySyntax = "QueryBadFormed: A bad request has been sent to the endpoint: probably the SPARQL query is badly formed. \n\nResponse:\nb'{\"message\":\"Parse error on line 1: SELET\",\"requestId\":\"8a1b\"}'"

const qleverUnsupported = `{"exception":"Not supported: {\"exception\":\"SERVICE wikibase:label is not supported by QLever\",\"query\":\"SELECT ...\"}","status":"ERROR"}`

const qleverJSON = `{"exception":"Invalid SPARQL query: Token \"SELET\": mismatched input 'SELET' expecting {'ask', 'select'}","query":"SELET * WHERE {}","status":"ERROR"}`

func TestClassify_Corpus(t *testing.T) {
	corpus := []struct {
		name     string
		raw      string
		category model.ErrorCategory
		contains string
	}{
		{"blazegraph syntax escaped", blazegraphSyntax, model.CategorySyntaxError, "MalformedQueryException: Encountered"},
		{"blazegraph syntax raw", blazegraphRaw, model.CategorySyntaxError, "at line 1, column 1."},
		{"blazegraph timeout", blazegraphTimeout, model.CategoryTimeout, "TimeoutException"},
		{"virtuoso syntax", virtuosoSyntax, model.CategorySyntaxError, "SP030: SPARQL compiler, line 1: syntax error at 'SELET'"},
		{"triplydb syntax", triplySyntax, model.CategorySyntaxError, "Parse error on line 1: SELET"},
		{"qlever unsupported", qleverUnsupported, model.CategoryOther, "SERVICE wikibase:label is not supported by QLever"},
		{"qlever json syntax", qleverJSON, model.CategorySyntaxError, "mismatched input 'SELET'"},
		{"qlever json syntax over http", "HTTP Error 400: Bad Request\nResponse: b'" + qleverJSON + "'", model.CategorySyntaxError, "Invalid SPARQL query: Token \"SELET\": mismatched input 'SELET'"},
		{"local timeout", "timeout after 65s: Post \"https://query.wikidata.org/sparql\": context deadline exceeded", model.CategoryTimeout, "The query timed out."},
		{"refused", `Post "http://localhost:1/sparql": dial tcp 127.0.0.1:1: connect: connection refused`, model.CategoryConnectionError, "The endpoint could not be reached."},
		{"dns", "dial tcp: lookup nowhere.invalid: no such host", model.CategoryConnectionError, "could not be reached"},
		{"unauthorized", "HTTP Error 401: Unauthorized\nResponse: b''", model.CategoryAuthorizationError, "refused the credentials"},
		{"forbidden", "HTTP Error 403: Forbidden", model.CategoryAuthorizationError, "refused the credentials"},
		{"unavailable", "HTTP Error 503: Service Unavailable\nResponse: b'<html>down</html>'", model.CategoryServiceUnavailable, "temporarily unavailable"},
		{"rate limited", "HTTP Error 429: Too Many Requests\nResponse: b'Rate limit exceeded'", model.CategoryTooManyRequests, "Too many requests"},
		{"bad gateway", "HTTP Error 502: Bad Gateway\nResponse: b'<html>nginx</html>'", model.CategoryBadGateway, "gateway failed"},
		{"gateway timeout", "HTTP Error 504: Gateway Time-out", model.CategoryTimeout, "timed out"},
		{"internal", "HTTP Error 500: Internal Server Error\nResponse: b'boom'", model.CategoryEndpointInternalError, "failed while running"},
		{"unknown", "something odd happened", model.CategoryOther, "something odd happened"},
	}

	for _, c := range corpus {
		t.Run(c.name, func(t *testing.T) {
			res := Classify(c.raw)
			assert.Equal(t, c.category, res.Category)
			assert.NotEmpty(t, res.Message)
			assert.Contains(t, res.Message, c.contains)
			assert.NotContains(t, res.Message, "org.eclipse.jetty")
			assert.NotContains(t, res.Message, "\tat ")
			assert.NotContains(t, res.Message, `\n\tat `)
		})
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, model.CategoryServiceUnavailable, Category("http ERROR 503"))
	assert.Equal(t, model.CategorySyntaxError, Category("QUERYBADFORMED"))
}

func TestClassify_PriorityFirstMatchWins(t *testing.T) {
	raw := "HTTP Error 503: Service Unavailable ... timeout after 60s"
	assert.Equal(t, model.CategoryTimeout, Category(raw))
}

func TestClassify_EmptyAndHuge(t *testing.T) {
	res := Classify("")
	assert.Equal(t, model.CategoryOther, res.Category)

	huge := strings.Repeat("x", 5000)
	res = Classify(huge)
	assert.Equal(t, model.CategoryOther, res.Category)
	assert.LessOrEqual(t, len(res.Message), maxMessage+len("…"))
}

func TestClassify_TruncatesOnRuneBoundary(t *testing.T) {
	for _, pad := range []string{"", "x", "xx", "xxx"} {
		res := Classify(pad + strings.Repeat("日本", 400))
		assert.True(t, utf8.ValidString(res.Message), "pad %q", pad)
		assert.True(t, strings.HasSuffix(res.Message, "…"))
		assert.LessOrEqual(t, len(res.Message), maxMessage+len("…"))
	}
}

func TestExtractVirtuoso_RequiresVirtuosoText(t *testing.T) {
	assert.Empty(t, extractVirtuoso("HTTP Error 400: Bad Request\nResponse: b'"+qleverJSON+"'"))
	assert.NotEmpty(t, extractVirtuoso(virtuosoSyntax))
}

func TestRules_CoverEveryCategoryButOther(t *testing.T) {
	seen := map[model.ErrorCategory]bool{}
	for _, r := range Rules {
		seen[r.Category] = true
		assert.NotEmpty(t, r.Markers)
		assert.NotEmpty(t, r.Sentence)
		for _, m := range r.Markers {
			assert.Equal(t, strings.ToLower(m), m, "markers are lower case")
		}
	}
	for _, c := range model.Categories {
		if c == model.CategoryOther {
			continue
		}
		assert.True(t, seen[c], "no rule for %s", c)
	}
}

func TestDecodeEscapes(t *testing.T) {
	assert.Equal(t, "é\n'x'", decodeEscapes(`é\n\'x\'`))
	assert.Equal(t, "é", decodeEscapes(`\xc3\xa9`))
	assert.Equal(t, `\q`, decodeEscapes(`\q`))
}
