package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/nqm/internal/endpoint"
)

const (
	acceptResults = "application/sparql-results+json"
	userAgent     = "nqm/1.0 (named query middleware)"
	maxErrorBody  = 64 << 10
)

// failure is a raw, unclassified dispatch failure.
type failure struct {
	raw string
}

func (f *failure) Error() string { return f.raw }

// timeoutFor is the client-side budget for one request: the endpoint's
// server timeout (or the default) plus slack.
func (e *Engine) timeoutFor(ep endpoint.Endpoint) time.Duration {
	t := ep.ServerTimeout()
	if t <= 0 {
		t = e.opts.DefaultTimeout
	}
	return t + e.opts.TimeoutSlack
}

// Dispatch sends query to ep and parses the JSON bindings. Failures are
// returned as *failure carrying the raw payload; cancellation and deadline
// expiry are reported as a timeout.
func (e *Engine) Dispatch(ctx context.Context, ep endpoint.Endpoint, query string) (Results, error) {
	timeout := e.timeoutFor(ep)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newRequest(ctx, ep, query)
	if err != nil {
		return Results{}, &failure{raw: fmt.Sprintf("build request for %s: %v", ep.URL, err)}
	}

	resp, err := e.opts.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr == nil {
				ctxErr = context.DeadlineExceeded
			}
			return Results{}, &failure{raw: fmt.Sprintf("timeout after %s: %v", timeout, ctxErr)}
		}
		return Results{}, &failure{raw: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Results{}, &failure{raw: fmt.Sprintf("HTTP Error %d: %s\nResponse: b'%s'",
			resp.StatusCode, http.StatusText(resp.StatusCode), body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Results{}, &failure{raw: fmt.Sprintf("timeout after %s: %v", timeout, ctxErr)}
		}
		return Results{}, &failure{raw: fmt.Sprintf("read response: %v", err)}
	}
	res, err := ParseBindings(body)
	if err != nil {
		return Results{}, &failure{raw: err.Error()}
	}
	return res, nil
}

func newRequest(ctx context.Context, ep endpoint.Endpoint, query string) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	switch ep.HTTPMethod() {
	case endpoint.MethodGET:
		u, perr := url.Parse(ep.URL)
		if perr != nil {
			return nil, perr
		}
		q := u.Query()
		q.Set("query", query)
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	default:
		form := url.Values{"query": {query}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptResults)
	req.Header.Set("User-Agent", userAgent)
	if ep.BasicAuth() {
		req.SetBasicAuth(ep.User, ep.Password)
	}
	return req, nil
}
