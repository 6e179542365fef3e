// Package shorturl resolves shortener links (w.wiki, QLever) to the SPARQL
// text they point at.
package shorturl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrResolve is returned when a short URL does not yield SPARQL.
var ErrResolve = errors.New("short url not resolved")

const (
	maxRedirects = 10
	maxBodyBytes = 8 << 20
	userAgent    = "nqm/1.0 (named query middleware)"
)

// ResolveError reports why a short URL could not be resolved.
type ResolveError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %s: %s", e.URL, e.Reason)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool { return target == ErrResolve }

// Config configures a Resolver.
type Config struct {
	Timeout   time.Duration // Default: 30s.
	UserAgent string
	Client    *http.Client // Optional; CheckRedirect is installed when nil.
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = userAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver follows shortener redirects and extracts SPARQL.
//
// ResolveInto records the outcome of the last resolution on the instance
// (URL, SPARQL, Err) so batch callers can keep going after a failure. A
// Resolver used that way must not be shared between goroutines; Resolve
// itself is safe for concurrent use.
type Resolver struct {
	client *http.Client
	config Config

	URL    string
	SPARQL string
	Err    error
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	cfg.defaults()
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		}
	}
	return &Resolver{client: client, config: cfg}
}

// ResolveInto resolves u and stores the result on the resolver. It reports
// whether SPARQL was found.
func (r *Resolver) ResolveInto(ctx context.Context, u string) bool {
	r.URL = u
	r.SPARQL, r.Err = r.Resolve(ctx, u)
	if r.Err != nil {
		r.config.Logger.Warn("short url not resolved", "url", u, "error", r.Err)
		return false
	}
	return true
}

// Resolve follows all redirects of shortURL and returns the embedded SPARQL.
func (r *Resolver) Resolve(ctx context.Context, shortURL string) (string, error) {
	if _, err := url.ParseRequestURI(shortURL); err != nil {
		return "", &ResolveError{URL: shortURL, Reason: "invalid url", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return "", &ResolveError{URL: shortURL, Reason: "new request", Err: err}
	}
	req.Header.Set("User-Agent", r.config.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &ResolveError{URL: shortURL, Reason: "http get", Err: err}
	}
	defer resp.Body.Close()

	// The final URL carries the query for the Wikidata dialect; no body
	// is needed in that case.
	final := resp.Request.URL
	if q := FromQueryURL(final); q != "" {
		return q, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ResolveError{URL: shortURL, Reason: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &ResolveError{URL: shortURL, Reason: "read body", Err: err}
	}
	q, err := FromHTML(strings.NewReader(string(body)))
	if err != nil {
		return "", &ResolveError{URL: shortURL, Reason: "parse html", Err: err}
	}
	if q == "" {
		return "", &ResolveError{URL: shortURL, Reason: "no sparql found at " + final.String()}
	}
	return q, nil
}

// sparqlStart matches text opening with a prologue or query form, after
// optional comment lines.
var sparqlStart = regexp.MustCompile(`(?is)^\s*(#[^\n]*(\n\s*|$))*(PREFIX|BASE|SELECT|ASK|CONSTRUCT|DESCRIBE)\b`)

// FromQueryURL extracts SPARQL from a query service URL of the Wikidata
// dialect: the fragment of "https://query.wikidata.org/#<sparql>" (also the
// embed.html variant) or its "query" query-string parameter. Text that does
// not read as a query, such as a page anchor, yields "".
func FromQueryURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if q := u.Query().Get("query"); looksLikeSPARQL(q) {
		return q
	}
	if q := strings.TrimSpace(strings.TrimPrefix(u.Fragment, "query=")); looksLikeSPARQL(q) {
		return q
	}
	return ""
}

func looksLikeSPARQL(s string) bool {
	return strings.TrimSpace(s) != "" && sparqlStart.MatchString(s)
}

// FromHTML extracts the text content of <textarea id="query"> from an HTML
// page, the way QLever renders a shared query.
func FromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	n := findTextarea(doc)
	if n == nil {
		return "", nil
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func findTextarea(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Textarea {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == "query" {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTextarea(c); found != nil {
			return found
		}
	}
	return nil
}

// Name derives a query name from a short URL: the last path segment
// ("https://w.wiki/6UCU" yields "6UCU").
func Name(shortURL string) string {
	u, err := url.Parse(shortURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return path.Base(strings.TrimSuffix(u.Path, "/"))
}
