package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/nqm/internal/auth"
	"github.com/roach88/nqm/internal/engine"
	"github.com/roach88/nqm/internal/format"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/params"
	"github.com/roach88/nqm/internal/store"
)

// errorBody is the JSON form of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
}

// control parameters are never bound to placeholders.
var control = map[string]bool{
	"domain": true, "endpoint": true, "graph": true, "limit": true, "merger": true, "strict": true,
}

const maxSearchLimit = 1000

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// statusFor maps an execution error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, params.ErrMissingParameter),
		errors.Is(err, params.ErrUnknownParameter),
		errors.Is(err, params.ErrInvalidValue),
		errors.Is(err, engine.ErrUnknownEndpoint),
		errors.Is(err, engine.ErrUnknownGraph),
		errors.Is(err, engine.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrEndpointFailure):
		if engine.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var ee *engine.EndpointError
	if errors.As(err, &ee) {
		body.Error = "endpoint failure"
		body.Category = string(ee.Category)
		body.Message = ee.Filtered
	}
	if status == http.StatusInternalServerError {
		s.opts.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

// pathParam returns a decoded route parameter. chi matches on the decoded
// path unless the request carries a distinct RawPath, in which case the
// captured value is still escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

// request builds an execution request from decoded route values and the
// query string.
func (s *Server) request(r *http.Request, namespace, name string) (engine.Request, error) {
	q := r.URL.Query()
	req := engine.Request{
		Name:     model.NewQueryName(name, namespace, q.Get("domain")),
		Endpoint: q.Get("endpoint"),
		Graph:    q.Get("graph"),
		Context:  s.opts.Context,
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return engine.Request{}, errors.New("limit must be a non-negative integer")
		}
		req.Limit = limit
	}
	if v := q.Get("merger"); v != "" {
		req.Merger = engine.ParseMerger(v)
	}
	if v := q.Get("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return engine.Request{}, errors.New("strict must be a boolean")
		}
		req.Strict = strict
	}
	for key, values := range q {
		if control[key] || len(values) == 0 {
			continue
		}
		if req.Params == nil {
			req.Params = map[string]string{}
		}
		req.Params[key] = values[len(values)-1]
	}
	if s.opts.Rights != nil {
		req.CanEnrich = s.opts.Rights.Has(r.Header.Get(OrcidHeader), auth.RightLLM)
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Registry.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "registry unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Endpoints.Redacted())
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Domain:    q.Get("domain"),
		Namespace: q.Get("namespace"),
		Name:      q.Get("name"),
		Limit:     100,
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		f.Limit = min(limit, maxSearchLimit)
	}

	out := []model.NamedQuery{}
	for nq, err := range s.opts.Registry.Search(r.Context(), f) {
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out = append(out, nq)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	ns, err := pathParam(r, "namespace")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	name, err := pathParam(r, "name")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := s.request(r, ns, name)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	p, err := s.opts.Engine.Prepare(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Query-Id", p.Query.QueryID())
	_, _ = w.Write([]byte(p.SPARQL))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ns, err := pathParam(r, "namespace")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	file, err := pathParam(r, "file")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	i := strings.LastIndex(file, ".")
	if i <= 0 || i == len(file)-1 {
		badRequest(w, "missing format suffix, want {name}.{"+strings.ReplaceAll(format.Names(), ", ", "|")+"}")
		return
	}
	name, suffix := file[:i], file[i+1:]
	f, err := format.ParseFormat(suffix)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	req, err := s.request(r, ns, name)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.opts.Engine.Execute(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	body, err := format.String(f, engine.Results{Vars: res.Vars, Rows: res.Rows})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("X-Query-Id", res.Stats.QueryID)
	w.Header().Set("X-Records", strconv.Itoa(len(res.Rows)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
