// Package classify maps raw SPARQL endpoint error payloads to a closed set
// of categories and a short human message.
//
// Both the category table and the message extractors are data: Rules is
// tried in order and the first rule with a matching marker wins; Extractors
// are tried in order and the first non-empty extraction becomes the message.
package classify

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/roach88/nqm/internal/model"
)

// Rule assigns a category to payloads containing any marker. Markers are
// matched case-insensitively.
type Rule struct {
	Category model.ErrorCategory
	Markers  []string
	// Sentence is the generic message used when no extractor applies.
	Sentence string
}

// Rules is the classification table in priority order.
var Rules = []Rule{
	{
		Category: model.CategoryTimeout,
		Markers: []string{
			"timeout after", "timeoutexception", "timed out", "query timeout",
			"context deadline exceeded", "deadline exceeded", "http error 504", "gateway time-out",
			"query took too long",
		},
		Sentence: "The query timed out.",
	},
	{
		Category: model.CategorySyntaxError,
		Markers: []string{
			"querybadformed", "malformedqueryexception", "parseexception", "syntax error",
			"invalid sparql", "parse error", "sparql compiler", "bad request",
		},
		Sentence: "The query has a syntax error.",
	},
	{
		Category: model.CategoryConnectionError,
		Markers: []string{
			"connection refused", "connectionerror", "connection reset", "no such host",
			"name or service not known", "failed to establish a new connection",
			"network is unreachable", "urlopen error", "remote end closed connection",
		},
		Sentence: "The endpoint could not be reached.",
	},
	{
		Category: model.CategoryAuthorizationError,
		Markers: []string{
			"http error 401", "http error 403", "unauthorized", "forbidden", "access denied",
		},
		Sentence: "The endpoint refused the credentials.",
	},
	{
		Category: model.CategoryServiceUnavailable,
		Markers:  []string{"http error 503", "service unavailable", "service temporarily unavailable"},
		Sentence: "The endpoint is temporarily unavailable.",
	},
	{
		Category: model.CategoryTooManyRequests,
		Markers:  []string{"http error 429", "too many requests", "rate limit"},
		Sentence: "Too many requests were sent to the endpoint.",
	},
	{
		Category: model.CategoryBadGateway,
		Markers:  []string{"http error 502", "bad gateway"},
		Sentence: "The endpoint's gateway failed.",
	},
	{
		Category: model.CategoryEndpointInternalError,
		Markers: []string{
			"http error 500", "internal server error", "java.lang.", "nullpointerexception",
			"outofmemoryerror",
		},
		Sentence: "The endpoint failed while running the query.",
	},
}

// maxMessage bounds pass-through messages.
const maxMessage = 500

// Result is a classified payload.
type Result struct {
	Category model.ErrorCategory
	Message  string
}

// Classify categorizes a raw payload and extracts its human message. It never
// panics; unknown shapes yield CategoryOther with a pass-through message.
func Classify(raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("error classifier recovered", "panic", r)
			res = Result{Category: model.CategoryOther, Message: passThrough(raw)}
		}
	}()

	rule, ok := Match(raw)
	if !ok {
		msg := Extract(raw)
		if msg == "" {
			msg = passThrough(raw)
		}
		return Result{Category: model.CategoryOther, Message: msg}
	}

	msg := Extract(raw)
	if msg == "" {
		msg = rule.Sentence
	}
	return Result{Category: rule.Category, Message: msg}
}

// Match returns the first rule whose marker occurs in raw.
func Match(raw string) (Rule, bool) {
	lower := strings.ToLower(raw)
	for _, r := range Rules {
		for _, m := range r.Markers {
			if strings.Contains(lower, m) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// Category is Classify returning only the category.
func Category(raw string) model.ErrorCategory {
	return Classify(raw).Category
}

func passThrough(raw string) string {
	msg := strings.TrimSpace(cutStackFrames(decodeEscapes(raw)))
	if len(msg) > maxMessage {
		cut := maxMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "…"
	}
	return msg
}
