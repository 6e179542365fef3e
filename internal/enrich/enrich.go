// Package enrich asks an OpenAI-compatible chat model for a title and a
// description of named queries that lack them.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/roach88/nqm/internal/model"
)

// ErrNoSuggestion is returned when the model answers without usable text.
var ErrNoSuggestion = errors.New("no enrichment suggestion")

const (
	DefaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
	maxTitle       = 120
)

const systemPrompt = `You describe SPARQL queries for a catalog of named queries.
Answer with a JSON object {"title": "...", "description": "..."}.
The title is a single line of at most ten words.
The description is one or two sentences explaining what the query returns.`

// Config configures an Enricher.
type Config struct {
	// BaseURL of the API, e.g. "https://api.openai.com/v1" or a local
	// OpenAI-compatible server.
	BaseURL string
	Model   string
	// APIKey is optional for local services.
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Enricher fills in missing metadata. It is safe for concurrent use.
type Enricher struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// New creates an Enricher.
func New(cfg Config) (*Enricher, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, errors.New("enrich: api key or base url is required")
		}
		apiKey = "local"
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

type suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Enrich returns nq with an empty title or description filled in. Present
// fields are never replaced.
func (e *Enricher) Enrich(ctx context.Context, nq model.NamedQuery) (model.NamedQuery, error) {
	if nq.Title != "" && nq.Description != "" {
		return nq, nil
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt(nq)},
		},
	})
	if err != nil {
		return nq, fmt.Errorf("enrich %s: %w", nq.QueryID(), err)
	}
	if len(resp.Choices) == 0 {
		return nq, fmt.Errorf("enrich %s: %w", nq.QueryID(), ErrNoSuggestion)
	}

	s, err := parse(resp.Choices[0].Message.Content)
	if err != nil {
		return nq, fmt.Errorf("enrich %s: %w", nq.QueryID(), err)
	}
	if nq.Title == "" {
		nq.Title = s.Title
	}
	if nq.Description == "" {
		nq.Description = s.Description
	}
	e.logger.Debug("query enriched", "query_id", nq.QueryID(), "model", e.model, "tokens", resp.Usage.TotalTokens)
	return nq, nil
}

func prompt(nq model.NamedQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", nq.Name)
	if nq.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", nq.Title)
	}
	if nq.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", nq.Description)
	}
	b.WriteString("SPARQL:\n")
	b.WriteString(nq.SPARQL)
	return b.String()
}

// parse reads the JSON answer, tolerating a markdown code fence around it.
func parse(content string) (suggestion, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var s suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &s); err != nil {
		return suggestion{}, fmt.Errorf("%w: %v", ErrNoSuggestion, err)
	}
	s.Title = strings.Join(strings.Fields(s.Title), " ")
	if len(s.Title) > maxTitle {
		s.Title = strings.TrimSpace(s.Title[:maxTitle])
	}
	s.Description = strings.TrimSpace(s.Description)
	if s.Title == "" && s.Description == "" {
		return suggestion{}, ErrNoSuggestion
	}
	return s, nil
}
