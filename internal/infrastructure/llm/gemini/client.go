package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/resilience"
)

// Client talks to the Google Generative Language API. One instance is
// shared by all requests; the generation model is passed per call, so the
// client carries no per-request state.
type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, embedModel string) (*Client, error) {
	return NewWithOptions(baseURL, apiKey, embedModel, Options{})
}

func NewWithOptions(baseURL, apiKey, embedModel string, options Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrCredentialMissing, "init gemini client", errors.New("api key is required"))
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate runs one generation attempt against the given model. Failures
// carry exactly one of the domain kinds: ErrQuotaExceeded, ErrTransient
// or ErrEmptyResponse. No tier fallback happens here; that policy belongs
// to the orchestrator.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	operation := "generate " + model

	request := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 1000,
		},
	}

	var response generateResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", model)
	if err := c.call(ctx, operation, path, request, &response); err != nil {
		return "", wrapGenerationError(operation, err)
	}

	text := extractCandidateText(response)
	if text == "" {
		return "", domain.WrapError(domain.ErrEmptyResponse, operation, errors.New("no candidate text in response"))
	}
	return text, nil
}

// Healthy probes the models endpoint without spending generation quota.
func (c *Client) Healthy(ctx context.Context) error {
	return c.getJSON(ctx, "models", "/v1beta/models?pageSize=1", &struct{}{})
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	fn := func(callCtx context.Context) error {
		return c.postJSON(callCtx, operation, path, payload, out)
	}
	if c.executor != nil {
		return c.executor.Execute(ctx, operation, fn, classifyGeminiError)
	}
	return fn(ctx)
}

func extractCandidateText(response generateResponse) string {
	var b strings.Builder
	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		break
	}
	return strings.TrimSpace(b.String())
}
