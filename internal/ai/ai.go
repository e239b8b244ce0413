// Package ai produces short product summaries through a hosted LLM.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/matheuskafuri/phnews/internal/config"
	"github.com/matheuskafuri/phnews/internal/model"
)

const (
	claudeURL = "https://api.anthropic.com/v1/messages"
	openaiURL = "https://api.openai.com/v1/chat/completions"
)

var ErrNotConfigured = errors.New("AI not configured")

// Result holds the output from an LLM summarization call.
type Result struct {
	Summary string
	Tags    []string
}

// Summarizer generates summaries and tags for products.
type Summarizer interface {
	Summarize(ctx context.Context, p model.Product) (Result, error)
}

// New creates a Summarizer from the given AI config.
func New(cfg *config.AIConfig, apiKey string) (Summarizer, error) {
	if cfg == nil || apiKey == "" {
		return nil, ErrNotConfigured
	}

	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	switch cfg.Provider {
	case "claude":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return &claudeProvider{endpoint: claudeURL, apiKey: apiKey, model: model, client: client}, nil
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &openaiProvider{endpoint: openaiURL, apiKey: apiKey, model: model, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: claude, openai)", cfg.Provider)
	}
}

const summarizePrompt = `Summarize this product launch in one sentence (max 120 chars) and provide up to 3 topic tags (single words like: ai, productivity, design, developer, marketing, finance, health, education).

Format your response EXACTLY like this:
SUMMARY: <one sentence summary>
TAGS: tag1, tag2, tag3

Name: %s
Tagline: %s
Topics: %s
Description: %s`

func promptFor(p model.Product) string {
	return fmt.Sprintf(summarizePrompt, p.Name, p.Tagline, strings.Join(p.TopicNames(), ", "), p.Description)
}

func parseSummaryResponse(text string) Result {
	var r Result
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "SUMMARY:") {
			r.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		} else if strings.HasPrefix(line, "TAGS:") {
			tagStr := strings.TrimSpace(strings.TrimPrefix(line, "TAGS:"))
			for _, t := range strings.Split(tagStr, ",") {
				t = strings.TrimSpace(strings.ToLower(t))
				if t != "" {
					r.Tags = append(r.Tags, t)
				}
			}
			if len(r.Tags) > 3 {
				r.Tags = r.Tags[:3]
			}
		}
	}
	return r
}

func apiError(name string, resp *resty.Response) error {
	body := resp.String()
	if len(body) > 1024 {
		body = body[:1024]
	}
	return fmt.Errorf("%s API %d: %s", name, resp.StatusCode(), body)
}

// --- Claude provider ---

type claudeProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *resty.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) Summarize(ctx context.Context, p model.Product) (Result, error) {
	var cr claudeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(claudeRequest{
			Model:     c.model,
			MaxTokens: 256,
			Messages:  []claudeMessage{{Role: "user", Content: promptFor(p)}},
		}).
		SetResult(&cr).
		Post(c.endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("claude API error: %w", err)
	}
	if resp.IsError() {
		return Result{}, apiError("claude", resp)
	}
	if len(cr.Content) == 0 {
		return Result{}, fmt.Errorf("empty claude response")
	}
	return parseSummaryResponse(cr.Content[0].Text), nil
}

// --- OpenAI provider ---

type openaiProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *resty.Client
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openaiProvider) Summarize(ctx context.Context, p model.Product) (Result, error) {
	var or openaiResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetBody(openaiRequest{
			Model:    o.model,
			Messages: []openaiMessage{{Role: "user", Content: promptFor(p)}},
		}).
		SetResult(&or).
		Post(o.endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("openai API error: %w", err)
	}
	if resp.IsError() {
		return Result{}, apiError("openai", resp)
	}
	if len(or.Choices) == 0 {
		return Result{}, fmt.Errorf("empty openai response")
	}
	return parseSummaryResponse(or.Choices[0].Message.Content), nil
}
