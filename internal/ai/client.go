// Package ai talks to an OpenAI-compatible endpoint for document analysis and
// the policy chat assistant. Responses are requested as JSON objects and
// parsed defensively; models occasionally wrap the payload in prose.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"policyproof/internal/finding"
)

const maxResponseTokens = 4096

// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// Config describes how to reach the provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Answer is one assistant reply plus the policy context it referenced.
type Answer struct {
	Text                 string    `json:"answer"`
	ReferencedFrameworks []string  `json:"referenced_frameworks"`
	RelevantArticles     []Article `json:"relevant_articles"`
}

// Article cites one regulation or guidance document.
type Article struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Client wraps the provider client with the model choice.
type Client struct {
	*openai.Client
	model string
}

// New builds a client for the configured endpoint.
func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{Client: openai.NewClientWithConfig(clientCfg), model: model}
}

// Analyze reviews the document's pages against the selected frameworks and
// returns the findings. Findings pointing outside [1, len(pages)] are dropped;
// the rest of a partially malformed response is still used.
func (c *Client) Analyze(ctx context.Context, name string, pages []string, frameworks []string) ([]finding.Finding, error) {
	raw, err := c.complete(ctx, analysisSystemPrompt, buildAnalysisPrompt(name, pages, frameworks))
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", name, err)
	}
	findings, err := parseFindings(raw, len(pages))
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", name, err)
	}
	return findings, nil
}

// Ask sends one chat message and returns the reply with its policy context.
func (c *Client) Ask(ctx context.Context, message string, frameworks []string) (Answer, error) {
	raw, err := c.complete(ctx, chatSystemPrompt, buildChatPrompt(message, frameworks))
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	answer, err := parseAnswer(raw)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return answer, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxResponseTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return "", ErrQuotaExceeded
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
