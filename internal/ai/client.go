package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	internalerrors "github.com/olegiv/sniper-tuner-go/internal/errors"
)

// Client wraps the Anthropic API client
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// Stats holds statistics about the API call
type Stats struct {
	Provider            string
	Model               string
	InputTokens         int
	OutputTokens        int
	CacheCreationTokens int
	CacheReadTokens     int
	CostUSD             float64
	DurationSeconds     float64
}

// NewClient creates a new Claude AI client
func NewClient(apiKey, model, proxyURL string, timeoutSeconds, maxTokens int) (*Client, error) {
	var httpClient *http.Client
	timeout := time.Duration(timeoutSeconds) * time.Second

	// Configure proxy if provided
	if proxyURL != "" {
		proxyURLParsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}

		if proxyURLParsed.Scheme != "http" && proxyURLParsed.Scheme != "https" {
			return nil, fmt.Errorf("proxy URL must use http or https scheme, got: %s", proxyURLParsed.Scheme)
		}

		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURLParsed),
			},
			Timeout: timeout,
		}
	} else {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	client := anthropic.NewClient(
		apiKey,
		anthropic.WithHTTPClient(httpClient),
	)

	return &Client{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Narrate generates tuner's notes from the provided prompts
func (c *Client) Narrate(ctx context.Context, systemPrompt, userPrompt string) (*Narration, *Stats, error) {
	startTime := time.Now()

	response, err := retryWithBackoff(defaultMaxRetries, func() (anthropic.MessagesResponse, error) {
		return c.callAPI(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return nil, nil, err
	}

	// Extract response content
	if len(response.Content) == 0 {
		return nil, nil, fmt.Errorf("empty response from Claude")
	}

	responseText := ""
	for _, content := range response.Content {
		if content.Type == "text" && content.Text != nil {
			responseText += *content.Text
		}
	}

	narration, err := ParseNarration(responseText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse narration: %w", err)
	}

	stats := c.calculateStats(response, time.Since(startTime).Seconds())

	return narration, stats, nil
}

// callAPI makes the actual API call to Claude
func (c *Client) callAPI(ctx context.Context, systemPrompt, userPrompt string) (anthropic.MessagesResponse, error) {
	request := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(userPrompt),
				},
			},
		},
		System:    systemPrompt,
		MaxTokens: c.maxTokens,
	}

	response, err := c.client.CreateMessages(ctx, request)
	if err != nil {
		// Sanitize error to keep credentials out of error messages
		return anthropic.MessagesResponse{}, internalerrors.Wrapf(err, "API call failed")
	}

	return response, nil
}

// calculateStats calculates cost and token statistics
func (c *Client) calculateStats(response anthropic.MessagesResponse, durationSeconds float64) *Stats {
	inputTokens := response.Usage.InputTokens
	outputTokens := response.Usage.OutputTokens

	// Cache tokens (may be 0 if not using cache)
	cacheCreationTokens := response.Usage.CacheCreationInputTokens
	cacheReadTokens := response.Usage.CacheReadInputTokens

	// Calculate costs (Claude Sonnet 4.5 pricing)
	// Input: $3/MTok, Output: $15/MTok
	// Cache write: $3.75/MTok, Cache read: $0.30/MTok
	inputCost := float64(inputTokens) / 1000000 * 3.0
	outputCost := float64(outputTokens) / 1000000 * 15.0
	cacheWriteCost := float64(cacheCreationTokens) / 1000000 * 3.75
	cacheReadCost := float64(cacheReadTokens) / 1000000 * 0.30

	totalCost := inputCost + outputCost + cacheWriteCost + cacheReadCost

	return &Stats{
		Provider:            "Anthropic",
		Model:               c.model,
		InputTokens:         inputTokens,
		OutputTokens:        outputTokens,
		CacheCreationTokens: cacheCreationTokens,
		CacheReadTokens:     cacheReadTokens,
		CostUSD:             totalCost,
		DurationSeconds:     durationSeconds,
	}
}

// GetModelInfo returns information about the configured model
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":         c.model,
		"provider":      "Anthropic",
		"max_tokens":    c.maxTokens,
		"context_limit": 200000,
	}
}

// GetProviderName returns the name of the provider
func (c *Client) GetProviderName() string {
	return "Anthropic"
}

// Ensure Client implements Provider interface
var _ Provider = (*Client)(nil)
