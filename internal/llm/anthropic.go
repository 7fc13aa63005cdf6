package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// Anthropic implements Provider for the Anthropic Messages API.
type Anthropic struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAnthropic creates an Anthropic provider. An empty baseURL selects the
// public API endpoint.
func NewAnthropic(httpClient *http.Client, baseURL, apiKey string) *Anthropic {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &Anthropic{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Complete sends a Messages API request and returns the text content.
func (p *Anthropic) Complete(ctx context.Context, request Request) (*Response, error) {
	wireReq := anthropicRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxTokens,
		System:      request.System,
		Temperature: request.Temperature,
	}
	for _, msg := range request.Messages {
		wireReq.Messages = append(wireReq.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}

	var wireResp anthropicResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", headers, wireReq, &wireResp, "llm/anthropic"); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range wireResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Text:       text.String(),
		Model:      wireResp.Model,
		StopReason: wireResp.StopReason,
	}, nil
}

// --- Anthropic wire types ---

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}
