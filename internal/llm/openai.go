package llm

import (
	"context"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI implements Provider for the OpenAI Chat Completions API and any
// compatible endpoint (local inference servers, gateways).
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAI creates an OpenAI-compatible provider. An empty baseURL selects
// the public API endpoint.
func NewOpenAI(httpClient *http.Client, baseURL, apiKey string) *OpenAI {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAI{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Complete sends a Chat Completions request and returns the first choice.
func (p *OpenAI) Complete(ctx context.Context, request Request) (*Response, error) {
	wireReq := openAIRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
	}
	if request.System != "" {
		wireReq.Messages = append(wireReq.Messages, openAIMessage{
			Role:    "system",
			Content: request.System,
		})
	}
	for _, msg := range request.Messages {
		wireReq.Messages = append(wireReq.Messages, openAIMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	var wireResp openAIResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/chat/completions", headers, wireReq, &wireResp, "llm/openai"); err != nil {
		return nil, err
	}

	resp := &Response{Model: wireResp.Model}
	if len(wireResp.Choices) > 0 {
		resp.Text = wireResp.Choices[0].Message.Content
		resp.StopReason = wireResp.Choices[0].FinishReason
	}
	return resp, nil
}

// --- OpenAI wire types ---

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
