// Package llm is the reasoning collaborator: a provider-agnostic client for
// turning a task plus terminal context into generated command text. The
// engine only depends on the Provider interface; which vendor answered is
// invisible to it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Request is a completion request in provider-neutral form.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// Response is the provider's answer reduced to what the engine needs.
type Response struct {
	Text       string
	Model      string
	StopReason string
}

// Provider is implemented by each vendor backend.
type Provider interface {
	// Complete sends the request and blocks until the full response is
	// available. The context governs cancellation and timeout; a cancelled
	// call must not be used after it returns.
	Complete(ctx context.Context, request Request) (*Response, error)
}

// ProviderError is returned when the API answers with a non-200 status.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", e.StatusCode, e.Message)
}

// postJSON marshals wireRequest, POSTs it, and decodes the 200 response body
// into wireResponse. Non-200 responses become a ProviderError. The prefix
// names the provider in wrapped errors.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, wireRequest, wireResponse any, prefix string) error {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", prefix, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", prefix, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", prefix, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return readProviderError(httpResp)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(wireResponse); err != nil {
		return fmt.Errorf("%s: decode response: %w", prefix, err)
	}
	return nil
}

// readProviderError parses the common error envelope used by Anthropic,
// OpenAI, and compatible APIs: {"error":{"type":"...","message":"..."}}.
func readProviderError(httpResp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))

	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResp.StatusCode,
			Type:       wire.Error.Type,
			Message:    wire.Error.Message,
		}
	}
	return &ProviderError{StatusCode: httpResp.StatusCode, Message: string(body)}
}
