package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/eschatch/eschatch/internal/config"
)

// NewHTTPClient returns an HTTP client with retry and backoff on transient
// failures. retryablehttp's default policy retries connection errors and
// 429/5xx responses, which covers the rate-limit and overload cases the
// providers actually produce.
func NewHTTPClient(timeout time.Duration, maxRetries int) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.Logger = nil // our slog goes to a file; retry chatter is not worth a line

	client := rc.StandardClient()
	client.Timeout = timeout
	return client
}

// New builds the configured provider.
func New(cfg config.LLMConfig, apiKey string) (Provider, error) {
	httpClient := NewHTTPClient(time.Duration(cfg.Timeout), cfg.MaxRetries)

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropic(httpClient, cfg.BaseURL, apiKey), nil
	case "openai":
		return NewOpenAI(httpClient, cfg.BaseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
