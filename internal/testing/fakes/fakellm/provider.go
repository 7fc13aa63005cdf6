// Package fakellm provides a scripted model provider for testing.
package fakellm

import (
	"context"
	"fmt"
	"sync"

	"github.com/eschatch/eschatch/internal/llm"
)

type result struct {
	text string
	err  error
}

// Provider is a fake llm.Provider that returns queued results in order and
// records every request it receives.
type Provider struct {
	mu      sync.Mutex
	results []result
	calls   []llm.Request
	block   bool
}

// New creates a fake provider with no scripted results.
func New() *Provider {
	return &Provider{}
}

// Queue adds a successful response to be returned by a later Complete call.
func (p *Provider) Queue(text string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result{text: text})
	return p
}

// QueueError adds a failing result.
func (p *Provider) QueueError(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result{err: err})
	return p
}

// SetBlock makes Complete wait for context cancellation instead of
// returning a result. Useful for cancellation tests.
func (p *Provider) SetBlock(block bool) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.block = block
	return p
}

// Calls returns the requests received so far.
func (p *Provider) Calls() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	block := p.block
	var next result
	have := len(p.results) > 0
	if !block && have {
		next = p.results[0]
		p.results = p.results[1:]
	}
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !have {
		return nil, fmt.Errorf("no scripted response for request %d", len(p.calls))
	}
	if next.err != nil {
		return nil, next.err
	}
	return &llm.Response{Text: next.text, Model: req.Model, StopReason: "end_turn"}, nil
}
