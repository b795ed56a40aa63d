package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// MockProvider is a test/stub implementation of MessageProvider. It records
// every request and can be told to fail.
type MockProvider struct {
	logger *slog.Logger

	mu       sync.Mutex
	requests []SendRequest
	seq      int

	FailSend bool
}

func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger.With("provider", "mock")}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailSend {
		p.logger.WarnContext(ctx, "mock provider simulated send failure", "to", req.To)
		return nil, errors.New("mock provider simulated send failure")
	}

	p.requests = append(p.requests, req)
	p.seq++
	id := fmt.Sprintf("mock-%06d", p.seq)
	p.logger.DebugContext(ctx, "mock provider accepted message", "provider_message_id", id, "to", req.To)
	return &SendResponse{ProviderMessageID: id}, nil
}

// Requests returns a copy of everything sent so far.
func (p *MockProvider) Requests() []SendRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SendRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
