package provider

import "context"

// SendRequest carries one outbound SMS/MMS to a provider adapter.
type SendRequest struct {
	From      string
	To        string
	Body      string
	MediaURLs []string
}

// SendResponse is the provider's acknowledgment of a submitted message.
type SendResponse struct {
	ProviderMessageID string
}

// MessageProvider is implemented by outbound SMS/MMS provider adapters.
type MessageProvider interface {
	Name() string
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}
