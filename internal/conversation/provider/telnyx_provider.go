package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TelnyxProvider sends messages through the Telnyx v2 messages API.
type TelnyxProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

func NewTelnyxProvider(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *TelnyxProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TelnyxProvider{
		logger:     logger.With("provider", "telnyx"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (p *TelnyxProvider) Name() string { return "telnyx" }

type telnyxSendRequest struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

type telnyxSendResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type telnyxErrorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (p *TelnyxProvider) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	payload := telnyxSendRequest{
		From:      req.From,
		To:        req.To,
		Text:      req.Body,
		MediaURLs: req.MediaURLs,
	}

	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal telnyx request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create telnyx request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Telnyx request failed", "error", err, "to", req.To)
		return nil, fmt.Errorf("telnyx request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read telnyx response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp telnyxErrorResponse
		detail := ""
		if json.Unmarshal(respBody, &errResp) == nil && len(errResp.Errors) > 0 {
			detail = errResp.Errors[0].Detail
			if detail == "" {
				detail = errResp.Errors[0].Title
			}
		}
		p.logger.ErrorContext(ctx, "Telnyx rejected message",
			"status_code", httpResp.StatusCode, "detail", detail, "to", req.To)
		return nil, fmt.Errorf("telnyx send failed (status %d): %s", httpResp.StatusCode, detail)
	}

	var resp telnyxSendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode telnyx response: %w", err)
	}

	p.logger.DebugContext(ctx, "Telnyx accepted message", "provider_message_id", resp.Data.ID, "to", req.To)
	return &SendResponse{ProviderMessageID: resp.Data.ID}, nil
}
