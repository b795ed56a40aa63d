package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTelnyxProvider_SendSuccess(t *testing.T) {
	var captured telnyxSendRequest
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"msg-tx-001"}}`))
	}))
	defer server.Close()

	p := NewTelnyxProvider(testLogger(), server.URL, "secret-key", server.Client())

	resp, err := p.Send(context.Background(), SendRequest{
		From:      "+15550001111",
		To:        "+15559992222",
		Body:      "your card",
		MediaURLs: []string{"https://cdn.test/card.pdf"},
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-tx-001", resp.ProviderMessageID)
	assert.Equal(t, "Bearer secret-key", authHeader)
	assert.Equal(t, "+15550001111", captured.From)
	assert.Equal(t, "+15559992222", captured.To)
	assert.Equal(t, "your card", captured.Text)
	assert.Equal(t, []string{"https://cdn.test/card.pdf"}, captured.MediaURLs)
}

func TestTelnyxProvider_SendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"code":"40300","title":"Blocked","detail":"recipient opted out"}]}`))
	}))
	defer server.Close()

	p := NewTelnyxProvider(testLogger(), server.URL, "secret-key", server.Client())

	resp, err := p.Send(context.Background(), SendRequest{From: "+15550001111", To: "+15559992222", Body: "hi"})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "recipient opted out")
}

func TestTelnyxProvider_SendMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	p := NewTelnyxProvider(testLogger(), server.URL, "secret-key", server.Client())

	resp, err := p.Send(context.Background(), SendRequest{From: "+15550001111", To: "+15559992222", Body: "hi"})

	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestMockProvider_SequencesIDs(t *testing.T) {
	p := NewMockProvider(testLogger())

	first, err := p.Send(context.Background(), SendRequest{From: "+1", To: "+2", Body: "a"})
	require.NoError(t, err)
	second, err := p.Send(context.Background(), SendRequest{From: "+1", To: "+2", Body: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ProviderMessageID, second.ProviderMessageID)
	assert.Len(t, p.Requests(), 2)
}

func TestMockProvider_FailSend(t *testing.T) {
	p := NewMockProvider(testLogger())
	p.FailSend = true

	resp, err := p.Send(context.Background(), SendRequest{From: "+1", To: "+2", Body: "a"})

	assert.Nil(t, resp)
	assert.Error(t, err)
}
