package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
)

// DefaultHTTPTimeout bounds a single generation call.
const DefaultHTTPTimeout = 10 * time.Second

// HTTPConfig holds the configuration for the HTTP responder.
type HTTPConfig struct {
	// URL is the downstream generation endpoint.
	URL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// Timeout bounds a single call. Defaults to DefaultHTTPTimeout.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// HTTPResponder forwards messages to a downstream generation service.
type HTTPResponder struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// generateRequest is the downstream request body.
type generateRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// generateResponse is the downstream response body.
type generateResponse struct {
	Reply string `json:"reply"`
}

// NewHTTPResponder creates a new HTTP responder.
func NewHTTPResponder(cfg *HTTPConfig) (*HTTPResponder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("responder URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultHTTPTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &HTTPResponder{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Generate posts the prompt to the downstream service and returns its reply.
func (r *HTTPResponder) Generate(ctx context.Context, prompt *Prompt) (*Reply, error) {
	if prompt == nil {
		return nil, fmt.Errorf("prompt is required")
	}

	body, err := json.Marshal(&generateRequest{
		Message:   prompt.Content,
		SessionID: prompt.SessionID,
		UserID:    prompt.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, domainerrors.NewExternalServiceError("responder", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domainerrors.NewExternalServiceError("responder",
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, domainerrors.NewExternalServiceError("responder",
			fmt.Errorf("failed to decode response: %w", err))
	}

	return &Reply{
		Content: genResp.Reply,
		IsEcho:  false,
	}, nil
}

// Close releases any resources held by the responder.
func (r *HTTPResponder) Close() error {
	return nil
}

// setHeaders sets the required headers for generation requests.
func (r *HTTPResponder) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}
}
