// Package responder provides the reply-generation backends for chat
// messages. The conversation layer calls whichever backend is configured and
// falls back to echo when the downstream one is unavailable.
package responder

import (
	"context"
	"fmt"
)

// ResponderType identifies a reply-generation backend.
type ResponderType string

const (
	// TypeEcho answers every message with its own content.
	TypeEcho ResponderType = "echo"

	// TypeHTTP forwards messages to a downstream generation service.
	TypeHTTP ResponderType = "http"
)

// Prompt is a request for a reply to a user message.
type Prompt struct {
	// SessionID is the conversation the message belongs to.
	SessionID string

	// UserID is the authenticated sender.
	UserID string

	// Content is the user's message text.
	Content string
}

// Reply is a generated answer.
type Reply struct {
	// Content is the reply text.
	Content string

	// IsEcho marks replies that merely repeat the prompt.
	IsEcho bool
}

// Responder generates replies to user messages.
type Responder interface {
	// Generate produces a reply for the prompt.
	Generate(ctx context.Context, prompt *Prompt) (*Reply, error)

	// Close releases any resources held by the responder.
	Close() error
}

// Config selects and configures a responder implementation.
type Config struct {
	Type ResponderType
	HTTP *HTTPConfig
}

// NewResponder creates a responder for the configured type. An empty type
// falls back to echo.
func NewResponder(cfg *Config) (Responder, error) {
	if cfg == nil {
		cfg = &Config{Type: TypeEcho}
	}

	switch cfg.Type {
	case TypeEcho, "":
		return NewEchoResponder(), nil
	case TypeHTTP:
		return NewHTTPResponder(cfg.HTTP)
	default:
		return nil, fmt.Errorf("unsupported responder type: %s", cfg.Type)
	}
}
