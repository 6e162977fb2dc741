package responder

import (
	"context"
	"fmt"
)

// EchoResponder answers every message with its own content.
type EchoResponder struct{}

// NewEchoResponder creates a new echo responder.
func NewEchoResponder() *EchoResponder {
	return &EchoResponder{}
}

// Generate returns the prompt content unchanged, marked as an echo.
func (r *EchoResponder) Generate(ctx context.Context, prompt *Prompt) (*Reply, error) {
	if prompt == nil {
		return nil, fmt.Errorf("prompt is required")
	}

	return &Reply{
		Content: prompt.Content,
		IsEcho:  true,
	}, nil
}

// Close releases any resources held by the responder.
func (r *EchoResponder) Close() error {
	return nil
}
