// Package identity defines the token verification interface.
package identity

import (
	"context"

	"github.com/chatgate/chat-service/internal/domain/models"
)

// Verifier defines the interface for verifying bearer tokens.
type Verifier interface {
	// Verify checks the token's signature and claims and returns the
	// identity it carries. All verification failures are reported
	// uniformly as an authentication error so callers cannot distinguish
	// them; the underlying reason is wrapped for logging only.
	Verify(ctx context.Context, token string) (*models.Identity, error)
}
