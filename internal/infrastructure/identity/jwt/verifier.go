// Package jwt provides the JWT token verifier implementation.
package jwt

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/domain/models"
)

// Config holds JWT verification configuration.
type Config struct {
	// Secret is the HMAC key used to verify token signatures.
	Secret string
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string
	// Audience is the expected aud claim. Empty skips the check.
	Audience string
}

// Verifier implements the identity.Verifier interface for HS256 JWTs.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a new JWT verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// chatClaims carries the claims the service consumes. Group claims vary by
// identity provider, so both common spellings are mapped.
type chatClaims struct {
	Username          string   `json:"username"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	Groups            []string `json:"groups"`
	CognitoGroups     []string `json:"cognito:groups"`
	jwt.RegisteredClaims
}

// Verify checks the token signature, expiry, issuer and audience, and maps
// the claims onto an identity. Every failure collapses into the same
// authentication error; the cause is kept wrapped for logging.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.Identity, error) {
	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &chatClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, authFailure(err)
	}

	claims, ok := token.Claims.(*chatClaims)
	if !ok || !token.Valid {
		return nil, authFailure(fmt.Errorf("invalid token"))
	}

	if claims.Subject == "" {
		return nil, authFailure(fmt.Errorf("missing sub claim"))
	}

	return &models.Identity{
		UserID:   claims.Subject,
		Username: claims.username(),
		Email:    claims.Email,
		Groups:   claims.groups(),
	}, nil
}

func (c *chatClaims) username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Username
}

func (c *chatClaims) groups() []string {
	if len(c.Groups) > 0 {
		return c.Groups
	}
	return c.CognitoGroups
}

// authFailure maps any verification failure onto the uniform authentication
// error. Callers must not be able to tell a bad signature from an expired
// token; the cause stays wrapped for logs.
func authFailure(cause error) error {
	domainErr := errors.NewAuthenticationError("token verification failed")
	domainErr.Err = cause
	return domainErr
}
