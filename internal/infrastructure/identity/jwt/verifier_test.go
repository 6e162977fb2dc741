// Package jwt_test provides unit tests for the JWT verifier.
package jwt_test

import (
	"context"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/infrastructure/identity/jwt"
)

const testSecret = "unit-test-signing-secret"

func newVerifier(t *testing.T) *jwt.Verifier {
	t.Helper()

	verifier, err := jwt.NewVerifier(jwt.Config{
		Secret:   testSecret,
		Issuer:   "chatgate-idp",
		Audience: "chat-service",
	})
	require.NoError(t, err)
	return verifier
}

func signToken(t *testing.T, secret string, claims gojwt.MapClaims) string {
	t.Helper()

	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	verifier, err := jwt.NewVerifier(jwt.Config{})

	assert.Error(t, err)
	assert.Nil(t, verifier)
}

func TestVerifier_Verify_Success(t *testing.T) {
	// Arrange
	verifier := newVerifier(t)
	token := signToken(t, testSecret, gojwt.MapClaims{
		"sub":                "user-1",
		"iss":                "chatgate-idp",
		"aud":                "chat-service",
		"preferred_username": "jdoe",
		"email":              "jdoe@example.com",
		"groups":             []string{"admins", "operators"},
	})

	// Act
	identity, err := verifier.Verify(context.Background(), token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "jdoe", identity.Username)
	assert.Equal(t, "jdoe@example.com", identity.Email)
	assert.Equal(t, []string{"admins", "operators"}, identity.Groups)
}

func TestVerifier_Verify_UsernameFallback(t *testing.T) {
	// Arrange - no preferred_username, plain username claim instead
	verifier := newVerifier(t)
	token := signToken(t, testSecret, gojwt.MapClaims{
		"sub":      "user-1",
		"iss":      "chatgate-idp",
		"aud":      "chat-service",
		"username": "jdoe",
	})

	// Act
	identity, err := verifier.Verify(context.Background(), token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "jdoe", identity.Username)
}

func TestVerifier_Verify_CognitoGroups(t *testing.T) {
	// Arrange
	verifier := newVerifier(t)
	token := signToken(t, testSecret, gojwt.MapClaims{
		"sub":            "user-1",
		"iss":            "chatgate-idp",
		"aud":            "chat-service",
		"cognito:groups": []string{"viewers"},
	})

	// Act
	identity, err := verifier.Verify(context.Background(), token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"viewers"}, identity.Groups)
}

func TestVerifier_Verify_FailuresAreUniform(t *testing.T) {
	verifier := newVerifier(t)

	expired := signToken(t, testSecret, gojwt.MapClaims{
		"sub": "user-1",
		"iss": "chatgate-idp",
		"aud": "chat-service",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "some-other-secret", gojwt.MapClaims{
		"sub": "user-1",
		"iss": "chatgate-idp",
		"aud": "chat-service",
	})
	wrongIssuer := signToken(t, testSecret, gojwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"aud": "chat-service",
	})
	wrongAudience := signToken(t, testSecret, gojwt.MapClaims{
		"sub": "user-1",
		"iss": "chatgate-idp",
		"aud": "other-service",
	})
	missingSub := signToken(t, testSecret, gojwt.MapClaims{
		"iss": "chatgate-idp",
		"aud": "chat-service",
	})

	unsigned, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.MapClaims{
		"sub": "user-1",
		"iss": "chatgate-idp",
		"aud": "chat-service",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":        "not-a-token",
		"expired":        expired,
		"wrong key":      wrongKey,
		"wrong issuer":   wrongIssuer,
		"wrong audience": wrongAudience,
		"missing sub":    missingSub,
		"alg none":       unsigned,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			identity, err := verifier.Verify(context.Background(), token)

			// Every failure collapses into the same code and message so the
			// caller cannot use the error as an oracle.
			assert.Nil(t, identity)
			domainErr, ok := errors.GetDomainError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeAuthentication, domainErr.Code)
			assert.Equal(t, "token verification failed", domainErr.Message)
			assert.NotNil(t, domainErr.Err)
		})
	}
}

func TestVerifier_Verify_OptionalIssuerAudience(t *testing.T) {
	// Arrange - verifier with no issuer/audience configured accepts tokens
	// without those claims
	verifier, err := jwt.NewVerifier(jwt.Config{Secret: testSecret})
	require.NoError(t, err)

	token := signToken(t, testSecret, gojwt.MapClaims{"sub": "user-1"})

	// Act
	identity, err := verifier.Verify(context.Background(), token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
}
