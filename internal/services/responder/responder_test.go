package responder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/services/responder"
)

func TestNewResponder_DefaultsToEcho(t *testing.T) {
	r, err := responder.NewResponder(nil)
	require.NoError(t, err)

	reply, err := r.Generate(context.Background(), &responder.Prompt{Content: "hello"})
	require.NoError(t, err)
	assert.True(t, reply.IsEcho)
}

func TestNewResponder_HTTPRequiresURL(t *testing.T) {
	_, err := responder.NewResponder(&responder.Config{Type: responder.TypeHTTP})
	assert.Error(t, err)

	_, err = responder.NewResponder(&responder.Config{
		Type: responder.TypeHTTP,
		HTTP: &responder.HTTPConfig{},
	})
	assert.Error(t, err)
}

func TestNewResponder_UnsupportedType(t *testing.T) {
	_, err := responder.NewResponder(&responder.Config{Type: "grpc"})
	assert.Error(t, err)
}

func TestEchoResponder_Generate(t *testing.T) {
	// Arrange
	r := responder.NewEchoResponder()

	// Act
	reply, err := r.Generate(context.Background(), &responder.Prompt{
		SessionID: "sess_1",
		UserID:    "user-1",
		Content:   "hello there",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, "hello there", reply.Content)
	assert.True(t, reply.IsEcho)
}

func TestEchoResponder_Generate_RequiresPrompt(t *testing.T) {
	r := responder.NewEchoResponder()

	_, err := r.Generate(context.Background(), nil)

	assert.Error(t, err)
}
