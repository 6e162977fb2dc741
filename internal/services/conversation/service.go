// Package conversation dispatches connection lifecycle and message events.
// It owns no state of its own: connections, identities, sessions and
// messages all live behind the injected services, so any instance can
// handle any event.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chat-service/internal/core/breaker"
	"github.com/chatgate/chat-service/internal/core/delivery"
	"github.com/chatgate/chat-service/internal/core/docdb"
	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/domain/models"
	"github.com/chatgate/chat-service/internal/metrics"
	"github.com/chatgate/chat-service/internal/services/authgate"
	"github.com/chatgate/chat-service/internal/services/registry"
	"github.com/chatgate/chat-service/internal/services/responder"
	"github.com/chatgate/chat-service/internal/services/sessions"
)

const (
	// DefaultMaxMessageLength caps chat message content, in characters.
	DefaultMaxMessageLength = 4096

	// DefaultMessageTTL is how long persisted messages are retained.
	DefaultMessageTTL = 24 * time.Hour
)

// Breaker keys for the collaborators called on the event path. Operations
// under the same service name share per-service setting overrides.
const (
	serviceIdentity        = "identity"
	opVerifyToken          = "verify-token"
	serviceConnectionStore = "connection-store"
	opBindIdentity         = "bind-identity"
	opTouchConnection      = "touch-connection"
	serviceMessageStore    = "message-store"
	opSaveMessage          = "save-message"
	serviceResponder       = "responder"
	opGenerateReply        = "generate-reply"
	serviceDelivery        = "delivery"
	opSendMessage          = "send-message"
)

// eventUnknown labels metrics for frames that never reach a handler.
const eventUnknown = "unknown"

// Service handles the three transport events of a connection's life.
type Service interface {
	// HandleConnect registers a new connection. The connection carries no
	// identity yet; it must authenticate before sending messages.
	HandleConnect(ctx context.Context, connectionID string) error

	// HandleDisconnect removes the connection record and its
	// authenticated-connection record. Safe to call more than once.
	HandleDisconnect(ctx context.Context, connectionID string) error

	// HandleMessage parses a client frame and dispatches it. Handler
	// failures are translated into error envelopes and delivered back on
	// the same connection; the returned error is reserved for faults
	// before dispatch.
	HandleMessage(ctx context.Context, connectionID string, payload []byte) error
}

// Config holds the configuration for the conversation service.
type Config struct {
	Registry  registry.Service
	AuthGate  authgate.Service
	Sessions  sessions.Service
	Messages  docdb.MessagesStore
	Responder responder.Responder
	Deliverer delivery.Deliverer
	Breaker   breaker.Breaker
	Metrics   *metrics.Metrics

	// Logger defaults to the global logger.
	Logger *zerolog.Logger

	// MaxMessageLength caps chat message content, in characters.
	// Defaults to DefaultMaxMessageLength.
	MaxMessageLength int

	// MessageTTL bounds how long persisted messages are retained.
	// Defaults to DefaultMessageTTL.
	MessageTTL time.Duration
}

type service struct {
	registry         registry.Service
	gate             authgate.Service
	sessions         sessions.Service
	messages         docdb.MessagesStore
	responder        responder.Responder
	fallback         responder.Responder
	deliverer        delivery.Deliverer
	breaker          breaker.Breaker
	metrics          *metrics.Metrics
	logger           zerolog.Logger
	maxMessageLength int
	messageTTL       time.Duration
}

// NewService creates a new conversation service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.AuthGate == nil {
		return nil, fmt.Errorf("auth gate is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("sessions service is required")
	}
	if cfg.Messages == nil {
		return nil, fmt.Errorf("messages store is required")
	}
	if cfg.Responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if cfg.Deliverer == nil {
		return nil, fmt.Errorf("deliverer is required")
	}
	if cfg.Breaker == nil {
		return nil, fmt.Errorf("breaker is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics is required")
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	maxMessageLength := cfg.MaxMessageLength
	if maxMessageLength <= 0 {
		maxMessageLength = DefaultMaxMessageLength
	}

	messageTTL := cfg.MessageTTL
	if messageTTL <= 0 {
		messageTTL = DefaultMessageTTL
	}

	return &service{
		registry:         cfg.Registry,
		gate:             cfg.AuthGate,
		sessions:         cfg.Sessions,
		messages:         cfg.Messages,
		responder:        cfg.Responder,
		fallback:         responder.NewEchoResponder(),
		deliverer:        cfg.Deliverer,
		breaker:          cfg.Breaker,
		metrics:          cfg.Metrics,
		logger:           logger,
		maxMessageLength: maxMessageLength,
		messageTTL:       messageTTL,
	}, nil
}

// HandleConnect registers the connection. It sends nothing back: the
// upgrade succeeding is the acknowledgment.
func (s *service) HandleConnect(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return fmt.Errorf("connectionID is required")
	}

	_, err := s.registry.Create(ctx, connectionID)
	s.metrics.RecordEvent("connect", err == nil)
	return err
}

// HandleDisconnect removes the connection and auth records. Both deletes
// are idempotent, so replayed disconnects are harmless.
func (s *service) HandleDisconnect(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return fmt.Errorf("connectionID is required")
	}

	err := s.registry.Delete(ctx, connectionID)
	if unbindErr := s.gate.Unbind(ctx, connectionID); err == nil {
		err = unbindErr
	}
	s.metrics.RecordEvent("disconnect", err == nil)
	return err
}

// HandleMessage parses the frame and routes it by type. Every handler
// failure turns into an envelope on the connection; none of them close it.
func (s *service) HandleMessage(ctx context.Context, connectionID string, payload []byte) error {
	if connectionID == "" {
		return fmt.Errorf("connectionID is required")
	}

	var event inboundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.metrics.RecordEvent(eventUnknown, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("invalid message format", err.Error()))
		return nil
	}

	switch event.Type {
	case EventTypeAuth:
		s.handleAuth(ctx, connectionID, &event.Data)
	case EventTypeMessage:
		s.handleChatMessage(ctx, connectionID, &event.Data)
	case EventTypePing:
		s.handlePing(ctx, connectionID, &event.Data)
	default:
		s.metrics.RecordEvent(eventUnknown, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("unrecognized message type", event.Type))
	}
	return nil
}

// handleAuth verifies the token and binds the identity to the connection.
// Every failure mode produces the same envelope so the response cannot be
// used as a verification oracle; causes go to the log only.
func (s *service) handleAuth(ctx context.Context, connectionID string, data *inboundData) {
	if !actionAllowed(data.Action, ActionAuthenticate) {
		s.metrics.RecordEvent(EventTypeAuth, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("unrecognized action", data.Action))
		return
	}
	if data.Token == "" {
		s.finishAuth(ctx, connectionID, nil)
		return
	}

	verified, err := s.breaker.Execute(ctx, serviceIdentity, opVerifyToken,
		func(ctx context.Context) (interface{}, error) {
			return s.gate.Authenticate(ctx, data.Token)
		})
	if err != nil {
		s.logger.Debug().Err(err).Str("connection_id", connectionID).Msg("token verification failed")
		s.finishAuth(ctx, connectionID, nil)
		return
	}
	id, ok := verified.(*models.Identity)
	if !ok || id == nil {
		s.finishAuth(ctx, connectionID, nil)
		return
	}

	if _, err := s.breaker.Execute(ctx, serviceConnectionStore, opBindIdentity,
		func(ctx context.Context) (interface{}, error) {
			return s.gate.Bind(ctx, connectionID, id, 0)
		}); err != nil {
		s.logger.Warn().Err(err).Str("connection_id", connectionID).Msg("failed to bind identity")
		s.finishAuth(ctx, connectionID, nil)
		return
	}

	s.markAuthenticated(ctx, connectionID, id)
	s.finishAuth(ctx, connectionID, id)
}

// finishAuth records the outcome and sends the auth_response envelope. A
// nil identity means failure.
func (s *service) finishAuth(ctx context.Context, connectionID string, id *models.Identity) {
	success := id != nil
	s.metrics.RecordAuth(success)
	s.metrics.RecordEvent(EventTypeAuth, success)

	if !success {
		s.send(ctx, connectionID, &AuthResponse{
			Type:    EnvelopeTypeAuthResponse,
			Success: false,
			Error:   "authentication failed",
		})
		return
	}
	s.send(ctx, connectionID, &AuthResponse{
		Type:     EnvelopeTypeAuthResponse,
		Success:  true,
		UserID:   id.UserID,
		Username: id.Username,
	})
}

// markAuthenticated reflects the bound identity on the connection record.
// The authenticated-connection record stays the source of truth, so a
// failure here does not fail the authentication.
func (s *service) markAuthenticated(ctx context.Context, connectionID string, id *models.Identity) {
	conn, err := s.registry.GetByConnectionID(ctx, connectionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("connection_id", connectionID).Msg("failed to load connection record")
		return
	}
	if conn == nil {
		return
	}

	conn.UserID = id.UserID
	conn.Status = models.ConnectionStatusAuthenticated
	if err := s.registry.Put(ctx, conn); err != nil {
		s.logger.Warn().Err(err).Str("connection_id", connectionID).Msg("failed to update connection record")
	}
}

// handleChatMessage persists the user message, synthesizes a reply and
// delivers it back tagged with the resolved session.
func (s *service) handleChatMessage(ctx context.Context, connectionID string, data *inboundData) {
	if !actionAllowed(data.Action, ActionSendMessage) {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("unrecognized action", data.Action))
		return
	}
	if err := s.requireAuthenticated(ctx, connectionID); err != nil {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, err)
		return
	}

	content := strings.TrimSpace(data.Message)
	if content == "" {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("message content is required", ""))
		return
	}
	if utf8.RuneCountInString(content) > s.maxMessageLength {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("message content exceeds maximum length",
			fmt.Sprintf("limit is %d characters", s.maxMessageLength)))
		return
	}

	id, err := s.gate.ResolveUser(ctx, connectionID)
	if err != nil {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, err)
		return
	}
	if id == nil {
		// The record expired between the existence check and the read.
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, domainerrors.NewAuthenticationRequiredError())
		return
	}

	session, err := s.sessions.EnsureSession(ctx, id.UserID, data.SessionID)
	if err != nil {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, err)
		return
	}

	userMsg := models.NewUserMessage(session.SessionID, connectionID, id.UserID, content, s.messageTTL)
	userMsg.ID = newMessageID()
	if err := s.saveMessage(ctx, userMsg); err != nil {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, err)
		return
	}
	s.metrics.RecordMessagePersisted(string(models.MessageRoleUser))

	reply := s.generateReply(ctx, &responder.Prompt{
		SessionID: session.SessionID,
		UserID:    id.UserID,
		Content:   content,
	})

	botMsg := models.NewBotMessage(session.SessionID, connectionID, id.UserID, reply.Content, reply.IsEcho, s.messageTTL)
	botMsg.ID = newMessageID()
	if err := s.saveMessage(ctx, botMsg); err != nil {
		s.metrics.RecordEvent(EventTypeMessage, false)
		s.sendError(ctx, connectionID, err)
		return
	}
	s.metrics.RecordMessagePersisted(string(models.MessageRoleBot))

	s.metrics.RecordEvent(EventTypeMessage, true)
	s.send(ctx, connectionID, &MessageResponse{
		Type:      EnvelopeTypeMessageResponse,
		Message:   reply.Content,
		SessionID: session.SessionID,
		MessageID: botMsg.ID,
		Timestamp: botMsg.CreatedAt,
		IsEcho:    reply.IsEcho,
	})
}

// handlePing refreshes the connection's activity and acknowledges.
func (s *service) handlePing(ctx context.Context, connectionID string, data *inboundData) {
	if !actionAllowed(data.Action, ActionPing) {
		s.metrics.RecordEvent(EventTypePing, false)
		s.sendError(ctx, connectionID, domainerrors.NewValidationError("unrecognized action", data.Action))
		return
	}
	if err := s.requireAuthenticated(ctx, connectionID); err != nil {
		s.metrics.RecordEvent(EventTypePing, false)
		s.sendError(ctx, connectionID, err)
		return
	}

	if _, err := s.breaker.Execute(ctx, serviceConnectionStore, opTouchConnection,
		func(ctx context.Context) (interface{}, error) {
			return s.registry.Touch(ctx, connectionID)
		}); err != nil {
		s.metrics.RecordEvent(EventTypePing, false)
		s.sendError(ctx, connectionID, err)
		return
	}

	s.metrics.RecordEvent(EventTypePing, true)
	s.send(ctx, connectionID, &PongResponse{
		Type:      EnvelopeTypePong,
		Timestamp: time.Now().UTC(),
	})
}

// requireAuthenticated checks for a live authenticated-connection record.
// The probe never does cryptographic work.
func (s *service) requireAuthenticated(ctx context.Context, connectionID string) error {
	authenticated, err := s.gate.IsAuthenticated(ctx, connectionID)
	if err != nil {
		return err
	}
	if !authenticated {
		return domainerrors.NewAuthenticationRequiredError()
	}
	return nil
}

// saveMessage persists a message through the message-store breaker. Store
// failures surface under the storage taxonomy code; a short-circuit keeps
// its own code.
func (s *service) saveMessage(ctx context.Context, message *models.Message) error {
	_, err := s.breaker.Execute(ctx, serviceMessageStore, opSaveMessage,
		func(ctx context.Context) (interface{}, error) {
			return nil, s.messages.Add(ctx, message)
		})
	if err == nil {
		return nil
	}
	if domainerrors.IsDomainError(err) {
		return err
	}
	return domainerrors.NewStorageError(opSaveMessage, err)
}

// generateReply synthesizes a response through the responder breaker. An
// open breaker falls back to echo without an error; any other failure is
// logged and degrades to echo as well, so a message never fails because
// the downstream generator is unavailable.
func (s *service) generateReply(ctx context.Context, prompt *responder.Prompt) *responder.Reply {
	generated, err := s.breaker.Execute(ctx, serviceResponder, opGenerateReply,
		func(ctx context.Context) (interface{}, error) {
			return s.responder.Generate(ctx, prompt)
		},
		breaker.WithFallback(func(ctx context.Context) (interface{}, error) {
			return s.fallback.Generate(ctx, prompt)
		}))
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", prompt.SessionID).Msg("reply generation failed, echoing instead")
		generated, _ = s.fallback.Generate(ctx, prompt)
	}

	reply, ok := generated.(*responder.Reply)
	if !ok || reply == nil {
		return &responder.Reply{Content: prompt.Content, IsEcho: true}
	}
	return reply
}

// send marshals and delivers an envelope. Delivery failures are logged and
// counted, never propagated: by the time an envelope is built the event's
// state changes are already committed.
func (s *service) send(ctx context.Context, connectionID string, envelope interface{}) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Error().Err(err).Str("connection_id", connectionID).Msg("failed to marshal envelope")
		return
	}

	if _, err := s.breaker.Execute(ctx, serviceDelivery, opSendMessage,
		func(ctx context.Context) (interface{}, error) {
			return nil, s.deliverer.Deliver(ctx, connectionID, payload)
		}); err != nil {
		s.metrics.RecordDeliveryFailure()
		s.logger.Warn().Err(err).Str("connection_id", connectionID).Msg("failed to deliver envelope")
	}
}

// sendError translates any error into its taxonomy envelope and delivers
// it. Errors outside the taxonomy are reported as internal.
func (s *service) sendError(ctx context.Context, connectionID string, err error) {
	domainErr, ok := domainerrors.GetDomainError(err)
	if !ok {
		domainErr = domainerrors.NewInternalError("internal error", err)
	}
	s.send(ctx, connectionID, &ErrorResponse{
		Type:      EnvelopeTypeError,
		Code:      domainErr.Code,
		Message:   domainErr.Message,
		Timestamp: time.Now().UTC(),
	})
}

// actionAllowed tolerates an absent action and refuses a mismatched one.
func actionAllowed(action, canonical string) bool {
	return action == "" || action == canonical
}

func newMessageID() string {
	return "msg_" + uuid.New().String()
}
