// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatgate/chat-service/internal/api/dto"
	"github.com/chatgate/chat-service/internal/api/middleware"
	"github.com/chatgate/chat-service/internal/core/docdb"
	"github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/services/sessions"
)

// DefaultMessagesPageSize is the page size used when the query sets no limit.
const DefaultMessagesPageSize = 50

// MessagesHandler handles message history endpoints.
type MessagesHandler struct {
	messages docdb.MessagesStore
	sessions sessions.Service
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(messages docdb.MessagesStore, sessionsService sessions.Service) *MessagesHandler {
	return &MessagesHandler{
		messages: messages,
		sessions: sessionsService,
	}
}

// ListMessages handles GET /sessions/{sessionId}/messages
// @Summary List session messages
// @Description Retrieves the messages of one of the caller's sessions, paginated and sorted by creation time
// @Tags Messages
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param limit query int false "Maximum number of messages" default(50) minimum(1) maximum(200)
// @Param offset query int false "Offset for pagination" default(0) minimum(0)
// @Param order query string false "Sort order by creation time" Enums(asc, desc) default(asc)
// @Success 200 {object} dto.ListMessagesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-service/sessions/{sessionId}/messages [get]
func (h *MessagesHandler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	identity := middleware.GetIdentity(c)
	if identity == nil {
		middleware.HandleError(c, errors.NewAuthenticationRequiredError())
		return
	}

	sessionID := c.Param("sessionId")

	var req dto.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultMessagesPageSize
	}
	order := docdb.SortOrderAsc
	if req.Order == string(docdb.SortOrderDesc) {
		order = docdb.SortOrderDesc
	}

	session, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	// A session owned by another user reads as absent.
	if session == nil || session.UserID != identity.UserID {
		middleware.HandleError(c, errors.NewNotFoundError("session", sessionID))
		return
	}

	total, err := h.messages.CountBySession(ctx, sessionID)
	if err != nil {
		middleware.HandleError(c, errors.NewStorageError("count-messages", err))
		return
	}

	msgs, err := h.messages.List(ctx, &docdb.ListMessagesOptions{
		SessionID: sessionID,
		Limit:     req.Limit,
		Skip:      req.Offset,
		OrderBy:   order,
	})
	if err != nil {
		middleware.HandleError(c, errors.NewStorageError("list-messages", err))
		return
	}

	c.JSON(http.StatusOK, dto.ListMessagesResponse{
		Messages: msgs,
		Total:    total,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
}
