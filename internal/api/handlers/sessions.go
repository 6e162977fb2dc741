package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatgate/chat-service/internal/api/dto"
	"github.com/chatgate/chat-service/internal/api/middleware"
	"github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/services/sessions"
)

// DefaultSessionsPageSize is the page size used when the query sets no limit.
const DefaultSessionsPageSize = 20

// SessionsHandler handles session listing endpoints.
type SessionsHandler struct {
	sessions sessions.Service
}

// NewSessionsHandler creates a new SessionsHandler.
func NewSessionsHandler(sessionsService sessions.Service) *SessionsHandler {
	return &SessionsHandler{sessions: sessionsService}
}

// ListSessions handles GET /sessions
// @Summary List sessions
// @Description Retrieves the caller's sessions, newest first
// @Tags Sessions
// @Produce json
// @Param limit query int false "Maximum number of sessions" default(20) minimum(1) maximum(100)
// @Success 200 {object} dto.ListSessionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-service/sessions [get]
func (h *SessionsHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()

	identity := middleware.GetIdentity(c)
	if identity == nil {
		middleware.HandleError(c, errors.NewAuthenticationRequiredError())
		return
	}

	var req dto.ListSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultSessionsPageSize
	}

	list, err := h.sessions.ListByUser(ctx, identity.UserID, req.Limit)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListSessionsResponse{Sessions: list})
}
