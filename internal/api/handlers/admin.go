package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatgate/chat-service/internal/api/dto"
	"github.com/chatgate/chat-service/internal/api/middleware"
	"github.com/chatgate/chat-service/internal/core/breaker"
	"github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/services/authgate"
	"github.com/chatgate/chat-service/internal/services/registry"
	"github.com/chatgate/chat-service/internal/services/sessions"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	breaker  breaker.Breaker
	registry registry.Service
	authGate authgate.Service
	sessions sessions.Service
	sweeper  *registry.Sweeper
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(b breaker.Breaker, reg registry.Service, gate authgate.Service, sessionsService sessions.Service, sweeper *registry.Sweeper) *AdminHandler {
	return &AdminHandler{
		breaker:  b,
		registry: reg,
		authGate: gate,
		sessions: sessionsService,
		sweeper:  sweeper,
	}
}

// ListBreakers handles GET /admin/breakers
// @Summary List circuit breakers
// @Description Returns a snapshot of every circuit breaker seen so far
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.BreakersResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/breakers [get]
func (h *AdminHandler) ListBreakers(c *gin.Context) {
	c.JSON(http.StatusOK, dto.BreakersResponse{Breakers: h.breaker.AllStats()})
}

// ResetBreakers handles POST /admin/breakers/reset
// @Summary Reset circuit breakers
// @Description Drops all breaker state; every key starts over closed
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/breakers/reset [post]
func (h *AdminHandler) ResetBreakers(c *gin.Context) {
	h.breaker.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// GetConnection handles GET /admin/connections/{connectionId}
// @Summary Get a connection record
// @Description Looks up a connection in the registry along with its authentication state
// @Tags Admin
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Success 200 {object} dto.ConnectionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/connections/{connectionId} [get]
func (h *AdminHandler) GetConnection(c *gin.Context) {
	ctx := c.Request.Context()
	connectionID := c.Param("connectionId")

	conn, err := h.registry.GetByConnectionID(ctx, connectionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if conn == nil {
		middleware.HandleError(c, errors.NewNotFoundError("connection", connectionID))
		return
	}

	authenticated, err := h.authGate.IsAuthenticated(ctx, connectionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConnectionResponse{
		Connection:    conn,
		Authenticated: authenticated,
	})
}

// SuspendSession handles POST /admin/sessions/{sessionId}/suspend
// @Summary Suspend a session
// @Description Stops a session until an operator reactivates it
// @Tags Admin
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/sessions/{sessionId}/suspend [post]
func (h *AdminHandler) SuspendSession(c *gin.Context) {
	session, err := h.sessions.Suspend(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: session})
}

// DeactivateSession handles POST /admin/sessions/{sessionId}/deactivate
// @Summary Deactivate a session
// @Description Parks a session; it reactivates on next use
// @Tags Admin
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/sessions/{sessionId}/deactivate [post]
func (h *AdminHandler) DeactivateSession(c *gin.Context) {
	session, err := h.sessions.Deactivate(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: session})
}

// ReactivateSession handles POST /admin/sessions/{sessionId}/reactivate
// @Summary Reactivate a session
// @Description Returns a suspended or inactive session to active
// @Tags Admin
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/sessions/{sessionId}/reactivate [post]
func (h *AdminHandler) ReactivateSession(c *gin.Context) {
	session, err := h.sessions.Reactivate(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: session})
}

// Sweep handles POST /admin/sweep
// @Summary Run a reclamation sweep
// @Description Removes expired connection records immediately instead of waiting for the scheduled sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.SweepResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security ServiceKeyAuth
// @Router /api/v1/chat-service/admin/sweep [post]
func (h *AdminHandler) Sweep(c *gin.Context) {
	now := time.Now().UTC()

	removed, err := h.sweeper.Run(c.Request.Context(), now)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SweepResponse{
		Removed: removed,
		SweptAt: now,
	})
}
