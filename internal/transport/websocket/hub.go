// Package websocket hosts the duplex transport. The handler upgrades HTTP
// requests and pumps inbound frames into the conversation dispatcher; the
// hub keeps the connection id to socket mapping and implements the
// delivery port for outbound envelopes. The hub is a delivery table only:
// connection state itself lives behind the registry.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/metrics"
)

// DefaultWriteTimeout bounds a single outbound frame write.
const DefaultWriteTimeout = 10 * time.Second

// Hub maps connection ids to live sockets and writes outbound payloads. It
// implements delivery.Deliverer.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	closed bool

	metrics      *metrics.Metrics
	logger       zerolog.Logger
	writeTimeout time.Duration
}

// HubConfig holds the configuration for the hub.
type HubConfig struct {
	Metrics *metrics.Metrics

	// Logger defaults to the global logger.
	Logger *zerolog.Logger

	// WriteTimeout bounds each frame write. Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// connection pairs a socket with its write lock. Gorilla connections do not
// support concurrent writers.
type connection struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

// NewHub creates a new hub.
func NewHub(cfg *HubConfig) (*Hub, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics is required")
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	return &Hub{
		conns:        make(map[string]*connection),
		metrics:      cfg.Metrics,
		logger:       logger,
		writeTimeout: writeTimeout,
	}, nil
}

// Deliver writes the payload to the named connection as one text frame.
func (h *Hub) Deliver(ctx context.Context, connectionID string, payload []byte) error {
	h.mu.RLock()
	conn, ok := h.conns[connectionID]
	h.mu.RUnlock()

	if !ok {
		return domainerrors.NewDeliveryError("connection is not attached to this instance", nil)
	}
	if err := conn.write(payload, h.writeTimeout); err != nil {
		return domainerrors.NewDeliveryError("failed to write to connection", err)
	}
	return nil
}

// Count returns the number of attached connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close writes a close frame to every attached connection and closes the
// sockets. New registrations are refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*connection)
	h.closed = true
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close(websocket.CloseGoingAway, "server shutting down", h.writeTimeout)
		h.metrics.RecordConnectionClosed()
	}
	if len(conns) > 0 {
		h.logger.Info().Int("connections", len(conns)).Msg("hub closed")
	}
}

// add attaches a socket under the given id.
func (h *Hub) add(connectionID string, ws *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("hub is closed")
	}
	if _, exists := h.conns[connectionID]; exists {
		return fmt.Errorf("connection %s is already attached", connectionID)
	}

	h.conns[connectionID] = &connection{id: connectionID, ws: ws}
	h.metrics.RecordConnectionOpened()
	return nil
}

// remove detaches a connection. Removing an unknown id is a no-op.
func (h *Hub) remove(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.conns[connectionID]; !exists {
		return
	}
	delete(h.conns, connectionID)
	h.metrics.RecordConnectionClosed()
}

func (c *connection) write(payload []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(timeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *connection) close(code int, reason string, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(timeout))
	c.ws.Close()
}
