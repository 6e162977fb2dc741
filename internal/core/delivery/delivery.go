// Package delivery defines the outbound delivery interface.
package delivery

import "context"

// Deliverer pushes payloads to live connections. The transport owns the
// mapping from connection id to channel; callers only name the connection.
type Deliverer interface {
	// Deliver sends the payload to the connection. It fails when the
	// connection is not attached to this instance or the write fails.
	Deliver(ctx context.Context, connectionID string, payload []byte) error
}
