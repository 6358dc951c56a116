// Package stream maintains named real-time channels to the sensor backend
// over a shared websocket transport, with automatic reconnection, bounded
// exponential backoff and multi-subscriber fan-out.
package stream

import (
	"context"

	"github.com/radiowatch/sigstream/internal/telemetry"
)

// Status is a channel connection state transition surfaced to callers.
// Transport failures are only ever visible as these transitions, never as
// errors propagated out of the stream core.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// MessageFunc consumes a decoded inbound frame.
type MessageFunc func(*telemetry.Frame)

// StatusFunc consumes connection state transitions.
type StatusFunc func(Status)

// Conn is a single message-oriented transport connection.
type Conn interface {
	// ReadMessage blocks for the next inbound text frame.
	ReadMessage() ([]byte, error)

	// WriteJSON encodes v as a JSON text frame. Safe for concurrent use.
	WriteJSON(v any) error

	// Close tears the connection down, unblocking any pending read.
	Close() error
}

// Dialer opens transport connections. Injectable so the reconnection
// contract is testable without a network.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}
