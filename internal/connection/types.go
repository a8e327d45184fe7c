package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected          = errors.New("not connected")
	ErrStaleConnection       = errors.New("connection stale (no ping)")
	ErrAckTimeout            = errors.New("ack timeout")
	ErrAlreadyClosed         = errors.New("already closed")
	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrHandleClosed          = errors.New("handle closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from the socket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Envelope is the wire format of the live channel, in both directions.
//
// Server→client events carry Event and Data. Client→server emits may set
// Ack to request a response; the server answers with an envelope carrying
// the same Ack value, which is routed to the waiting emitter instead of
// the event handlers.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   int64           `json:"ack,omitempty"`
}

// Handler processes one inbound event payload. Handlers run on the
// dispatch goroutine, one at a time, in arrival order.
type Handler func(data json.RawMessage)

// ClientConfig configures a single websocket client.
type ClientConfig struct {
	URL          string        // Full endpoint URL including query parameters
	PingInterval time.Duration // Keepalive ping cadence
	PingTimeout  time.Duration // Max time without ping/pong before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 15 * time.Second,
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	SocketURL          string        // Live channel endpoint (ws:// or wss://)
	PingInterval       time.Duration // Keepalive ping cadence
	PingTimeout        time.Duration // Stale-connection threshold
	WriteTimeout       time.Duration // Write deadline for sends
	AckTimeout         time.Duration // Timeout for emit-with-ack round trips
	ReconnectBaseDelay time.Duration // Base wait before a reconnect attempt
	ReconnectMaxDelay  time.Duration // Cap for the reconnect backoff
	BufferSize         int           // Inbound message buffer size
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PingInterval:       15 * time.Second,
		PingTimeout:        60 * time.Second,
		WriteTimeout:       5 * time.Second,
		AckTimeout:         10 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		BufferSize:         1000,
	}
}
