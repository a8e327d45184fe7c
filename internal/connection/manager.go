package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Manager owns at most one live connection per (token, tournament) pair.
//
// Open is idempotent while a handle is live; Close tears down the handle's
// event handlers, then the channel, then releases the handle. A handle is
// never reused: reopening after close yields a brand-new one.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu      sync.Mutex
	current *Handle
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:    cfg,
		logger: logger,
	}
}

// Open establishes the live channel for a (token, tournament) pair.
//
// If a handle is already open it is returned unchanged and nothing is
// dialed. Empty token or tournament ID yields ErrConnectionUnavailable.
// onConnected is invoked exactly once, asynchronously, when the channel
// first becomes ready; reconnects do not re-invoke it.
func (m *Manager) Open(ctx context.Context, token, tournamentID string, onConnected func()) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.isClosed() {
		return m.current, nil
	}

	if token == "" || tournamentID == "" {
		return nil, ErrConnectionUnavailable
	}

	h := newHandle(m.cfg, token, tournamentID, m.logger)
	h.start(ctx, onConnected)
	m.current = h

	m.logger.Info("connection opened",
		"handle", h.ID,
		"tournament", tournamentID,
	)

	return h, nil
}

// Close detaches every handler registered on the handle, tears down the
// channel, and releases the handle. Closing an already-closed or foreign
// handle is a no-op.
func (m *Manager) Close(h *Handle) {
	if h == nil {
		return
	}

	h.close()

	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()

	m.logger.Info("connection closed", "handle", h.ID)
}

// Current returns the live handle, nil when none is open.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.isClosed() {
		return nil
	}
	return m.current
}

// Connected reports whether a live channel is currently established.
// Callers route through the REST gateway when this is false.
func (m *Manager) Connected() bool {
	h := m.Current()
	return h != nil && h.Connected()
}

// On registers a handler for an event name on the handle. Registering the
// same name again replaces the handler; handlers never stack, so a
// re-registration after reconnect cannot produce duplicate side effects.
func (m *Manager) On(h *Handle, event string, handler Handler) {
	if h == nil || h.isClosed() {
		return
	}
	h.registry.on(event, handler)
}

// Off removes the handler for an event name. Unregistered names are a safe
// no-op.
func (m *Manager) Off(h *Handle, event string) {
	if h == nil {
		return
	}
	h.registry.off(event)
}

// Handle is one live connection, scoped to a (token, tournament) pair.
// Event handlers are registered on the handle, not the socket: the socket
// may be replaced by reconnection, the handler table survives it.
type Handle struct {
	ID           uuid.UUID
	Token        string
	TournamentID string

	cfg    ManagerConfig
	logger *slog.Logger

	registry *registry

	clientMu sync.RWMutex
	client   Client

	// Emit/ack correlation
	pendingMu sync.Mutex
	pending   map[int64]chan Envelope
	ackID     atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	readyOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
}

func newHandle(cfg ManagerConfig, token, tournamentID string, logger *slog.Logger) *Handle {
	h := &Handle{
		ID:           uuid.New(),
		Token:        token,
		TournamentID: tournamentID,
		cfg:          cfg,
		registry:     newRegistry(),
		pending:      make(map[int64]chan Envelope),
	}
	h.logger = logger.With("handle", h.ID.String())
	h.client = NewClient(h.clientConfig(), h.logger)
	return h
}

// clientConfig builds the websocket config. Channel-level addressing: the
// token and tournament travel as query parameters, not per-message fields.
func (h *Handle) clientConfig() ClientConfig {
	query := url.Values{}
	query.Set("token", h.Token)
	query.Set("tournamentId", h.TournamentID)

	return ClientConfig{
		URL:          h.cfg.SocketURL + "?" + query.Encode(),
		PingInterval: h.cfg.PingInterval,
		PingTimeout:  h.cfg.PingTimeout,
		WriteTimeout: h.cfg.WriteTimeout,
		BufferSize:   h.cfg.BufferSize,
	}
}

// start launches the connect/dispatch loop.
func (h *Handle) start(ctx context.Context, onConnected func()) {
	h.ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(1)
	go h.run(onConnected)
}

// run connects, dispatches until the connection drops, and reconnects with
// exponential backoff until the handle is closed.
func (h *Handle) run(onConnected func()) {
	defer h.wg.Done()

	wait := h.cfg.ReconnectBaseDelay

	for {
		client := h.currentClient()

		if err := client.Connect(h.ctx); err != nil {
			if h.ctx.Err() != nil {
				return
			}
			h.logger.Warn("connect failed", "error", err, "retry_in", wait)

			select {
			case <-h.ctx.Done():
				return
			case <-time.After(wait):
			}

			wait *= 2
			if wait > h.cfg.ReconnectMaxDelay {
				wait = h.cfg.ReconnectMaxDelay
			}
			h.replaceClient()
			continue
		}

		wait = h.cfg.ReconnectBaseDelay

		h.readyOnce.Do(func() {
			if onConnected != nil {
				go onConnected()
			}
		})

		h.dispatch(client)

		if h.ctx.Err() != nil || h.isClosed() {
			return
		}

		h.logger.Info("connection dropped, reconnecting")
		h.failPending()
		h.replaceClient()
	}
}

// dispatch runs handlers for inbound events, one at a time, in arrival
// order. Returns when the connection errors or the handle closes.
func (h *Handle) dispatch(client Client) {
	for {
		select {
		case <-h.ctx.Done():
			return

		case err := <-client.Errors():
			h.logger.Warn("connection error", "error", err)
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			h.handleMessage(msg)
		}
	}
}

// handleMessage decodes one envelope and routes it. Malformed envelopes are
// skipped, never fatal.
func (h *Handle) handleMessage(msg TimestampedMessage) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		h.logger.Warn("malformed event, skipping", "error", err)
		return
	}

	// Ack replies go to the waiting emitter, not the event handlers.
	if env.Ack != 0 {
		h.routeAck(env)
		return
	}

	if env.Event == "" {
		h.logger.Warn("event without name, skipping")
		return
	}

	handler, ok := h.registry.lookup(env.Event)
	if !ok {
		h.logger.Debug("no handler for event", "event", env.Event)
		return
	}

	handler(env.Data)
}

// routeAck delivers an ack reply to the pending emitter, if still waiting.
func (h *Handle) routeAck(env Envelope) {
	h.pendingMu.Lock()
	ch, ok := h.pending[env.Ack]
	if ok {
		delete(h.pending, env.Ack)
	}
	h.pendingMu.Unlock()

	if ok {
		select {
		case ch <- env:
		default:
		}
	}
}

// failPending rejects all outstanding ack waits, e.g. when the connection
// drops mid round trip. Waiters observe the closed channel as ErrNotConnected.
func (h *Handle) failPending() {
	h.pendingMu.Lock()
	for id, ch := range h.pending {
		close(ch)
		delete(h.pending, id)
	}
	h.pendingMu.Unlock()
}

// Emit sends a fire-and-forget event to the server.
func (h *Handle) Emit(event string, payload any) error {
	if h.isClosed() {
		return ErrHandleClosed
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	return h.currentClient().Send(raw)
}

// EmitWithAck sends an event and waits for the server's ack reply.
func (h *Handle) EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	if h.isClosed() {
		return nil, ErrHandleClosed
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}

	id := h.ackID.Add(1)
	respCh := make(chan Envelope, 1)

	h.pendingMu.Lock()
	h.pending[id] = respCh
	h.pendingMu.Unlock()

	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, id)
		h.pendingMu.Unlock()
	}()

	raw, err := json.Marshal(Envelope{Event: event, Data: data, Ack: id})
	if err != nil {
		return nil, err
	}

	if err := h.currentClient().Send(raw); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHandleClosed
	case <-time.After(h.cfg.AckTimeout):
		return nil, ErrAckTimeout
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrNotConnected
		}
		return resp.Data, nil
	}
}

// Connected reports whether the underlying channel is established.
func (h *Handle) Connected() bool {
	if h.isClosed() {
		return false
	}
	return h.currentClient().IsConnected()
}

// HandlerCount returns the number of handlers registered for an event name
// (0 or 1 by construction).
func (h *Handle) HandlerCount(event string) int {
	return h.registry.count(event)
}

// HandlerTotal returns the number of registered event names.
func (h *Handle) HandlerTotal() int {
	return h.registry.total()
}

func (h *Handle) currentClient() Client {
	h.clientMu.RLock()
	defer h.clientMu.RUnlock()
	return h.client
}

// replaceClient swaps in a fresh client; a closed client cannot redial.
func (h *Handle) replaceClient() {
	h.clientMu.Lock()
	h.client.Close()
	h.client = NewClient(h.clientConfig(), h.logger)
	h.clientMu.Unlock()
}

func (h *Handle) isClosed() bool {
	return h.closed.Load()
}

// close detaches all handlers, tears down the channel, and marks the handle
// released. Subsequent use fails with ErrHandleClosed.
func (h *Handle) close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.registry.detachAll()
		h.failPending()
		if h.cancel != nil {
			h.cancel()
		}
		h.currentClient().Close()
		h.wg.Wait()
	})
}

// marshalPayload renders an emit payload, passing raw JSON through as is.
func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
