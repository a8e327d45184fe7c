package connection

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testManagerConfig(socketURL string) ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.SocketURL = socketURL
	cfg.AckTimeout = time.Second
	cfg.ReconnectBaseDelay = 10 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	cfg.BufferSize = 100
	return cfg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestManager_OpenRequiresTokenAndTournament(t *testing.T) {
	m := NewManager(testManagerConfig("ws://unused"), nil)
	ctx := context.Background()

	if _, err := m.Open(ctx, "", "42", nil); !errors.Is(err, ErrConnectionUnavailable) {
		t.Errorf("Open with empty token: err = %v, want ErrConnectionUnavailable", err)
	}
	if _, err := m.Open(ctx, "tok", "", nil); !errors.Is(err, ErrConnectionUnavailable) {
		t.Errorf("Open with empty tournament: err = %v, want ErrConnectionUnavailable", err)
	}
	if m.Current() != nil {
		t.Error("rejected open left a handle behind")
	}
}

func TestManager_OpenIsIdempotent(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)
	ctx := context.Background()

	h1, err := m.Open(ctx, "tok", "42", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close(h1)

	m.On(h1, "btcPriceUpdate", func(json.RawMessage) {})

	// Second open without close: same handle, no duplicate handlers.
	h2, err := m.Open(ctx, "tok", "42", nil)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if h1 != h2 {
		t.Error("second Open returned a different handle")
	}
	if got := h2.HandlerCount("btcPriceUpdate"); got != 1 {
		t.Errorf("handler count = %d after double open, want 1", got)
	}
}

func TestManager_OnConnectedInvokedOnce(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)

	var connects atomic.Int64
	h, err := m.Open(context.Background(), "tok", "42", func() {
		connects.Add(1)
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close(h)

	waitFor(t, 2*time.Second, func() bool { return connects.Load() == 1 })

	// Give a reconnect cycle the chance to misbehave.
	time.Sleep(100 * time.Millisecond)
	if got := connects.Load(); got != 1 {
		t.Errorf("onConnected invoked %d times, want exactly 1", got)
	}
}

func TestManager_DispatchesEventsInOrder(t *testing.T) {
	payloads := []string{
		`{"event": "btcPriceUpdate", "data": {"last": 100, "high24h": 110, "low24h": 90, "change": 1, "percentage": 1}}`,
		`{"event": "btcPriceUpdate", "data": {"last": 101, "high24h": 110, "low24h": 90, "change": 2, "percentage": 2}}`,
		`{"event": "btcPriceUpdate", "data": {"last": 102, "high24h": 110, "low24h": 90, "change": 3, "percentage": 3}}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)

	dispatched := make(chan struct{}, len(payloads))
	var lasts []float64
	h, err := m.Open(context.Background(), "tok", "42", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close(h)

	m.On(h, "btcPriceUpdate", func(data json.RawMessage) {
		var p struct {
			Last float64 `json:"last"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			t.Errorf("bad payload: %v", err)
			return
		}
		lasts = append(lasts, p.Last)
		dispatched <- struct{}{}
	})

	for range payloads {
		select {
		case <-dispatched:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event dispatch")
		}
	}

	// Handlers run sequentially on the dispatch goroutine, so appends above
	// are ordered and race-free.
	want := []float64{100, 101, 102}
	for i, w := range want {
		if lasts[i] != w {
			t.Errorf("lasts[%d] = %v, want %v (arrival order)", i, lasts[i], w)
		}
	}
}

func TestManager_MalformedEventIgnored(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"data": {"orphan": true}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event": "getTrading", "data": []}`))
		time.Sleep(time.Second)
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)

	got := make(chan json.RawMessage, 1)
	h, err := m.Open(context.Background(), "tok", "42", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close(h)

	m.On(h, "getTrading", func(data json.RawMessage) {
		got <- data
	})

	// The well-formed event still arrives after the malformed ones.
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("malformed events blocked dispatch")
	}
}

func TestManager_EmitWithAck(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Ack == 0 {
				continue
			}
			reply := Envelope{
				Event: env.Event,
				Ack:   env.Ack,
				Data:  json.RawMessage(`{"status": "ok"}`),
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)

	connected := make(chan struct{})
	h, err := m.Open(context.Background(), "tok", "42", func() { close(connected) })
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close(h)

	<-connected

	resp, err := h.RequestTrading(context.Background(), "42")
	if err != nil {
		t.Fatalf("RequestTrading failed: %v", err)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		t.Fatalf("bad ack payload: %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("status = %q, want ok", out.Status)
	}
}

func TestManager_CloseReleasesHandlers(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)
	ctx := context.Background()

	h1, err := m.Open(ctx, "tok", "42", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	events := []string{
		"btcPriceUpdate", "ethPriceUpdate", "avaxPriceUpdate",
		"adaPriceUpdate", "bnbPriceUpdate", "btcOHLCV",
		"refreshTournamentRanking", "getTrading",
	}
	for _, e := range events {
		m.On(h1, e, func(json.RawMessage) {})
	}

	m.Close(h1)

	if got := h1.HandlerTotal(); got != 0 {
		t.Errorf("handler total = %d after close, want 0 (leaked handlers)", got)
	}
	if m.Connected() {
		t.Error("Connected() = true after close")
	}
	if m.Current() != nil {
		t.Error("Current() != nil after close")
	}

	// Reopen (tournament change): brand-new handle, exactly one connection.
	h2, err := m.Open(ctx, "tok", "43", nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer m.Close(h2)

	if h2 == h1 {
		t.Error("reopen returned the released handle")
	}
	if h2.ID == h1.ID {
		t.Error("reopen reused the old handle ID")
	}
	if h2.TournamentID != "43" {
		t.Errorf("TournamentID = %q, want 43", h2.TournamentID)
	}

	for _, e := range events {
		if got := h2.HandlerCount(e); got != 0 {
			t.Errorf("new handle inherited handler for %s", e)
		}
	}
}

func TestManager_ClosedHandleRejectsUse(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)

	h, err := m.Open(context.Background(), "tok", "42", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	m.Close(h)

	if err := h.Emit("makeTrade", nil); !errors.Is(err, ErrHandleClosed) {
		t.Errorf("Emit on closed handle: err = %v, want ErrHandleClosed", err)
	}
	if _, err := h.EmitWithAck(context.Background(), "makeTrade", nil); !errors.Is(err, ErrHandleClosed) {
		t.Errorf("EmitWithAck on closed handle: err = %v, want ErrHandleClosed", err)
	}

	// Registration on a released handle must not resurrect it.
	m.On(h, "btcPriceUpdate", func(json.RawMessage) {})
	if got := h.HandlerTotal(); got != 0 {
		t.Errorf("handler total = %d, want 0", got)
	}
}

func TestManager_ReconnectKeepsSingleHandler(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		n := conns.Add(1)
		if n == 1 {
			// First connection: drop immediately to force a reconnect.
			return
		}
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event": "btcPriceUpdate", "data": {"last": 7}}`))
		time.Sleep(time.Second)
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), nil)

	var calls atomic.Int64
	h, err := m.Open(context.Background(), "tok", "42", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close(h)

	m.On(h, "btcPriceUpdate", func(json.RawMessage) {
		calls.Add(1)
	})

	waitFor(t, 3*time.Second, func() bool { return calls.Load() >= 1 })

	if got := h.HandlerCount("btcPriceUpdate"); got != 1 {
		t.Errorf("handler count = %d after reconnect, want 1", got)
	}
	// The event was delivered once, not once per connection attempt.
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("handler invoked %d times, want 1", got)
	}
}
