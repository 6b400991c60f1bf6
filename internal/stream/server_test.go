package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(cfg, newFakeSource(), nil, nil)
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		hs.Close()
	})
	return srv, hs
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one has the wanted type.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, timeout time.Duration) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if m["type"] == typ {
			return m
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// onlySession returns the single live session.
func onlySession(t *testing.T, srv *Server) *session {
	t.Helper()
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.sessions) != 1 {
		t.Fatalf("live sessions = %d, want 1", len(srv.sessions))
	}
	for _, sess := range srv.sessions {
		return sess
	}
	return nil
}

func TestServer_InitialSymbol(t *testing.T) {
	_, hs := newTestServer(t, quietConfig())
	conn := dial(t, wsURL(hs, "/ws/stocks?symbol=aapl"))

	ready := readUntil(t, conn, TypeReady, time.Second)
	if ready["message"] != DefaultConfig().ReadyMessage {
		t.Errorf("ready message = %v", ready["message"])
	}

	q := readUntil(t, conn, TypeQuote, time.Second)
	if q["symbol"] != "AAPL" {
		t.Errorf("quote symbol = %v, want AAPL", q["symbol"])
	}
	data, ok := q["data"].(map[string]any)
	if !ok || data["symbol"] != "AAPL" {
		t.Errorf("quote data = %v", q["data"])
	}
}

func TestServer_Paths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"canonical", "/ws/stocks"},
		{"canonical trailing slash", "/ws/stocks/"},
		{"alias", "/ws"},
		{"alias trailing slash", "/ws/"},
	}

	_, hs := newTestServer(t, quietConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, wsURL(hs, tt.path))
			readUntil(t, conn, TypeReady, time.Second)
		})
	}
}

func TestServer_InvalidPathClosesWithPolicyViolation(t *testing.T) {
	srv, hs := newTestServer(t, quietConfig())
	conn := dial(t, wsURL(hs, "/ws/stocks/extra"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()

	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("read error = %v, want close error", err)
	}
	if ce.Code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", ce.Code, websocket.ClosePolicyViolation)
	}
	if srv.ActiveSessions() != 0 {
		t.Errorf("active sessions = %d, want 0", srv.ActiveSessions())
	}
}

func TestServer_InvalidPathPlainHTTP(t *testing.T) {
	_, hs := newTestServer(t, quietConfig())

	resp, err := http.Get(hs.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_SubscribeNormalizesAndClamps(t *testing.T) {
	srv, hs := newTestServer(t, quietConfig())
	conn := dial(t, wsURL(hs, "/ws"))
	readUntil(t, conn, TypeReady, time.Second)

	sendJSON(t, conn, map[string]any{"type": "subscribe", "symbol": " msft ", "intervalMs": 50})
	q := readUntil(t, conn, TypeQuote, time.Second)
	if q["symbol"] != "MSFT" {
		t.Errorf("quote symbol = %v, want MSFT", q["symbol"])
	}

	symbol, interval, subscribed := onlySession(t, srv).state()
	if symbol != "MSFT" || interval != 700*time.Millisecond || !subscribed {
		t.Errorf("state = (%q, %v, %v), want (MSFT, 700ms, true)", symbol, interval, subscribed)
	}
}

func TestServer_SubscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"empty symbol", `{"type":"subscribe","symbol":""}`, MsgSymbolRequired},
		{"missing symbol", `{"type":"subscribe"}`, MsgSymbolRequired},
		{"not json", `not json`, MsgInvalidFormat},
	}

	_, hs := newTestServer(t, quietConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, wsURL(hs, "/ws/stocks"))
			readUntil(t, conn, TypeReady, time.Second)

			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("write: %v", err)
			}
			e := readUntil(t, conn, TypeError, time.Second)
			if e["message"] != tt.want {
				t.Errorf("error message = %v, want %q", e["message"], tt.want)
			}
		})
	}
}

func TestServer_UnknownSymbol(t *testing.T) {
	_, hs := newTestServer(t, quietConfig())
	conn := dial(t, wsURL(hs, "/ws/stocks?symbol=zzzz"))

	e := readUntil(t, conn, TypeError, time.Second)
	if e["status"] != float64(404) {
		t.Errorf("status = %v, want 404", e["status"])
	}
}

func TestServer_PingPong(t *testing.T) {
	_, hs := newTestServer(t, quietConfig())
	conn := dial(t, wsURL(hs, "/ws/stocks"))
	readUntil(t, conn, TypeReady, time.Second)

	sendJSON(t, conn, map[string]string{"type": "ping"})
	pong := readUntil(t, conn, TypePong, time.Second)
	if _, ok := pong["at"].(float64); !ok {
		t.Errorf("pong at = %v, want a number", pong["at"])
	}
}

func TestServer_ForcedReset(t *testing.T) {
	cfg := quietConfig()
	cfg.Schedule.DisconnectMin = 100 * time.Millisecond
	cfg.Schedule.DisconnectMax = 150 * time.Millisecond

	srv, hs := newTestServer(t, cfg)
	conn := dial(t, wsURL(hs, "/ws/stocks?symbol=AAPL"))

	reset := readUntil(t, conn, TypeReset, 2*time.Second)
	if reset["reason"] != cfg.ResetReason {
		t.Errorf("reason = %v, want %q", reset["reason"], cfg.ResetReason)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseServiceRestart) {
		t.Errorf("read error = %v, want close %d", err, websocket.CloseServiceRestart)
	}

	deadline := time.Now().Add(time.Second)
	for srv.ActiveSessions() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.ActiveSessions() != 0 {
		t.Errorf("active sessions = %d after reset, want 0", srv.ActiveSessions())
	}
}

func TestServer_Shutdown(t *testing.T) {
	srv, hs := newTestServer(t, quietConfig())
	conn := dial(t, wsURL(hs, "/ws/stocks"))
	readUntil(t, conn, TypeReady, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read error = %v, want close %d", err, websocket.CloseGoingAway)
	}
	if srv.ActiveSessions() != 0 {
		t.Errorf("active sessions = %d, want 0", srv.ActiveSessions())
	}

	if _, _, err := websocket.DefaultDialer.Dial(wsURL(hs, "/ws/stocks"), nil); err == nil {
		t.Error("dial after shutdown should fail")
	}
}
