package stream

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSession_CloseMidBurstStopsWrites(t *testing.T) {
	cfg := quietConfig()
	cfg.Chaos.BurstProbability = 1
	cfg.Chaos.BurstMin = 10
	cfg.Chaos.BurstMax = 10
	cfg.Chaos.BurstSpacing = 20 * time.Millisecond

	src := newFakeSource()
	sess, conn := newTestSession(t, cfg, src)

	sess.scheduledPush(sess.ctx, "AAPL")
	waitFor(t, time.Second, func() bool { return conn.writeCount() >= 1 })

	sess.terminate("test")
	atClose := conn.writeCount()
	if atClose >= 10 {
		t.Fatalf("burst finished before close (%d writes); spacing too small for the test", atClose)
	}

	time.Sleep(300 * time.Millisecond)
	if got := conn.writeCount(); got != atClose {
		t.Errorf("writes after close: got %d, want %d", got, atClose)
	}
}

func TestSession_TerminateIsIdempotent(t *testing.T) {
	sess, conn := newTestSession(t, quietConfig(), newFakeSource())

	if !sess.shutdown(0, "", nil, "first") {
		t.Fatal("first shutdown should close the session")
	}
	if sess.shutdown(websocket.CloseServiceRestart, closeTextReset, []byte(`{}`), "second") {
		t.Error("second shutdown should be a no-op")
	}
	sess.terminate("third")

	if got := conn.closeCount(); got != 1 {
		t.Errorf("conn.Close calls = %d, want 1", got)
	}
	if got := conn.writeCount(); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
	if codes := conn.closeCodes(); len(codes) != 0 {
		t.Errorf("close frames = %v, want none", codes)
	}
	if err := sess.write([]byte(`{}`), TypeQuote); err != ErrSessionClosed {
		t.Errorf("write after close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_SubscribeReplacesCycle(t *testing.T) {
	src := newFakeSource()
	sess, conn := newTestSession(t, quietConfig(), src)

	sess.subscribe("AAPL", 700*time.Millisecond)
	sess.subscribe("MSFT", 2*time.Second)

	symbol, interval, subscribed := sess.state()
	if symbol != "MSFT" || interval != 2*time.Second || !subscribed {
		t.Errorf("state = (%q, %v, %v), want (MSFT, 2s, true)", symbol, interval, subscribed)
	}
	sess.mu.Lock()
	cycles := sess.cycles
	sess.mu.Unlock()
	if cycles != 2 {
		t.Errorf("cycles started = %d, want 2", cycles)
	}

	waitFor(t, time.Second, func() bool {
		for _, m := range conn.messagesOfType(TypeQuote) {
			if m["symbol"] == "MSFT" {
				return true
			}
		}
		return false
	})

	sess.terminate("test")
	if _, _, subscribed := sess.state(); subscribed {
		t.Error("cycle still registered after close")
	}
}

func TestSession_SubscribeEmptySymbol(t *testing.T) {
	sess, conn := newTestSession(t, quietConfig(), newFakeSource())

	sess.subscribe("AAPL", time.Second)
	sess.subscribe("", time.Second)

	if _, _, subscribed := sess.state(); subscribed {
		t.Error("empty symbol should leave no cycle")
	}
	waitFor(t, time.Second, func() bool { return len(conn.messagesOfType(TypeError)) == 1 })
	if got := conn.messagesOfType(TypeError)[0]["message"]; got != MsgSymbolRequired {
		t.Errorf("error message = %v, want %q", got, MsgSymbolRequired)
	}
}

func TestSession_HandleMalformed(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"not json", "hello", true},
		{"array", `[1,2]`, true},
		{"null", `null`, true},
		{"missing type", `{"symbol":"AAPL"}`, true},
		{"numeric type", `{"type":5}`, true},
		{"null type", `{"type":null}`, true},
		{"unknown type", `{"type":"unsubscribe"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, conn := newTestSession(t, quietConfig(), newFakeSource())
			sess.handle([]byte(tt.data))

			errs := conn.messagesOfType(TypeError)
			if !tt.wantErr {
				if conn.writeCount() != 0 {
					t.Errorf("unexpected writes: %d", conn.writeCount())
				}
				return
			}
			if len(errs) != 1 || errs[0]["message"] != MsgInvalidFormat {
				t.Errorf("errors = %v, want one %q", errs, MsgInvalidFormat)
			}
			if sess.closed.Load() {
				t.Error("malformed input must not close the session")
			}
		})
	}
}

func TestSession_Ping(t *testing.T) {
	t.Run("pong", func(t *testing.T) {
		sess, conn := newTestSession(t, quietConfig(), newFakeSource())
		before := time.Now().UnixMilli()
		sess.handle([]byte(`{"type":"ping"}`))

		pongs := conn.messagesOfType(TypePong)
		if len(pongs) != 1 {
			t.Fatalf("pongs = %d, want 1", len(pongs))
		}
		at, _ := pongs[0]["at"].(float64)
		if int64(at) < before {
			t.Errorf("pong at = %v, want >= %d", at, before)
		}
	})

	t.Run("heartbeat dropped", func(t *testing.T) {
		cfg := quietConfig()
		cfg.Chaos.HeartbeatDropProbability = 1
		sess, conn := newTestSession(t, cfg, newFakeSource())
		sess.handle([]byte(`{"type":"ping"}`))

		if conn.writeCount() != 0 {
			t.Errorf("writes = %d, want 0 when heartbeat is dropped", conn.writeCount())
		}
	})
}

func TestSession_FetchErrors(t *testing.T) {
	t.Run("unknown symbol carries status", func(t *testing.T) {
		sess, conn := newTestSession(t, quietConfig(), newFakeSource())
		sess.push(sess.ctx, "ZZZZ")

		errs := conn.messagesOfType(TypeError)
		if len(errs) != 1 {
			t.Fatalf("errors = %d, want 1", len(errs))
		}
		if errs[0]["message"] != "Stock not found: ZZZZ" {
			t.Errorf("message = %v", errs[0]["message"])
		}
		if errs[0]["status"] != float64(404) {
			t.Errorf("status = %v, want 404", errs[0]["status"])
		}
	})

	t.Run("plain error becomes 500", func(t *testing.T) {
		src := newFakeSource()
		src.err = errFakeUpstream
		sess, conn := newTestSession(t, quietConfig(), src)
		sess.push(sess.ctx, "AAPL")

		errs := conn.messagesOfType(TypeError)
		if len(errs) != 1 || errs[0]["status"] != float64(500) {
			t.Errorf("errors = %v, want one with status 500", errs)
		}
	})

	t.Run("cancellation is silent", func(t *testing.T) {
		sess, conn := newTestSession(t, quietConfig(), newFakeSource())
		sess.cancel()
		sess.push(sess.ctx, "AAPL")

		if conn.writeCount() != 0 {
			t.Errorf("writes = %d, want 0 after cancellation", conn.writeCount())
		}
	})
}

func TestSession_ChaoticPushDuplicates(t *testing.T) {
	cfg := quietConfig()
	cfg.Chaos.DuplicateProbability = 1
	cfg.Chaos.DuplicateMin = 3
	cfg.Chaos.DuplicateMax = 3

	sess, conn := newTestSession(t, cfg, newFakeSource())
	sess.chaoticPush(sess.ctx, "AAPL")

	if got := conn.writeCount(); got != 3 {
		t.Fatalf("writes = %d, want 3", got)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if string(conn.writes[0]) != string(conn.writes[2]) {
		t.Error("duplicates should be byte-identical")
	}
}

func TestSession_ChaoticPushDelayedAfterClose(t *testing.T) {
	cfg := quietConfig()
	cfg.Chaos.DelayProbability = 1
	cfg.Chaos.DelayMin = 50 * time.Millisecond
	cfg.Chaos.DelayMax = 60 * time.Millisecond

	sess, conn := newTestSession(t, cfg, newFakeSource())
	sess.chaoticPush(sess.ctx, "AAPL")
	if conn.writeCount() != 0 {
		t.Fatal("delayed push written immediately")
	}

	sess.terminate("test")
	time.Sleep(150 * time.Millisecond)
	if conn.writeCount() != 0 {
		t.Errorf("delayed push written after close")
	}
}

func TestSession_ForceReset(t *testing.T) {
	sess, conn := newTestSession(t, quietConfig(), newFakeSource())
	sess.subscribe("AAPL", time.Second)
	waitFor(t, time.Second, func() bool { return len(conn.messagesOfType(TypeQuote)) >= 1 })

	sess.forceReset()
	sess.forceReset()

	resets := conn.messagesOfType(TypeReset)
	if len(resets) != 1 {
		t.Fatalf("serverReset messages = %d, want 1", len(resets))
	}
	if resets[0]["reason"] != sess.cfg.ResetReason {
		t.Errorf("reason = %v, want %q", resets[0]["reason"], sess.cfg.ResetReason)
	}
	if codes := conn.closeCodes(); len(codes) != 1 || codes[0] != websocket.CloseServiceRestart {
		t.Errorf("close codes = %v, want [%d]", codes, websocket.CloseServiceRestart)
	}
	if _, _, subscribed := sess.state(); subscribed {
		t.Error("cycle still registered after reset")
	}
}

func TestSession_WriteErrorCloses(t *testing.T) {
	sess, conn := newTestSession(t, quietConfig(), newFakeSource())
	conn.mu.Lock()
	conn.writeErr = errFakeUpstream
	conn.mu.Unlock()

	if err := sess.write([]byte(`{}`), TypeQuote); err == nil {
		t.Fatal("expected write error")
	}
	if !sess.closed.Load() {
		t.Error("write failure should close the session")
	}
	if conn.closeCount() != 1 {
		t.Errorf("conn.Close calls = %d, want 1", conn.closeCount())
	}
}

func TestSession_ServeReadyAndDisconnectTimer(t *testing.T) {
	cfg := quietConfig()
	conn := newFakeConn()
	sess := newSession("serve", &cfg, conn, newFakeSource(), nil, nil, nil)

	go sess.serve("AAPL")
	waitFor(t, time.Second, func() bool { return len(conn.messagesOfType(TypeQuote)) >= 1 })

	msgs := conn.messages()
	if msgs[0]["type"] != TypeReady {
		t.Errorf("first message type = %v, want ready", msgs[0]["type"])
	}

	sess.mu.Lock()
	d := sess.disconnect
	sess.mu.Unlock()
	if d == nil || !d.Pending() {
		t.Fatal("disconnect timer not armed")
	}
	if d.Delay() < cfg.Schedule.DisconnectMin || d.Delay() >= cfg.Schedule.DisconnectMax {
		t.Errorf("disconnect delay %v outside [%v, %v)", d.Delay(), cfg.Schedule.DisconnectMin, cfg.Schedule.DisconnectMax)
	}

	conn.Close()
	select {
	case <-sess.done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return after transport close")
	}
	if d.Pending() {
		t.Error("disconnect timer still pending after close")
	}
}
