package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/radiowatch/sigstream/internal/telemetry"
)

// fakeConn is an in-memory transport connection fed by tests.
type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent []any
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection reset")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	c.sent = append(c.sent, v)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) deliver(t *testing.T, frame string) {
	t.Helper()
	select {
	case c.frames <- []byte(frame):
	case <-time.After(time.Second):
		t.Fatal("fake connection buffer full")
	}
}

// fakeDialer scripts dial outcomes per attempt.
type fakeDialer struct {
	mu     sync.Mutex
	dials  int
	script func(attempt int) (Conn, error)
	dialed chan struct{}
}

func newFakeDialer(script func(attempt int) (Conn, error)) *fakeDialer {
	return &fakeDialer{script: script, dialed: make(chan struct{}, 64)}
}

func (d *fakeDialer) DialContext(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	attempt := d.dials
	d.dials++
	d.mu.Unlock()

	select {
	case d.dialed <- struct{}{}:
	default:
	}
	return d.script(attempt)
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) waitForDial(t *testing.T) {
	t.Helper()
	select {
	case <-d.dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dial attempt")
	}
}

func newTestMux(t *testing.T, dialer Dialer, options ...func(*Multiplexer)) *Multiplexer {
	t.Helper()
	options = append([]func(*Multiplexer){
		WithDialer(dialer),
		WithBackoff(time.Millisecond, 10*time.Millisecond),
	}, options...)

	m, err := New("ws://backend.test", options...)
	if err != nil {
		t.Fatalf("creating multiplexer: %v", err)
	}
	t.Cleanup(m.DisconnectAll)
	return m
}

func waitDone(t *testing.T, ch *Channel) {
	t.Helper()
	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel shutdown")
	}
}

func TestBackoffDelay(t *testing.T) {
	base, max := time.Second, 30*time.Second

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for attempt, expected := range want {
		if got := backoffDelay(base, max, attempt); got != expected {
			t.Errorf("attempt %d: delay %v, want %v", attempt, got, expected)
		}
	}

	// A pathological attempt count must not overflow past the cap.
	if got := backoffDelay(base, max, 500); got != max {
		t.Errorf("huge attempt: delay %v, want %v", got, max)
	}
}

func TestChannel_ExhaustsReconnectionBudget(t *testing.T) {
	dialer := newFakeDialer(func(int) (Conn, error) {
		return nil, errors.New("connection refused")
	})
	m := newTestMux(t, dialer)

	ch := m.Connect(context.Background(), "/ws/spectrum", nil, nil)
	waitDone(t, ch)

	// Initial connect plus exactly maxAttempts reconnections.
	if got := dialer.dialCount(); got != 1+DefaultMaxReconnectAttempts {
		t.Errorf("expected %d dial attempts, got %d", 1+DefaultMaxReconnectAttempts, got)
	}
	if m.IsConnected("/ws/spectrum") {
		t.Error("exhausted channel reports connected")
	}
	if paths := m.Paths(); len(paths) != 0 {
		t.Errorf("exhausted channel still registered: %v", paths)
	}
}

func TestChannel_AttemptCounterResetsOnOpen(t *testing.T) {
	// First dial fails, second succeeds and immediately drops, the rest
	// fail. The successful open must refresh the reconnection budget.
	dialer := newFakeDialer(func(attempt int) (Conn, error) {
		if attempt == 1 {
			conn := newFakeConn()
			_ = conn.Close()
			return conn, nil
		}
		return nil, errors.New("connection refused")
	})
	m := newTestMux(t, dialer)

	ch := m.Connect(context.Background(), "/ws/spectrum", nil, nil)
	waitDone(t, ch)

	// 1 initial failure + 1 success + 5 post-reset failures.
	if got := dialer.dialCount(); got != 7 {
		t.Errorf("expected 7 dial attempts with a mid-stream reset, got %d", got)
	}
}

func TestMultiplexer_ConnectIsIdempotent(t *testing.T) {
	block := make(chan struct{})
	dialer := newFakeDialer(func(int) (Conn, error) {
		<-block
		return nil, errors.New("connection refused")
	})
	m := newTestMux(t, dialer, WithMaxReconnectAttempts(0))

	first := m.Connect(context.Background(), "/ws/spectrum", nil, nil)
	second := m.Connect(context.Background(), "/ws/spectrum", nil, nil)

	if first != second {
		t.Error("second connect while the first open is pending must return the same handle")
	}

	close(block)
	waitDone(t, first)
}

func TestMultiplexer_DisconnectCancelsPendingBackoff(t *testing.T) {
	dialer := newFakeDialer(func(int) (Conn, error) {
		return nil, errors.New("connection refused")
	})
	m := newTestMux(t, dialer, WithBackoff(time.Minute, time.Hour))

	ch := m.Connect(context.Background(), "/ws/spectrum", nil, nil)
	dialer.waitForDial(t)

	// The channel is now parked in a one-minute backoff. Disconnect must
	// cancel the timer instead of letting it reconnect later.
	m.Disconnect("/ws/spectrum")
	waitDone(t, ch)

	if got := dialer.dialCount(); got != 1 {
		t.Errorf("backoff timer fired after disconnect: %d dials", got)
	}
	if paths := m.Paths(); len(paths) != 0 {
		t.Errorf("disconnected channel still registered: %v", paths)
	}
}

func TestChannel_DeliversInOrderToCallbackThenListeners(t *testing.T) {
	conn := newFakeConn()
	dialer := newFakeDialer(func(int) (Conn, error) { return conn, nil })
	m := newTestMux(t, dialer, WithMaxReconnectAttempts(0))

	var mu sync.Mutex
	var order []string
	delivered := make(chan struct{}, 8)

	record := func(tag string) MessageFunc {
		return func(f *telemetry.Frame) {
			mu.Lock()
			order = append(order, tag+":"+f.Type)
			mu.Unlock()
			delivered <- struct{}{}
		}
	}

	ch := m.Connect(context.Background(), "/ws/spectrum", record("cb"), nil)
	ch.AddListener(record("l1"))
	ch.AddListener(record("l2"))

	conn.deliver(t, `{"type":"status","status":"streaming"}`)
	for i := 0; i < 3; i++ {
		select {
		case <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"cb:status", "l1:status", "l2:status"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order %v, want %v", order, want)
		}
	}
}

func TestChannel_RemoveListenerByIdentity(t *testing.T) {
	conn := newFakeConn()
	dialer := newFakeDialer(func(int) (Conn, error) { return conn, nil })
	m := newTestMux(t, dialer, WithMaxReconnectAttempts(0))

	received := make(chan string, 8)
	m.Connect(context.Background(), "/ws/spectrum", nil, nil)

	keepID, ok := m.AddListener("/ws/spectrum", func(*telemetry.Frame) { received <- "keep" })
	if !ok {
		t.Fatal("expected listener registration to succeed")
	}
	dropID, _ := m.AddListener("/ws/spectrum", func(*telemetry.Frame) { received <- "drop" })

	if !m.RemoveListener("/ws/spectrum", dropID) {
		t.Fatal("expected removal by identity to succeed")
	}
	if m.RemoveListener("/ws/spectrum", dropID) {
		t.Error("second removal of the same handle must fail")
	}

	conn.deliver(t, `{"type":"status","status":"ok"}`)
	select {
	case got := <-received:
		if got != "keep" {
			t.Fatalf("removed listener still invoked (got %q)", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	select {
	case got := <-received:
		t.Fatalf("unexpected extra delivery %q", got)
	case <-time.After(50 * time.Millisecond):
	}
	_ = keepID
}

func TestChannel_ListenersSurviveReconnect(t *testing.T) {
	conns := make(chan *fakeConn, 2)
	dialer := newFakeDialer(func(int) (Conn, error) {
		conn := newFakeConn()
		conns <- conn
		return conn, nil
	})
	m := newTestMux(t, dialer)

	received := make(chan struct{}, 8)
	m.Connect(context.Background(), "/ws/spectrum", nil, nil)
	m.AddListener("/ws/spectrum", func(*telemetry.Frame) { received <- struct{}{} })

	first := <-conns
	first.deliver(t, `{"type":"status","status":"ok"}`)
	<-received

	// Abrupt close; the channel reconnects and the listener must keep
	// receiving without re-subscribing.
	_ = first.Close()
	second := <-conns
	second.deliver(t, `{"type":"status","status":"ok"}`)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not survive the reconnect")
	}
}

func TestChannel_UndecodableFrameDoesNotStopStream(t *testing.T) {
	conn := newFakeConn()
	dialer := newFakeDialer(func(int) (Conn, error) { return conn, nil })
	m := newTestMux(t, dialer, WithMaxReconnectAttempts(0))

	received := make(chan string, 8)
	m.Connect(context.Background(), "/ws/spectrum", func(f *telemetry.Frame) { received <- f.Type }, nil)

	conn.deliver(t, `this is not json`)
	conn.deliver(t, `{"type":"status","status":"ok"}`)

	select {
	case got := <-received:
		if got != "status" {
			t.Fatalf("expected the status frame, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream stalled after an undecodable frame")
	}
}

func TestMultiplexer_SendRequiresOpenConnection(t *testing.T) {
	dialer := newFakeDialer(func(int) (Conn, error) {
		return nil, errors.New("connection refused")
	})
	m := newTestMux(t, dialer, WithBackoff(time.Minute, time.Hour))

	if m.Send("/ws/spectrum", map[string]string{"type": "pause"}) {
		t.Error("send on an unknown path must return false")
	}

	m.Connect(context.Background(), "/ws/spectrum", nil, nil)
	dialer.waitForDial(t)

	if m.Send("/ws/spectrum", map[string]string{"type": "pause"}) {
		t.Error("send without an open transport must return false")
	}
}

func TestMultiplexer_SendOnOpenConnection(t *testing.T) {
	conn := newFakeConn()
	dialer := newFakeDialer(func(int) (Conn, error) { return conn, nil })
	m := newTestMux(t, dialer, WithMaxReconnectAttempts(0))

	statuses := make(chan Status, 8)
	m.Connect(context.Background(), "/ws/spectrum", nil, func(s Status) { statuses <- s })

	waitForStatus(t, statuses, StatusConnected)

	if !m.Send("/ws/spectrum", map[string]string{"type": "resume"}) {
		t.Fatal("send on an open connection must succeed")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.sent) != 1 {
		t.Fatalf("expected 1 outbound frame, got %d", len(conn.sent))
	}
}

func TestChannel_StatusTransitions(t *testing.T) {
	conn := newFakeConn()
	dialer := newFakeDialer(func(attempt int) (Conn, error) {
		if attempt == 0 {
			return conn, nil
		}
		return nil, errors.New("connection refused")
	})
	m := newTestMux(t, dialer, WithMaxReconnectAttempts(1))

	statuses := make(chan Status, 16)
	ch := m.Connect(context.Background(), "/ws/spectrum", nil, func(s Status) { statuses <- s })

	waitForStatus(t, statuses, StatusConnected)
	_ = conn.Close() // abrupt close
	waitDone(t, ch)

	var got []Status
	for {
		select {
		case s := <-statuses:
			got = append(got, s)
			continue
		default:
		}
		break
	}

	// After the abrupt close: error, disconnected, then one reconnection
	// round (connecting, error, disconnected).
	want := []Status{StatusError, StatusDisconnected, StatusConnecting, StatusError, StatusDisconnected}
	if len(got) != len(want) {
		t.Fatalf("status sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status sequence %v, want %v", got, want)
		}
	}
}

func waitForStatus(t *testing.T, statuses <-chan Status, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}
