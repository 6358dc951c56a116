package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radiowatch/sigstream/internal/telemetry"
)

// channel lifecycle states. Transitions are driven by transport events and
// backoff timer expiry only.
type channelState int

const (
	stateIdle channelState = iota
	stateConnecting
	stateOpen
	stateBackoff
	stateClosed
)

type listener struct {
	id uuid.UUID
	fn MessageFunc
}

// Channel is one logical real-time feed: it owns a single transport
// connection for its path, the set of attached listeners and its
// reconnection state. Each channel runs its own goroutine, so a slow
// listener on one path never delays delivery on another.
type Channel struct {
	path   string
	url    string
	dialer Dialer
	logger *slog.Logger

	onMessage MessageFunc
	onStatus  StatusFunc

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int

	metrics    *Metrics
	unregister func(*Channel)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     channelState
	conn      Conn
	attempts  int
	listeners []listener
}

// Path returns the channel's stream path.
func (c *Channel) Path() string { return c.path }

// IsConnected reports whether the channel has an open transport connection.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// Done is closed once the channel has fully shut down, either through an
// explicit disconnect or after exhausting its reconnection budget.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Send writes a JSON frame on the open connection. It is a no-op returning
// false when no open transport exists; messages are never buffered for
// later delivery.
func (c *Channel) Send(v any) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.state == stateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return false
	}
	if err := conn.WriteJSON(v); err != nil {
		c.logger.Warn("send failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// AddListener attaches a subscriber. Listeners are invoked after the
// channel's own message callback, in registration order, and persist across
// reconnects of the path.
func (c *Channel) AddListener(fn MessageFunc) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New()
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	return id
}

// RemoveListener detaches a subscriber by its handle. Removal is by
// identity, never by position. Returns false when the handle is unknown.
func (c *Channel) RemoveListener(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.listeners {
		if c.listeners[i].id == id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// stop performs a hard cancellation: the attempt counter is pinned to the
// cap before the context is cancelled, so an in-flight backoff timer cannot
// reconnect the path after an intentional disconnect.
func (c *Channel) stop() {
	c.mu.Lock()
	c.attempts = c.maxAttempts
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-c.done
}

// run drives the channel state machine until terminal shutdown.
func (c *Channel) run() {
	defer close(c.done)
	defer c.unregister(c)

	for {
		c.setState(stateConnecting)
		c.notify(StatusConnecting)

		conn, err := c.dialer.DialContext(c.ctx, c.url)
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Warn("connect failed", slog.String("error", err.Error()))
				c.notify(StatusError)
				c.notify(StatusDisconnected)
			}
		} else {
			c.mu.Lock()
			c.conn = conn
			c.state = stateOpen
			c.attempts = 0
			c.mu.Unlock()

			c.logger.Info("channel connected")
			c.notify(StatusConnected)

			readErr := c.readLoop(conn)

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			_ = conn.Close()

			if c.ctx.Err() == nil {
				if readErr != nil {
					c.logger.Warn("connection lost", slog.String("error", readErr.Error()))
					c.notify(StatusError)
				}
				c.notify(StatusDisconnected)
			}
		}

		if c.ctx.Err() != nil {
			c.setState(stateClosed)
			c.notify(StatusDisconnected)
			return
		}

		c.mu.Lock()
		if c.attempts >= c.maxAttempts {
			c.state = stateClosed
			c.mu.Unlock()
			c.logger.Error("reconnection budget exhausted, giving up",
				slog.Int("attempts", c.maxAttempts))
			return
		}
		delay := backoffDelay(c.baseDelay, c.maxDelay, c.attempts)
		c.attempts++
		c.state = stateBackoff
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.Reconnects.WithLabelValues(c.path).Inc()
		}
		c.logger.Info("reconnecting", slog.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			c.setState(stateClosed)
			return
		case <-timer.C:
		}
	}
}

// readLoop delivers inbound frames until the connection fails. Frames are
// delivered in arrival order: the channel callback first, then every
// listener in registration order. Decode failures are logged, counted and
// dropped; the stream continues.
func (c *Channel) readLoop(conn Conn) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if c.metrics != nil {
			c.metrics.FramesTotal.WithLabelValues(c.path).Inc()
		}

		frame, err := telemetry.DecodeFrame(data)
		if err != nil {
			if c.metrics != nil {
				c.metrics.DecodeErrors.WithLabelValues(c.path).Inc()
			}
			c.logger.Warn("dropping undecodable frame", slog.String("error", err.Error()))
			continue
		}

		if c.onMessage != nil {
			c.onMessage(frame)
		}

		c.mu.Lock()
		subs := make([]listener, len(c.listeners))
		copy(subs, c.listeners)
		c.mu.Unlock()

		for i := range subs {
			subs[i].fn(frame)
		}
	}
}

func (c *Channel) setState(s channelState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Channel) notify(status Status) {
	if c.onStatus != nil {
		c.onStatus(status)
	}
}

// backoffDelay computes the reconnection delay for the given 0-based
// attempt: base * 2^attempt, capped at max. The cap replaces the unbounded
// growth of earlier designs.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	// Shifting beyond 62 bits would overflow long before any realistic cap.
	if attempt > 32 {
		return max
	}
	d := base << uint(attempt)
	if d > max || d <= 0 {
		return max
	}
	return d
}
