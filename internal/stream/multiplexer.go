package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseDelay is the first reconnection backoff delay.
	DefaultBaseDelay = time.Second

	// DefaultMaxDelay caps the exponential backoff growth.
	DefaultMaxDelay = 30 * time.Second

	// DefaultMaxReconnectAttempts bounds reconnection before a channel is
	// declared dead.
	DefaultMaxReconnectAttempts = 5
)

// WithLogger sets the logger for the multiplexer and its channels.
func WithLogger(logger *slog.Logger) func(*Multiplexer) {
	return func(m *Multiplexer) { m.logger = logger }
}

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) func(*Multiplexer) {
	return func(m *Multiplexer) { m.dialer = d }
}

// WithBackoff overrides the reconnection backoff parameters.
func WithBackoff(base, max time.Duration) func(*Multiplexer) {
	return func(m *Multiplexer) {
		m.baseDelay = base
		m.maxDelay = max
	}
}

// WithMaxReconnectAttempts overrides the reconnection budget per channel.
func WithMaxReconnectAttempts(n int) func(*Multiplexer) {
	return func(m *Multiplexer) { m.maxAttempts = n }
}

// WithMetrics attaches stream metrics.
func WithMetrics(metrics *Metrics) func(*Multiplexer) {
	return func(m *Multiplexer) { m.metrics = metrics }
}

// Multiplexer owns the set of active channels keyed by path. The channel
// table is the only shared mutable state; it is guarded by a mutex that is
// never held across callback execution.
type Multiplexer struct {
	baseURL string
	dialer  Dialer
	logger  *slog.Logger
	metrics *Metrics

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int

	mu       sync.Mutex
	channels map[string]*Channel
}

// New creates a multiplexer for the given backend base URL. http and https
// schemes are normalized to ws and wss.
func New(baseURL string, options ...func(*Multiplexer)) (*Multiplexer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	m := Multiplexer{
		baseURL:     strings.TrimRight(u.String(), "/"),
		dialer:      NewWebsocketDialer(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		maxAttempts: DefaultMaxReconnectAttempts,
		channels:    make(map[string]*Channel),
	}
	for _, option := range options {
		option(&m)
	}

	return &m, nil
}

// Connect opens a channel for the path and returns its handle. Connect is
// idempotent per path: while a channel for the path exists, subsequent calls
// return the existing handle without opening a duplicate transport.
//
// The context bounds the channel lifetime: cancelling it shuts the channel
// down just like Disconnect.
func (m *Multiplexer) Connect(ctx context.Context, path string, onMessage MessageFunc, onStatus StatusFunc) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.channels[path]; ok {
		return ch
	}

	chCtx, cancel := context.WithCancel(ctx)
	ch := &Channel{
		path:        path,
		url:         m.baseURL + path,
		dialer:      m.dialer,
		logger:      m.logger.With(slog.String("path", path)),
		onMessage:   onMessage,
		onStatus:    onStatus,
		baseDelay:   m.baseDelay,
		maxDelay:    m.maxDelay,
		maxAttempts: m.maxAttempts,
		metrics:     m.metrics,
		unregister:  m.remove,
		ctx:         chCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	m.channels[path] = ch

	go ch.run()
	return ch
}

// Send writes a JSON frame on the path's open connection. Returns false,
// without buffering, when the path has no open transport.
func (m *Multiplexer) Send(path string, v any) bool {
	if ch := m.channel(path); ch != nil {
		return ch.Send(v)
	}
	return false
}

// IsConnected reports whether the path has an open transport connection.
func (m *Multiplexer) IsConnected(path string) bool {
	if ch := m.channel(path); ch != nil {
		return ch.IsConnected()
	}
	return false
}

// AddListener attaches a subscriber to the path. The second return value is
// false when no channel exists for the path.
func (m *Multiplexer) AddListener(path string, fn MessageFunc) (uuid.UUID, bool) {
	if ch := m.channel(path); ch != nil {
		return ch.AddListener(fn), true
	}
	return uuid.UUID{}, false
}

// RemoveListener detaches a subscriber from the path by its handle.
func (m *Multiplexer) RemoveListener(path string, id uuid.UUID) bool {
	if ch := m.channel(path); ch != nil {
		return ch.RemoveListener(id)
	}
	return false
}

// Disconnect shuts the path's channel down and removes it from the active
// set. Any pending reconnection backoff is cancelled; it cannot fire after
// the disconnect. Unknown paths are a no-op.
func (m *Multiplexer) Disconnect(path string) {
	m.mu.Lock()
	ch, ok := m.channels[path]
	if ok {
		delete(m.channels, path)
	}
	m.mu.Unlock()

	if ok {
		ch.stop()
	}
}

// DisconnectAll tears down every active channel.
func (m *Multiplexer) DisconnectAll() {
	m.mu.Lock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.channels = make(map[string]*Channel)
	m.mu.Unlock()

	for _, ch := range channels {
		ch.stop()
	}
}

// Paths returns the currently registered channel paths.
func (m *Multiplexer) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.channels))
	for path := range m.channels {
		paths = append(paths, path)
	}
	return paths
}

func (m *Multiplexer) channel(path string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[path]
}

// remove drops a channel from the table once its goroutine exits, unless a
// newer channel has already taken the path over.
func (m *Multiplexer) remove(ch *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.channels[ch.path] == ch {
		delete(m.channels, ch.path)
	}
}
