// Package link maintains the WebSocket connection to the jxscout analysis server and
// correlates analysis requests with their responses.
package link

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"jxscout/internal/errors"
	"jxscout/internal/protocol"
	"jxscout/internal/slogutil"
)

const (
	// DefaultReconnectDelay is the fixed delay between reconnect attempts
	DefaultReconnectDelay = 5 * time.Second

	// DefaultRequestTimeout bounds how long GetAnalysis waits for a response
	DefaultRequestTimeout = 30 * time.Second

	// DefaultHandshakeTimeout bounds a single dial
	DefaultHandshakeTimeout = 10 * time.Second

	closeGracePeriod = time.Second
)

// Status is the connection state reported to OnStatus.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Options configures a Client. Zero values select the defaults, except RequestTimeout
// where a negative value disables the timeout.
type Options struct {
	ReconnectDelay time.Duration
	RequestTimeout time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger

	// NewID generates correlation tokens. Defaults to random UUIDs.
	NewID func() string

	// OnServerError receives uncorrelated errors pushed by the server.
	OnServerError func(message string)

	// OnStatus is called after every status transition. err is set when the transition
	// was caused by a failure.
	OnStatus func(status Status, err error)
}

// outcome settles one pending request.
type outcome struct {
	result *protocol.AnalysisResult
	err    error
}

// Client is a reconnecting request/response link to one analysis server endpoint.
type Client struct {
	opts   Options
	logger *slog.Logger
	dialer *websocket.Dialer

	mu             sync.Mutex
	endpoint       string
	conn           *websocket.Conn
	generation     uint64
	pending        map[string]chan outcome
	reconnectTimer *time.Timer
	stopped        bool
	status         Status
	ready          chan struct{}
	readyClosed    bool

	// writeMu serialises frames; gorilla allows one concurrent writer
	writeMu sync.Mutex
}

// New creates a Client for endpoint. It does not connect.
func New(endpoint string, opts Options) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: DefaultHandshakeTimeout,
		}
	}

	return &Client{
		opts:     opts,
		logger:   slogutil.OrDiscard(opts.Logger).With(slogutil.ComponentKey, "link"),
		dialer:   dialer,
		endpoint: endpoint,
		pending:  make(map[string]chan outcome),
		status:   StatusDisconnected,
		ready:    make(chan struct{}),
	}
}

// Endpoint returns the target used by the next connect attempt.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// UpdateEndpoint changes the target of future connect attempts. An open connection is
// not affected; callers disconnect and connect to apply the change.
func (c *Client) UpdateEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Pending returns the number of requests awaiting a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// WaitReady blocks until a connection is open or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect opens a connection to the current endpoint, replacing any previous one.
// A failed first attempt is returned to the caller and not retried; retries start only
// after an established connection drops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()

	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	endpoint := c.endpoint
	notify := c.setStatusLocked(StatusConnecting, nil)
	c.mu.Unlock()
	notify()

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		cerr := errors.New(errors.ConnectionError, "failed to connect to "+endpoint, err)

		c.mu.Lock()
		notify := func() {}
		if c.conn == nil {
			notify = c.setStatusLocked(StatusDisconnected, cerr)
		} else {
			notify = c.setStatusLocked(StatusConnected, nil)
		}
		c.mu.Unlock()
		notify()

		return cerr
	}

	c.mu.Lock()
	if c.stopped {
		notify := c.setStatusLocked(StatusDisconnected, nil)
		c.mu.Unlock()
		notify()
		_ = conn.Close()
		return errors.New(errors.ConnectionError, "disconnected while connecting to "+endpoint, nil)
	}

	previous := c.conn
	if previous != nil {
		c.failPendingLocked(errors.New(errors.ConnectionLost, "connection replaced", nil))
	}

	c.generation++
	generation := c.generation
	c.conn = conn
	c.cancelReconnectLocked()
	if !c.readyClosed {
		close(c.ready)
		c.readyClosed = true
	}
	notify = c.setStatusLocked(StatusConnected, nil)
	c.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	c.logger.Info("Connected to jxscout WebSocket server", "endpoint", endpoint)
	notify()

	go c.readLoop(conn, generation)
	return nil
}

// Disconnect closes the connection, cancels any scheduled reconnect and rejects every
// pending request with ConnectionLost. Safe to call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.cancelReconnectLocked()

	conn := c.conn
	c.conn = nil
	c.generation++
	c.failPendingLocked(errors.New(errors.ConnectionLost, "client disconnected", nil))
	c.resetReadyLocked()
	notify := c.setStatusLocked(StatusDisconnected, nil)
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		_ = conn.Close()
		c.logger.Info("Disconnected from jxscout WebSocket server")
	}
	notify()
}

// GetAnalysis requests the analysis of filePath and waits for the matching response.
// It fails immediately with NotConnected when no connection is open.
func (c *Client) GetAnalysis(ctx context.Context, filePath string) (*protocol.AnalysisResult, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, errors.New(errors.NotConnected, "WebSocket is not connected", nil)
	}

	id := c.opts.NewID()
	ch := make(chan outcome, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	msg, err := protocol.NewGetAnalysisRequest(id, filePath)
	if err != nil {
		c.removePending(id)
		return nil, errors.New(errors.InternalError, "failed to build request", err)
	}

	if err := c.writeMessage(conn, msg); err != nil {
		c.removePending(id)
		return nil, errors.New(errors.ConnectionLost, "failed to send request", err)
	}

	c.logger.Debug("Sent analysis request", "id", id, "filePath", filePath)

	var timeout <-chan time.Time
	if c.opts.RequestTimeout > 0 {
		timer := time.NewTimer(c.opts.RequestTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-ch:
		return out.result, out.err
	case <-timeout:
		c.removePending(id)
		return nil, errors.New(errors.Timeout, fmt.Sprintf("no response within %v", c.opts.RequestTimeout), nil)
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

func (c *Client) writeMessage(conn *websocket.Conn, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// settle removes the pending request and delivers out. It returns false when id is
// unknown or already settled.
func (c *Client) settle(id string, out outcome) bool {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	ch <- out
	return true
}

func (c *Client) failPendingLocked(err error) {
	for id, ch := range c.pending {
		ch <- outcome{err: err}
		delete(c.pending, id)
	}
}

func (c *Client) resetReadyLocked() {
	if c.readyClosed {
		c.ready = make(chan struct{})
		c.readyClosed = false
	}
}

func (c *Client) setStatusLocked(status Status, err error) func() {
	if c.status == status && err == nil {
		return func() {}
	}
	c.status = status

	cb := c.opts.OnStatus
	if cb == nil {
		return func() {}
	}
	return func() { cb(status, err) }
}
