// Package realtime maintains one live client connection to the relay
// endpoint, with automatic reconnection after unclean closes.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

// State is the channel lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// DefaultReconnectDelay is the fixed wait before retrying after an unclean
// close.
const DefaultReconnectDelay = 5 * time.Second

// Conn is the transport surface the channel needs. *websocket.Conn
// satisfies it; tests inject fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a transport connection. No connect timeout is applied; a
// dial that never resolves leaves the channel connecting indefinitely.
type Dialer func(ctx context.Context, url string) (Conn, error)

func websocketDialer(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Options configures a Channel. All hooks are optional and are invoked from
// the channel's own goroutines.
type Options struct {
	URL            string
	ReconnectDelay time.Duration
	Dialer         Dialer

	OnConnect    func()
	OnDisconnect func()
	OnEvent      func(models.ChannelEvent)
	OnError      func(error)
}

// Channel is a persistent-connection client. Lifecycle:
// idle -> connecting -> open -> closed -> connecting -> ...
// At most one connection attempt is in flight at any time, and at most one
// reconnect is scheduled.
type Channel struct {
	opts Options

	mu        sync.Mutex
	state     State
	conn      Conn
	writeMu   sync.Mutex
	dialing   bool
	reconnect *time.Timer
	stopped   bool
}

// New returns an idle Channel.
func New(opts Options) *Channel {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocketDialer
	}
	return &Channel{opts: opts, state: StateIdle}
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is open.
func (c *Channel) Connected() bool { return c.State() == StateOpen }

// Connect starts a connection attempt. It is a no-op while an attempt is in
// flight or the channel is already open, so duplicate calls cannot open a
// second socket.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.dialing || c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.stopped = false
	c.dialing = true
	c.state = StateConnecting
	c.mu.Unlock()
	go c.dial()
}

func (c *Channel) dial() {
	conn, err := c.opts.Dialer(context.Background(), c.opts.URL)
	c.mu.Lock()
	c.dialing = false
	if err != nil {
		c.state = StateClosed
		stopped := c.stopped
		c.mu.Unlock()
		logger.Warn("channel_dial_failed", "url", c.opts.URL, "error", err)
		c.reportError(err)
		if !stopped {
			c.scheduleReconnect()
		}
		return
	}
	if c.state != StateConnecting {
		// Disconnect won the race; drop the fresh socket.
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()
	logger.Info("channel_connected", "url", c.opts.URL)
	observeConnect()
	if c.opts.OnConnect != nil {
		c.opts.OnConnect()
	}
	c.readLoop(conn)
}

// readLoop decodes inbound frames until the transport fails. A frame that
// does not parse is reported and skipped; the connection stays open.
func (c *Channel) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(err)
			return
		}
		var ev models.ChannelEvent
		if jerr := json.Unmarshal(data, &ev); jerr != nil {
			logger.Error("channel_parse_failed", "error", jerr)
			c.reportError(jerr)
			continue
		}
		if c.opts.OnEvent != nil {
			c.opts.OnEvent(ev)
		}
	}
}

func (c *Channel) handleClose(err error) {
	c.mu.Lock()
	if c.state != StateOpen {
		// Disconnect already tore the connection down and notified.
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.conn = nil
	c.mu.Unlock()
	logger.Info("channel_disconnected", "error", err)
	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect()
	}
	if isCleanClose(err) {
		return
	}
	c.scheduleReconnect()
}

// isCleanClose reports whether err carries the protocol's normal-closure
// code; only unclean closes trigger reconnection.
func isCleanClose(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure
}

func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.dialing || c.reconnect != nil {
		return
	}
	logger.Info("channel_reconnect_scheduled", "delay", c.opts.ReconnectDelay)
	observeReconnectScheduled()
	c.reconnect = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.mu.Lock()
		c.reconnect = nil
		c.mu.Unlock()
		c.Connect()
	})
}

// Send writes an event to the transport. Outside the open state the event
// is silently dropped; callers must not assume delivery.
func (c *Channel) Send(ev models.ChannelEvent) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		logger.Debug("channel_send_dropped", "type", ev.Type)
		return
	}
	c.writeMu.Lock()
	err := conn.WriteJSON(ev)
	c.writeMu.Unlock()
	if err != nil {
		logger.Warn("channel_send_failed", "type", ev.Type, "error", err)
		c.reportError(err)
	}
}

// Disconnect cancels any pending reconnect, closes the transport and leaves
// the channel closed. It never auto-reconnects.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	wasOpen := c.state == StateOpen
	c.state = StateClosed
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	logger.Info("channel_closed")
	if wasOpen && c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect()
	}
}

func (c *Channel) reportError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}
