package carechat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carechat-sdk-go/carechat/internal"

	"github.com/coder/websocket"
)

// Client owns the single realtime connection to the chat gateway: handshake,
// read/write loops, automatic reconnect with exponential backoff, and
// request/acknowledgement correlation.
type Client struct {
	cfg        Config
	logger     Logger
	dispatcher Dispatcher
	writeCh    chan Inbound

	mu      sync.Mutex
	conn    *internal.Conn
	state   ConnectionState
	cancel  context.CancelFunc
	closed  bool
	pending map[string]chan ackResult

	onConnect      func()
	onDisconnect   func(reason error)
	onConnectError func(error)
	onState        func(StateEvent)
}

type ackResult struct {
	data json.RawMessage
	err  *Error
}

// NewClient constructs a client with the provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		logger:  noopLogger{},
		writeCh: make(chan Inbound, 16),
		state:   StateDisconnected,
		pending: make(map[string]chan ackResult),
	}
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// OnMessage registers the callback for new_message events.
func (c *Client) OnMessage(fn func(MessageEvent)) { c.dispatcher.SetOnMessage(fn) }

// OnTyping registers the callback for typing_status events.
func (c *Client) OnTyping(fn func(TypingEvent)) { c.dispatcher.SetOnTyping(fn) }

// OnRead registers the callback for message_read events.
func (c *Client) OnRead(fn func(ReadEvent)) { c.dispatcher.SetOnRead(fn) }

// OnError registers the callback for protocol and decode errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnConnect registers the callback fired after every successful handshake,
// including reconnects. Room membership is NOT restored automatically; the
// owner must rejoin from this callback or from OnDisconnect bookkeeping.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// OnDisconnect registers the callback fired when the connection drops for
// any reason other than a local Close.
func (c *Client) OnDisconnect(fn func(reason error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// OnConnectError registers the callback fired for each failed connection
// attempt during reconnect, and for the terminal auth error.
func (c *Client) OnConnectError(fn func(error)) {
	c.mu.Lock()
	c.onConnectError = fn
	c.mu.Unlock()
}

// OnStateChange registers the callback for connection state transitions.
func (c *Client) OnStateChange(fn func(StateEvent)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnectionState, cause error) {
	c.mu.Lock()
	old := c.state
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	if fn != nil && old != s {
		fn(StateEvent{OldState: old, NewState: s, Error: cause})
	}
}

// Connect dials the gateway, performs the hello handshake, and starts the
// internal loops. Calling Connect while already connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "client is closed")
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	if c.cfg.URL == "" {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	// The transition happens in the same critical section as the check so
	// two concurrent Connect calls cannot both dial.
	old := c.state
	c.state = StateConnecting
	onState := c.onState
	c.mu.Unlock()
	if onState != nil {
		onState(StateEvent{OldState: old, NewState: StateConnecting})
	}

	conn, err := c.dialAndHello(ctx)
	if err != nil {
		if IsAuthError(err) {
			c.setState(StateError, err)
		} else {
			c.setState(StateDisconnected, err)
		}
		return err
	}
	c.startLoops(conn)
	return nil
}

// dialAndHello establishes the transport and completes the hello exchange.
// An unauthorized or unsupported_version reply is terminal.
func (c *Client) dialAndHello(ctx context.Context) (*internal.Conn, error) {
	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	conn, err := internal.Dial(dialCtx, c.cfg.URL, c.cfg.Token, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	if err != nil {
		return nil, WrapError(ErrorConnection, "dial failed", err)
	}

	hello := Inbound{
		Type: inboundHello,
		Data: HelloPayload{
			Protocol: ProtocolVersion,
			Token:    c.cfg.Token,
			User:     c.cfg.User,
		},
	}
	if err := conn.Write(ctx, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return nil, WrapError(ErrorConnection, "hello write failed", err)
	}

	var reply Outbound
	if err := conn.ReadDeadline(ctx, &reply, c.cfg.HandshakeTimeout); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return nil, WrapError(ErrorTimeout, "hello acknowledgement not received", err)
	}
	if reply.Type == outboundError && reply.Error != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake rejected")
		return nil, FromProtocolError(reply.Error)
	}

	return conn, nil
}

func (c *Client) startLoops(conn *internal.Conn) {
	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	// Close may have raced the handshake; a closed client never revives.
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "client close")
		return
	}
	c.conn = conn
	c.cancel = cancel
	onConnect := c.onConnect
	c.mu.Unlock()

	c.setState(StateConnected, nil)
	if onConnect != nil {
		onConnect()
	}

	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn)
}

// Close shuts down the client and closes the WebSocket. Reconnection stops.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.failPending()
	c.setState(StateClosed, nil)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

// Emit queues a fire-and-forget request.
func (c *Client) Emit(ctx context.Context, typ string, data any) error {
	return c.send(ctx, Inbound{Type: typ, Data: data})
}

// EmitWithAck sends a request carrying a correlation id and blocks until the
// gateway acknowledges it, the timeout elapses, or the connection drops.
func (c *Client) EmitWithAck(ctx context.Context, typ string, data any, timeout time.Duration) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan ackResult, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(ctx, Inbound{Type: typ, ID: id, Data: data}); err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutCh = t.C
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, FromProtocolError(res.err)
		}
		return res.data, nil
	case <-timeoutCh:
		return nil, NewError(ErrorTimeout, "no acknowledgement for "+typ)
	case <-ctx.Done():
		return nil, WrapError(ErrorTimeout, "context ended awaiting "+typ+" ack", ctx.Err())
	}
}

func (c *Client) send(ctx context.Context, in Inbound) error {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return NewError(ErrorNotConnected, "not connected")
	}

	select {
	case c.writeCh <- in:
		return nil
	case <-ctx.Done():
		return WrapError(ErrorTimeout, "send aborted", ctx.Err())
	}
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn) {
	for {
		var out Outbound
		if err := conn.Read(ctx, &out); err != nil {
			if internal.IsExpectedClose(ctx, err) {
				return
			}
			c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			c.handleDrop(WrapError(ErrorDisconnected, "connection lost", err))
			return
		}
		c.route(out)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn) {
	for {
		select {
		case in := <-c.writeCh:
			if err := conn.Write(ctx, in); err != nil {
				c.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// route delivers acknowledgements to their waiters and everything else to
// the dispatcher. Error replies carrying a correlation id answer a pending
// request; bare errors go to the error callback.
func (c *Client) route(out Outbound) {
	if out.ID != "" && (out.Type == outboundAck || out.Type == outboundError) {
		c.mu.Lock()
		ch, ok := c.pending[out.ID]
		if ok {
			delete(c.pending, out.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- ackResult{data: out.Data, err: out.Error}
		}
		return
	}
	c.dispatcher.Dispatch(out)
}

func (c *Client) failPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan ackResult)
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- ackResult{err: &Error{Code: "disconnected", Msg: "connection lost"}}
	}
}

// handleDrop reacts to an unexpected disconnect: pending requests fail, the
// owner is notified, and the reconnect loop starts unless the client was
// explicitly closed.
func (c *Client) handleDrop(reason error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.conn = nil
	onDisconnect := c.onDisconnect
	c.mu.Unlock()

	c.failPending()
	c.setState(StateReconnecting, reason)
	if onDisconnect != nil {
		onDisconnect(reason)
	}

	go c.reconnectLoop()
}

// reconnectLoop retries the handshake with exponential backoff: delay starts
// at ReconnectBase, doubles per attempt, capped at ReconnectMax. Attempts are
// unlimited; only a terminal auth error or an explicit Close stops the loop.
func (c *Client) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		time.Sleep(backoffDelay(c.cfg.ReconnectBase, c.cfg.ReconnectMax, attempt))

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		onConnectError := c.onConnectError
		c.mu.Unlock()

		conn, err := c.dialAndHello(context.Background())
		if err == nil {
			c.logger.Info("reconnected", map[string]any{"attempt": attempt + 1})
			c.startLoops(conn)
			return
		}

		c.logger.Warn("reconnect attempt failed", map[string]any{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
		if onConnectError != nil {
			onConnectError(err)
		}
		if IsAuthError(err) {
			c.setState(StateError, err)
			return
		}
	}
}

// backoffDelay computes the delay before the given attempt (0-based).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
