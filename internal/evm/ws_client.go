package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
//
// Each SubscribeLogs call owns one logSub for its whole lifetime; the
// node-assigned subscription id is swapped underneath it on reconnect, so
// the caller's channel survives connection loss.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex // guards conn and serialises writes

	requestID atomic.Uint64
	closed    atomic.Bool

	mu       sync.Mutex
	subs     map[uint64]*logSub // by local id
	byRemote map[string]*logSub // by node subscription id
	pending  map[uint64]chan subscribeResult

	done chan struct{}
	wg   sync.WaitGroup
}

type logSub struct {
	localID  uint64
	filter   LogsFilter
	remoteID string

	ch     chan Log
	quit   chan struct{} // closed before ch
	sendMu sync.Mutex    // held by dispatch while sending on ch
}

type subscribeResult struct {
	id  string
	err error
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger *zap.Logger) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.Named("ws"),
		subs:     make(map[uint64]*logSub),
		byRemote: make(map[string]*logSub),
		pending:  make(map[uint64]chan subscribeResult),
		done:     make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WSClientImpl) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// SubscribeLogs subscribes to contract logs matching the filter (eth_subscribe "logs").
// The channel is closed when ctx is cancelled or the client is closed.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan Log, error) {
	remoteID, err := c.subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	// dispatch blocks on a full buffer rather than dropping logs
	sub := &logSub{
		localID:  c.requestID.Add(1),
		filter:   filter,
		remoteID: remoteID,
		ch:       make(chan Log, 1024),
		quit:     make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil, errClientClosed
	}
	c.subs[sub.localID] = sub
	c.byRemote[remoteID] = sub
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			c.unsubscribe(sub)
		case <-c.done:
		}
	}()

	return sub.ch, nil
}

var errClientClosed = errors.New("client closed")

// subscribe sends eth_subscribe and waits for the node's subscription id.
func (c *WSClientImpl) subscribe(ctx context.Context, filter LogsFilter) (string, error) {
	if c.closed.Load() {
		return "", errClientClosed
	}

	reqID := c.requestID.Add(1)
	resultCh := make(chan subscribeResult, 1)

	c.mu.Lock()
	c.pending[reqID] = resultCh
	c.mu.Unlock()

	drop := func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}

	err := c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "eth_subscribe",
		Params:  []interface{}{"logs", filter.filterParams()},
	})
	if err != nil {
		drop()
		return "", fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case res, ok := <-resultCh:
		if !ok {
			return "", errClientClosed
		}
		return res.id, res.err
	case <-timer.C:
		drop()
		return "", fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return "", errClientClosed
	case <-ctx.Done():
		drop()
		return "", ctx.Err()
	}
}

// unsubscribe removes sub, closes its channel and tells the node.
func (c *WSClientImpl) unsubscribe(sub *logSub) {
	c.mu.Lock()
	if _, ok := c.subs[sub.localID]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, sub.localID)
	delete(c.byRemote, sub.remoteID)
	remoteID := sub.remoteID
	close(sub.quit)
	c.mu.Unlock()

	sub.sendMu.Lock()
	close(sub.ch)
	sub.sendMu.Unlock()

	if err := c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "eth_unsubscribe",
		Params:  []interface{}{remoteID},
	}); err != nil {
		c.logger.Debug("unsubscribe", zap.String("subscription", remoteID), zap.Error(err))
	}
}

// send writes one JSON message on the current connection.
func (c *WSClientImpl) send(req wsRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(req)
}

// Close closes the WebSocket connection and every subscription channel.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	for id, sub := range c.subs {
		close(sub.quit)
		close(sub.ch)
		delete(c.subs, id)
	}
	c.byRemote = make(map[string]*logSub)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	return nil
}

// readLoop reads messages and dispatches them. On a read error it redials
// with exponential backoff and restores every subscription.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn("read failed, reconnecting", zap.Error(err))
			if !c.reconnect() {
				return
			}
			// confirmations arrive through this loop, so restore asynchronously
			go c.resubscribeAll()
			continue
		}

		c.handleMessage(message)
	}
}

// reconnect replaces the connection. Returns false once the client is closed.
func (c *WSClientImpl) reconnect() bool {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.connMu.Lock()
			if c.closed.Load() {
				c.connMu.Unlock()
				conn.Close()
				return false
			}
			c.conn = conn
			c.connMu.Unlock()
			c.logger.Info("reconnected", zap.String("endpoint", c.endpoint))
			return true
		}

		c.logger.Debug("reconnect failed", zap.Error(err), zap.Duration("delay", delay))
		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// resubscribeAll re-issues eth_subscribe for every live subscription and
// maps the new node ids onto the existing channels.
func (c *WSClientImpl) resubscribeAll() {
	c.mu.Lock()
	subs := make([]*logSub, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.SubscribeTimeout)
		remoteID, err := c.subscribe(ctx, sub.filter)
		cancel()
		if err != nil {
			c.logger.Warn("resubscribe failed", zap.Uint64("subscription", sub.localID), zap.Error(err))
			continue
		}

		c.mu.Lock()
		if _, live := c.subs[sub.localID]; live {
			delete(c.byRemote, sub.remoteID)
			sub.remoteID = remoteID
			c.byRemote[remoteID] = sub
		}
		c.mu.Unlock()
	}
}

// handleMessage routes a notification to its subscription or a response
// to the waiting subscribe call.
func (c *WSClientImpl) handleMessage(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "eth_subscription" {
		if notif.Params != nil {
			c.dispatch(notif.Params.Subscription, notif.Params.Result.toLog())
		}
		return
	}

	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		c.logger.Debug("unparseable message", zap.Error(err))
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()
	if !ok {
		// eth_unsubscribe acknowledgements land here
		return
	}

	var res subscribeResult
	switch {
	case resp.Error != nil:
		res.err = resp.Error
	case json.Unmarshal(resp.Result, &res.id) != nil || res.id == "":
		res.err = fmt.Errorf("invalid subscription id %s", string(resp.Result))
	}
	ch <- res
}

// dispatch delivers a log to the subscription owning remoteID.
func (c *WSClientImpl) dispatch(remoteID string, log Log) {
	c.mu.Lock()
	sub, ok := c.byRemote[remoteID]
	c.mu.Unlock()
	if !ok {
		return
	}

	sub.sendMu.Lock()
	defer sub.sendMu.Unlock()
	select {
	case <-sub.quit:
		return
	default:
	}
	select {
	case sub.ch <- log:
	case <-sub.quit:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a dead connection surfaces in readLoop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription string    `json:"subscription"`
	Result       logResult `json:"result"`
}

var _ WSClient = (*WSClientImpl)(nil)
