// Package feed is the consuming edge of the market data transport: it
// maintains one WebSocket connection, decodes the opaque JSON payloads
// into ticks, settlements and market metadata, and fans them out on
// channels. The transport itself (and everything upstream of it) is an
// external collaborator.
package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// envelope is the wire framing: a type tag plus a raw payload.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client consumes the upstream market data feed.
type Client struct {
	url       string
	config    Config
	logger    *zap.Logger
	backoff   *Backoff
	conn      *websocket.Conn
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected atomic.Bool
	lastPong  atomic.Int64

	tickChan       chan *types.PriceTick
	settlementChan chan *types.SettlementEvent
	metaChan       chan *types.MarketMeta
}

// Config holds feed client configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	BufferSize            int
	Logger                *zap.Logger
}

// New creates a new feed client.
func New(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		url:    cfg.URL,
		config: cfg,
		logger: cfg.Logger,
		backoff: NewBackoff(BackoffConfig{
			InitialDelay: cfg.ReconnectInitialDelay,
			MaxDelay:     cfg.ReconnectMaxDelay,
			Multiplier:   cfg.ReconnectBackoffMult,
			JitterRatio:  0.2,
		}, cfg.Logger),
		ctx:            ctx,
		cancel:         cancel,
		tickChan:       make(chan *types.PriceTick, cfg.BufferSize),
		settlementChan: make(chan *types.SettlementEvent, cfg.BufferSize),
		metaChan:       make(chan *types.MarketMeta, cfg.BufferSize),
	}
}

// Start connects and begins consuming. Returns an error only if the
// initial connection fails; later drops go through the reconnect loop.
func (c *Client) Start() error {
	c.logger.Info("feed-client-starting", zap.String("url", c.url))

	if err := c.connect(c.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(3)
	go c.readLoop()
	go c.pingLoop()
	go c.reconnectLoop()

	return nil
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().Unix())
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	c.lastPong.Store(time.Now().Unix())
	FeedConnected.Set(1)

	c.logger.Info("feed-connected")

	return nil
}

// readLoop decodes envelopes and fans them out. Dropping a message when
// a consumer channel is full is preferred over stalling the socket.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("feed-read-error", zap.Error(err))
			c.connected.Store(false)
			FeedConnected.Set(0)
			return
		}

		c.dispatch(message)
	}
}

func (c *Client) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.logger.Debug("feed-unparseable-message",
			zap.Error(err),
			zap.Int("bytes", len(message)))
		MessagesDroppedTotal.WithLabelValues("unparseable").Inc()
		return
	}

	MessagesReceivedTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case "tick":
		var tick types.PriceTick
		if err := json.Unmarshal(env.Data, &tick); err != nil {
			c.logger.Warn("feed-bad-tick", zap.Error(err))
			MessagesDroppedTotal.WithLabelValues("bad_payload").Inc()
			return
		}
		select {
		case c.tickChan <- &tick:
		default:
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}

	case "settlement":
		var event types.SettlementEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			c.logger.Warn("feed-bad-settlement", zap.Error(err))
			MessagesDroppedTotal.WithLabelValues("bad_payload").Inc()
			return
		}
		select {
		case c.settlementChan <- &event:
		default:
			// Settlements are too important to drop silently.
			c.logger.Error("settlement-channel-full",
				zap.String("condition-id", event.ConditionID))
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}

	case "market":
		var meta types.MarketMeta
		if err := json.Unmarshal(env.Data, &meta); err != nil {
			c.logger.Warn("feed-bad-market-meta", zap.Error(err))
			MessagesDroppedTotal.WithLabelValues("bad_payload").Inc()
			return
		}
		select {
		case c.metaChan <- &meta:
		default:
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}

	case "heartbeat":
		// Keepalive only.

	default:
		c.logger.Debug("feed-unknown-message-type", zap.String("type", env.Type))
	}
}

// pingLoop keeps the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.connected.Load() {
				continue
			}

			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				c.logger.Warn("feed-ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop re-establishes dropped connections with backoff.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if c.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		c.logger.Warn("feed-connection-lost-reconnecting")

		err := c.backoff.Retry(c.ctx, c.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			c.logger.Error("feed-reconnect-failed", zap.Error(err))
			continue
		}

		c.wg.Add(1)
		go c.readLoop()
	}
}

// TickChan returns the price tick channel.
func (c *Client) TickChan() <-chan *types.PriceTick {
	return c.tickChan
}

// SettlementChan returns the settlement event channel.
func (c *Client) SettlementChan() <-chan *types.SettlementEvent {
	return c.settlementChan
}

// MetaChan returns the market metadata channel.
func (c *Client) MetaChan() <-chan *types.MarketMeta {
	return c.metaChan
}

// Close shuts down the client and its channels.
func (c *Client) Close() error {
	c.logger.Info("closing-feed-client")

	c.cancel()

	c.mu.RLock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.RUnlock()

	c.wg.Wait()

	close(c.tickChan)
	close(c.settlementChan)
	close(c.metaChan)
	FeedConnected.Set(0)

	return nil
}
