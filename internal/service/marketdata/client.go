// Package marketdata streams live prices over WebSocket and aggregates them
// into the daily bars the scan consumes.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// Client implements MarketStream over a WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	markets   []string
	connected bool
}

var _ domrepo.MarketStream = (*Client)(nil)

// New creates a market data client.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Client {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("feed connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to the given markets and remembers them for
// reconnects.
func (c *Client) Subscribe(ctx context.Context, markets []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	c.markets = markets
	for _, m := range markets {
		msg := map[string]string{"type": "subscribe", "symbol": m}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", m, err)
		}
		c.log.Info("feed subscribed", logger.String("market", m))
	}
	return nil
}

// Price fields decode via json.Number and decimal.NewFromString; tick prices
// never pass through float64.
type wsTick struct {
	S string      `json:"s"`
	P json.Number `json:"p"`
	T int64       `json:"t"` // ms
}

type wsMessage struct {
	Type string   `json:"type"`
	Data []wsTick `json:"data"`
}

// Ticks streams tick events and errors until the context ends or the
// connection drops.
func (c *Client) Ticks(ctx context.Context) (<-chan models.Tick, <-chan error) {
	ticks := make(chan models.Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("feed conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("feed read: %w", err)
				return
			}

			var m wsMessage
			if err := json.Unmarshal(b, &m); err != nil {
				// non-tick frame
				continue
			}
			if m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				price, err := decimal.NewFromString(d.P.String())
				if err != nil {
					c.log.Warn("unparseable tick price",
						logger.String("market", d.S),
						logger.String("price", d.P.String()))
					continue
				}
				tick := models.Tick{
					Market: d.S,
					Price:  price,
					Time:   time.UnixMilli(d.T).UTC(),
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure; the monitor only needs the latest
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes, waits, reconnects, and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	markets := c.markets
	c.mu.Unlock()
	return c.Subscribe(ctx, markets)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
