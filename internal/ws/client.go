package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout     = 10 * time.Second
	wsReadLimit      = 4096
	clientSendBuffer = 256
	maxConnLifetime  = 4 * time.Hour
	recheckInterval  = 15 * time.Minute
	recheckTimeout   = 10 * time.Second
	pingInterval     = 30 * time.Second
	pingTimeout      = 10 * time.Second
	maxMissedPongs   = int32(2)
)

// Validator re-checks that a connected client is still entitled to its
// topic: the owner's API key is still valid, or the share link it came
// through has not been revoked.
type Validator interface {
	Validate(ctx context.Context) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context) error

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context) error { return f(ctx) }

// Client wraps a single WebSocket connection managed by the Hub.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *logrus.Logger
	Topic       string
	validator   Validator
	closeOnce   sync.Once
	connectedAt time.Time
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// NewClient creates a Client on topic. validator may be nil.
func NewClient(hub *Hub, conn *websocket.Conn, topic string, validator Validator) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		log:         hub.log,
		Topic:       topic,
		validator:   validator,
		connectedAt: time.Now(),
	}
}

// ReadPump reads messages from the WebSocket connection until it closes.
// A client may send a subscribe message to replay missed events.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown
	}()

	c.conn.SetReadLimit(wsReadLimit)

	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.WithField("status", websocket.CloseStatus(err)).Debug("client disconnected")
			}

			return
		}

		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg SubscribeMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if c.hub.ReplayEvents(c, msg.LastEventID) {
		return
	}

	reset, err := json.Marshal(ResetMsg{
		Type:   "reset",
		Reason: "requested events no longer available, reload the funnel",
	})
	if err != nil {
		return
	}

	select {
	case c.send <- reset:
	default:
	}
}

func (c *Client) sendPing(ctx context.Context, missed *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := c.conn.Ping(pingCtx)
	cancel()

	if err == nil {
		missed.Store(0)
		return false
	}

	return missed.Add(1) >= maxMissedPongs
}

// WritePump writes queued messages to the connection. It pings, enforces a
// maximum lifetime, and periodically re-runs the validator.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown

	lifetime := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetime.Stop()

	recheck := time.NewTicker(recheckInterval)
	defer recheck.Stop()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	var missed atomic.Int32

	for {
		select {
		case <-ping.C:
			if c.sendPing(ctx, &missed) {
				c.log.Debug("closing: missed pongs")
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-recheck.C:
			if !c.stillAllowed(ctx) {
				return
			}
		case <-lifetime.C:
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort
			return
		}
	}
}

func (c *Client) stillAllowed(ctx context.Context) bool {
	if c.validator == nil {
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, recheckTimeout)
	err := c.validator.Validate(checkCtx)
	cancel()

	if err != nil {
		c.log.WithField("topic", c.Topic).Info("closing WebSocket: access revoked")
		c.conn.Close(websocket.StatusPolicyViolation, "access revoked") //nolint:errcheck // best-effort

		return false
	}

	return true
}
