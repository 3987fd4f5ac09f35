package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/dbpool"
	"github.com/funnelboard/funnelboard/internal/ws"
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ChangesChannel is the LISTEN/NOTIFY channel stores publish funnel changes on.
const ChangesChannel = "funnel_changes"

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// Broadcaster sends events to connected clients subscribed to a topic.
type Broadcaster interface {
	BroadcastEvent(eventType, topic string, data json.RawMessage)
}

// ChangePayload is the JSON body stores send with pg_notify after a commit.
type ChangePayload struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	FunnelID uuid.UUID `json:"funnel_id"`
	Version  int64     `json:"version,omitempty"`
	Token    string    `json:"token,omitempty"`
}

// NotifyBridge subscribes to PostgreSQL LISTEN/NOTIFY on the funnel_changes
// channel and forwards each change to the owner's topic and to the topic
// read-only viewers of the funnel listen on. Routing through Postgres lets
// every server instance reach its own WebSocket clients.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	hub  Broadcaster
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and hub.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub Broadcaster) *NotifyBridge {
	return &NotifyBridge{
		log:  log,
		pool: pool,
		hub:  hub,
	}
}

// Start launches the LISTEN/NOTIFY loop in a background goroutine.
// It verifies the initial connection before returning. If the initial
// LISTEN fails, it returns an error. The background goroutine handles
// reconnection for subsequent failures.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if !validChannel.MatchString(ChangesChannel) {
		return fmt.Errorf("notify bridge: invalid channel name %q", ChangesChannel)
	}

	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

// listen is the main loop that acquires a connection, subscribes to the
// channel, and processes notifications until the context is cancelled.
func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// subscribeAndForward acquires a connection, issues LISTEN, and blocks on
// notifications until the connection fails or the context is cancelled.
func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN requires the channel name inline (not a parameter), so we use
	// pgx.Identifier to safely quote/sanitize the channel name.
	sanitizedChannel := pgx.Identifier{ChangesChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+sanitizedChannel); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", ChangesChannel).Info("notify bridge listening")

	for {
		// Set a 2-minute read deadline so we periodically check ctx cancellation.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// On timeout, loop back to check context and retry.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(notification)
	}
}

// handleNotification routes a single change to the hub.
func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	b.log.WithFields(logrus.Fields{
		"channel": n.Channel,
		"pid":     n.PID,
	}).Debug("notification received")

	var p ChangePayload
	if err := json.Unmarshal([]byte(n.Payload), &p); err != nil || p.UserID == uuid.Nil || p.FunnelID == uuid.Nil {
		b.log.Warn("dropping notification without user_id or funnel_id")
		return
	}

	if p.Type == "" {
		p.Type = ws.EventFunnelSaved
	}

	b.hub.BroadcastEvent(p.Type, ws.UserTopic(p.UserID), json.RawMessage(n.Payload))

	// Viewers only learn which funnel changed, not who owns it.
	viewer, err := json.Marshal(struct {
		FunnelID uuid.UUID `json:"funnel_id"`
		Version  int64     `json:"version,omitempty"`
		Token    string    `json:"token,omitempty"`
	}{p.FunnelID, p.Version, p.Token})
	if err != nil {
		return
	}

	b.hub.BroadcastEvent(p.Type, ws.FunnelTopic(p.FunnelID), viewer)
}

// nextBackoff doubles the current backoff duration with random jitter (±25%),
// capped at maxBackoff. Jitter prevents thundering herd on reconnect.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}

	// Add ±25% jitter.
	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
