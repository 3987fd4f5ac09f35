// Package ws pushes funnel events to live WebSocket viewers. Owners listen
// on their user topic; read-only share viewers listen on the funnel topic.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/metrics"
)

// Hub channel buffer sizes and connection caps.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
	maxClients      = 1000
	maxPerTopic     = 50
	pruneInterval   = 5 * time.Minute
)

// maxBroadcastPayload is the maximum allowed event size (4 KB).
const maxBroadcastPayload = 4096

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

type topicMessage struct {
	topic string
	msg   []byte
}

// Hub manages active WebSocket clients and broadcasts messages.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	perTopic   map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan topicMessage
	shutdown   chan struct{}
	done       chan struct{}
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		perTopic:   make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan topicMessage, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// Run starts the hub event loop. It exits when Shutdown is called or the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drainClients()
			return
		case <-h.shutdown:
			h.drainClients()
			return
		case <-prune.C:
			h.buffer.Prune()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
			}

			h.updateCount()
		case b := <-h.broadcast:
			for c := range h.clients {
				if c.Topic != b.topic {
					continue
				}

				select {
				case c.send <- b.msg:
				default:
					h.remove(c)
				}
			}

			h.updateCount()
		}
	}
}

func (h *Hub) add(c *Client) {
	if len(h.clients) >= maxClients {
		h.log.Warn("global connection limit reached, dropping client")
		c.closeSend()

		return
	}

	if h.perTopic[c.Topic] >= maxPerTopic {
		h.log.WithField("topic", c.Topic).Warn("per-topic connection limit reached, dropping client")
		c.closeSend()

		return
	}

	h.clients[c] = struct{}{}
	h.perTopic[c.Topic]++
	h.updateCount()
	h.log.WithFields(logrus.Fields{"topic": c.Topic, "total": len(h.clients)}).Info("client registered")
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	c.closeSend()

	h.perTopic[c.Topic]--
	if h.perTopic[c.Topic] <= 0 {
		delete(h.perTopic, c.Topic)
	}
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastToTopic queues msg for every client on topic. Oversized payloads
// are dropped.
func (h *Hub) BroadcastToTopic(topic string, msg []byte) {
	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"topic":        topic,
			"payload_size": len(msg),
		}).Warn("dropping oversized broadcast payload")

		return
	}

	select {
	case h.broadcast <- topicMessage{topic: topic, msg: msg}:
	default:
		h.log.WithField("topic", topic).Warn("broadcast channel full, dropping message")
	}
}

// BroadcastEvent assigns a sequence ID, buffers the event for replay and
// sends it to every client on topic.
func (h *Hub) BroadcastEvent(eventType, topic string, data json.RawMessage) {
	evt := Event{
		Type:  eventType,
		ID:    h.seq.Next(topic),
		Topic: topic,
		Data:  data,
		Time:  time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	h.buffer.Append(evt)
	h.BroadcastToTopic(topic, msg)
}

// Shutdown sends a shutdown frame to every client, waits for their write
// pumps to flush, then closes all connections.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for c := range h.clients {
		select {
		case c.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

wait:
	for !h.flushed() {
		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			break wait
		case <-ticker.C:
		}
	}

	for c := range h.clients {
		c.closeSend()
		delete(h.clients, c)
	}

	h.perTopic = make(map[string]int)
	h.updateCount()
}

func (h *Hub) flushed() bool {
	for c := range h.clients {
		if len(c.send) > 0 {
			return false
		}
	}

	return true
}

// ReplayEvents sends buffered events since lastEventID to the client.
// It returns false if the requested ID has already been evicted.
func (h *Hub) ReplayEvents(c *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID(c.Topic)
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(c.Topic, lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		select {
		case c.send <- msg:
		default:
			return true
		}
	}

	return true
}
