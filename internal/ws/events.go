package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event types pushed to clients.
const (
	EventFunnelCreated  = "funnel.created"
	EventFunnelSaved    = "funnel.saved"
	EventFunnelRenamed  = "funnel.renamed"
	EventFunnelDeleted  = "funnel.deleted"
	EventShareRevoked   = "share.revoked"
	EventMetricRecorded = "metric.recorded"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type  string          `json:"type"`
	ID    uint64          `json:"id"`
	Topic string          `json:"-"`
	Data  json.RawMessage `json:"data"`
	Time  time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to reload the funnel (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// UserTopic is the topic an owner's clients listen on.
func UserTopic(userID uuid.UUID) string { return "user:" + userID.String() }

// FunnelTopic is the topic read-only viewers of a shared funnel listen on.
func FunnelTopic(funnelID uuid.UUID) string { return "funnel:" + funnelID.String() }

// EventSequence tracks monotonic event IDs per topic.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Next returns the next sequence number for a topic.
func (es *EventSequence) Next(topic string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[topic]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[topic] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}
