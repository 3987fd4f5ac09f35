package ws

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 500
	defaultBufferMaxAge = 30 * time.Minute
)

// EventBuffer keeps recent events per topic so a reconnecting viewer can
// catch up on saves it missed.
type EventBuffer struct {
	mu     sync.RWMutex
	topics map[string][]Event
	maxAge time.Duration
	maxLen int
	now    func() time.Time
}

// NewEventBuffer creates an EventBuffer with the given limits.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	return &EventBuffer{
		topics: make(map[string][]Event),
		maxAge: maxAge,
		maxLen: maxLen,
		now:    time.Now,
	}
}

// Append stores evt under its topic, dropping expired and overflow entries.
func (eb *EventBuffer) Append(evt Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	buf := eb.expire(eb.topics[evt.Topic], eb.now().Add(-eb.maxAge))
	buf = append(buf, evt)

	if len(buf) > eb.maxLen {
		buf = buf[len(buf)-eb.maxLen:]
	}

	eb.topics[evt.Topic] = buf
}

func (eb *EventBuffer) expire(buf []Event, cutoff time.Time) []Event {
	i := sort.Search(len(buf), func(i int) bool { return !buf[i].Time.Before(cutoff) })
	return buf[i:]
}

// Prune removes topics whose newest event has expired.
func (eb *EventBuffer) Prune() int {
	cutoff := eb.now().Add(-eb.maxAge)

	eb.mu.Lock()
	defer eb.mu.Unlock()

	removed := 0

	for topic, buf := range eb.topics {
		if len(buf) == 0 || buf[len(buf)-1].Time.Before(cutoff) {
			delete(eb.topics, topic)
			removed++
		}
	}

	return removed
}

// Since returns a copy of the events on topic with ID > lastEventID.
func (eb *EventBuffer) Since(topic string, lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.topics[topic]
	i := sort.Search(len(buf), func(i int) bool { return buf[i].ID > lastEventID })

	if i >= len(buf) {
		return nil
	}

	out := make([]Event, len(buf)-i)
	copy(out, buf[i:])

	return out
}

// OldestID returns the oldest buffered event ID for a topic, or 0 if empty.
func (eb *EventBuffer) OldestID(topic string) uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if buf := eb.topics[topic]; len(buf) > 0 {
		return buf[0].ID
	}

	return 0
}
