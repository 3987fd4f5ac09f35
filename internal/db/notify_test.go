package db

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/ws"
)

type sentEvent struct {
	eventType, topic string
	data             json.RawMessage
}

type fakeBroadcaster struct{ sent []sentEvent }

func (f *fakeBroadcaster) BroadcastEvent(eventType, topic string, data json.RawMessage) {
	f.sent = append(f.sent, sentEvent{eventType, topic, data})
}

func newTestBridge() (*NotifyBridge, *fakeBroadcaster) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	hub := &fakeBroadcaster{}

	return NewNotifyBridge(log, nil, hub), hub
}

func TestHandleNotification_RoutesToOwnerAndViewers(t *testing.T) {
	bridge, hub := newTestBridge()

	user, funnel := uuid.New(), uuid.New()
	payload, _ := json.Marshal(ChangePayload{Type: ws.EventFunnelSaved, UserID: user, FunnelID: funnel, Version: 7})

	bridge.handleNotification(&pgconn.Notification{Channel: ChangesChannel, Payload: string(payload)})

	if len(hub.sent) != 2 {
		t.Fatalf("sent %d events, want 2", len(hub.sent))
	}

	if hub.sent[0].topic != ws.UserTopic(user) || hub.sent[1].topic != ws.FunnelTopic(funnel) {
		t.Fatalf("unexpected topics %q, %q", hub.sent[0].topic, hub.sent[1].topic)
	}

	var viewer map[string]any
	if err := json.Unmarshal(hub.sent[1].data, &viewer); err != nil {
		t.Fatalf("viewer payload: %v", err)
	}

	if _, leaked := viewer["user_id"]; leaked {
		t.Fatal("viewer payload must not carry the owner id")
	}

	if viewer["version"] != float64(7) {
		t.Fatalf("version = %v, want 7", viewer["version"])
	}
}

func TestHandleNotification_DefaultsType(t *testing.T) {
	bridge, hub := newTestBridge()

	payload, _ := json.Marshal(map[string]string{"user_id": uuid.NewString(), "funnel_id": uuid.NewString()})
	bridge.handleNotification(&pgconn.Notification{Payload: string(payload)})

	if len(hub.sent) != 2 || hub.sent[0].eventType != ws.EventFunnelSaved {
		t.Fatalf("unexpected events %+v", hub.sent)
	}
}

func TestHandleNotification_DropsIncompletePayloads(t *testing.T) {
	bridge, hub := newTestBridge()

	for _, raw := range []string{`not json`, `{}`, `{"user_id":"` + uuid.NewString() + `"}`} {
		bridge.handleNotification(&pgconn.Notification{Payload: raw})
	}

	if len(hub.sent) != 0 {
		t.Fatalf("sent %d events, want 0", len(hub.sent))
	}
}

func TestNextBackoff(t *testing.T) {
	for _, cur := range []time.Duration{initialBackoff, 10 * time.Second, maxBackoff} {
		next := nextBackoff(cur)

		want := min(cur*backoffMultiplier, maxBackoff)
		if next < want*3/4 || next > want*5/4 {
			t.Fatalf("nextBackoff(%v) = %v, want within 25%% of %v", cur, next, want)
		}
	}
}
