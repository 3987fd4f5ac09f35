package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/domain"
	"github.com/funnelboard/funnelboard/internal/metrics"
	"github.com/funnelboard/funnelboard/internal/models"
)

// Auditor is an alias for the canonical domain.Auditor interface.
type Auditor = domain.Auditor

// AuditEnqueuer accepts audit events without blocking the caller.
type AuditEnqueuer interface {
	Enqueue(ev models.AuditEvent)
}

// auditAsync hands ev to w. A nil enqueuer disables auditing.
func auditAsync(w AuditEnqueuer, ev models.AuditEvent) {
	if w != nil {
		w.Enqueue(ev)
	}
}

// funnelEvent builds the event for an action on the funnel itself.
func funnelEvent(userID string, action models.AuditAction, funnelID string, detail map[string]any) models.AuditEvent {
	return models.AuditEvent{UserID: userID, Action: action, FunnelID: funnelID, EntityID: funnelID, Detail: detail}
}

// tokenHint identifies a share link in the log without storing the bearer
// token itself.
func tokenHint(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}

	return token[:n]
}

const (
	defaultAuditQueue = 1000
	// auditDrainTimeout bounds how long shutdown waits for queued events.
	auditDrainTimeout = 5 * time.Second
)

// AuditWorker writes audit events from a bounded queue on one goroutine.
type AuditWorker struct {
	auditor Auditor
	log     *logrus.Logger
	events  chan models.AuditEvent
}

// NewAuditWorker creates an AuditWorker; queueSize <= 0 uses 1000.
func NewAuditWorker(auditor Auditor, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = defaultAuditQueue
	}

	return &AuditWorker{auditor: auditor, log: log, events: make(chan models.AuditEvent, queueSize)}
}

// Enqueue queues ev, or drops and counts it when the queue is full.
func (w *AuditWorker) Enqueue(ev models.AuditEvent) {
	select {
	case w.events <- ev:
		metrics.AuditQueueDepth.Set(float64(len(w.events)))
	default:
		metrics.AuditDropped.Inc()
		w.log.WithFields(logrus.Fields{
			"action":    ev.Action,
			"funnel_id": ev.FunnelID,
		}).Warn("audit queue full, dropping event")
	}
}

// Run records events until ctx is cancelled, then flushes what is already
// queued within auditDrainTimeout.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case ev := <-w.events:
			// A cancelled run context must not abort an event already dequeued.
			w.record(context.WithoutCancel(ctx), ev)
		case <-ctx.Done():
			w.flush()
			return
		}
	}
}

func (w *AuditWorker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), auditDrainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-w.events:
			w.record(ctx, ev)
		default:
			return
		}
	}
}

func (w *AuditWorker) record(ctx context.Context, ev models.AuditEvent) {
	metrics.AuditQueueDepth.Set(float64(len(w.events)))

	if err := w.auditor.Record(ctx, ev); err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{
			"action":  ev.Action,
			"user_id": ev.UserID,
		}).Warn("audit record failed")
	}
}
