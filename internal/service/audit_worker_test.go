package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/funnelboard/funnelboard/internal/models"
)

func TestAuditWorker_RecordsEvent(t *testing.T) {
	auditor := &mockAuditor{}
	aw := NewAuditWorker(auditor, quietLogger(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		aw.Run(ctx)
		close(done)
	}()

	aw.Enqueue(funnelEvent("u1", models.ActionFunnelCreate, "f1", nil))

	deadline := time.After(time.Second)
	for len(auditor.getCalls()) == 0 {
		select {
		case <-deadline:
			t.Fatal("event was not recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	got := auditor.getCalls()[0]
	if got.Action != models.ActionFunnelCreate || got.FunnelID != "f1" || got.EntityID != "f1" {
		t.Errorf("recorded %+v", got)
	}
}

func TestAuditWorker_DropsWhenFull(t *testing.T) {
	aw := NewAuditWorker(&mockAuditor{}, quietLogger(), 2)

	aw.Enqueue(models.AuditEvent{Action: models.ActionFunnelSave})
	aw.Enqueue(models.AuditEvent{Action: models.ActionFunnelSave})

	done := make(chan struct{})
	go func() {
		aw.Enqueue(models.AuditEvent{Action: models.ActionFunnelDelete})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked when queue was full")
	}

	if len(aw.events) != 2 {
		t.Errorf("queue len = %d, want 2", len(aw.events))
	}
}

func TestAuditWorker_FlushesOnShutdown(t *testing.T) {
	auditor := &mockAuditor{}
	aw := NewAuditWorker(auditor, quietLogger(), 100)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		aw.Enqueue(funnelEvent("u1", models.ActionFunnelSave, id, nil))
	}

	// Cancelled before Run starts: every queued event is written by the flush.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		aw.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if calls := auditor.getCalls(); len(calls) != 5 {
		t.Errorf("flushed %d events, want 5", len(calls))
	}
}

func TestAuditWorker_RecordFailureIsLogged(t *testing.T) {
	auditor := &mockAuditor{err: errors.New("db down")}
	aw := NewAuditWorker(auditor, quietLogger(), 1)

	aw.Enqueue(funnelEvent("u1", models.ActionFunnelSave, "f1", nil))
	aw.flush()

	if len(auditor.getCalls()) != 1 || len(aw.events) != 0 {
		t.Errorf("calls=%d queued=%d, want 1/0", len(auditor.getCalls()), len(aw.events))
	}
}

func TestAuditAsync_NilEnqueuer(t *testing.T) {
	auditAsync(nil, funnelEvent("u1", models.ActionFunnelDelete, "f1", nil))

	enq := &mockEnqueuer{}
	auditAsync(enq, funnelEvent("u1", models.ActionFunnelDelete, "f1", map[string]any{"k": 1}))

	if got := enq.actions(); len(got) != 1 || got[0] != "funnel.delete" {
		t.Fatalf("actions = %v, want [funnel.delete]", got)
	}

	if enq.events[0].UserID != "u1" {
		t.Errorf("user id = %q, want u1", enq.events[0].UserID)
	}
}

func TestTokenHint(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"short":                "short",
		"abcdefgh":             "abcdefgh",
		"abcdefghijklmnopqrst": "abcdefgh",
	}

	for in, want := range tests {
		if got := tokenHint(in); got != want {
			t.Errorf("tokenHint(%q) = %q, want %q", in, got, want)
		}
	}
}
