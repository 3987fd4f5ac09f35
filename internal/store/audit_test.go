package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/store"
)

func TestAuditStore_RecordAndQuery(t *testing.T) {
	base, userID := setupTestBase(t)
	as := store.NewAuditStore(base)
	ctx := context.Background()
	funnelID := uuid.NewString()

	events := []models.AuditEvent{
		{UserID: userID, Action: models.ActionFunnelSave, FunnelID: funnelID, EntityID: funnelID, Actor: "cli", Detail: map[string]any{"version": 2}},
		{UserID: userID, Action: models.ActionShareCreate, FunnelID: funnelID, EntityID: "abcdefgh"},
		{UserID: userID, Action: models.ActionFunnelCreate, FunnelID: uuid.NewString()},
	}
	for _, ev := range events {
		if err := as.Record(ctx, ev); err != nil {
			t.Fatalf("Record %s: %v", ev.Action, err)
		}
	}

	activity, hasMore, err := as.Query(ctx, userID, models.AuditQuery{FunnelID: funnelID})
	if err != nil {
		t.Fatalf("Query by funnel: %v", err)
	}

	if len(activity) != 2 || hasMore {
		t.Fatalf("funnel activity = %d entries (hasMore %v), want 2", len(activity), hasMore)
	}

	// Newest first.
	if activity[0].EntityType != "share" || activity[0].EntityID != "abcdefgh" {
		t.Errorf("newest entry = %+v", activity[0])
	}

	saved := activity[1]
	if saved.Action != "funnel.save" || saved.Actor != "cli" || saved.FunnelID != funnelID || saved.Detail["version"] != float64(2) {
		t.Errorf("save entry = %+v", saved)
	}

	shares, _, err := as.Query(ctx, userID, models.AuditQuery{EntityType: "share"})
	if err != nil {
		t.Fatalf("Query by entity: %v", err)
	}

	if len(shares) != 1 {
		t.Errorf("share entries = %d, want 1", len(shares))
	}

	page, hasMore, err := as.Query(ctx, userID, models.AuditQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Query page: %v", err)
	}

	if len(page) != 2 || !hasMore {
		t.Errorf("page = %d entries (hasMore %v), want 2 and more", len(page), hasMore)
	}
}

func TestAuditStore_Purge(t *testing.T) {
	base, userID := setupTestBase(t)
	as := store.NewAuditStore(base)
	ctx := context.Background()

	if err := as.Record(ctx, models.AuditEvent{UserID: userID, Action: models.ActionMetricDelete, EntityID: "m-1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// A cutoff in the future covers the entry just written.
	before := time.Now().Add(time.Hour)

	if n, err := as.Purge(ctx, userID, time.Now().Add(-time.Hour)); err != nil || n != 0 {
		t.Fatalf("Purge past cutoff = %d, %v; want 0", n, err)
	}

	n, err := as.Purge(ctx, userID, before)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}

	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}

	left, _, err := as.Query(ctx, userID, models.AuditQuery{})
	if err != nil {
		t.Fatalf("Query after purge: %v", err)
	}

	if len(left) != 0 {
		t.Errorf("%d entries left after purge", len(left))
	}
}

func TestAuditStore_QueryScopedToUser(t *testing.T) {
	base, userID := setupTestBase(t)
	other := createUser(t, getTestEnv(t))
	as := store.NewAuditStore(base)
	ctx := context.Background()

	if err := as.Record(ctx, models.AuditEvent{UserID: userID, Action: models.ActionFunnelCreate, EntityID: "f-1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, _, err := as.Query(ctx, other, models.AuditQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("other user sees %d entries, want 0", len(entries))
	}
}
