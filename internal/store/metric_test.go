package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/store"
)

func TestMetricCreateListLatest(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ms := store.NewMetricStore(base)
	ctx := context.Background()

	f, err := fs.Create(ctx, userID, "Metrics", sampleCanvas())
	if err != nil {
		t.Fatalf("Create funnel: %v", err)
	}

	older := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)

	for _, m := range []models.NodeMetric{
		{FunnelID: f.ID, NodeID: "capture-1", Category: models.MetricUniqueVisitors, Value: 100, RecordedAt: older},
		{FunnelID: f.ID, NodeID: "capture-1", Category: models.MetricCapturedLeads, Value: 25},
	} {
		if _, err := ms.Create(ctx, userID, m); err != nil {
			t.Fatalf("Create metric: %v", err)
		}
	}

	list, err := ms.List(ctx, userID, f.ID.String(), "capture-1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("List returned %d metrics, want 2", len(list))
	}

	if list[0].Category != models.MetricCapturedLeads {
		t.Errorf("newest category = %q, want captured_leads", list[0].Category)
	}

	latest, err := ms.Latest(ctx, userID, f.ID.String(), "capture-1", models.MetricUniqueVisitors)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}

	if latest.Value != 100 {
		t.Errorf("Latest value = %v, want 100", latest.Value)
	}

	_, err = ms.Latest(ctx, userID, f.ID.String(), "sales-1", "")
	if !errors.Is(err, models.ErrNoMetrics) {
		t.Errorf("Latest on empty node error = %v, want ErrNoMetrics", err)
	}

	if err := ms.Delete(ctx, userID, list[0].ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if err := ms.Delete(ctx, userID, list[0].ID.String()); !errors.Is(err, models.ErrMetricNotFound) {
		t.Errorf("second Delete error = %v, want ErrMetricNotFound", err)
	}
}

func TestMetricRatioFieldsRoundTrip(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ms := store.NewMetricStore(base)
	ctx := context.Background()

	f, err := fs.Create(ctx, userID, "Ratio", sampleCanvas())
	if err != nil {
		t.Fatalf("Create funnel: %v", err)
	}

	num, den := "sales-1", "capture-1"

	m, err := ms.Create(ctx, userID, models.NodeMetric{
		FunnelID:          f.ID,
		NodeID:            num,
		Category:          models.MetricClosedSales,
		Value:             12.5,
		NumeratorNodeID:   &num,
		DenominatorNodeID: &den,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !m.IsRatio() {
		t.Error("IsRatio = false, want true")
	}
}
