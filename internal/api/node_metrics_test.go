package api_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/api"
	"github.com/funnelboard/funnelboard/internal/models"
)

func metricRouter(svc *mockMetricService) http.Handler {
	h := api.NewMetricHandler(svc, testLogger())
	r := newTestRouter()
	r.GET("/funnels/:id/nodes/:node/metrics", h.List)
	r.POST("/funnels/:id/nodes/:node/metrics", h.Record)
	r.POST("/funnels/:id/metrics/ratio", h.Ratio)
	r.DELETE("/metrics/:id", h.Delete)

	return r
}

func TestMetricRecord(t *testing.T) {
	t.Parallel()

	var gotNode string
	svc := &mockMetricService{
		recordFn: func(_ context.Context, _, _, nodeID string, req models.CreateMetricRequest) (*models.NodeMetric, error) {
			gotNode = nodeID
			if nodeID == "ghost" {
				return nil, fmt.Errorf("record: %w", models.ErrNodeNotFound)
			}

			return &models.NodeMetric{ID: uuid.New(), NodeID: nodeID, Category: req.Category, Value: req.Value}, nil
		},
	}
	r := metricRouter(svc)

	w := doRequest(r, http.MethodPost, "/funnels/"+testFunnelID+"/nodes/capture-1/metrics", `{"category":"clicks","value":120}`)
	if w.Code != http.StatusCreated || gotNode != "capture-1" {
		t.Fatalf("record: %d node=%q", w.Code, gotNode)
	}

	expectError(t, doRequest(r, http.MethodPost, "/funnels/"+testFunnelID+"/nodes/capture-1/metrics", `{"category":"likes","value":1}`),
		http.StatusBadRequest, api.ErrCodeValidationError)
	expectError(t, doRequest(r, http.MethodPost, "/funnels/"+testFunnelID+"/nodes/capture-1/metrics", `{"category":"clicks","value":-1}`),
		http.StatusBadRequest, api.ErrCodeValidationError)

	w = doRequest(r, http.MethodPost, "/funnels/"+testFunnelID+"/nodes/ghost/metrics", `{"category":"clicks","value":1}`)
	expectError(t, w, http.StatusNotFound, api.ErrCodeNotFound)

	if msg := decode(t, w)["message"]; msg != models.ErrNodeNotFound.Error() {
		t.Errorf("message = %v, want bare sentinel text", msg)
	}
}

func TestMetricRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{
			name:   "ok",
			body:   `{"numerator_node_id":"sales-1","denominator_node_id":"capture-1","category":"closed_sales"}`,
			status: http.StatusCreated,
		},
		{
			name:   "same node",
			body:   `{"numerator_node_id":"a","denominator_node_id":"a","category":"clicks"}`,
			status: http.StatusBadRequest,
			code:   api.ErrCodeValidationError,
		},
		{
			name:   "no metrics",
			body:   `{"numerator_node_id":"a","denominator_node_id":"b","category":"clicks"}`,
			err:    fmt.Errorf("numerator: %w", models.ErrNoMetrics),
			status: http.StatusUnprocessableEntity,
			code:   api.ErrCodeNoMetrics,
		},
		{
			name:   "zero denominator",
			body:   `{"numerator_node_id":"a","denominator_node_id":"b","category":"clicks"}`,
			err:    fmt.Errorf("%w: denominator is zero", models.ErrValidation),
			status: http.StatusBadRequest,
			code:   api.ErrCodeValidationError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockMetricService{
				ratioFn: func(context.Context, string, string, models.RatioRequest) (*models.NodeMetric, error) {
					if tc.err != nil {
						return nil, tc.err
					}

					return &models.NodeMetric{Value: 7.5}, nil
				},
			}

			w := doRequest(metricRouter(svc), http.MethodPost, "/funnels/"+testFunnelID+"/metrics/ratio", tc.body)
			if tc.code == "" {
				if w.Code != tc.status {
					t.Fatalf("status = %d, want %d", w.Code, tc.status)
				}

				return
			}

			expectError(t, w, tc.status, tc.code)
		})
	}
}

func TestMetricListAndDelete(t *testing.T) {
	t.Parallel()

	svc := &mockMetricService{
		listFn: func(_ context.Context, _, _, _ string, limit int) ([]models.NodeMetric, error) {
			if limit != 10 {
				t.Errorf("limit = %d", limit)
			}

			return []models.NodeMetric{{Value: 1}}, nil
		},
		deleteFn: func(_ context.Context, _, metricID string) error {
			if metricID == "00000000-0000-0000-0000-00000000dead" {
				return models.ErrMetricNotFound
			}

			return nil
		},
	}
	r := metricRouter(svc)

	if w := doRequest(r, http.MethodGet, "/funnels/"+testFunnelID+"/nodes/n1/metrics?limit=10", ""); w.Code != http.StatusOK {
		t.Errorf("list: %d", w.Code)
	}

	if w := doRequest(r, http.MethodDelete, "/metrics/"+uuid.NewString(), ""); w.Code != http.StatusNoContent {
		t.Errorf("delete: %d", w.Code)
	}

	expectError(t, doRequest(r, http.MethodDelete, "/metrics/00000000-0000-0000-0000-00000000dead", ""), http.StatusNotFound, api.ErrCodeNotFound)
	expectError(t, doRequest(r, http.MethodDelete, "/metrics/nope", ""), http.StatusBadRequest, api.ErrCodeInvalidRequest)
}
