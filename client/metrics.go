package client

import (
	"context"
	"net/url"
	"strconv"
)

// MetricService handles per-node funnel metrics.
type MetricService struct {
	c *Client
}

func nodeMetricsPath(funnelID, nodeID string) string {
	return funnelPath(funnelID, "nodes", url.PathEscape(nodeID), "metrics")
}

// Record stores a metric value on a node.
func (s *MetricService) Record(ctx context.Context, funnelID, nodeID string, req *CreateMetricRequest) (*NodeMetric, error) {
	var m NodeMetric
	if err := s.c.post(ctx, nodeMetricsPath(funnelID, nodeID), req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns a node's metrics, newest first.
func (s *MetricService) List(ctx context.Context, funnelID, nodeID string, limit int) ([]NodeMetric, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Metrics []NodeMetric `json:"metrics"`
	}
	if err := s.c.get(ctx, nodeMetricsPath(funnelID, nodeID), params, &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

// Ratio computes and stores numerator/denominator*100 on the numerator node.
func (s *MetricService) Ratio(ctx context.Context, funnelID string, req *RatioRequest) (*NodeMetric, error) {
	var m NodeMetric
	if err := s.c.post(ctx, funnelPath(funnelID, "metrics", "ratio"), req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes a metric.
func (s *MetricService) Delete(ctx context.Context, metricID string) error {
	return s.c.del(ctx, "/api/v1/metrics/"+url.PathEscape(metricID), nil, nil)
}
