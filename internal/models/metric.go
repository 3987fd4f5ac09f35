package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MetricCategory is the stage of the funnel a measurement belongs to.
type MetricCategory string

// Metric taxonomy.
const (
	MetricUniqueVisitors MetricCategory = "unique_visitors"
	MetricClicks         MetricCategory = "clicks"
	MetricCapturedLeads  MetricCategory = "captured_leads"
	MetricOpportunities  MetricCategory = "opportunities"
	MetricClosedSales    MetricCategory = "closed_sales"
	MetricPostSale       MetricCategory = "post_sale"
)

// Valid reports whether c is part of the taxonomy.
func (c MetricCategory) Valid() bool {
	switch c {
	case MetricUniqueVisitors, MetricClicks, MetricCapturedLeads,
		MetricOpportunities, MetricClosedSales, MetricPostSale:
		return true
	}

	return false
}

// NodeMetric is a timestamped measurement attached to a funnel node. When
// NumeratorNodeID and DenominatorNodeID are set the value is a percentage
// ratio computed from those nodes' latest metrics.
type NodeMetric struct {
	ID                uuid.UUID      `json:"id"`
	FunnelID          uuid.UUID      `json:"funnel_id"`
	NodeID            string         `json:"node_id"`
	Category          MetricCategory `json:"category"`
	Value             float64        `json:"value"`
	NumeratorNodeID   *string        `json:"numerator_node_id,omitempty"`
	DenominatorNodeID *string        `json:"denominator_node_id,omitempty"`
	RecordedAt        time.Time      `json:"recorded_at"`
}

// IsRatio reports whether the metric was produced by a ratio calculation.
func (m *NodeMetric) IsRatio() bool {
	return m.NumeratorNodeID != nil && m.DenominatorNodeID != nil
}

// CreateMetricRequest is the payload of the metrics form.
type CreateMetricRequest struct {
	Category   MetricCategory `json:"category" validate:"required"`
	Value      float64        `json:"value" validate:"gte=0"`
	RecordedAt *time.Time     `json:"recorded_at,omitempty"`
}

// Validate checks CreateMetricRequest fields.
func (r *CreateMetricRequest) Validate() error {
	if !r.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, r.Category)
	}

	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return fmt.Errorf("value must be a finite number")
	}

	return validateStruct(r)
}

// RatioRequest asks for numerator/denominator*100 computed from the latest
// metric of each node (optionally restricted to one category per side).
// The result is stored on the numerator node under Category.
type RatioRequest struct {
	NumeratorNodeID     string         `json:"numerator_node_id" validate:"required,max=255"`
	DenominatorNodeID   string         `json:"denominator_node_id" validate:"required,max=255"`
	NumeratorCategory   MetricCategory `json:"numerator_category,omitempty"`
	DenominatorCategory MetricCategory `json:"denominator_category,omitempty"`
	Category            MetricCategory `json:"category" validate:"required"`
}

// Validate checks RatioRequest fields.
func (r *RatioRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}

	for _, c := range []MetricCategory{r.Category, r.NumeratorCategory, r.DenominatorCategory} {
		if c != "" && !c.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
	}

	if r.NumeratorNodeID == r.DenominatorNodeID {
		return fmt.Errorf("numerator and denominator must be different nodes")
	}

	return nil
}
