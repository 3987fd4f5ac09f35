package api

import (
	"context"

	"github.com/funnelboard/funnelboard/internal/domain"
)

// Service interfaces consumed by the handlers. They alias the canonical
// definitions in internal/domain so mocks satisfy both.
type (
	FunnelService  = domain.FunnelService
	ShareService   = domain.ShareService
	MetricService  = domain.MetricService
	SessionService = domain.SessionService
	AuditService   = domain.AuditService
)

// Pinger reports whether an optional backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
