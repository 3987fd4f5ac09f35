package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// AuditService reads the caller's activity log.
type AuditService struct {
	c *Client
}

func (o *AuditQueryOptions) values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}

	for key, val := range map[string]string{
		"entity_type": o.EntityType,
		"entity_id":   o.EntityID,
		"funnel_id":   o.FunnelID,
		"action":      o.Action,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}

	if o.Since != nil {
		v.Set("since", o.Since.UTC().Format(time.RFC3339))
	}

	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}

	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}

	return v
}

// Query returns audit entries matching opts, newest first.
func (s *AuditService) Query(ctx context.Context, opts *AuditQueryOptions) (*AuditPage, error) {
	var page AuditPage
	if err := s.c.get(ctx, "/api/v1/audit", opts.values(), &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// FunnelActivity returns every event recorded against one funnel.
func (s *AuditService) FunnelActivity(ctx context.Context, funnelID string, limit int) (*AuditPage, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var page AuditPage
	if err := s.c.get(ctx, funnelPath(funnelID, "activity"), params, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// Purge deletes entries older than retentionDays; zero lets the server
// apply its default.
func (s *AuditService) Purge(ctx context.Context, retentionDays int) (*PurgeResult, error) {
	params := url.Values{}
	if retentionDays > 0 {
		params.Set("retention_days", strconv.Itoa(retentionDays))
	}

	var res PurgeResult
	if err := s.c.del(ctx, "/api/v1/audit", params, &res); err != nil {
		return nil, err
	}

	return &res, nil
}
