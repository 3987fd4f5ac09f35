// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/domain"
	"github.com/funnelboard/funnelboard/internal/metrics"
	"github.com/funnelboard/funnelboard/internal/models"
)

// FunnelStore is the data-access interface FunnelService depends on.
type FunnelStore interface {
	List(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error)
	Get(ctx context.Context, userID, funnelID string) (*models.Funnel, error)
	Create(ctx context.Context, userID, name string, data models.CanvasData) (*models.Funnel, error)
	SaveCanvas(ctx context.Context, userID, funnelID string, data models.CanvasData, expectedVersion *int64) (*models.FunnelSummary, error)
	Rename(ctx context.Context, userID, funnelID, name string) (*models.FunnelSummary, error)
	Delete(ctx context.Context, userID, funnelID string) error
	Clone(ctx context.Context, userID, funnelID, name string) (*models.Funnel, error)
}

// ViewInvalidator drops cached share-link views of a funnel.
type ViewInvalidator interface {
	InvalidateFunnel(ctx context.Context, funnelID string) error
}

// Compile-time check: *FunnelService must satisfy domain.FunnelService.
var _ domain.FunnelService = (*FunnelService)(nil)

// FunnelService wraps FunnelStore with validation, template seeding, share
// cache invalidation and auditing.
type FunnelService struct {
	store       FunnelStore
	views       ViewInvalidator
	auditWorker AuditEnqueuer
	appVersion  string
	log         *logrus.Logger
}

// NewFunnelService creates a FunnelService. views may be nil when no share
// cache is configured.
func NewFunnelService(
	store FunnelStore, views ViewInvalidator, auditWorker AuditEnqueuer, appVersion string, log *logrus.Logger,
) *FunnelService {
	return &FunnelService{store: store, views: views, auditWorker: auditWorker, appVersion: appVersion, log: log}
}

// invalid wraps a validation failure so handlers can map it to 400.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", models.ErrValidation, err)
}

// invalidateViews drops cached share views after a change (best-effort).
func (s *FunnelService) invalidateViews(ctx context.Context, funnelID string) {
	if s.views == nil {
		return
	}

	if err := s.views.InvalidateFunnel(ctx, funnelID); err != nil {
		s.log.WithError(err).WithField("funnel_id", funnelID).Warn("share cache invalidation failed")
	}
}

// ListFunnels returns a page of the user's funnels (pass-through).
func (s *FunnelService) ListFunnels(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error) {
	return s.store.List(ctx, userID, limit, offset)
}

// GetFunnel returns a funnel with its canvas (pass-through).
func (s *FunnelService) GetFunnel(ctx context.Context, userID, funnelID string) (*models.Funnel, error) {
	return s.store.Get(ctx, userID, funnelID)
}

// CreateFunnel creates a funnel from a template, a supplied canvas, or nothing.
func (s *FunnelService) CreateFunnel(ctx context.Context, userID string, req models.CreateFunnelRequest) (*models.Funnel, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	data := models.EmptyCanvas()

	switch {
	case req.Template != "":
		tpl, err := canvas.TemplateCanvas(req.Template, nil)
		if err != nil {
			if errors.Is(err, models.ErrUnknownTemplate) {
				return nil, invalid(err)
			}

			return nil, err
		}

		data = tpl
	case req.CanvasData != nil:
		data = *req.CanvasData
	}

	f, err := s.store.Create(ctx, userID, req.Name, data)
	if err != nil {
		return nil, err
	}

	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelCreate, f.ID.String(), map[string]any{
		"name":     f.Name,
		"template": req.Template,
		"nodes":    len(data.Nodes),
	}))

	return f, nil
}

// RenameFunnel changes a funnel's name.
func (s *FunnelService) RenameFunnel(
	ctx context.Context, userID, funnelID string, req models.RenameFunnelRequest,
) (*models.FunnelSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	f, err := s.store.Rename(ctx, userID, funnelID, req.Name)
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, funnelID)
	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelRename, funnelID, map[string]any{"name": req.Name}))

	return f, nil
}

// DeleteFunnel removes a funnel with its share links and metrics.
func (s *FunnelService) DeleteFunnel(ctx context.Context, userID, funnelID string) error {
	if err := s.store.Delete(ctx, userID, funnelID); err != nil {
		return err
	}

	s.invalidateViews(ctx, funnelID)
	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelDelete, funnelID, nil))

	return nil
}

// CloneFunnel copies one of the user's funnels.
func (s *FunnelService) CloneFunnel(
	ctx context.Context, userID, funnelID string, req models.CloneFunnelRequest,
) (*models.Funnel, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	f, err := s.store.Clone(ctx, userID, funnelID, req.Name)
	if err != nil {
		return nil, err
	}

	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelClone, f.ID.String(), map[string]any{"source": funnelID}))

	return f, nil
}

// LoadCanvas returns the funnel's canvas and the version it was read at.
// Stored data that fails to decode loads as an empty canvas.
func (s *FunnelService) LoadCanvas(ctx context.Context, userID, funnelID string) (*models.CanvasDocument, error) {
	f, err := s.store.Get(ctx, userID, funnelID)
	if err != nil {
		return nil, err
	}

	return &models.CanvasDocument{
		FunnelID:   f.ID,
		CanvasData: f.CanvasData,
		Version:    f.Version,
		UpdatedAt:  f.UpdatedAt,
	}, nil
}

// SaveCanvas validates the bundle then persists it. With an expected
// version set, a concurrent save returns models.ErrVersionConflict.
func (s *FunnelService) SaveCanvas(
	ctx context.Context, userID, funnelID string, req models.SaveCanvasRequest,
) (*models.FunnelSummary, error) {
	if err := req.Validate(); err != nil {
		metrics.CanvasSaves.WithLabelValues("invalid").Inc()
		return nil, invalid(err)
	}

	f, err := s.store.SaveCanvas(ctx, userID, funnelID, req.CanvasData, req.ExpectedVersion)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrVersionConflict):
			metrics.CanvasSaves.WithLabelValues("conflict").Inc()
		case errors.Is(err, models.ErrFunnelNotFound):
			metrics.CanvasSaves.WithLabelValues("not_found").Inc()
		default:
			metrics.CanvasSaves.WithLabelValues("error").Inc()
		}

		return nil, err
	}

	metrics.CanvasSaves.WithLabelValues("ok").Inc()
	s.invalidateViews(ctx, funnelID)

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"funnel_id": funnelID,
		"version":   f.Version,
		"nodes":     len(req.CanvasData.Nodes),
	}).Debug("canvas.save")

	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelSave, funnelID, map[string]any{
		"version": f.Version,
		"nodes":   len(req.CanvasData.Nodes),
		"edges":   len(req.CanvasData.Edges),
	}))

	return f, nil
}
