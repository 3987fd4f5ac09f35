package service

import (
	"context"
	"fmt"
	"time"

	"github.com/funnelboard/funnelboard/internal/db"
	"github.com/funnelboard/funnelboard/internal/models"
)

// defaultImportName names imports whose bundle carries no name.
const defaultImportName = "Imported funnel"

// ExportFunnel packages a funnel into a portable, full-fidelity format. The
// canvas is returned in plaintext; the store layer handles decryption.
func (s *FunnelService) ExportFunnel(ctx context.Context, userID, funnelID string) (*models.ExportFormat, error) {
	f, err := s.store.Get(ctx, userID, funnelID)
	if err != nil {
		return nil, err
	}

	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelExport, funnelID, nil))

	return &models.ExportFormat{
		SchemaVersion: db.SchemaVersion(),
		AppVersion:    s.appVersion,
		ExportedAt:    time.Now().UTC(),
		Name:          f.Name,
		Stats:         models.StatsOf(f.CanvasData),
		CanvasData:    f.CanvasData,
	}, nil
}

// ImportFunnel creates a new funnel from an export. Bundles from a newer
// schema and canvases that break graph invariants are rejected with
// models.ErrValidation. A dry run validates without writing.
func (s *FunnelService) ImportFunnel(
	ctx context.Context,
	userID string,
	data *models.ExportFormat,
	opts models.ImportOptions,
) (*models.ImportResult, error) {
	if data == nil {
		return nil, invalid(fmt.Errorf("empty import"))
	}

	if current := db.SchemaVersion(); data.SchemaVersion > current {
		return nil, invalid(fmt.Errorf(
			"export schema version %d is newer than this instance (%d); upgrade before importing",
			data.SchemaVersion, current,
		))
	}

	if err := data.CanvasData.Validate(); err != nil {
		return nil, invalid(err)
	}

	name := firstNonEmpty(opts.Name, data.Name, defaultImportName)
	if len(name) > 200 {
		return nil, invalid(models.ErrFieldTooLong("name", 200))
	}

	result := &models.ImportResult{Stats: models.StatsOf(data.CanvasData), DryRun: opts.DryRun}

	if opts.DryRun {
		return result, nil
	}

	f, err := s.store.Create(ctx, userID, name, data.CanvasData)
	if err != nil {
		return nil, fmt.Errorf("importing funnel: %w", err)
	}

	result.Funnel = &models.FunnelSummary{
		ID:        f.ID,
		Name:      f.Name,
		NodeCount: len(f.CanvasData.Nodes),
		Version:   f.Version,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}

	auditAsync(s.auditWorker, funnelEvent(userID, models.ActionFunnelImport, f.ID.String(), map[string]any{
		"nodes":          result.Stats.NodeCount,
		"edges":          result.Stats.EdgeCount,
		"schema_version": data.SchemaVersion,
		"app_version":    data.AppVersion,
	}))

	return result, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
