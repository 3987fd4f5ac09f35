package models

import "time"

// ExportFormat is the portable representation of a single funnel. It is
// written as snappy-compressed JSON by the export package.
type ExportFormat struct {
	SchemaVersion int64       `json:"schema_version"` // newest applied migration at export time
	AppVersion    string      `json:"app_version"`
	ExportedAt    time.Time   `json:"exported_at"`
	Name          string      `json:"name"`
	Stats         ExportStats `json:"stats"`
	CanvasData    CanvasData  `json:"canvas_data"`
}

// ExportStats summarises the contents of an export.
type ExportStats struct {
	NodeCount    int `json:"node_count"`
	EdgeCount    int `json:"edge_count"`
	DrawingCount int `json:"drawing_count"`
}

// StatsOf counts the contents of a canvas.
func StatsOf(c CanvasData) ExportStats {
	return ExportStats{NodeCount: len(c.Nodes), EdgeCount: len(c.Edges), DrawingCount: len(c.Drawings)}
}

// ImportOptions controls the behaviour of an import operation.
type ImportOptions struct {
	// Name overrides the funnel name stored in the export.
	Name string `json:"name,omitempty"`
	// DryRun validates the import data without writing anything to the database.
	DryRun bool `json:"dry_run"`
}

// ImportResult summarises the outcome of an import operation.
type ImportResult struct {
	Funnel *FunnelSummary `json:"funnel,omitempty"`
	Stats  ExportStats    `json:"stats"`
	DryRun bool           `json:"dry_run"`
}
