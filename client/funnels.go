package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/funnelboard/funnelboard/internal/export"
	"github.com/funnelboard/funnelboard/internal/models"
)

// FunnelService handles funnel CRUD, canvas load/save and bundles.
type FunnelService struct {
	c *Client
}

type funnelListResponse struct {
	Funnels []FunnelSummary `json:"funnels"`
	HasMore bool            `json:"has_more"`
}

func funnelPath(id string, rest ...string) string {
	p := "/api/v1/funnels/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// List returns the caller's funnels, most recently updated first.
func (s *FunnelService) List(ctx context.Context, opts *ListOptions) ([]FunnelSummary, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp funnelListResponse
	if err := s.c.get(ctx, "/api/v1/funnels", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Funnels, resp.HasMore, nil
}

// Get retrieves a funnel with its canvas.
func (s *FunnelService) Get(ctx context.Context, id string) (*Funnel, error) {
	var f Funnel
	if err := s.c.get(ctx, funnelPath(id), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create creates a funnel, optionally from a template.
func (s *FunnelService) Create(ctx context.Context, req *CreateFunnelRequest) (*Funnel, error) {
	var f Funnel
	if err := s.c.post(ctx, "/api/v1/funnels", req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Rename changes a funnel's name.
func (s *FunnelService) Rename(ctx context.Context, id, name string) (*FunnelSummary, error) {
	var f FunnelSummary
	if err := s.c.patch(ctx, funnelPath(id), models.RenameFunnelRequest{Name: name}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Delete removes a funnel and everything hanging off it.
func (s *FunnelService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, funnelPath(id), nil, nil)
}

// Clone copies a funnel. An empty name lets the server derive one.
func (s *FunnelService) Clone(ctx context.Context, id, name string) (*Funnel, error) {
	var f Funnel
	if err := s.c.post(ctx, funnelPath(id, "clone"), models.CloneFunnelRequest{Name: name}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadCanvas fetches the canvas and its version.
func (s *FunnelService) LoadCanvas(ctx context.Context, id string) (*CanvasDocument, error) {
	var doc CanvasDocument
	if err := s.c.get(ctx, funnelPath(id, "canvas"), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveCanvas stores a canvas. With ExpectedVersion set, a concurrent save
// makes this fail with an error for which IsConflict is true.
func (s *FunnelService) SaveCanvas(ctx context.Context, id string, req *SaveCanvasRequest) (*FunnelSummary, error) {
	var f FunnelSummary
	if err := s.c.put(ctx, funnelPath(id, "canvas"), req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Export downloads a funnel as a compressed bundle.
func (s *FunnelService) Export(ctx context.Context, id string) ([]byte, error) {
	body, _, err := s.c.send(ctx, http.MethodGet, funnelPath(id, "export"), nil, "")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return body, nil
}

// ExportJSON downloads a funnel as decoded export data.
func (s *FunnelService) ExportJSON(ctx context.Context, id string) (*ExportFormat, error) {
	var data ExportFormat
	if err := s.c.get(ctx, funnelPath(id, "export"), url.Values{"format": {"json"}}, &data); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &data, nil
}

// Import uploads a bundle or export JSON and creates a funnel from it.
func (s *FunnelService) Import(ctx context.Context, data []byte, opts ImportOptions) (*ImportResult, error) {
	params := url.Values{}
	if opts.Name != "" {
		params.Set("name", opts.Name)
	}
	if opts.DryRun {
		params.Set("dry_run", "true")
	}

	path := "/api/v1/funnels/import"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	contentType := export.ContentType
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		contentType = "application/json"
	}

	body, _, err := s.c.send(ctx, http.MethodPost, path, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	var result ImportResult
	if err := decodeJSON(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
