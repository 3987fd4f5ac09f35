package client

import (
	"context"
	"net/url"

	"github.com/funnelboard/funnelboard/internal/models"
)

// ShareService handles share links and shared views.
type ShareService struct {
	c *Client
}

func sharedPath(token string, rest ...string) string {
	p := "/api/v1/shared/" + url.PathEscape(token)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Create issues a share link for a funnel.
func (s *ShareService) Create(ctx context.Context, funnelID string, allowDownload bool) (*ShareLink, error) {
	var link ShareLink
	req := models.CreateShareLinkRequest{AllowDownload: allowDownload}
	if err := s.c.post(ctx, funnelPath(funnelID, "shares"), req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns a funnel's share links, revoked ones included.
func (s *ShareService) List(ctx context.Context, funnelID string) ([]ShareLink, error) {
	var resp struct {
		Shares []ShareLink `json:"shares"`
	}
	if err := s.c.get(ctx, funnelPath(funnelID, "shares"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Shares, nil
}

// Revoke disables a share link.
func (s *ShareService) Revoke(ctx context.Context, token string) error {
	return s.c.del(ctx, "/api/v1/shares/"+url.PathEscape(token), nil, nil)
}

// Resolve fetches the read-only view behind a share token.
func (s *ShareService) Resolve(ctx context.Context, token string) (*SharedFunnel, error) {
	var view SharedFunnel
	if err := s.c.get(ctx, sharedPath(token), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Clone copies a shared funnel into the caller's account.
func (s *ShareService) Clone(ctx context.Context, token, name string) (*Funnel, error) {
	var f Funnel
	if err := s.c.post(ctx, sharedPath(token, "clone"), models.CloneFunnelRequest{Name: name}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
