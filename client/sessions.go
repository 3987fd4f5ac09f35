package client

import (
	"context"
	"net/url"
)

// SessionService drives server-side editing sessions.
type SessionService struct {
	c *Client
}

func sessionPath(id string, rest ...string) string {
	p := "/api/v1/sessions/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Open starts an editing session on a funnel the caller owns.
func (s *SessionService) Open(ctx context.Context, funnelID string) (*SessionInfo, error) {
	var info SessionInfo
	if err := s.c.post(ctx, funnelPath(funnelID, "sessions"), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// OpenShared starts a read-only session through a share link.
func (s *SessionService) OpenShared(ctx context.Context, token string) (*SessionInfo, error) {
	var info SessionInfo
	if err := s.c.post(ctx, sharedPath(token, "sessions"), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Get returns the session's current state.
func (s *SessionService) Get(ctx context.Context, id string) (*SessionInfo, error) {
	var info SessionInfo
	if err := s.c.get(ctx, sessionPath(id), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Apply sends one editing op.
func (s *SessionService) Apply(ctx context.Context, id string, op *Op) (*OpResult, error) {
	var res OpResult
	if err := s.c.post(ctx, sessionPath(id, "ops"), op, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Save persists the session's canvas.
func (s *SessionService) Save(ctx context.Context, id string) (*SessionInfo, error) {
	var info SessionInfo
	if err := s.c.post(ctx, sessionPath(id, "save"), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Navigate answers the unsaved-changes prompt and reports whether the
// caller may leave.
func (s *SessionService) Navigate(ctx context.Context, id string, d NavDecision) (bool, error) {
	var resp struct {
		Proceed bool `json:"proceed"`
	}
	body := map[string]NavDecision{"decision": d}
	if err := s.c.post(ctx, sessionPath(id, "navigate"), body, &resp); err != nil {
		return false, err
	}
	return resp.Proceed, nil
}

// Close ends the session, dropping unsaved changes.
func (s *SessionService) Close(ctx context.Context, id string) error {
	return s.c.del(ctx, sessionPath(id), nil, nil)
}
