package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/funnelboard/funnelboard/internal/domain"
	"github.com/funnelboard/funnelboard/internal/metrics"
	"github.com/funnelboard/funnelboard/internal/models"
)

// shareTokenBytes is the entropy of a share token before encoding.
const shareTokenBytes = 32

// ShareStore is the data-access interface ShareService depends on.
type ShareStore interface {
	Create(ctx context.Context, userID, funnelID, token string, allowDownload bool) (*models.ShareLink, error)
	Resolve(ctx context.Context, token string) (*models.SharedFunnel, error)
	List(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error)
	Revoke(ctx context.Context, userID, token string) (*models.ShareLink, error)
}

// FunnelCreator creates funnels in a user's account.
type FunnelCreator interface {
	Create(ctx context.Context, userID, name string, data models.CanvasData) (*models.Funnel, error)
}

// SharedViewCache caches resolved share-link views.
type SharedViewCache interface {
	Get(ctx context.Context, token string) (*models.SharedFunnel, bool, error)
	Set(ctx context.Context, token string, view *models.SharedFunnel) error
	Invalidate(ctx context.Context, token string) error
}

// Compile-time check: *ShareService must satisfy domain.ShareService.
var _ domain.ShareService = (*ShareService)(nil)

// ShareService manages share links and serves read-only views through an
// optional cache.
type ShareService struct {
	store       ShareStore
	funnels     FunnelCreator
	cache       SharedViewCache
	auditWorker AuditEnqueuer
	log         *logrus.Logger
	group       singleflight.Group
	onRevoke    func(token string)
	newToken    func() (string, error)
}

// ShareOption customizes a ShareService.
type ShareOption func(*ShareService)

// WithShareCache puts a cache in front of share resolution.
func WithShareCache(c SharedViewCache) ShareOption {
	return func(s *ShareService) { s.cache = c }
}

// WithRevokeHook registers fn to run after a share link is revoked.
func WithRevokeHook(fn func(token string)) ShareOption {
	return func(s *ShareService) { s.onRevoke = fn }
}

// WithTokenGenerator overrides share token generation.
func WithTokenGenerator(fn func() (string, error)) ShareOption {
	return func(s *ShareService) { s.newToken = fn }
}

// NewShareService creates a ShareService.
func NewShareService(
	store ShareStore, funnels FunnelCreator, auditWorker AuditEnqueuer, log *logrus.Logger, opts ...ShareOption,
) *ShareService {
	s := &ShareService{
		store:       store,
		funnels:     funnels,
		auditWorker: auditWorker,
		log:         log,
		newToken:    GenerateShareToken,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GenerateShareToken returns a random URL-safe token.
func GenerateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating share token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateShare issues a new share link for one of the user's funnels.
func (s *ShareService) CreateShare(
	ctx context.Context, userID, funnelID string, req models.CreateShareLinkRequest,
) (*models.ShareLink, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	link, err := s.store.Create(ctx, userID, funnelID, token, req.AllowDownload)
	if err != nil {
		return nil, err
	}

	auditAsync(s.auditWorker, models.AuditEvent{
		UserID:   userID,
		Action:   models.ActionShareCreate,
		FunnelID: funnelID,
		EntityID: tokenHint(token),
		Detail:   map[string]any{"allow_download": req.AllowDownload},
	})

	return link, nil
}

// ListShares returns the share links of a funnel (pass-through).
func (s *ShareService) ListShares(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error) {
	return s.store.List(ctx, userID, funnelID)
}

// RevokeShare disables a share link, drops its cached view and runs the
// revoke hook.
func (s *ShareService) RevokeShare(ctx context.Context, userID, token string) error {
	link, err := s.store.Revoke(ctx, userID, token)
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, token); err != nil {
			s.log.WithError(err).Warn("share cache invalidation failed")
		}
	}

	if s.onRevoke != nil {
		s.onRevoke(token)
	}

	auditAsync(s.auditWorker, models.AuditEvent{
		UserID:   userID,
		Action:   models.ActionShareRevoke,
		FunnelID: link.FunnelID.String(),
		EntityID: tokenHint(token),
	})

	return nil
}

// ResolveShared returns the read-only view behind a token. Concurrent
// lookups of the same token share one store read.
func (s *ShareService) ResolveShared(ctx context.Context, token string) (*models.SharedFunnel, error) {
	if token == "" {
		return nil, models.ErrShareNotFound
	}

	if s.cache != nil {
		view, ok, err := s.cache.Get(ctx, token)
		switch {
		case err != nil:
			metrics.ShareCacheLookups.WithLabelValues("error").Inc()
			s.log.WithError(err).Warn("share cache read failed")
		case ok:
			metrics.ShareCacheLookups.WithLabelValues("hit").Inc()
			return view, nil
		default:
			metrics.ShareCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	v, err, _ := s.group.Do(token, func() (any, error) {
		view, err := s.store.Resolve(ctx, token)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, token, view); err != nil {
				s.log.WithError(err).Warn("share cache write failed")
			}
		}

		return view, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.SharedFunnel), nil //nolint:forcetypeassert // singleflight only stores *models.SharedFunnel.
}

// CloneShared copies a shared funnel into the viewer's account. The link
// must allow downloads.
func (s *ShareService) CloneShared(
	ctx context.Context, token, viewerID string, req models.CloneFunnelRequest,
) (*models.Funnel, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	view, err := s.ResolveShared(ctx, token)
	if err != nil {
		return nil, err
	}

	if !view.AllowDownload {
		return nil, models.ErrDownloadNotAllowed
	}

	name := req.Name
	if name == "" {
		name = view.Name
	}

	f, err := s.funnels.Create(ctx, viewerID, name, view.CanvasData)
	if err != nil {
		return nil, fmt.Errorf("cloning shared funnel: %w", err)
	}

	auditAsync(s.auditWorker, models.AuditEvent{
		UserID:   viewerID,
		Action:   models.ActionShareClone,
		FunnelID: f.ID.String(),
		EntityID: tokenHint(token),
		Detail:   map[string]any{"source": view.FunnelID.String()},
	})

	return f, nil
}
