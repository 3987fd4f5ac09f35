package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/domain"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/session"
)

// CanvasBackend loads and saves owned canvases.
type CanvasBackend interface {
	LoadCanvas(ctx context.Context, userID, funnelID string) (*models.CanvasDocument, error)
	SaveCanvas(ctx context.Context, userID, funnelID string, req models.SaveCanvasRequest) (*models.FunnelSummary, error)
}

// SharedResolver resolves share tokens to read-only views.
type SharedResolver interface {
	ResolveShared(ctx context.Context, token string) (*models.SharedFunnel, error)
}

// Compile-time check: *SessionService must satisfy domain.SessionService.
var _ domain.SessionService = (*SessionService)(nil)

// SessionService mounts canvas editors for owners and share viewers and
// persists owner sessions on explicit save.
type SessionService struct {
	mgr          *session.Manager
	canvases     CanvasBackend
	shares       SharedResolver
	historyLimit int
	log          *logrus.Logger
}

// NewSessionService creates a SessionService. historyLimit <= 0 uses the
// canvas default.
func NewSessionService(
	mgr *session.Manager, canvases CanvasBackend, shares SharedResolver, historyLimit int, log *logrus.Logger,
) *SessionService {
	return &SessionService{mgr: mgr, canvases: canvases, shares: shares, historyLimit: historyLimit, log: log}
}

// ids parses the caller and session ids. Malformed ids cannot match a
// session, so they report ErrSessionNotFound.
func ids(userID, sessionID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, models.ErrSessionNotFound
	}

	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, models.ErrSessionNotFound
	}

	return uid, sid, nil
}

func (s *SessionService) describe(sid, uid uuid.UUID) (*session.Info, error) {
	info, err := s.mgr.Describe(sid, uid)
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// OpenOwned mounts an editable session on one of the user's funnels.
func (s *SessionService) OpenOwned(ctx context.Context, userID, funnelID string) (*session.Info, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}

	doc, err := s.canvases.LoadCanvas(ctx, userID, funnelID)
	if err != nil {
		return nil, err
	}

	sess := s.mgr.Open(session.OpenParams{
		FunnelID: doc.FunnelID,
		UserID:   uid,
		Version:  doc.Version,
		Config:   canvas.Config{HistoryLimit: s.historyLimit},
		Data:     doc.CanvasData,
	})

	return s.describe(sess.ID, uid)
}

// OpenShared mounts a read-only session on a shared funnel for viewerID.
func (s *SessionService) OpenShared(ctx context.Context, viewerID, token string) (*session.Info, error) {
	uid, err := uuid.Parse(viewerID)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}

	view, err := s.shares.ResolveShared(ctx, token)
	if err != nil {
		return nil, err
	}

	sess := s.mgr.Open(session.OpenParams{
		FunnelID:   view.FunnelID,
		UserID:     uid,
		ShareToken: token,
		Config: canvas.Config{
			ReadOnly:      true,
			AllowDownload: view.AllowDownload,
			HistoryLimit:  s.historyLimit,
		},
		Data: view.CanvasData,
	})

	return s.describe(sess.ID, uid)
}

// Describe returns a session's current state.
func (s *SessionService) Describe(_ context.Context, userID, sessionID string) (*session.Info, error) {
	uid, sid, err := ids(userID, sessionID)
	if err != nil {
		return nil, err
	}

	return s.describe(sid, uid)
}

// Apply runs one editing op against a session.
func (s *SessionService) Apply(_ context.Context, userID, sessionID string, op session.Op) (*session.Result, error) {
	uid, sid, err := ids(userID, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.mgr.Apply(sid, uid, op)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// persister saves through the canvas backend using the version the session
// last loaded or saved, so a concurrent save elsewhere surfaces as
// models.ErrVersionConflict instead of being overwritten.
func (s *SessionService) persister(userID string, sess *session.Session) canvas.Persister {
	return canvas.PersisterFunc(func(ctx context.Context, data models.CanvasData) error {
		expected := sess.CurrentVersion()

		sum, err := s.canvases.SaveCanvas(ctx, userID, sess.FunnelID.String(), models.SaveCanvasRequest{
			CanvasData:      data,
			ExpectedVersion: &expected,
		})
		if err != nil {
			return err
		}

		sess.SetVersion(sum.Version)

		return nil
	})
}

// Save persists a session's canvas. Read-only sessions return canvas.ErrReadOnly.
func (s *SessionService) Save(ctx context.Context, userID, sessionID string) (*session.Info, error) {
	uid, sid, err := ids(userID, sessionID)
	if err != nil {
		return nil, err
	}

	var info session.Info

	err = s.mgr.Do(sid, uid, func(sess *session.Session, e *canvas.Editor) error {
		if err := e.Save(ctx, s.persister(userID, sess)); err != nil {
			return err
		}

		info = sess.Info()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// Navigate answers the unsaved-changes prompt. When the host may proceed
// the session is closed.
func (s *SessionService) Navigate(ctx context.Context, userID, sessionID string, d canvas.NavDecision) (bool, error) {
	if !d.Valid() {
		return false, invalid(fmt.Errorf("unknown navigation decision %q", d))
	}

	uid, sid, err := ids(userID, sessionID)
	if err != nil {
		return false, err
	}

	var proceed bool

	err = s.mgr.Do(sid, uid, func(sess *session.Session, e *canvas.Editor) error {
		var err error
		proceed, err = e.Navigate(ctx, d, s.persister(userID, sess))

		return err
	})
	if err != nil {
		return false, err
	}

	if proceed {
		if err := s.mgr.Close(sid, uid); err != nil {
			s.log.WithError(err).WithField("session_id", sid).Debug("session already closed")
		}
	}

	return proceed, nil
}

// Close discards a session.
func (s *SessionService) Close(_ context.Context, userID, sessionID string) error {
	uid, sid, err := ids(userID, sessionID)
	if err != nil {
		return err
	}

	return s.mgr.Close(sid, uid)
}
