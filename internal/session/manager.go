// Package session hosts live canvas editors for the HTTP API. Each session
// wraps one canvas.Editor bound to a funnel and serializes every access to it.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/metrics"
	"github.com/funnelboard/funnelboard/internal/models"
)

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 30 * time.Minute

// Session is one mounted canvas.
type Session struct {
	ID         uuid.UUID `json:"id"`
	FunnelID   uuid.UUID `json:"funnel_id"`
	UserID     uuid.UUID `json:"user_id"`
	ShareToken string    `json:"-"`
	ReadOnly   bool      `json:"read_only"`
	OpenedAt   time.Time `json:"opened_at"`

	mu       sync.Mutex
	editor   *canvas.Editor
	version  int64
	lastUsed atomic.Int64 // unix nanoseconds, read without mu
}

func (s *Session) touch(at time.Time) { s.lastUsed.Store(at.UnixNano()) }

func (s *Session) idleSince(cutoff time.Time) bool {
	return s.lastUsed.Load() < cutoff.UnixNano()
}

// Version returns the funnel version the session last loaded or saved.
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}

// Info is the client-facing view of a session.
type Info struct {
	ID       uuid.UUID    `json:"id"`
	FunnelID uuid.UUID    `json:"funnel_id"`
	ReadOnly bool         `json:"read_only"`
	CanClone bool         `json:"can_clone"`
	Version  int64        `json:"version"`
	OpenedAt time.Time    `json:"opened_at"`
	State    canvas.State `json:"state"`
}

// Info describes the session. Callers must hold the session through Do.
func (s *Session) Info() Info {
	return Info{
		ID:       s.ID,
		FunnelID: s.FunnelID,
		ReadOnly: s.ReadOnly,
		CanClone: s.editor.CanClone(),
		Version:  s.version,
		OpenedAt: s.OpenedAt,
		State:    s.editor.State(),
	}
}

// OpenParams describes a session to create.
type OpenParams struct {
	FunnelID   uuid.UUID
	UserID     uuid.UUID
	ShareToken string
	Version    int64
	Config     canvas.Config
	Data       models.CanvasData
	Options    []canvas.Option
}

// Manager tracks open sessions and evicts idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	idleTTL  time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

// NewManager creates a Manager. A non-positive idleTTL uses DefaultIdleTTL.
func NewManager(idleTTL time.Duration, log *logrus.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		idleTTL:  idleTTL,
		log:      log,
		now:      time.Now,
	}
}

// Open mounts a new editor and registers it.
func (m *Manager) Open(p OpenParams) *Session {
	now := m.now()
	s := &Session{
		ID:         uuid.New(),
		FunnelID:   p.FunnelID,
		UserID:     p.UserID,
		ShareToken: p.ShareToken,
		ReadOnly:   p.Config.ReadOnly,
		OpenedAt:   now,
		editor:     canvas.New(p.Config, p.Data, p.Options...),
		version:    p.Version,
	}
	s.touch(now)

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))

	m.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"funnel_id":  s.FunnelID,
		"user_id":    s.UserID,
		"read_only":  s.ReadOnly,
	}).Info("session.open")

	return s
}

// Get returns the session if it exists and belongs to userID.
func (m *Manager) Get(id, userID uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.UserID != userID {
		return nil, models.ErrSessionNotFound
	}

	return s, nil
}

// Do runs fn with exclusive access to the session's editor and marks the
// session as used.
func (m *Manager) Do(id, userID uuid.UUID, fn func(s *Session, e *canvas.Editor) error) error {
	s, err := m.Get(id, userID)
	if err != nil {
		return err
	}

	s.touch(m.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.touch(m.now()) }()

	return fn(s, s.editor)
}

// SetVersion records the funnel version after a successful save. Callers
// must hold the session through Do.
func (s *Session) SetVersion(v int64) { s.version = v }

// CurrentVersion is Version for callers already inside Do.
func (s *Session) CurrentVersion() int64 { return s.version }

// Apply runs one editing op.
func (m *Manager) Apply(id, userID uuid.UUID, op Op) (Result, error) {
	var res Result

	err := m.Do(id, userID, func(_ *Session, e *canvas.Editor) error {
		var err error
		res, err = apply(e, op)

		return err
	})
	if err != nil {
		return res, err
	}

	metrics.SessionOps.WithLabelValues(string(op.Type), boolLabel(res.Applied)).Inc()

	return res, nil
}

// State returns the session's current render state.
func (m *Manager) State(id, userID uuid.UUID) (canvas.State, error) {
	var st canvas.State

	err := m.Do(id, userID, func(_ *Session, e *canvas.Editor) error {
		st = e.State()
		return nil
	})

	return st, err
}

// Close discards a session and any unsaved changes.
func (m *Manager) Close(id, userID uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		m.mu.Unlock()
		return models.ErrSessionNotFound
	}

	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	m.log.WithField("session_id", id).Info("session.close")

	return nil
}

// Describe returns the Info of a session.
func (m *Manager) Describe(id, userID uuid.UUID) (Info, error) {
	var info Info

	err := m.Do(id, userID, func(s *Session, _ *canvas.Editor) error {
		info = s.Info()
		return nil
	})

	return info, err
}

// CloseShared discards every session opened through a share token and
// returns how many were closed.
func (m *Manager) CloseShared(token string) int {
	if token == "" {
		return 0
	}

	m.mu.Lock()
	var closed int

	for id, s := range m.sessions {
		if s.ShareToken == token {
			delete(m.sessions, id)
			closed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if closed > 0 {
		metrics.ActiveSessions.Set(float64(n))
		m.log.WithField("closed", closed).Info("session.close_shared")
	}

	return closed
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// Run evicts idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// EvictIdle drops sessions unused for longer than the idle TTL and returns
// how many were removed. Unsaved changes in evicted sessions are lost.
// Session locks are never taken, so a long save does not stall the registry.
func (m *Manager) EvictIdle() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.RLock()
	var candidates []*Session

	for _, s := range m.sessions {
		if s.idleSince(cutoff) {
			candidates = append(candidates, s)
		}
	}
	m.mu.RUnlock()

	if len(candidates) == 0 {
		return 0
	}

	m.mu.Lock()
	stale := candidates[:0]

	for _, s := range candidates {
		// Touched since the scan: keep it.
		if cur, ok := m.sessions[s.ID]; !ok || cur != s || !s.idleSince(cutoff) {
			continue
		}

		delete(m.sessions, s.ID)
		stale = append(stale, s)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}

	metrics.ActiveSessions.Set(float64(n))

	for _, s := range stale {
		m.log.WithFields(logrus.Fields{
			"session_id": s.ID,
			"funnel_id":  s.FunnelID,
		}).Info("session.evict")
	}

	return len(stale)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}

	return "false"
}
