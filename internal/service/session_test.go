package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/session"
)

// fakeCanvases is an in-memory CanvasBackend with store-like versioning.
type fakeCanvases struct {
	mu      sync.Mutex
	id      uuid.UUID
	data    models.CanvasData
	version int64
	saves   int
}

func (f *fakeCanvases) LoadCanvas(_ context.Context, _, funnelID string) (*models.CanvasDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if funnelID != f.id.String() {
		return nil, models.ErrFunnelNotFound
	}

	return &models.CanvasDocument{FunnelID: f.id, CanvasData: f.data, Version: f.version}, nil
}

func (f *fakeCanvases) SaveCanvas(
	_ context.Context, _, _ string, req models.SaveCanvasRequest,
) (*models.FunnelSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.ExpectedVersion != nil && *req.ExpectedVersion != f.version {
		return nil, models.ErrVersionConflict
	}

	f.data = req.CanvasData
	f.version++
	f.saves++

	return &models.FunnelSummary{ID: f.id, Version: f.version, NodeCount: len(req.CanvasData.Nodes)}, nil
}

type fakeResolver struct {
	view *models.SharedFunnel
}

func (f *fakeResolver) ResolveShared(_ context.Context, token string) (*models.SharedFunnel, error) {
	if token != "tok" {
		return nil, models.ErrShareNotFound
	}

	return f.view, nil
}

func newSessionFixture() (*SessionService, *fakeCanvases, *session.Manager) {
	backend := &fakeCanvases{id: uuid.New(), data: sampleCanvas(), version: 1}
	mgr := session.NewManager(time.Minute, quietLogger())
	svc := NewSessionService(mgr, backend, &fakeResolver{view: sharedView(true)}, 10, quietLogger())

	return svc, backend, mgr
}

func addEmailNode(t *testing.T, svc *SessionService, user, sid string) {
	t.Helper()

	res, err := svc.Apply(context.Background(), user, sid, session.Op{
		Type:     session.OpAddNode,
		NodeType: models.NodeEmail,
		Position: &models.Position{X: 10, Y: 10},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !res.Applied {
		t.Fatal("add_node not applied")
	}
}

func TestSessionService_OwnedEditAndSave(t *testing.T) {
	svc, backend, _ := newSessionFixture()
	ctx := context.Background()

	info, err := svc.OpenOwned(ctx, testUser, backend.id.String())
	if err != nil {
		t.Fatalf("OpenOwned: %v", err)
	}

	if info.ReadOnly || info.Version != 1 || len(info.State.Nodes) != 2 {
		t.Fatalf("unexpected info: %+v", info)
	}

	sid := info.ID.String()
	addEmailNode(t, svc, testUser, sid)

	saved, err := svc.Save(ctx, testUser, sid)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if saved.Version != 2 || saved.State.Dirty {
		t.Errorf("after save: version=%d dirty=%v", saved.Version, saved.State.Dirty)
	}

	if len(backend.data.Nodes) != 3 {
		t.Errorf("persisted %d nodes, want 3", len(backend.data.Nodes))
	}
}

func TestSessionService_SaveConflictKeepsChanges(t *testing.T) {
	svc, backend, _ := newSessionFixture()
	ctx := context.Background()

	info, err := svc.OpenOwned(ctx, testUser, backend.id.String())
	if err != nil {
		t.Fatalf("OpenOwned: %v", err)
	}

	sid := info.ID.String()
	addEmailNode(t, svc, testUser, sid)

	backend.version = 7

	if _, err := svc.Save(ctx, testUser, sid); !errors.Is(err, models.ErrVersionConflict) {
		t.Fatalf("Save error = %v, want ErrVersionConflict", err)
	}

	after, err := svc.Describe(ctx, testUser, sid)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	if !after.State.Dirty || len(after.State.Nodes) != 3 {
		t.Errorf("unsaved changes lost: dirty=%v nodes=%d", after.State.Dirty, len(after.State.Nodes))
	}
}

func TestSessionService_SharedIsReadOnly(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()
	viewer := uuid.NewString()

	if _, err := svc.OpenShared(ctx, viewer, "unknown"); !errors.Is(err, models.ErrShareNotFound) {
		t.Fatalf("unknown token error = %v, want ErrShareNotFound", err)
	}

	info, err := svc.OpenShared(ctx, viewer, "tok")
	if err != nil {
		t.Fatalf("OpenShared: %v", err)
	}

	if !info.ReadOnly || !info.CanClone {
		t.Errorf("shared info = read_only:%v can_clone:%v", info.ReadOnly, info.CanClone)
	}

	res, err := svc.Apply(ctx, viewer, info.ID.String(), session.Op{Type: session.OpDeleteNode, NodeID: "capture-1"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if res.Applied || len(res.State.Nodes) != 2 {
		t.Errorf("read-only session mutated: %+v", res)
	}

	if _, err := svc.Save(ctx, viewer, info.ID.String()); !errors.Is(err, canvas.ErrReadOnly) {
		t.Errorf("Save error = %v, want ErrReadOnly", err)
	}
}

func TestSessionService_NavigateClosesOnProceed(t *testing.T) {
	tests := []struct {
		decision    canvas.NavDecision
		wantProceed bool
		wantSaves   int
	}{
		{decision: canvas.SaveThenNavigate, wantProceed: true, wantSaves: 1},
		{decision: canvas.DiscardAndNavigate, wantProceed: true},
		{decision: canvas.CancelNavigation, wantProceed: false},
	}

	for _, tc := range tests {
		t.Run(string(tc.decision), func(t *testing.T) {
			svc, backend, mgr := newSessionFixture()
			ctx := context.Background()

			info, err := svc.OpenOwned(ctx, testUser, backend.id.String())
			if err != nil {
				t.Fatalf("OpenOwned: %v", err)
			}

			sid := info.ID.String()
			addEmailNode(t, svc, testUser, sid)

			proceed, err := svc.Navigate(ctx, testUser, sid, tc.decision)
			if err != nil {
				t.Fatalf("Navigate: %v", err)
			}

			if proceed != tc.wantProceed {
				t.Errorf("proceed = %v, want %v", proceed, tc.wantProceed)
			}

			if backend.saves != tc.wantSaves {
				t.Errorf("saves = %d, want %d", backend.saves, tc.wantSaves)
			}

			wantOpen := 1
			if tc.wantProceed {
				wantOpen = 0
			}

			if mgr.Len() != wantOpen {
				t.Errorf("open sessions = %d, want %d", mgr.Len(), wantOpen)
			}
		})
	}
}

func TestSessionService_ScopedToUser(t *testing.T) {
	svc, backend, _ := newSessionFixture()
	ctx := context.Background()

	info, err := svc.OpenOwned(ctx, testUser, backend.id.String())
	if err != nil {
		t.Fatalf("OpenOwned: %v", err)
	}

	other := uuid.NewString()

	if _, err := svc.Describe(ctx, other, info.ID.String()); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("foreign describe error = %v, want ErrSessionNotFound", err)
	}

	if _, err := svc.Describe(ctx, testUser, "not-a-uuid"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("malformed id error = %v, want ErrSessionNotFound", err)
	}

	if _, err := svc.Navigate(ctx, testUser, info.ID.String(), "later"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("bad decision error = %v, want ErrValidation", err)
	}

	if err := svc.Close(ctx, testUser, info.ID.String()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := svc.Close(ctx, testUser, info.ID.String()); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("second close error = %v, want ErrSessionNotFound", err)
	}
}
