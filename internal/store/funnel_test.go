package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/store"
)

func TestFunnelCreateGet(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ctx := context.Background()

	created, err := fs.Create(ctx, userID, "Launch", sampleCanvas())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.Version != 1 {
		t.Errorf("Version = %d, want 1", created.Version)
	}

	got, err := fs.Get(ctx, userID, created.ID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.Name != "Launch" {
		t.Errorf("Name = %q, want Launch", got.Name)
	}

	if len(got.CanvasData.Nodes) != 2 || len(got.CanvasData.Edges) != 1 || len(got.CanvasData.Drawings) != 1 {
		t.Fatalf("canvas = %d nodes %d edges %d drawings, want 2/1/1",
			len(got.CanvasData.Nodes), len(got.CanvasData.Edges), len(got.CanvasData.Drawings))
	}

	if got.CanvasData.Edges[0].SourceHandle != models.HandleRightSource {
		t.Errorf("SourceHandle = %q, want right-source", got.CanvasData.Edges[0].SourceHandle)
	}
}

func TestFunnelCanvasEncryptedAtRest(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ctx := context.Background()

	created, err := fs.Create(ctx, userID, "Secret", sampleCanvas())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var hasEnvelope bool

	err = base.Pool.QueryRow(ctx, "SELECT canvas_data ? '_enc' FROM funnels WHERE id = $1", created.ID).Scan(&hasEnvelope)
	if err != nil {
		t.Fatalf("reading raw canvas_data: %v", err)
	}

	if !hasEnvelope {
		t.Error("canvas_data stored without encryption envelope")
	}
}

func TestFunnelNullCanvasLoadsEmpty(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ctx := context.Background()

	created, err := fs.Create(ctx, userID, "Blank", models.EmptyCanvas())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := base.Pool.Exec(ctx, "UPDATE funnels SET canvas_data = NULL WHERE id = $1", created.ID); err != nil {
		t.Fatalf("nulling canvas_data: %v", err)
	}

	got, err := fs.Get(ctx, userID, created.ID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.CanvasData.Nodes == nil || len(got.CanvasData.Nodes) != 0 {
		t.Errorf("Nodes = %v, want empty non-nil slice", got.CanvasData.Nodes)
	}
}

func TestFunnelSaveCanvasVersioning(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ctx := context.Background()

	created, err := fs.Create(ctx, userID, "Versions", models.EmptyCanvas())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	id := created.ID.String()
	v1 := created.Version

	saved, err := fs.SaveCanvas(ctx, userID, id, sampleCanvas(), &v1)
	if err != nil {
		t.Fatalf("SaveCanvas with matching version: %v", err)
	}

	if saved.Version != v1+1 {
		t.Errorf("Version = %d, want %d", saved.Version, v1+1)
	}

	if saved.NodeCount != 2 {
		t.Errorf("NodeCount = %d, want 2", saved.NodeCount)
	}

	_, err = fs.SaveCanvas(ctx, userID, id, models.EmptyCanvas(), &v1)
	if !errors.Is(err, models.ErrVersionConflict) {
		t.Fatalf("stale save error = %v, want ErrVersionConflict", err)
	}

	// Without an expected version the last write wins.
	if _, err := fs.SaveCanvas(ctx, userID, id, models.EmptyCanvas(), nil); err != nil {
		t.Fatalf("unconditional SaveCanvas: %v", err)
	}

	_, err = fs.SaveCanvas(ctx, userID, uuid.NewString(), models.EmptyCanvas(), &v1)
	if !errors.Is(err, models.ErrFunnelNotFound) {
		t.Errorf("save to missing funnel error = %v, want ErrFunnelNotFound", err)
	}
}

func TestFunnelIsolationBetweenUsers(t *testing.T) {
	base, owner := setupTestBase(t)
	other := createUser(t, getTestEnv(t))
	fs := store.NewFunnelStore(base)
	ctx := context.Background()

	created, err := fs.Create(ctx, owner, "Mine", sampleCanvas())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := fs.Get(ctx, other, created.ID.String()); !errors.Is(err, models.ErrFunnelNotFound) {
		t.Errorf("Get by other user error = %v, want ErrFunnelNotFound", err)
	}

	if err := fs.Delete(ctx, other, created.ID.String()); !errors.Is(err, models.ErrFunnelNotFound) {
		t.Errorf("Delete by other user error = %v, want ErrFunnelNotFound", err)
	}

	list, _, err := fs.List(ctx, other, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(list) != 0 {
		t.Errorf("other user sees %d funnels, want 0", len(list))
	}
}

func TestFunnelListRenameCloneDelete(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ctx := context.Background()

	for _, name := range []string{"One", "Two", "Three"} {
		if _, err := fs.Create(ctx, userID, name, models.EmptyCanvas()); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	page, hasMore, err := fs.List(ctx, userID, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(page) != 2 || !hasMore {
		t.Fatalf("List page = %d items hasMore=%v, want 2 and true", len(page), hasMore)
	}

	target := page[0].ID.String()

	renamed, err := fs.Rename(ctx, userID, target, "Renamed")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if renamed.Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", renamed.Name)
	}

	clone, err := fs.Clone(ctx, userID, target, "")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if clone.Name != "Renamed (copy)" {
		t.Errorf("clone Name = %q, want %q", clone.Name, "Renamed (copy)")
	}

	if clone.ID == renamed.ID {
		t.Error("clone reused the source id")
	}

	if err := fs.Delete(ctx, userID, target); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := fs.Get(ctx, userID, target); !errors.Is(err, models.ErrFunnelNotFound) {
		t.Errorf("Get after delete error = %v, want ErrFunnelNotFound", err)
	}

	if _, err := fs.Get(ctx, userID, "not-a-uuid"); !errors.Is(err, models.ErrFunnelNotFound) {
		t.Errorf("Get malformed id error = %v, want ErrFunnelNotFound", err)
	}
}
