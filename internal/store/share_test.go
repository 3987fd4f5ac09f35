package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/store"
)

func TestShareResolveAndRevoke(t *testing.T) {
	base, userID := setupTestBase(t)
	fs := store.NewFunnelStore(base)
	ss := store.NewShareStore(base)
	ctx := context.Background()

	f, err := fs.Create(ctx, userID, "Shared", sampleCanvas())
	if err != nil {
		t.Fatalf("Create funnel: %v", err)
	}

	token := "tok-" + uuid.NewString()

	link, err := ss.Create(ctx, userID, f.ID.String(), token, true)
	if err != nil {
		t.Fatalf("Create share: %v", err)
	}

	if !link.AllowDownload || link.RevokedAt != nil {
		t.Errorf("link = %+v, want allow_download and not revoked", link)
	}

	shared, err := ss.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !shared.ReadOnly || !shared.AllowDownload {
		t.Errorf("shared flags = read_only %v allow_download %v, want both true", shared.ReadOnly, shared.AllowDownload)
	}

	if len(shared.CanvasData.Nodes) != 2 {
		t.Errorf("shared canvas has %d nodes, want 2", len(shared.CanvasData.Nodes))
	}

	links, err := ss.List(ctx, userID, f.ID.String())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(links) != 1 || links[0].Token != token {
		t.Fatalf("List = %+v, want the one link", links)
	}

	if _, err := ss.Revoke(ctx, userID, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := ss.Resolve(ctx, token); !errors.Is(err, models.ErrShareNotFound) {
		t.Errorf("Resolve after revoke error = %v, want ErrShareNotFound", err)
	}

	if _, err := ss.Revoke(ctx, userID, token); !errors.Is(err, models.ErrShareNotFound) {
		t.Errorf("second Revoke error = %v, want ErrShareNotFound", err)
	}
}

func TestShareCreateRequiresOwnership(t *testing.T) {
	base, owner := setupTestBase(t)
	other := createUser(t, getTestEnv(t))
	fs := store.NewFunnelStore(base)
	ss := store.NewShareStore(base)
	ctx := context.Background()

	f, err := fs.Create(ctx, owner, "Private", models.EmptyCanvas())
	if err != nil {
		t.Fatalf("Create funnel: %v", err)
	}

	_, err = ss.Create(ctx, other, f.ID.String(), "tok-"+uuid.NewString(), false)
	if !errors.Is(err, models.ErrFunnelNotFound) {
		t.Errorf("Create share by other user error = %v, want ErrFunnelNotFound", err)
	}
}

func TestShareResolveUnknownToken(t *testing.T) {
	base, _ := setupTestBase(t)
	ss := store.NewShareStore(base)

	if _, err := ss.Resolve(context.Background(), "missing"); !errors.Is(err, models.ErrShareNotFound) {
		t.Errorf("Resolve error = %v, want ErrShareNotFound", err)
	}
}
