package store

import (
	"context"
	"fmt"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
)

// sealCanvas encodes a bundle and wraps it in the owner's encryption
// envelope for the canvas_data JSONB column.
func (b *Base) sealCanvas(ctx context.Context, ownerID string, c models.CanvasData) ([]byte, error) {
	plain, err := canvas.Encode(c)
	if err != nil {
		return nil, err
	}

	sealed, err := b.Crypto.Seal(ctx, ownerID, plain)
	if err != nil {
		return nil, fmt.Errorf("encrypting canvas: %w", err)
	}

	return sealed, nil
}

// openCanvas decrypts stored canvas_data and decodes it defensively. A NULL
// column or a malformed document yields an empty canvas.
func (b *Base) openCanvas(ctx context.Context, ownerID string, stored []byte) (models.CanvasData, error) {
	if len(stored) == 0 {
		return models.EmptyCanvas(), nil
	}

	plain, err := b.Crypto.Open(ctx, ownerID, stored)
	if err != nil {
		return models.CanvasData{}, fmt.Errorf("decrypting canvas: %w", err)
	}

	return canvas.Decode(plain), nil
}
