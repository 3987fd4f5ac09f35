package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareLink maps an opaque token to a funnel for read-only viewing.
type ShareLink struct {
	Token         string     `json:"token"`
	FunnelID      uuid.UUID  `json:"funnel_id"`
	UserID        uuid.UUID  `json:"-"`
	AllowDownload bool       `json:"allow_download"`
	CreatedAt     time.Time  `json:"created_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// CreateShareLinkRequest is the payload for generating a share link.
type CreateShareLinkRequest struct {
	AllowDownload bool `json:"allow_download"`
}

// SharedFunnel is what a share-link visitor receives: the canvas plus the
// permissions the hosting page resolves before mounting it.
type SharedFunnel struct {
	FunnelID      uuid.UUID  `json:"funnel_id"`
	Name          string     `json:"name"`
	CanvasData    CanvasData `json:"canvas_data"`
	ReadOnly      bool       `json:"read_only"`
	AllowDownload bool       `json:"allow_download"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
