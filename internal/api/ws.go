package api

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/middleware"
	"github.com/funnelboard/funnelboard/internal/ws"
)

var errTopicRevoked = errors.New("subscription no longer authorised")

// wsAccept upgrades the request and runs the client on topic until the
// connection closes or appCtx is cancelled.
func wsAccept(appCtx context.Context, c *gin.Context, log *logrus.Logger, hub *ws.Hub, origins []string, topic string, v ws.Validator) {
	// CORS origins double as WebSocket origin patterns; config rejects wildcards.
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:       origins,
		CompressionMode:      websocket.CompressionContextTakeover,
		CompressionThreshold: 128,
	})
	if err != nil {
		log.WithError(err).Error("websocket accept failed")

		return
	}

	client := ws.NewClient(hub, conn, topic, v)
	hub.Register(client)

	// Derive a context that cancels when either the server shuts down or the request ends.
	wsCtx, wsCancel := context.WithCancel(appCtx)
	go func() {
		select {
		case <-c.Request.Context().Done():
			wsCancel()
		case <-wsCtx.Done():
		}
	}()

	go client.WritePump(wsCtx)
	client.ReadPump(wsCtx)
	wsCancel()
}

// userWSHandler streams change events for every funnel the caller owns.
// The API key is re-checked periodically so a rotated key drops the socket.
func userWSHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, origins []string, lookup middleware.UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}

		apiKey := middleware.ExtractBearerToken(c)
		validator := ws.ValidatorFunc(func(ctx context.Context) error {
			uid, err := lookup.GetUserByAPIKey(ctx, apiKey)
			if err != nil {
				return err
			}
			if uid != userID {
				return errTopicRevoked
			}
			return nil
		})

		wsAccept(appCtx, c, log, hub, origins, ws.UserTopic(uuid.MustParse(userID)), validator)
	}
}

// sharedWSHandler streams change events for one shared funnel. Revoking the
// link ends the subscription at the next re-check.
func sharedWSHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, origins []string, shares ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := pathParam(c, "token")
		if !ok {
			return
		}

		view, err := shares.ResolveShared(c.Request.Context(), token)
		if err != nil {
			respondServiceError(c, log, "resolving share link", err)

			return
		}

		funnelID := view.FunnelID
		validator := ws.ValidatorFunc(func(ctx context.Context) error {
			v, err := shares.ResolveShared(ctx, token)
			if err != nil {
				return err
			}
			if v.FunnelID != funnelID {
				return errTopicRevoked
			}
			return nil
		})

		wsAccept(appCtx, c, log, hub, origins, ws.FunnelTopic(funnelID), validator)
	}
}
