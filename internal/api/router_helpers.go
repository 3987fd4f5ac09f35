package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/middleware"
)

// getUserID extracts the authenticated user ID from the Gin context
// and validates it is a proper UUID.
func getUserID(c *gin.Context) string {
	uid := c.GetString(middleware.UserIDKey)

	if _, err := uuid.Parse(uid); err != nil {
		respondError(c, 400, ErrCodeInvalidRequest, "invalid user id")

		return ""
	}

	return uid
}

// uuidParam reads a UUID path parameter, responding 400 when it is malformed.
func uuidParam(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil {
		respondError(c, 400, ErrCodeInvalidRequest, fmt.Sprintf("%s must be a UUID", name))

		return "", false
	}

	return v, true
}

// pathParam reads a free-form path parameter such as a node id or share token.
func pathParam(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if err := validatePathID(v); err != nil {
		respondError(c, 400, ErrCodeInvalidRequest, fmt.Sprintf("%s: %s", name, err))

		return "", false
	}

	return v, true
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		if uid := c.GetString(middleware.UserIDKey); uid != "" {
			fields["user_id"] = uid
		}
		log.WithFields(fields).Info("request")
	}
}

// maxPaginationLimit caps the maximum number of items per page.
const maxPaginationLimit = 1000

// maxPaginationOffset caps the maximum offset for paginated queries.
const maxPaginationOffset = 100000

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	if v > maxPaginationLimit {
		return maxPaginationLimit
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}

// validatePathID checks that a path parameter ID is non-empty and within length limits.
func validatePathID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("id exceeds maximum length of 255")
	}
	return nil
}
