package db

import (
	"strconv"
	"strings"

	"github.com/funnelboard/funnelboard/internal/db/migrations"
)

// SchemaVersion returns the highest goose version among the embedded
// migrations. The readiness endpoint reports it so operators can tell which
// schema a binary expects.
func SchemaVersion() int64 {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	var latest int64

	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if e.IsDir() || !ok {
			continue
		}

		if v, err := strconv.ParseInt(prefix, 10, 64); err == nil && v > latest {
			latest = v
		}
	}

	return latest
}
