// Package export encodes funnels as portable bundles: a short magic header
// followed by snappy-compressed JSON of models.ExportFormat.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/funnelboard/funnelboard/internal/models"
)

// ContentType is the media type bundles are served with.
const ContentType = "application/vnd.funnelboard.bundle"

// FileExt is the conventional file extension for bundles.
const FileExt = ".funnel"

// magic prefixes every compressed bundle; the trailing byte is the format revision.
var magic = []byte("FNLB\x01")

// ErrBadBundle is returned for input that is neither a bundle nor export JSON.
var ErrBadBundle = errors.New("not a funnel bundle")

// Marshal compresses an export into a bundle.
func Marshal(f *models.ExportFormat) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshalling export: %w", err)
	}

	out := make([]byte, 0, len(magic)+snappy.MaxEncodedLen(len(data)))
	out = append(out, magic...)

	return append(out, snappy.Encode(nil, data)...), nil
}

// Unmarshal reads a bundle. Plain export JSON is accepted too so bundles
// can be inspected and edited by hand.
func Unmarshal(b []byte) (*models.ExportFormat, error) {
	var data []byte

	switch trimmed := bytes.TrimSpace(b); {
	case bytes.HasPrefix(b, magic):
		decoded, err := snappy.Decode(nil, b[len(magic):])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadBundle, err)
		}

		data = decoded
	case len(trimmed) > 0 && trimmed[0] == '{':
		data = trimmed
	default:
		return nil, ErrBadBundle
	}

	var f models.ExportFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBundle, err)
	}

	return &f, nil
}
