package cache

import (
	"context"
	"log/slog"

	"github.com/jo-hoe/sdimg/internal/metadata"
)

// Extractor is the part of the codec that runs behind the cache
type Extractor interface {
	ExtractBytes(name string, data []byte, pre *metadata.Handle) (string, bool, error)
}

// Extract returns the payload of the image bytes, asking c before x.
// c may be nil. Cache failures are logged and never fail the extraction.
func Extract(ctx context.Context, c Cache, x Extractor, name string, data []byte) (string, bool, error) {
	if c == nil {
		return x.ExtractBytes(name, data, nil)
	}

	key := extractionKey(name, data)
	value, hit, err := c.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("Cache: lookup failed", "name", name, "error", err)
	case hit && value == Absent:
		slog.Debug("Cache: cached miss", "name", name)
		return "", false, nil
	case hit:
		slog.Debug("Cache: hit", "name", name)
		return value, true, nil
	}

	payload, found, err := x.ExtractBytes(name, data, nil)
	if err != nil {
		// decode failures are not cached; the file may be fixed later
		return "", false, err
	}

	value = payload
	if !found {
		value = Absent
	}
	if err := c.Set(ctx, key, value); err != nil {
		slog.Warn("Cache: store failed", "name", name, "error", err)
	}
	return payload, found, nil
}

// extractionKey combines the content hash with the plan picked by the file name
func extractionKey(name string, data []byte) string {
	return Key(data) + ":" + metadata.PlanName(name)
}
