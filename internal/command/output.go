package command

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jo-hoe/sdimg/internal/metadata"
)

const (
	// TemporaryPrefix routes read output to a generated file in the temp directory
	TemporaryPrefix = "?temporary-"

	tempNameLength  = 6
	maxTempAttempts = 10
)

// temporarySuffix reports whether dest is the temporary sentinel and returns its suffix
func temporarySuffix(dest string) (string, bool) {
	if !strings.HasPrefix(dest, TemporaryPrefix) {
		return "", false
	}
	return strings.TrimPrefix(dest, TemporaryPrefix), true
}

// nameSegment generates the random part of temporary file names
var nameSegment = randomSegment

// randomSegment returns n lowercase characters derived from a random UUID
func randomSegment(n int) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	s := base64.StdEncoding.EncodeToString(id[:])
	s = strings.NewReplacer("/", "_", "+", "-").Replace(s)
	return strings.ToLower(s[:n]), nil
}

// writeOutput persists text to dest and returns the path actually written
func writeOutput(dest, text string, overwrite bool) (string, error) {
	if suffix, ok := temporarySuffix(dest); ok {
		return writeTemporary(os.TempDir(), suffix, []byte(text))
	}
	if err := metadata.WriteFileAtomic(dest, []byte(text), overwrite); err != nil {
		return "", err
	}
	return dest, nil
}

// writeTemporary creates <random><suffix> in dir, retrying on name collisions
func writeTemporary(dir, suffix string, data []byte) (string, error) {
	if strings.ContainsAny(suffix, `/\`) {
		return "", fmt.Errorf("%w: temporary file suffix %q must not contain a path separator", metadata.ErrInvalidArgument, suffix)
	}

	for attempt := 1; attempt <= maxTempAttempts; attempt++ {
		segment, err := nameSegment(tempNameLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate temporary file name: %w", err)
		}
		path := filepath.Join(dir, segment+suffix)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			slog.Debug("Output: temporary name taken, retrying", "path", path, "attempt", attempt)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create temporary file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to write temporary file: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to close temporary file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: no free temporary file name after %d attempts", metadata.ErrAlreadyExists, maxTempAttempts)
}
