package metadata

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the container format of an image
type Format string

const (
	FormatUnknown Format = ""
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatWebP    Format = "webp"
)

// formatFromName maps the format name reported by image.Decode to a Format
func formatFromName(name string) Format {
	switch strings.ToLower(name) {
	case "png":
		return FormatPNG
	case "jpeg", "jpg":
		return FormatJPEG
	case "gif":
		return FormatGIF
	case "bmp":
		return FormatBMP
	case "tiff":
		return FormatTIFF
	case "webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// KindFromPath resolves the destination container kind from a file extension.
// Only PNG and JPEG destinations can carry a payload.
func KindFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q is not a supported destination (output=%s)", ErrUnsupportedFormat, ext, path)
	}
}

func hasPNGExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}
