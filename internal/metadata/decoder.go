package metadata

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Handle is a decoded image together with its container format and the
// metadata view of the decoder that produced it.
type Handle struct {
	Image  image.Image
	Format Format

	decoder string
	text    []TextEntry
	exif    *exif.Exif
}

// Decoder decodes image bytes into a Handle
type Decoder interface {
	Name() string
	Decode(data []byte) (*Handle, error)
}

// Locator finds the payload inside a decoded handle
type Locator func(h *Handle) (string, bool)

// LocateText finds the payload in the PNG text entries of the handle
func LocateText(h *Handle) (string, bool) {
	if h == nil || h.Format != FormatPNG {
		return "", false
	}
	entry, ok := findText(h.text, ParametersKeyword)
	if !ok {
		return "", false
	}
	return entry.Text, true
}

// LocateUserComment finds the payload in the EXIF user comment of the handle
func LocateUserComment(h *Handle) (string, bool) {
	if h == nil {
		return "", false
	}
	return userComment(h.exif)
}

func decodePixels(data []byte) (image.Image, Format, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, FormatUnknown, err
	}
	return img, formatFromName(name), nil
}

// PNGDecoder decodes pixels and, for PNG containers, the text chunks
type PNGDecoder struct{}

func (PNGDecoder) Name() string {
	return "png"
}

func (d PNGDecoder) Decode(data []byte) (*Handle, error) {
	img, format, err := decodePixels(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	h := &Handle{Image: img, Format: format, decoder: d.Name()}
	if format == FormatPNG {
		entries, err := readTextEntries(data)
		if err != nil {
			// pixels decoded fine, so keep whatever text was read before the fault
			slog.Debug("PNGDecoder: incomplete text chunk scan", "error", err)
		}
		h.text = entries
	}
	return h, nil
}

// ExifDecoder decodes pixels and the embedded EXIF block, if any
type ExifDecoder struct{}

func (ExifDecoder) Name() string {
	return "exif"
}

func (d ExifDecoder) Decode(data []byte) (*Handle, error) {
	img, format, err := decodePixels(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	h := &Handle{Image: img, Format: format, decoder: d.Name()}
	x, err := exif.Decode(bytes.NewReader(data))
	switch {
	case err == nil:
		h.exif = x
	case x != nil && !exif.IsCriticalError(err):
		slog.Debug("ExifDecoder: non critical EXIF error", "error", err)
		h.exif = x
	default:
		slog.Debug("ExifDecoder: no usable EXIF block", "format", format, "error", err)
	}
	return h, nil
}
