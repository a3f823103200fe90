package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"time"
)

// Options configures a Codec
type Options struct {
	// JPEGEncoder defaults to the standard library encoder
	JPEGEncoder JPEGEncoder
	// TextCompressionThreshold is the payload size in bytes from which PNG text is compressed; 0 disables compression
	TextCompressionThreshold int
	// SVGFallback is the render size for SVG sources without explicit dimensions
	SVGFallback SVGSize
}

// Codec reads and writes the generation info payload of PNG and JPEG images.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	pngDecoder           Decoder
	exifDecoder          Decoder
	jpegEncoder          JPEGEncoder
	compressionThreshold int
	svgFallback          SVGSize
}

// NewCodec creates a codec with the PNG-aware and EXIF-aware decoders
func NewCodec(opts Options) *Codec {
	encoder := opts.JPEGEncoder
	if encoder == nil {
		encoder = StandardJPEGEncoder{}
	}
	return &Codec{
		pngDecoder:           PNGDecoder{},
		exifDecoder:          ExifDecoder{},
		jpegEncoder:          encoder,
		compressionThreshold: opts.TextCompressionThreshold,
		svgFallback:          opts.SVGFallback,
	}
}

// PNGDecoder returns the decoder that exposes PNG text entries
func (c *Codec) PNGDecoder() Decoder {
	return c.pngDecoder
}

// ExifDecoder returns the decoder that exposes the EXIF block
func (c *Codec) ExifDecoder() Decoder {
	return c.exifDecoder
}

type extractionStep struct {
	decoder Decoder
	locate  Locator
}

// plan orders the decode/locate attempts for a file. The extension picks the
// first attempt; the PNG text lookup always runs last for misnamed PNG files.
func (c *Codec) plan(name string) []extractionStep {
	primary := extractionStep{decoder: c.exifDecoder, locate: LocateUserComment}
	if hasPNGExtension(name) {
		primary = extractionStep{decoder: c.pngDecoder, locate: LocateText}
	}
	return []extractionStep{
		primary,
		{decoder: c.pngDecoder, locate: LocateText},
	}
}

// PlanName names the extraction plan Extract uses for a file name. The same bytes
// can yield different results under different plans.
func PlanName(name string) string {
	if hasPNGExtension(name) {
		return "png"
	}
	return "exif"
}

// locatorsFor returns the lookup order for an already decoded image:
// PNG containers try the text chunk first, everything else the EXIF comment first.
func locatorsFor(format Format) []Locator {
	if format == FormatPNG {
		return []Locator{LocateText, LocateUserComment}
	}
	return []Locator{LocateUserComment, LocateText}
}

func locatePreDecoded(pre *Handle) (string, bool) {
	if pre == nil {
		return "", false
	}
	for _, locate := range locatorsFor(pre.Format) {
		if payload, ok := locate(pre); ok && payload != "" {
			return payload, true
		}
	}
	return "", false
}

// Extract returns the payload of the image at path. pre may carry an image the
// caller already decoded; it is searched first. Only non-empty payloads count.
func (c *Codec) Extract(path string, pre *Handle) (string, bool, error) {
	if payload, ok := locatePreDecoded(pre); ok {
		return payload, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, &DecodeError{Path: path, Err: err}
	}
	return c.extract(path, data)
}

// ExtractBytes is Extract for in-memory image bytes; name provides the extension hint
func (c *Codec) ExtractBytes(name string, data []byte, pre *Handle) (string, bool, error) {
	if payload, ok := locatePreDecoded(pre); ok {
		return payload, true, nil
	}
	return c.extract(name, data)
}

func (c *Codec) extract(name string, data []byte) (string, bool, error) {
	start := time.Now()
	handles := make(map[string]*Handle)
	failures := make(map[string]error)

	var firstErr error
	decodedAny := false

	for i, step := range c.plan(name) {
		decoderName := step.decoder.Name()
		h, seen := handles[decoderName]
		err, failed := failures[decoderName]
		if !seen && !failed {
			h, err = step.decoder.Decode(data)
			if err != nil {
				failures[decoderName] = err
			} else {
				handles[decoderName] = h
			}
		}
		if err != nil {
			slog.Debug("Codec: decode failed, skipping lookup",
				"path", name, "step", i, "decoder", decoderName, "error", err)
			if firstErr == nil {
				firstErr = &DecodeError{Path: name, Decoder: decoderName, Err: err}
			}
			continue
		}
		decodedAny = true

		if payload, ok := step.locate(h); ok && payload != "" {
			slog.Debug("Codec: payload found",
				"path", name, "step", i, "decoder", decoderName, "format", h.Format,
				"payload_size_bytes", len(payload), "duration_ms", time.Since(start).Milliseconds())
			return payload, true, nil
		}
	}

	if !decodedAny && firstErr != nil {
		return "", false, firstErr
	}
	slog.Debug("Codec: no payload found", "path", name, "duration_ms", time.Since(start).Milliseconds())
	return "", false, nil
}

// EmbedRequest describes a single embed operation
type EmbedRequest struct {
	// SourceName is only used in error messages
	SourceName  string
	Source      []byte
	Payload     string
	Destination string
	// Kind defaults to the kind implied by the destination extension
	Kind      Format
	Overwrite bool
	// Quality is the JPEG quality in [1,100]; ignored for PNG
	Quality int
}

// Embed writes an image carrying the payload to the destination
func (c *Codec) Embed(req EmbedRequest) error {
	kind := req.Kind
	if kind == FormatUnknown {
		var err error
		if kind, err = KindFromPath(req.Destination); err != nil {
			return err
		}
	}
	if err := validateEncodeRequest(kind, req.Quality, len(req.Payload)); err != nil {
		return err
	}
	if !req.Overwrite {
		if _, err := os.Lstat(req.Destination); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, req.Destination)
		}
	}

	data, err := c.Encode(req.SourceName, req.Source, req.Payload, kind, req.Quality)
	if err != nil {
		return err
	}

	if err := WriteFileAtomic(req.Destination, data, req.Overwrite); err != nil {
		return err
	}
	slog.Info("Codec: image written",
		"destination", req.Destination, "format", kind, "output_size_bytes", len(data))
	return nil
}

func validateEncodeRequest(kind Format, quality int, payloadSize int) error {
	switch kind {
	case FormatPNG:
		return nil
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			return fmt.Errorf("%w: invalid quality: %d (must be between 1 and 100)", ErrInvalidArgument, quality)
		}
		if payloadSize > MaxUserCommentSize {
			return fmt.Errorf("%w: payload of %d bytes does not fit in a JPEG EXIF segment (max %d)",
				ErrInvalidArgument, payloadSize, MaxUserCommentSize)
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot embed metadata into %q", ErrUnsupportedFormat, kind)
	}
}

// Encode returns the source image re-encoded as kind with the payload embedded
func (c *Codec) Encode(sourceName string, source []byte, payload string, kind Format, quality int) ([]byte, error) {
	if err := validateEncodeRequest(kind, quality, len(payload)); err != nil {
		return nil, err
	}

	raster, err := rasterizeSource(source, c.svgFallback)
	if err != nil {
		return nil, &DecodeError{Path: sourceName, Err: err}
	}
	img, format, err := decodePixels(raster)
	if err != nil {
		return nil, &DecodeError{Path: sourceName, Err: err}
	}
	slog.Debug("Codec: source decoded",
		"source", sourceName, "format", format, "target_format", kind,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	switch kind {
	case FormatPNG:
		var entries []TextEntry
		if format == FormatPNG {
			entries, _ = readTextEntries(raster)
		}
		return c.encodePNG(toBitmap(img), replaceText(entries, ParametersKeyword, payload))
	default:
		encoded, err := c.jpegEncoder.Encode(img, quality)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JPEG with %s encoder: %w", c.jpegEncoder.Name(), err)
		}
		segment, err := buildExifSegment([]byte(payload))
		if err != nil {
			return nil, err
		}
		return spliceExif(encoded, segment)
	}
}

func (c *Codec) encodePNG(img *image.NRGBA, entries []TextEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	chunks := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		chunk, err := entry.encodeChunk(c.compressionThreshold)
		if err != nil {
			if errors.Is(err, ErrInvalidArgument) && entry.Keyword != ParametersKeyword {
				slog.Warn("Codec: dropping unwritable PNG text entry", "keyword", entry.Keyword, "error", err)
				continue
			}
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return insertChunks(buf.Bytes(), chunks)
}
