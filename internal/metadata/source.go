package metadata

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// SVGSize is the render size used for SVG sources without explicit width/height
type SVGSize struct {
	Width  int
	Height int
}

// rasterizeSource turns SVG sources into PNG bytes; raster sources pass through unchanged
func rasterizeSource(data []byte, fallback SVGSize) ([]byte, error) {
	if !isSVGData(data) {
		return data, nil
	}

	w, h, ok := parseSvgExplicitSize(data)
	if !ok {
		if fallback.Width <= 0 || fallback.Height <= 0 {
			return nil, fmt.Errorf("SVG fallback size not set; cannot render SVG without explicit size")
		}
		w, h = fallback.Width, fallback.Height
		slog.Debug("Source: SVG lacks explicit size; using fallback", "width", w, "height", h)
	}

	out, err := renderSVGToPNG(data, w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to render SVG to PNG: %w", err)
	}
	slog.Debug("Source: SVG render complete", "width", w, "height", h, "output_size_bytes", len(out))
	return out, nil
}

// toBitmap copies any decoded image into a plain NRGBA bitmap so that every
// source, JPEG included, reaches the PNG encoder in the same pixel layout
func toBitmap(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// isSVGData checks for an "<svg" tag or the SVG namespace in the first 4KB
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// parseSvgExplicitSize extracts width and height attributes from the <svg> start tag.
// viewBox is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr reads the leading integer of a quoted attribute value, e.g. width="123px"
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := -1
	for from := 0; from < len(tag); {
		k := strings.Index(tag[from:], attr)
		if k < 0 {
			break
		}
		k += from
		// skip matches inside longer names such as stroke-width
		if k == 0 || tag[k-1] == ' ' || tag[k-1] == '\t' || tag[k-1] == '\n' || tag[k-1] == '\r' {
			rest := strings.TrimLeft(tag[k+len(attr):], " \t\r\n")
			if strings.HasPrefix(rest, "=") {
				pos = k
				break
			}
		}
		from = k + len(attr)
	}
	if pos < 0 {
		return 0, false
	}

	q := strings.IndexAny(tag[pos:], "\"'")
	if q < 0 {
		return 0, false
	}
	start := pos + q + 1
	quote := tag[pos+q]
	val := tag[start:]
	if end := strings.IndexByte(val, quote); end >= 0 {
		val = val[:end]
	}

	num, found := 0, false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else if found {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}

func renderSVGToPNG(svgData []byte, targetW, targetH int) ([]byte, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode rendered SVG as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
