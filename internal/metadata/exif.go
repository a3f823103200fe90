package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/tajtiattila/metadata/jpeg"
	"golang.org/x/text/encoding/unicode"
)

const (
	// UserCommentTag is the EXIF tag id of the "UserComment" field
	UserCommentTag uint16 = 0x9286
	exifIFDPointer uint16 = 0x8769

	tiffTypeLong      uint16 = 4
	tiffTypeUndefined uint16 = 7

	markerSOI  = 0xD8
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1

	// an APP1 segment length field covers itself, so data is capped at 0xFFFF-2
	maxSegmentData = 0xFFFF - 2

	ifd0Offset    = 8
	ifdEntrySize  = 12
	exifIFDOffset = ifd0Offset + 2 + ifdEntrySize + 4
	valueOffset   = exifIFDOffset + 2 + ifdEntrySize + 4

	// MaxUserCommentSize is the largest payload that fits in one APP1 segment
	MaxUserCommentSize = maxSegmentData - 6 - valueOffset
)

var (
	exifHeader = []byte("Exif\x00\x00")

	charCodeASCII   = []byte("ASCII\x00\x00\x00")
	charCodeUnicode = []byte("UNICODE\x00")
)

// userComment reads the EXIF user comment from a parsed EXIF block
func userComment(x *exif.Exif) (string, bool) {
	if x == nil {
		return "", false
	}
	tag, err := x.Get(exif.UserComment)
	if err != nil || tag == nil {
		return "", false
	}
	return decodeUserComment(tag.Val), true
}

// decodeUserComment interprets raw user comment bytes.
// Bytes without a character code prefix are UTF-8; ASCII and UNICODE prefixes
// written by other tools are honoured.
func decodeUserComment(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, charCodeASCII):
		return string(bytes.TrimRight(raw[len(charCodeASCII):], "\x00"))
	case bytes.HasPrefix(raw, charCodeUnicode):
		body := raw[len(charCodeUnicode):]
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(body)
		if err != nil {
			return string(body)
		}
		return string(bytes.TrimRight(decoded, "\x00"))
	default:
		return string(raw)
	}
}

// buildExifSegment builds the APP1 payload ("Exif\0\0" + big-endian TIFF) holding
// IFD0 with an Exif IFD pointer and an Exif IFD with the user comment.
func buildExifSegment(comment []byte) ([]byte, error) {
	if len(comment) > MaxUserCommentSize {
		return nil, fmt.Errorf("%w: payload of %d bytes does not fit in a JPEG EXIF segment (max %d)",
			ErrInvalidArgument, len(comment), MaxUserCommentSize)
	}

	be := binary.BigEndian
	tiff := make([]byte, valueOffset, valueOffset+len(comment))

	// header
	copy(tiff[0:2], "MM")
	be.PutUint16(tiff[2:], 42)
	be.PutUint32(tiff[4:], ifd0Offset)

	// IFD0: one entry pointing to the Exif IFD
	be.PutUint16(tiff[ifd0Offset:], 1)
	entry := tiff[ifd0Offset+2:]
	be.PutUint16(entry[0:], exifIFDPointer)
	be.PutUint16(entry[2:], tiffTypeLong)
	be.PutUint32(entry[4:], 1)
	be.PutUint32(entry[8:], exifIFDOffset)
	be.PutUint32(tiff[ifd0Offset+2+ifdEntrySize:], 0)

	// Exif IFD: the user comment, inline when it fits in four bytes
	be.PutUint16(tiff[exifIFDOffset:], 1)
	entry = tiff[exifIFDOffset+2:]
	be.PutUint16(entry[0:], UserCommentTag)
	be.PutUint16(entry[2:], tiffTypeUndefined)
	be.PutUint32(entry[4:], uint32(len(comment)))
	if len(comment) <= 4 {
		copy(entry[8:12], comment)
	} else {
		be.PutUint32(entry[8:], valueOffset)
		tiff = append(tiff, comment...)
	}
	be.PutUint32(tiff[exifIFDOffset+2+ifdEntrySize:], 0)

	segment := make([]byte, 0, len(exifHeader)+len(tiff))
	segment = append(segment, exifHeader...)
	return append(segment, tiff...), nil
}

// spliceExif inserts the APP1 segment into an encoded JPEG after SOI and any APP0
// (JFIF) segments. Existing APP1 Exif segments are dropped.
func spliceExif(jpegData []byte, exifSegment []byte) ([]byte, error) {
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != markerSOI {
		return nil, errors.New("missing JPEG SOI marker")
	}
	if len(exifSegment) > maxSegmentData {
		return nil, fmt.Errorf("%w: EXIF segment too large", ErrInvalidArgument)
	}

	scanner, err := jpeg.NewScanner(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("failed to scan JPEG: %w", err)
	}

	var out bytes.Buffer
	out.Grow(len(jpegData) + len(exifSegment) + 4)
	out.Write(jpegData[:2])

	inserted := false
	insert := func() error {
		inserted = true
		return jpeg.WriteChunk(&out, markerAPP1, exifSegment)
	}

	for scanner.Next() {
		p, err := scanner.ReadChunk()
		if err != nil {
			return nil, fmt.Errorf("failed to read JPEG segment: %w", err)
		}
		marker, isMarker := chunkMarker(p)
		if isMarker && isAPPn(marker) && !chunkComplete(p) {
			return nil, fmt.Errorf("truncated APP%d segment", marker-markerAPP0)
		}

		switch {
		case isMarker && marker == markerSOI:
			continue
		case isMarker && marker == markerAPP0:
			// JFIF stays ahead of Exif
		case isMarker && marker == markerAPP1 && bytes.HasPrefix(p[4:], exifHeader):
			if !inserted {
				if err := insert(); err != nil {
					return nil, fmt.Errorf("failed to write EXIF segment: %w", err)
				}
			}
			continue
		case !inserted:
			if err := insert(); err != nil {
				return nil, fmt.Errorf("failed to write EXIF segment: %w", err)
			}
		}
		out.Write(p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan JPEG: %w", err)
	}
	if !inserted {
		if err := insert(); err != nil {
			return nil, fmt.Errorf("failed to write EXIF segment: %w", err)
		}
	}
	return out.Bytes(), nil
}

// chunkMarker returns the marker of a scanned chunk; entropy-coded data has none
func chunkMarker(p []byte) (byte, bool) {
	if len(p) < 2 || p[0] != 0xFF || p[1] == 0x00 || p[1] == 0xFF {
		return 0, false
	}
	return p[1], true
}

func isAPPn(marker byte) bool {
	return marker >= markerAPP0 && marker <= 0xEF
}

// chunkComplete reports whether p holds as many bytes as its length field claims
func chunkComplete(p []byte) bool {
	if len(p) < 4 {
		return false
	}
	length := int(p[2])<<8 | int(p[3])
	return length >= 2 && len(p) == 2+length
}
