package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"

	"golang.org/x/text/encoding/charmap"
)

// ParametersKeyword is the PNG text keyword that carries the generation info
const ParametersKeyword = "parameters"

const maxKeywordLength = 79

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// TextEntry is a single PNG text chunk (tEXt, zTXt or iTXt)
type TextEntry struct {
	Keyword           string
	Text              string
	Language          string
	TranslatedKeyword string
	// International marks entries that came from (or must be written as) iTXt
	International bool
}

// hasPNGSignature checks whether data begins with the 8 byte PNG signature
func hasPNGSignature(data []byte) bool {
	return len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// ReadText returns the first text entry stored under keyword.
// found is true for an entry with an empty text as well.
func ReadText(data []byte, keyword string) (text string, found bool, err error) {
	entries, err := readTextEntries(data)
	if err != nil {
		return "", false, err
	}
	if entry, ok := findText(entries, keyword); ok {
		return entry.Text, true, nil
	}
	return "", false, nil
}

func findText(entries []TextEntry, keyword string) (TextEntry, bool) {
	for _, entry := range entries {
		if entry.Keyword == keyword {
			return entry, true
		}
	}
	return TextEntry{}, false
}

// readTextEntries walks the PNG chunk list and collects text chunks in file order.
// Malformed text chunks are skipped; a broken chunk structure is an error.
func readTextEntries(data []byte) ([]TextEntry, error) {
	if !hasPNGSignature(data) {
		return nil, errors.New("missing PNG signature")
	}

	var entries []TextEntry
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := uint64(binary.BigEndian.Uint32(data[pos:]))
		chunkType := string(data[pos+4 : pos+8])
		start := uint64(pos + 8)
		end := start + length
		if end+4 > uint64(len(data)) {
			return entries, fmt.Errorf("truncated %s chunk at offset %d", chunkType, pos)
		}
		body := data[start:end]

		var (
			entry TextEntry
			err   error
			isText = true
		)
		switch chunkType {
		case "tEXt":
			entry, err = parseTEXt(body)
		case "zTXt":
			entry, err = parseZTXt(body)
		case "iTXt":
			entry, err = parseITXt(body)
		case "IEND":
			return entries, nil
		default:
			isText = false
		}
		if isText {
			if err != nil {
				slog.Debug("PNG text: skipping malformed chunk", "chunk_type", chunkType, "offset", pos, "error", err)
			} else {
				entries = append(entries, entry)
			}
		}

		pos = int(end) + 4 // skip CRC
	}
	return entries, nil
}

func splitKeyword(body []byte) (string, []byte, error) {
	i := bytes.IndexByte(body, 0)
	if i < 1 || i > maxKeywordLength {
		return "", nil, fmt.Errorf("invalid keyword length %d", i)
	}
	keyword, err := decodeLatin1(body[:i])
	if err != nil {
		return "", nil, err
	}
	return keyword, body[i+1:], nil
}

func parseTEXt(body []byte) (TextEntry, error) {
	keyword, rest, err := splitKeyword(body)
	if err != nil {
		return TextEntry{}, err
	}
	text, err := decodeLatin1(rest)
	if err != nil {
		return TextEntry{}, err
	}
	return TextEntry{Keyword: keyword, Text: text}, nil
}

func parseZTXt(body []byte) (TextEntry, error) {
	keyword, rest, err := splitKeyword(body)
	if err != nil {
		return TextEntry{}, err
	}
	if len(rest) < 1 {
		return TextEntry{}, errors.New("missing compression method")
	}
	if rest[0] != 0 {
		return TextEntry{}, fmt.Errorf("unknown PNG compression method %d", rest[0])
	}
	raw, err := inflate(rest[1:])
	if err != nil {
		return TextEntry{}, fmt.Errorf("failed to decompress zTXt: %w", err)
	}
	text, err := decodeLatin1(raw)
	if err != nil {
		return TextEntry{}, err
	}
	return TextEntry{Keyword: keyword, Text: text}, nil
}

func parseITXt(body []byte) (TextEntry, error) {
	keyword, rest, err := splitKeyword(body)
	if err != nil {
		return TextEntry{}, err
	}
	if len(rest) < 2 {
		return TextEntry{}, errors.New("missing compression fields")
	}
	compressed, method := rest[0] == 1, rest[1]
	rest = rest[2:]

	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return TextEntry{}, errors.New("unterminated language tag")
	}
	language := string(rest[:i])
	rest = rest[i+1:]

	i = bytes.IndexByte(rest, 0)
	if i < 0 {
		return TextEntry{}, errors.New("unterminated translated keyword")
	}
	translated := string(rest[:i])
	rest = rest[i+1:]

	if compressed {
		if method != 0 {
			return TextEntry{}, fmt.Errorf("unknown PNG compression method %d", method)
		}
		if rest, err = inflate(rest); err != nil {
			return TextEntry{}, fmt.Errorf("failed to decompress iTXt: %w", err)
		}
	}

	return TextEntry{
		Keyword:           keyword,
		Text:              string(rest),
		Language:          language,
		TranslatedKeyword: translated,
		International:     true,
	}, nil
}

func inflate(data []byte) ([]byte, error) {
	z, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = z.Close()
	}()
	return io.ReadAll(z)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	z := zlib.NewWriter(&buf)
	if _, err := z.Write(data); err != nil {
		return nil, err
	}
	if err := z.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeLatin1(b []byte) (string, error) {
	return charmap.ISO8859_1.NewDecoder().String(string(b))
}

// encodeLatin1 fails when s holds a rune outside ISO-8859-1
func encodeLatin1(s string) ([]byte, error) {
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
}

// encodeChunk serialises the entry as a complete PNG chunk.
// Entries that are not Latin-1 representable (or contain NUL) are written as iTXt.
// Text at or above compressionThreshold bytes is compressed; 0 disables compression.
func (e TextEntry) encodeChunk(compressionThreshold int) ([]byte, error) {
	if len(e.Keyword) < 1 || len(e.Keyword) > maxKeywordLength || bytes.IndexByte([]byte(e.Keyword), 0) >= 0 {
		return nil, fmt.Errorf("%w: invalid PNG text keyword %q", ErrInvalidArgument, e.Keyword)
	}
	keyword, err := encodeLatin1(e.Keyword)
	if err != nil {
		return nil, fmt.Errorf("%w: PNG text keyword %q is not Latin-1", ErrInvalidArgument, e.Keyword)
	}
	compress := compressionThreshold > 0 && len(e.Text) >= compressionThreshold

	if !e.International && e.Language == "" && e.TranslatedKeyword == "" {
		if latin1, err := encodeLatin1(e.Text); err == nil && bytes.IndexByte(latin1, 0) < 0 {
			body := append(append([]byte{}, keyword...), 0)
			if !compress {
				return buildChunk("tEXt", append(body, latin1...)), nil
			}
			packed, err := deflate(latin1)
			if err != nil {
				return nil, fmt.Errorf("failed to compress zTXt: %w", err)
			}
			body = append(body, 0) // compression method
			return buildChunk("zTXt", append(body, packed...)), nil
		}
	}

	text := []byte(e.Text)
	var flag byte
	if compress {
		packed, err := deflate(text)
		if err != nil {
			return nil, fmt.Errorf("failed to compress iTXt: %w", err)
		}
		text, flag = packed, 1
	}

	body := append(append([]byte{}, keyword...), 0, flag, 0)
	body = append(body, e.Language...)
	body = append(body, 0)
	body = append(body, e.TranslatedKeyword...)
	body = append(body, 0)
	return buildChunk("iTXt", append(body, text...)), nil
}

// buildChunk frames data as length, type, data and CRC
func buildChunk(chunkType string, data []byte) []byte {
	chunk := make([]byte, 8+len(data)+4)
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	copy(chunk[4:8], chunkType)
	copy(chunk[8:], data)
	binary.BigEndian.PutUint32(chunk[8+len(data):], crc32.ChecksumIEEE(chunk[4:8+len(data)]))
	return chunk
}

// insertChunks places the chunks directly after IHDR, where text chunks are allowed
func insertChunks(pngData []byte, chunks [][]byte) ([]byte, error) {
	if !hasPNGSignature(pngData) || len(pngData) < len(pngSignature)+8 {
		return nil, errors.New("missing PNG signature")
	}
	if string(pngData[12:16]) != "IHDR" {
		return nil, errors.New("first PNG chunk is not IHDR")
	}
	insertAt := len(pngSignature) + 8 + int(binary.BigEndian.Uint32(pngData[8:12])) + 4
	if insertAt > len(pngData) {
		return nil, errors.New("truncated IHDR chunk")
	}

	size := len(pngData)
	for _, c := range chunks {
		size += len(c)
	}
	out := make([]byte, 0, size)
	out = append(out, pngData[:insertAt]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, pngData[insertAt:]...), nil
}

// replaceText drops every entry under keyword and appends a single new one
func replaceText(entries []TextEntry, keyword, text string) []TextEntry {
	out := make([]TextEntry, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.Keyword != keyword {
			out = append(out, entry)
		}
	}
	return append(out, TextEntry{Keyword: keyword, Text: text})
}
