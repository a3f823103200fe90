package command

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/sdimg/internal/metadata"
)

type recordingOpener struct {
	opened []string
}

func (o *recordingOpener) Open(path string) error {
	o.opened = append(o.opened, path)
	return nil
}

func newTestEnv() (*Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Env{
		Codec:  metadata.NewCodec(metadata.Options{}),
		Stdout: &stdout,
		Stderr: &stderr,
		Opener: &recordingOpener{},
	}, &stdout, &stderr
}

func plainPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// writeImage writes an image of the given kind to dir/name; an empty payload writes a plain image
func writeImage(t *testing.T, dir, name, payload string, kind metadata.Format) string {
	t.Helper()
	data := plainPNG(t)
	if payload != "" || kind == metadata.FormatJPEG {
		var err error
		data, err = metadata.NewCodec(metadata.Options{}).Encode(name, data, payload, kind, 90)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	return writeFile(t, dir, name, data)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
