package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/sdimg/internal/metadata"
)

func newWriteCommand(t *testing.T, params map[string]any) *WriteCommand {
	t.Helper()
	cmd, err := NewWriteCommand(params)
	if err != nil {
		t.Fatalf("NewWriteCommand failed: %v", err)
	}
	return cmd.(*WriteCommand)
}

func TestNewWriteParamsFromMap(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{name: "Missing input", params: map[string]any{"payload": "p.txt", "output": "o.png"}},
		{name: "Missing payload", params: map[string]any{"input": "i.png", "output": "o.png"}},
		{name: "Missing output", params: map[string]any{"input": "i.png", "payload": "p.txt"}},
		{name: "Empty output", params: map[string]any{"input": "i.png", "payload": "p.txt", "output": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWriteParamsFromMap(tt.params); !errors.Is(err, ErrUsage) {
				t.Errorf("Expected ErrUsage, got %v", err)
			}
		})
	}

	p, err := NewWriteParamsFromMap(map[string]any{"input": "i.png", "payload": "p.txt", "output": "o.jpg"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Quality != defaultQuality {
		t.Errorf("Expected default quality %d, got %d", defaultQuality, p.Quality)
	}
}

func TestWriteCommand_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		payload []byte
		want    string
	}{
		{name: "PNG", output: "out.png", payload: []byte("Steps: 20\nSampler: Euler"), want: "Steps: 20\nSampler: Euler"},
		{name: "JPEG", output: "out.jpg", payload: []byte("prompt ✓"), want: "prompt ✓"},
		{name: "UTF-8 BOM stripped", output: "out.png", payload: []byte("\xEF\xBB\xBFbom"), want: "bom"},
		{name: "UTF-16 payload file", output: "out.jpeg", payload: []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}, want: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeFile(t, dir, "in.png", plainPNG(t))
			payload := writeFile(t, dir, "payload.txt", tt.payload)
			output := filepath.Join(dir, tt.output)

			env, stdout, _ := newTestEnv()
			cmd := newWriteCommand(t, map[string]any{"input": input, "payload": payload, "output": output})
			if err := cmd.Execute(context.Background(), env); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if stdout.Len() != 0 {
				t.Errorf("Expected nothing on stdout, got %q", stdout.String())
			}

			got, found, err := env.Codec.Extract(output, nil)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if !found || got != tt.want {
				t.Errorf("Expected %q, got %q (found=%v)", tt.want, got, found)
			}
		})
	}
}

func TestWriteCommand_EmptyPayloadClears(t *testing.T) {
	dir := t.TempDir()
	input := writeImage(t, dir, "in.png", "old payload", metadata.FormatPNG)
	output := filepath.Join(dir, "out.png")

	env, _, _ := newTestEnv()
	cmd := newWriteCommand(t, map[string]any{"input": input, "payload": EmptyPayload, "output": output})
	if err := cmd.Execute(context.Background(), env); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, found, err := env.Codec.Extract(output, nil); err != nil || found {
		t.Errorf("Expected no payload, got found=%v err=%v", found, err)
	}
}

func TestWriteCommand_UnsupportedDestination(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.png", plainPNG(t))
	output := filepath.Join(dir, "out.gif")

	env, _, _ := newTestEnv()
	// the payload file does not exist; the destination is checked first
	cmd := newWriteCommand(t, map[string]any{"input": input, "payload": filepath.Join(dir, "missing.txt"), "output": output})
	err := cmd.Execute(context.Background(), env)
	if !errors.Is(err, metadata.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("Expected no destination file")
	}
}

func TestWriteCommand_ExistingDestination(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.png", plainPNG(t))
	payload := writeFile(t, dir, "payload.txt", []byte("new"))
	output := writeFile(t, dir, "out.png", []byte("taken"))

	env, _, _ := newTestEnv()
	cmd := newWriteCommand(t, map[string]any{"input": input, "payload": payload, "output": output})
	if err := cmd.Execute(context.Background(), env); !errors.Is(err, metadata.ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got %v", err)
	}

	cmd = newWriteCommand(t, map[string]any{"input": input, "payload": payload, "output": output, "overwrite": true})
	if err := cmd.Execute(context.Background(), env); err != nil {
		t.Fatalf("Execute with overwrite failed: %v", err)
	}
	if got, found, _ := env.Codec.Extract(output, nil); !found || got != "new" {
		t.Errorf("Expected 'new', got %q", got)
	}
}

func TestWriteCommand_UnreadableInput(t *testing.T) {
	dir := t.TempDir()
	payload := writeFile(t, dir, "payload.txt", []byte("x"))

	env, _, _ := newTestEnv()
	cmd := newWriteCommand(t, map[string]any{
		"input": filepath.Join(dir, "missing.png"), "payload": payload, "output": filepath.Join(dir, "out.png"),
	})
	err := cmd.Execute(context.Background(), env)
	if !metadata.IsDecodeError(err) {
		t.Errorf("Expected DecodeError, got %v", err)
	}
	if ExitCodeFor(err) != ExecutionError {
		t.Errorf("Expected ExecutionError status, got %d", ExitCodeFor(err))
	}
}

func TestWriteCommand_InvalidQuality(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.png", plainPNG(t))
	payload := writeFile(t, dir, "payload.txt", []byte("x"))

	env, _, _ := newTestEnv()
	cmd := newWriteCommand(t, map[string]any{
		"input": input, "payload": payload, "output": filepath.Join(dir, "out.jpg"), "quality": 0,
	})
	if err := cmd.Execute(context.Background(), env); !errors.Is(err, metadata.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewServeParamsFromMap(t *testing.T) {
	p, err := NewServeParamsFromMap(map[string]any{})
	if err != nil || p.Port != defaultPort {
		t.Errorf("Expected default port %d, got %+v (err=%v)", defaultPort, p, err)
	}
	for _, port := range []int{0, -1, 70000} {
		if _, err := NewServeParamsFromMap(map[string]any{"port": port}); !errors.Is(err, ErrUsage) {
			t.Errorf("Expected ErrUsage for port %d, got %v", port, err)
		}
	}
}
