package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/sdimg/internal/command"
	"github.com/jo-hoe/sdimg/internal/core"
)

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	tests := []struct {
		name     string
		args     []string
		expected command.ExitCode
	}{
		{name: "No arguments", args: nil, expected: command.ArgumentParseError},
		{name: "Unknown verb", args: []string{"resize"}, expected: command.ArgumentParseError},
		{name: "Read without inputs", args: []string{"read"}, expected: command.ArgumentParseError},
		{name: "Unknown flag", args: []string{"WRITE", "--bogus"}, expected: command.ArgumentParseError},
		{name: "Help", args: []string{"readpnginfo", "--help"}, expected: command.Success},
		{name: "Missing input file", args: []string{"read", "does-not-exist.png"}, expected: command.NoMetadataFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); command.ExitCode(got) != tt.expected {
				t.Errorf("Expected exit code %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestRun_InvalidCommandConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "commands:\n  - name: read\n    template: a.txt\n  - name: readpnginfo\n    template: b.txt\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	if got := run([]string{"read", "a.png"}); command.ExitCode(got) != command.ExecutionError {
		t.Errorf("Expected exit code %d, got %d", command.ExecutionError, got)
	}
}

func TestDefaultParams(t *testing.T) {
	config := core.DefaultConfig()
	config.Server.Port = 9000
	config.Commands = []core.CommandConfig{
		{Name: "read", Params: map[string]any{"template": "t.txt"}},
		{Name: "serve", Params: map[string]any{"catalog": true}},
	}

	read := defaultParams(config, command.ReadCommandName)
	if read["template"] != "t.txt" || len(read) != 1 {
		t.Errorf("Unexpected read params %v", read)
	}

	serve := defaultParams(config, command.ServeCommandName)
	if serve["port"] != 9000 || serve["catalog"] != true {
		t.Errorf("Unexpected serve params %v", serve)
	}
}

func TestPause(t *testing.T) {
	var out bytes.Buffer
	pause(map[string]any{"pause": true, "pauseMessage": "Press Enter"}, strings.NewReader("\n"), &out)
	if out.String() != "Press Enter" {
		t.Errorf("Expected pause message, got %q", out.String())
	}

	out.Reset()
	pause(map[string]any{"pauseMessage": "ignored"}, strings.NewReader(""), &out)
	if out.Len() != 0 {
		t.Errorf("Expected no output without --pause, got %q", out.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelWarn,
	}
	for level, expected := range tests {
		if got := parseLevel(level); got != expected {
			t.Errorf("parseLevel(%q): Expected %v, got %v", level, expected, got)
		}
	}
}
