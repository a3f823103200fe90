package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jo-hoe/sdimg/internal/cache"
	"github.com/jo-hoe/sdimg/internal/metadata"
)

// ReadCommandName is the canonical name of the read command
const ReadCommandName = "readpnginfo"

// Entry is one input that carried a payload
type Entry struct {
	Path    string `json:"path"`
	Payload string `json:"payload"`
}

// ReadParams represents typed parameters for the read command
type ReadParams struct {
	Inputs       []string
	Output       string
	Overwrite    bool
	TemplatePath string
	Open         bool
}

// NewReadParamsFromMap creates ReadParams from a generic map
func NewReadParamsFromMap(params map[string]any) (*ReadParams, error) {
	inputs := GetStringSliceParam(params, "inputs")
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one input image is required", ErrUsage)
	}

	p := &ReadParams{
		Inputs:       inputs,
		Output:       GetStringParam(params, "output", ""),
		Overwrite:    GetBoolParam(params, "overwrite", false),
		TemplatePath: GetStringParam(params, "template", ""),
		Open:         GetBoolParam(params, "open", false),
	}
	return p, nil
}

// ReadCommand prints the payloads of a batch of images
type ReadCommand struct {
	name   string
	params *ReadParams
}

// NewReadCommand creates a new read command from parameters
func NewReadCommand(params map[string]any) (Command, error) {
	typedParams, err := NewReadParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ReadCommand{
		name:   "ReadCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ReadCommand) Name() string {
	return c.name
}

// GetParams returns the typed parameters
func (c *ReadCommand) GetParams() *ReadParams {
	return c.params
}

// Execute extracts the payload of every input in order, prints the formatted
// entries and optionally stores them in a file
func (c *ReadCommand) Execute(ctx context.Context, env *Env) error {
	start := time.Now()

	// both checks run before any input is touched
	tpl, err := LoadTemplate(c.params.TemplatePath)
	if err != nil {
		return err
	}
	if err := c.checkDestination(); err != nil {
		return err
	}

	entries := c.Extract(ctx, env)
	if len(entries) == 0 {
		slog.Debug("ReadCommand: no payload in any input", "inputs", len(c.params.Inputs))
		return ErrNoMetadata
	}

	formatted := make([]string, 0, len(entries))
	for _, entry := range entries {
		text, err := tpl.Format(entry.Path, entry.Payload)
		if err != nil {
			return err
		}
		formatted = append(formatted, text)
	}
	text := strings.Join(formatted, LineSeparator)

	if _, err := fmt.Fprint(env.Stdout, text+LineSeparator); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if env.Catalog != nil {
		c.record(env, entries)
	}

	slog.Debug("ReadCommand: complete",
		"inputs", len(c.params.Inputs), "entries", len(entries), "duration_ms", time.Since(start).Milliseconds())

	if c.params.Output == "" {
		if c.params.Open {
			slog.Debug("ReadCommand: nothing to open without an output file")
		}
		return nil
	}
	written, err := writeOutput(c.params.Output, text, c.params.Overwrite)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c.params.Output, err)
	}
	slog.Info("ReadCommand: output written", "path", written, "size_bytes", len(text))

	if c.params.Open {
		if env.Opener == nil {
			return errors.New("no shell opener configured")
		}
		if err := env.Opener.Open(written); err != nil {
			return fmt.Errorf("failed to open %s: %w", written, err)
		}
	}
	return nil
}

func (c *ReadCommand) checkDestination() error {
	dest := c.params.Output
	if dest == "" || c.params.Overwrite {
		return nil
	}
	if _, ok := temporarySuffix(dest); ok {
		return nil
	}
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %s", metadata.ErrAlreadyExists, dest)
	}
	return nil
}

// Extract returns the entries of all inputs that carry a payload, in input order.
// Unreadable inputs are reported on the error stream and skipped.
func (c *ReadCommand) Extract(ctx context.Context, env *Env) []Entry {
	entries := make([]Entry, 0, len(c.params.Inputs))
	for _, path := range c.params.Inputs {
		payload, found, err := extractFile(ctx, env, path)
		if err != nil {
			var decodeErr *metadata.DecodeError
			if !errors.As(err, &decodeErr) {
				slog.Warn("ReadCommand: unexpected extraction error", "path", path, "error", err)
			}
			_, _ = fmt.Fprintf(env.Stderr, "Error: %v\n", err)
			continue
		}
		if !found {
			slog.Debug("ReadCommand: no payload", "path", path)
			continue
		}
		entries = append(entries, Entry{Path: path, Payload: payload})
	}
	return entries
}

// extractFile reads one input and extracts its payload through the cache, if any
func extractFile(ctx context.Context, env *Env, path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, &metadata.DecodeError{Path: path, Err: err}
	}
	return cache.Extract(ctx, env.Cache, env.Codec, path, data)
}

func (c *ReadCommand) record(env *Env, entries []Entry) {
	for _, entry := range entries {
		id, err := env.Catalog.Record(entry.Path, entry.Payload)
		if err != nil {
			slog.Warn("ReadCommand: failed to record entry in catalog", "path", entry.Path, "error", err)
			continue
		}
		slog.Debug("ReadCommand: entry recorded", "path", entry.Path, "id", id)
	}
}

func init() {
	registerCLI(ReadCommandName, cliSpec{
		usage: "read [flags] <image>...",
		flags: []flagSpec{
			{name: "output", shorthand: "o", param: "output", kind: flagString,
				usage: `output file (UTF-8, no BOM); "?temporary-<suffix>" writes a new file in the temp directory`},
			{name: "overwrite", param: "overwrite", kind: flagBool, usage: "replace an existing output file"},
			{name: "template", shorthand: "t", param: "template", kind: flagString,
				usage: `template file; {0} is the file path, {1} the payload (default "{0}\n---\n{1}\n")`},
			{name: "open", param: "open", kind: flagBool, usage: "open the output file when done"},
			{name: "catalog", param: "catalog", kind: flagBool, usage: "record every entry in the catalog"},
		},
		positional: "inputs",
	})
	// Register the command in the default registry
	if err := DefaultRegistry.Register(ReadCommandName, NewReadCommand, "read"); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ReadCommandName, err))
	}
}
