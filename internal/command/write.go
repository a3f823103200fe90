package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jo-hoe/sdimg/internal/metadata"
)

const (
	// WriteCommandName is the canonical name of the write command
	WriteCommandName = "writepnginfo"

	// EmptyPayload as payload source clears the payload instead of naming a file
	EmptyPayload = "?empty"

	defaultQuality = 75
)

// WriteParams represents typed parameters for the write command
type WriteParams struct {
	Input     string
	Payload   string
	Output    string
	Overwrite bool
	Quality   int
}

// NewWriteParamsFromMap creates WriteParams from a generic map
func NewWriteParamsFromMap(params map[string]any) (*WriteParams, error) {
	if err := ValidateRequiredParams(params, []string{"input", "payload", "output"}); err != nil {
		return nil, err
	}

	p := &WriteParams{
		Input:     GetStringParam(params, "input", ""),
		Payload:   GetStringParam(params, "payload", ""),
		Output:    GetStringParam(params, "output", ""),
		Overwrite: GetBoolParam(params, "overwrite", false),
		Quality:   GetIntParam(params, "quality", defaultQuality),
	}
	if p.Input == "" || p.Payload == "" || p.Output == "" {
		return nil, fmt.Errorf("%w: input, payload and output must not be empty", ErrUsage)
	}
	return p, nil
}

// WriteCommand embeds a payload into one image and writes the result
type WriteCommand struct {
	name   string
	params *WriteParams
}

// NewWriteCommand creates a new write command from parameters
func NewWriteCommand(params map[string]any) (Command, error) {
	typedParams, err := NewWriteParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &WriteCommand{
		name:   "WriteCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *WriteCommand) Name() string {
	return c.name
}

// GetParams returns the typed parameters
func (c *WriteCommand) GetParams() *WriteParams {
	return c.params
}

// Execute resolves the destination kind and the payload, then embeds
func (c *WriteCommand) Execute(ctx context.Context, env *Env) error {
	kind, err := metadata.KindFromPath(c.params.Output)
	if err != nil {
		return err
	}

	payload, err := resolvePayload(c.params.Payload)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(c.params.Input)
	if err != nil {
		return &metadata.DecodeError{Path: c.params.Input, Err: err}
	}

	slog.Debug("WriteCommand: embedding payload",
		"input", c.params.Input, "output", c.params.Output, "format", kind,
		"payload_size_bytes", len(payload), "quality", c.params.Quality)

	return env.Codec.Embed(metadata.EmbedRequest{
		SourceName:  c.params.Input,
		Source:      source,
		Payload:     payload,
		Destination: c.params.Output,
		Kind:        kind,
		Overwrite:   c.params.Overwrite,
		Quality:     c.params.Quality,
	})
}

// resolvePayload reads the payload file verbatim, or returns "" for the empty sentinel
func resolvePayload(source string) (string, error) {
	if source == EmptyPayload {
		return "", nil
	}
	return readText(source)
}

func init() {
	registerCLI(WriteCommandName, cliSpec{
		usage: "write -i <image> -p <payload file|?empty> -o <destination> [flags]",
		flags: []flagSpec{
			{name: "input", shorthand: "i", param: "input", kind: flagString, usage: "source image"},
			{name: "payload", shorthand: "p", param: "payload", kind: flagString,
				usage: `text file holding the payload; "?empty" clears it`},
			{name: "output", shorthand: "o", param: "output", kind: flagString, usage: "destination image (.png, .jpg or .jpeg)"},
			{name: "overwrite", param: "overwrite", kind: flagBool, usage: "replace an existing destination"},
			{name: "quality", shorthand: "q", param: "quality", kind: flagInt, usage: "JPEG quality 1-100 (default 75)"},
		},
	})
	// Register the command in the default registry
	if err := DefaultRegistry.Register(WriteCommandName, NewWriteCommand, "write"); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", WriteCommandName, err))
	}
}
