package command

import (
	"context"
	"fmt"

	"github.com/jo-hoe/sdimg/internal/server"
)

const (
	// ServeCommandName is the canonical name of the HTTP API command
	ServeCommandName = "serve"

	defaultPort = 8080
)

// ServeParams represents typed parameters for the serve command
type ServeParams struct {
	Port int
}

// NewServeParamsFromMap creates ServeParams from a generic map
func NewServeParamsFromMap(params map[string]any) (*ServeParams, error) {
	port := GetIntParam(params, "port", defaultPort)
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid port: %d (must be between 1 and 65535)", ErrUsage, port)
	}
	return &ServeParams{Port: port}, nil
}

// ServeCommand exposes read and write over HTTP until the context is cancelled
type ServeCommand struct {
	name   string
	params *ServeParams
}

// NewServeCommand creates a new serve command from parameters
func NewServeCommand(params map[string]any) (Command, error) {
	typedParams, err := NewServeParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ServeCommand{
		name:   "ServeCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ServeCommand) Name() string {
	return c.name
}

// GetParams returns the typed parameters
func (c *ServeCommand) GetParams() *ServeParams {
	return c.params
}

// Execute blocks until ctx is done or the listener fails
func (c *ServeCommand) Execute(ctx context.Context, env *Env) error {
	s := server.New(server.Options{
		Codec:   env.Codec,
		Cache:   env.Cache,
		Catalog: env.Catalog,
	})
	return s.Run(ctx, c.params.Port)
}

func init() {
	registerCLI(ServeCommandName, cliSpec{
		usage: "serve [flags]",
		flags: []flagSpec{
			{name: "port", param: "port", kind: flagInt, usage: "listen port (default 8080)"},
		},
	})
	// Register the command in the default registry
	if err := DefaultRegistry.Register(ServeCommandName, NewServeCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ServeCommandName, err))
	}
}
