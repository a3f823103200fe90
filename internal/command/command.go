package command

import (
	"context"
	"io"

	"github.com/jo-hoe/sdimg/internal/cache"
	"github.com/jo-hoe/sdimg/internal/catalog"
	"github.com/jo-hoe/sdimg/internal/metadata"
)

// Command defines the interface for all sdimg commands
type Command interface {
	Name() string
	Execute(ctx context.Context, env *Env) error
}

// CommandFactory is a function type that creates a command from parameters
type CommandFactory func(params map[string]any) (Command, error)

// Env carries the collaborators a command runs against
type Env struct {
	Codec  *metadata.Codec
	Stdout io.Writer
	Stderr io.Writer
	Opener Opener

	// optional, nil when disabled
	Catalog catalog.Service
	Cache   cache.Cache
}
