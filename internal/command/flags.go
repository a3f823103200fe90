package command

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

type flagKind int

const (
	flagString flagKind = iota
	flagBool
	flagInt
)

type flagSpec struct {
	name      string
	shorthand string
	param     string
	kind      flagKind
	usage     string
}

type cliSpec struct {
	usage string
	flags []flagSpec
	// positional names the param that receives positional arguments; empty means none are allowed
	positional string
}

// flags every command accepts; main consumes them
var commonFlags = []flagSpec{
	{name: "pause", param: "pause", kind: flagBool, usage: "wait for Enter after the command finished"},
	{name: "pause-message", param: "pauseMessage", kind: flagString, usage: "text printed before waiting for Enter"},
}

var cliSpecs = map[string]cliSpec{}

func registerCLI(name string, spec cliSpec) {
	cliSpecs[name] = spec
}

// ParseArgs parses the command line arguments of a command into a params map.
// Only flags given on the command line are included, so configured defaults
// survive MergeParams.
func ParseArgs(name string, args []string, usageOut io.Writer) (map[string]any, error) {
	canonical, ok := DefaultRegistry.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown command: %s", ErrUsage, name)
	}
	spec := cliSpecs[canonical]

	fs := pflag.NewFlagSet(canonical, pflag.ContinueOnError)
	fs.SetOutput(usageOut)
	fs.SortFlags = false
	fs.Usage = func() {
		_, _ = fmt.Fprintf(usageOut, "Usage: sdimg %s\n", spec.usage)
		fs.PrintDefaults()
	}

	specs := make(map[string]flagSpec)
	for _, f := range append(append([]flagSpec{}, spec.flags...), commonFlags...) {
		switch f.kind {
		case flagBool:
			fs.BoolP(f.name, f.shorthand, false, f.usage)
		case flagInt:
			fs.IntP(f.name, f.shorthand, 0, f.usage)
		default:
			fs.StringP(f.name, f.shorthand, "", f.usage)
		}
		specs[f.name] = f
	}

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	params := make(map[string]any)
	var visitErr error
	fs.Visit(func(f *pflag.Flag) {
		s := specs[f.Name]
		var (
			value any
			err   error
		)
		switch s.kind {
		case flagBool:
			value, err = fs.GetBool(f.Name)
		case flagInt:
			value, err = fs.GetInt(f.Name)
		default:
			value, err = fs.GetString(f.Name)
		}
		if err != nil && visitErr == nil {
			visitErr = err
		}
		params[s.param] = value
	})
	if visitErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, visitErr)
	}

	if fs.NArg() > 0 {
		if spec.positional == "" {
			return nil, fmt.Errorf("%w: unexpected arguments: %v", ErrUsage, fs.Args())
		}
		params[spec.positional] = fs.Args()
	}
	return params, nil
}
