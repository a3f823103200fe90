package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jo-hoe/sdimg/internal/cache"
	"github.com/jo-hoe/sdimg/internal/catalog"
	"github.com/jo-hoe/sdimg/internal/command"
	"github.com/jo-hoe/sdimg/internal/core"
	"github.com/jo-hoe/sdimg/internal/metadata"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory, if present
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	path := filepath.Join(cwd, "config.yaml")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: failed to load config from %s: %v\n", configPath, err)
		return int(command.ExecutionError)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(config.LogLevel)})))

	if len(args) == 0 {
		printUsage(os.Stderr)
		return int(command.ArgumentParseError)
	}

	verb := strings.ToLower(args[0])
	cliParams, err := command.ParseArgs(verb, args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return int(command.Success)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !command.DefaultRegistry.IsRegistered(verb) {
			printUsage(os.Stderr)
		}
		return int(command.ExitCodeFor(err))
	}

	if err := config.ValidateCommandNames(command.DefaultRegistry.Resolve); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: invalid command configuration in %s: %v\n", configPath, err)
		return int(command.ExecutionError)
	}

	canonical, _ := command.DefaultRegistry.Resolve(verb)
	params := command.MergeParams(defaultParams(config, canonical), cliParams)

	code := execute(config, canonical, params)
	pause(params, os.Stdin, os.Stderr)
	return int(code)
}

func execute(config *core.ServiceConfig, canonical string, params map[string]any) command.ExitCode {
	cmd, err := command.DefaultRegistry.Create(canonical, params)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return command.ExitCodeFor(err)
	}

	env, cleanup, err := newEnv(config, command.GetBoolParam(params, "catalog", false))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return command.ExecutionError
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = cmd.Execute(ctx, env)
	slog.Debug("Main: command finished", "command", cmd.Name(), "duration_ms", time.Since(start).Milliseconds(), "error", err)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return command.ExitCodeFor(err)
}

// defaultParams returns the configured params of a command, below anything given on the command line
func defaultParams(config *core.ServiceConfig, canonical string) map[string]any {
	defaults := map[string]any{}
	if canonical == command.ServeCommandName {
		defaults["port"] = config.Server.Port
	}
	return command.MergeParams(defaults, config.CommandParams(canonical, command.DefaultRegistry.Resolve))
}

func newEnv(config *core.ServiceConfig, useCatalog bool) (*command.Env, func(), error) {
	encoder, err := metadata.NewJPEGEncoder(config.JPEGEncoder)
	if err != nil {
		return nil, nil, err
	}
	env := &command.Env{
		Codec: metadata.NewCodec(metadata.Options{
			JPEGEncoder:              encoder,
			TextCompressionThreshold: config.TextCompressionThreshold,
			SVGFallback: metadata.SVGSize{
				Width:  config.SVGFallbackWidth,
				Height: config.SVGFallbackHeight,
			},
		}),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Opener: command.ShellOpener{Output: os.Stderr},
	}

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				slog.Warn("Main: close failed", "error", err)
			}
		}
	}

	if useCatalog {
		catalogService, err := catalog.New(config.Catalog.Type, config.Catalog.ConnectionString)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		env.Catalog = catalogService
		closers = append(closers, catalogService)
	}

	if config.Cache.Address != "" {
		redisCache, err := cache.NewRedis(config.Cache.Address, config.Cache.TTL)
		if err != nil {
			slog.Warn("Main: cache unavailable, continuing without it", "address", config.Cache.Address, "error", err)
		} else {
			env.Cache = redisCache
			closers = append(closers, redisCache)
		}
	}

	return env, cleanup, nil
}

// pause waits for Enter when --pause was given
func pause(params map[string]any, in io.Reader, out io.Writer) {
	if !command.GetBoolParam(params, "pause", false) {
		return
	}
	if msg := command.GetStringParam(params, "pauseMessage", ""); msg != "" {
		_, _ = fmt.Fprint(out, msg)
	}
	_, _ = bufio.NewReader(in).ReadString('\n')
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: sdimg <command> [flags]")
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, name := range command.DefaultRegistry.GetRegisteredNames() {
		_, _ = fmt.Fprintf(w, "  %s\n", name)
	}
	_, _ = fmt.Fprintln(w, "Run 'sdimg <command> --help' for the flags of a command.")
}
