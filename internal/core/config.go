package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/sdimg/internal/common"
)

// EnvPrefix prefixes every environment override, e.g. SDIMG_LOG_LEVEL
const EnvPrefix = "SDIMG_"

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Server struct {
	Port int `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
}

type Catalog struct {
	Type             string `yaml:"type" env:"TYPE" validate:"oneof=sqlite"`
	ConnectionString string `yaml:"connectionString" env:"CONNECTION_STRING" validate:"required"`
}

type Cache struct {
	// Address of the Redis server; empty disables the cache
	Address string        `yaml:"address" env:"ADDRESS"`
	TTL     time.Duration `yaml:"ttl" env:"TTL" validate:"min=0"`
}

// Settings holds everything that can be overridden from the environment
type Settings struct {
	LogLevel                 string  `yaml:"logLevel" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	JPEGEncoder              string  `yaml:"jpegEncoder" env:"JPEG_ENCODER" validate:"oneof=standard jpegli"`
	TextCompressionThreshold int     `yaml:"textCompressionThreshold" env:"TEXT_COMPRESSION_THRESHOLD" validate:"min=0"`
	SVGFallbackWidth         int     `yaml:"svgFallbackWidth" env:"SVG_FALLBACK_WIDTH" validate:"min=0"`
	SVGFallbackHeight        int     `yaml:"svgFallbackHeight" env:"SVG_FALLBACK_HEIGHT" validate:"min=0"`
	Server                   Server  `yaml:"server" envPrefix:"SERVER_"`
	Catalog                  Catalog `yaml:"catalog" envPrefix:"CATALOG_"`
	Cache                    Cache   `yaml:"cache" envPrefix:"CACHE_"`
}

type ServiceConfig struct {
	Settings `yaml:",inline"`
	Commands []CommandConfig `yaml:"commands"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Settings: Settings{
			LogLevel:    "warn",
			JPEGEncoder: "standard",
			Server:      Server{Port: 8080},
			Catalog: Catalog{
				Type:             "sqlite",
				ConnectionString: "sdimg.db",
			},
			Cache: Cache{TTL: 24 * time.Hour},
		},
	}
}

// LoadConfig loads configuration from the specified YAML file on top of the
// defaults and applies environment overrides. An empty path skips the file.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := DefaultConfig()

	if configPath != "" {
		// Read the config file
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}

		// Parse YAML
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := env.ParseWithOptions(&config.Settings, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	config.LogLevel = strings.ToLower(config.LogLevel)
	config.JPEGEncoder = strings.ToLower(config.JPEGEncoder)

	if err := common.ValidateStruct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate commands
	if err := validateCommands(config.Commands); err != nil {
		return nil, fmt.Errorf("invalid command configuration: %w", err)
	}

	return config, nil
}

// CommandParams returns a copy of the configured default params of a command.
// resolve maps configured names and aliases to canonical command names.
func (c *ServiceConfig) CommandParams(canonical string, resolve func(string) (string, bool)) map[string]any {
	params := make(map[string]any)
	for _, cmd := range c.Commands {
		name, ok := resolve(cmd.Name)
		if !ok || name != canonical {
			continue
		}
		for k, v := range cmd.Params {
			params[k] = v
		}
	}
	return params
}

// ValidateCommandNames checks that every configured command exists and that no
// command is configured twice, also not through one of its aliases.
// resolve maps names and aliases to canonical command names.
func (c *ServiceConfig) ValidateCommandNames(resolve func(string) (string, bool)) error {
	seen := make(map[string]string)
	for _, cmd := range c.Commands {
		canonical, ok := resolve(cmd.Name)
		if !ok {
			return fmt.Errorf("unknown command: %s", cmd.Name)
		}
		if first, exists := seen[canonical]; exists {
			return fmt.Errorf("duplicate command name: %s and %s both configure %s", first, cmd.Name, canonical)
		}
		seen[canonical] = cmd.Name
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		name := strings.ToLower(cmd.Name)
		if seenNames[name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[name] = true
	}

	return nil
}
