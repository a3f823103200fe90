package command

import (
	"fmt"
	"sort"
	"strings"
)

// CommandRegistry manages the registration and creation of commands.
// Names and aliases are matched case-insensitively.
type CommandRegistry struct {
	factories map[string]CommandFactory
	aliases   map[string]string
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		factories: make(map[string]CommandFactory),
		aliases:   make(map[string]string),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory CommandFactory, aliases ...string) error {
	name = strings.ToLower(name)
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("command factory cannot be nil")
	}
	if r.IsRegistered(name) {
		return fmt.Errorf("command %s is already registered", name)
	}
	for _, alias := range aliases {
		if alias == "" || r.IsRegistered(alias) {
			return fmt.Errorf("alias %q of command %s is empty or already registered", alias, name)
		}
	}

	r.factories[name] = factory
	for _, alias := range aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	return nil
}

// Resolve returns the canonical command name for a name or alias
func (r *CommandRegistry) Resolve(name string) (string, bool) {
	name = strings.ToLower(name)
	if _, exists := r.factories[name]; exists {
		return name, true
	}
	canonical, exists := r.aliases[name]
	return canonical, exists
}

// Create instantiates a command by name or alias with the given parameters
func (r *CommandRegistry) Create(name string, params map[string]any) (Command, error) {
	canonical, exists := r.Resolve(name)
	if !exists {
		return nil, fmt.Errorf("%w: unknown command: %s", ErrUsage, name)
	}

	command, err := r.factories[canonical](params)
	if err != nil {
		return nil, fmt.Errorf("failed to create command %s: %w", canonical, err)
	}

	return command, nil
}

// IsRegistered checks if a command name or alias is registered
func (r *CommandRegistry) IsRegistered(name string) bool {
	_, exists := r.Resolve(name)
	return exists
}

// GetRegisteredNames returns the sorted canonical command names
func (r *CommandRegistry) GetRegisteredNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is a global registry instance with all commands pre-registered
var DefaultRegistry = NewCommandRegistry()
