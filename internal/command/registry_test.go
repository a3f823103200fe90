package command

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubCommand struct {
	name string
}

func (c *stubCommand) Name() string {
	return c.name
}

func (c *stubCommand) Execute(ctx context.Context, env *Env) error {
	return nil
}

func stubFactory(name string) CommandFactory {
	return func(params map[string]any) (Command, error) {
		return &stubCommand{name: name}, nil
	}
}

func TestNewCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()
	if registry == nil {
		t.Fatal("Expected non-nil registry")
	}
	if registry.factories == nil {
		t.Fatal("Expected non-nil factories map")
	}
}

func TestCommandRegistry_Register(t *testing.T) {
	registry := NewCommandRegistry()

	// Test successful registration
	if err := registry.Register("TestCommand", stubFactory("TestCommand"), "tc"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test duplicate registration, case-insensitive
	if err := registry.Register("testcommand", stubFactory("TestCommand")); err == nil {
		t.Error("Expected error for duplicate registration")
	}

	// Test alias clashing with an existing alias
	if err := registry.Register("Other", stubFactory("Other"), "TC"); err == nil {
		t.Error("Expected error for duplicate alias")
	}
	if registry.IsRegistered("other") {
		t.Error("Expected failed registration to leave no trace")
	}

	// Test empty name
	if err := registry.Register("", stubFactory("")); err == nil {
		t.Error("Expected error for empty name")
	}

	// Test nil factory
	if err := registry.Register("NilFactory", nil); err == nil {
		t.Error("Expected error for nil factory")
	}
}

func TestCommandRegistry_Create(t *testing.T) {
	registry := NewCommandRegistry()
	if err := registry.Register("TestCommand", stubFactory("TestCommand"), "tc"); err != nil {
		t.Fatalf("Failed to register command: %v", err)
	}

	for _, name := range []string{"TestCommand", "TESTCOMMAND", "tc", "Tc"} {
		command, err := registry.Create(name, nil)
		if err != nil {
			t.Errorf("Expected no error for %s, got %v", name, err)
			continue
		}
		if command.Name() != "TestCommand" {
			t.Errorf("Expected command name 'TestCommand', got '%s'", command.Name())
		}
	}

	// Test creating unregistered command
	_, err := registry.Create("UnknownCommand", nil)
	if !errors.Is(err, ErrUsage) {
		t.Errorf("Expected ErrUsage for unknown command, got %v", err)
	}
}

func TestCommandRegistry_CreateFactoryError(t *testing.T) {
	registry := NewCommandRegistry()
	factoryErr := errors.New("bad params")
	err := registry.Register("Failing", func(params map[string]any) (Command, error) {
		return nil, factoryErr
	})
	if err != nil {
		t.Fatalf("Failed to register command: %v", err)
	}

	if _, err := registry.Create("failing", nil); !errors.Is(err, factoryErr) {
		t.Errorf("Expected wrapped factory error, got %v", err)
	}
}

func TestCommandRegistry_GetRegisteredNames(t *testing.T) {
	registry := NewCommandRegistry()

	// Test empty registry
	if names := registry.GetRegisteredNames(); len(names) != 0 {
		t.Errorf("Expected 0 registered names, got %d", len(names))
	}

	if err := registry.Register("Command2", stubFactory("Command2"), "c2"); err != nil {
		t.Fatalf("Failed to register Command2: %v", err)
	}
	if err := registry.Register("Command1", stubFactory("Command1")); err != nil {
		t.Fatalf("Failed to register Command1: %v", err)
	}

	// aliases are not listed
	if diff := cmp.Diff([]string{"command1", "command2"}, registry.GetRegisteredNames()); diff != "" {
		t.Errorf("Unexpected names (-want +got):\n%s", diff)
	}
}

func TestDefaultRegistry_HasCommands(t *testing.T) {
	expected := map[string]string{
		"readpnginfo":  ReadCommandName,
		"read":         ReadCommandName,
		"READ":         ReadCommandName,
		"writepnginfo": WriteCommandName,
		"write":        WriteCommandName,
		"serve":        ServeCommandName,
	}

	for name, canonical := range expected {
		got, ok := DefaultRegistry.Resolve(name)
		if !ok {
			t.Errorf("Expected %s to be registered in DefaultRegistry", name)
			continue
		}
		if got != canonical {
			t.Errorf("Expected %s to resolve to %s, got %s", name, canonical, got)
		}
	}
}
