package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetStringParam(t *testing.T) {
	params := map[string]any{
		"key1": "value1",
		"key2": 123,
	}

	// Test existing string parameter
	if val := GetStringParam(params, "key1", "default"); val != "value1" {
		t.Errorf("Expected 'value1', got '%s'", val)
	}

	// Test non-string parameter
	if val := GetStringParam(params, "key2", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}

	// Test non-existent parameter
	if val := GetStringParam(params, "key3", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}
}

func TestGetIntParam(t *testing.T) {
	params := map[string]any{
		"key1": 123,
		"key2": int64(456),
		"key3": float64(789),
		"key4": "not-an-int",
	}

	// Test int parameter
	if val := GetIntParam(params, "key1", 0); val != 123 {
		t.Errorf("Expected 123, got %d", val)
	}

	// Test int64 parameter
	if val := GetIntParam(params, "key2", 0); val != 456 {
		t.Errorf("Expected 456, got %d", val)
	}

	// Test float64 parameter
	if val := GetIntParam(params, "key3", 0); val != 789 {
		t.Errorf("Expected 789, got %d", val)
	}

	// Test non-int parameter
	if val := GetIntParam(params, "key4", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}

	// Test non-existent parameter
	if val := GetIntParam(params, "key5", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}
}

func TestGetBoolParam(t *testing.T) {
	params := map[string]any{
		"yamlBool":   true,
		"stringTrue": " TRUE ",
		"stringNo":   "false",
		"garbage":    "maybe",
		"number":     1,
	}

	tests := []struct {
		key      string
		def      bool
		expected bool
	}{
		{key: "yamlBool", expected: true},
		{key: "stringTrue", expected: true},
		{key: "stringNo", def: true, expected: false},
		{key: "garbage", def: true, expected: true},
		{key: "number", expected: false},
		{key: "missing", def: true, expected: true},
	}

	for _, tt := range tests {
		if val := GetBoolParam(params, tt.key, tt.def); val != tt.expected {
			t.Errorf("GetBoolParam(%s): Expected %v, got %v", tt.key, tt.expected, val)
		}
	}
}

func TestGetStringSliceParam(t *testing.T) {
	params := map[string]any{
		"typed": []string{"a", "b"},
		"yaml":  []any{"c", 1, "d"},
		"one":   "e",
	}

	if diff := cmp.Diff([]string{"a", "b"}, GetStringSliceParam(params, "typed")); diff != "" {
		t.Errorf("typed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "d"}, GetStringSliceParam(params, "yaml")); diff != "" {
		t.Errorf("yaml (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e"}, GetStringSliceParam(params, "one")); diff != "" {
		t.Errorf("one (-want +got):\n%s", diff)
	}
	if got := GetStringSliceParam(params, "missing"); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}

func TestValidateRequiredParams(t *testing.T) {
	params := map[string]any{
		"param1": "value1",
		"param2": 123,
	}

	// Test all required params present
	if err := ValidateRequiredParams(params, []string{"param1", "param2"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test missing required param
	err := ValidateRequiredParams(params, []string{"param1", "param3"})
	if !errors.Is(err, ErrUsage) {
		t.Errorf("Expected ErrUsage for missing required param, got %v", err)
	}
}

func TestMergeParams(t *testing.T) {
	defaults := map[string]any{"quality": 90, "overwrite": false}
	overrides := map[string]any{"overwrite": true, "output": "x.png"}

	merged := MergeParams(defaults, overrides)
	expected := map[string]any{"quality": 90, "overwrite": true, "output": "x.png"}
	if diff := cmp.Diff(expected, merged); diff != "" {
		t.Errorf("Unexpected merge (-want +got):\n%s", diff)
	}
	if defaults["overwrite"] != false {
		t.Error("Expected defaults to be left untouched")
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ExitCode
	}{
		{name: "nil", err: nil, expected: Success},
		{name: "no metadata", err: ErrNoMetadata, expected: NoMetadataFound},
		{name: "usage", err: errors.Join(errors.New("x"), ErrUsage), expected: ArgumentParseError},
		{name: "template", err: &TemplateError{Err: errors.New("bad")}, expected: ExecutionError},
		{name: "other", err: errors.New("boom"), expected: ExecutionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}
