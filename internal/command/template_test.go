package command

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestTemplate_Format(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "Default", text: DefaultTemplate, expected: "a.png\n---\nX\n"},
		{name: "Named", text: "[{path}] {payload}", expected: "[a.png] X"},
		{name: "Repeated", text: "{1}{1}{0}", expected: "XXa.png"},
		{name: "No placeholders", text: "constant", expected: "constant"},
		{name: "Stray closing brace", text: "} {0}", expected: "} a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := NewTemplate("", tt.text)
			if err != nil {
				t.Fatalf("NewTemplate failed: %v", err)
			}
			got, err := tpl.Format("a.png", "X")
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTemplate_PayloadWithBraces(t *testing.T) {
	tpl, err := NewTemplate("", DefaultTemplate)
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}
	got, err := tpl.Format("a.png", `{"steps": {2}}`)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "a.png\n---\n{\"steps\": {2}}\n" {
		t.Errorf("Expected payload to be inserted verbatim, got %q", got)
	}
}

func TestNewTemplate_Invalid(t *testing.T) {
	for _, text := range []string{"{2}", "{0} {", "{}", "{ 0 }", "{name}"} {
		_, err := NewTemplate("custom.txt", text)
		var templateErr *TemplateError
		if !errors.As(err, &templateErr) {
			t.Errorf("Expected TemplateError for %q, got %v", text, err)
			continue
		}
		if templateErr.Path != "custom.txt" {
			t.Errorf("Expected path custom.txt, got %q", templateErr.Path)
		}
	}
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()

	tpl, err := LoadTemplate("")
	if err != nil {
		t.Fatalf("LoadTemplate default failed: %v", err)
	}
	if got, _ := tpl.Format("p", "q"); got != "p\n---\nq\n" {
		t.Errorf("Expected default template, got %q", got)
	}

	path := writeFile(t, dir, "bom.txt", append([]byte{0xEF, 0xBB, 0xBF}, []byte("{0}={1}")...))
	tpl, err = LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if got, _ := tpl.Format("p", "q"); got != "p=q" {
		t.Errorf("Expected BOM to be dropped, got %q", got)
	}

	var templateErr *TemplateError
	if _, err := LoadTemplate(filepath.Join(dir, "missing.txt")); !errors.As(err, &templateErr) {
		t.Errorf("Expected TemplateError for missing file, got %v", err)
	}
}
