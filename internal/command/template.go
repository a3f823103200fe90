package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

// DefaultTemplate prints the file path, a separator line and the payload
const DefaultTemplate = "{0}\n---\n{1}\n"

// Template formats one read result. {0} or {path} is replaced by the file path,
// {1} or {payload} by the payload. Braces cannot be escaped.
type Template struct {
	path string
	tpl  *fasttemplate.Template
}

// NewTemplate parses text and checks it by formatting sample values.
// path names the template file in errors and may be empty.
func NewTemplate(path, text string) (*Template, error) {
	tpl, err := fasttemplate.NewTemplate(text, "{", "}")
	if err != nil {
		return nil, &TemplateError{Path: path, Err: err}
	}
	t := &Template{path: path, tpl: tpl}
	if _, err := t.Format("FileName", "PngInfo"); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTemplate reads the template file at path, or returns the default template for an empty path
func LoadTemplate(path string) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return NewTemplate("", DefaultTemplate)
	}
	text, err := readText(path)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: err}
	}
	return NewTemplate(path, text)
}

// Format renders the template for one entry
func (t *Template) Format(path, payload string) (string, error) {
	out, err := t.tpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		switch tag {
		case "0", "path":
			return io.WriteString(w, path)
		case "1", "payload":
			return io.WriteString(w, payload)
		default:
			return 0, fmt.Errorf("unknown placeholder {%s}", tag)
		}
	})
	if err != nil {
		return "", &TemplateError{Path: t.path, Err: err}
	}
	return out, nil
}
