package command

import (
	"io"

	"github.com/pkg/browser"
)

// Opener hands a file to the desktop shell
type Opener interface {
	Open(path string) error
}

// ShellOpener opens files with the platform's default application and waits
// for the launcher to return. Launcher output goes to Output, never to stdout.
type ShellOpener struct {
	Output io.Writer
}

func (o ShellOpener) Open(path string) error {
	if o.Output != nil {
		browser.Stdout = o.Output
		browser.Stderr = o.Output
	}
	return browser.OpenFile(path)
}
