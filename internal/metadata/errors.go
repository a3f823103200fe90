package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when a destination is neither PNG nor JPEG
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrAlreadyExists is returned when a destination exists and overwrite was not requested
	ErrAlreadyExists = errors.New("destination already exists")
	// ErrInvalidArgument is returned for malformed parameters such as an out of range quality
	ErrInvalidArgument = errors.New("invalid argument")
)

// DecodeError reports image bytes that the selected decoder could not read.
// Batch reads recover from it per file; writes treat it as fatal.
type DecodeError struct {
	Path    string
	Decoder string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Decoder == "" {
		return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to decode %s with %s decoder: %v", e.Path, e.Decoder, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err carries a DecodeError
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
