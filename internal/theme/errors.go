package theme

import (
	"errors"
	"fmt"
)

// Theme errors.
var (
	// ErrNotStyle indicates a theme reference that is not a style URL.
	ErrNotStyle = errors.New("theme reference is not a style")

	// ErrNoPreference indicates that no preferred theme could be computed.
	ErrNoPreference = errors.New("no preferred theme")
)

// StyleFileError reports a project style file that could not be parsed.
type StyleFileError struct {
	Path string
	Err  error
}

func (e *StyleFileError) Error() string {
	return fmt.Sprintf("style file %s: %v", e.Path, e.Err)
}

func (e *StyleFileError) Unwrap() error {
	return e.Err
}
