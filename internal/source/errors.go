package source

import "errors"

var (
	// ErrNotifierClosed is returned when using a closed notifier.
	ErrNotifierClosed = errors.New("source: notifier closed")
	// ErrAlreadyWatching is returned when a file is watched twice.
	ErrAlreadyWatching = errors.New("source: file already watched")
	// ErrNotWatching is returned when unwatching an unknown file.
	ErrNotWatching = errors.New("source: file not watched")
)
