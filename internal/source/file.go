// Package source binds models to the files they are rendered from and
// reports edits to those files.
package source

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// File is an opened source file. Each open gets its own session id, so a
// file closed and reopened is a different File.
type File struct {
	path    string
	name    string
	session uuid.UUID
}

// NewFile opens path. The path is made absolute.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("source: resolve %s: %w", path, err)
	}
	return &File{
		path:    abs,
		name:    filepath.Base(abs),
		session: uuid.New(),
	}, nil
}

// Name returns the base name.
func (f *File) Name() string {
	return f.name
}

// Path returns the absolute path.
func (f *File) Path() string {
	return f.path
}

// SessionID identifies this open of the file.
func (f *File) SessionID() uuid.UUID {
	return f.session
}

func (f *File) String() string {
	return fmt.Sprintf("%s [%s]", f.path, f.session)
}
