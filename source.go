package mcprice

import (
	"errors"
	"os"
)

// ErrEmptySource is returned when a kernel source file has no content.
var ErrEmptySource = errors.New("mcprice: empty kernel source")

// Source is kernel program text loaded from disk.
type Source struct {
	Path string
	text string
}

// NewSource wraps in-memory program text.
func NewSource(name, text string) *Source {
	return &Source{Path: name, text: text}
}

// LoadSource reads the whole file at path.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, check(err, CodeSourceLoadFailed, "could not read kernel source %q", path)
	}
	if len(data) == 0 {
		return nil, check(ErrEmptySource, CodeSourceLoadFailed, "could not read kernel source %q", path)
	}
	return &Source{Path: path, text: string(data)}, nil
}

// Text returns the program text.
func (s *Source) Text() string {
	return s.text
}

// CString returns the program text followed by a single NUL byte.
func (s *Source) CString() []byte {
	b := make([]byte, len(s.text)+1)
	copy(b, s.text)
	return b
}

// Len returns the program length in bytes, excluding the terminator.
func (s *Source) Len() int {
	return len(s.text)
}
