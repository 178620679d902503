package fs

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-newfs/alloc"
)

// Sentinel errors for package fs.
// These errors can be checked with errors.Is() for specific error handling.
var (
	ErrAccess      = errors.New("permission denied")
	ErrSeek        = errors.New("invalid seek")
	ErrIsDir       = errors.New("is a directory")
	ErrNoSpace     = alloc.ErrNoSpace
	ErrDirFull     = fmt.Errorf("directory blocks are full: %w", ErrNoSpace)
	ErrExists      = errors.New("entry already exists")
	ErrNotFound    = errors.New("no such entry")
	ErrUnsupported = errors.New("operation not supported on this entry")
	ErrIO          = errors.New("device i/o failed")
	ErrInvalid     = errors.New("invalid argument")
	ErrNotEmpty    = errors.New("directory not empty")
	ErrNameTooLong = errors.New("name too long")
	ErrUnmounted   = errors.New("file system is not mounted")
)

// LookupError reports a path that did not resolve, along with the deepest
// entry the resolver reached.
type LookupError struct {
	Path string
	Last string // name of the last entry visited
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("looking up `%s` (stopped at `%s`): %v", e.Path, e.Last, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func ioErr(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrIO, err)
}
