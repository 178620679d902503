package fs

import (
	"errors"
	"syscall"
)

var errnos = []struct {
	err   error
	errno syscall.Errno
}{
	{ErrAccess, syscall.EACCES},
	{ErrSeek, syscall.ESPIPE},
	{ErrIsDir, syscall.EISDIR},
	{ErrNoSpace, syscall.ENOSPC},
	{ErrExists, syscall.EEXIST},
	{ErrNotFound, syscall.ENOENT},
	{ErrUnsupported, syscall.ENXIO},
	{ErrIO, syscall.EIO},
	{ErrInvalid, syscall.EINVAL},
	{ErrNotEmpty, syscall.ENOTEMPTY},
	{ErrNameTooLong, syscall.ENAMETOOLONG},
	{ErrUnmounted, syscall.EIO},
}

// Errno translates an error from this package into the POSIX error number a
// host layer should report. nil maps to 0.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	for _, e := range errnos {
		if errors.Is(err, e.err) {
			return e.errno
		}
	}
	return syscall.EIO
}
