package disk

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-newfs/util"
)

var _ Device = (*fileDisk)(nil)

// fileDisk is a Device backed by a regular file or a block special file.
type fileDisk struct {
	path string
	fd   int
	iosz uint64
	size uint64
}

// OpenFile opens the device at path. If path is a regular file shorter than
// size it is grown to size; a size of 0 uses the file's current size.
func OpenFile(path string, size uint64, iosz uint64) (Device, error) {
	if iosz == 0 || size%iosz != 0 {
		return nil, fmt.Errorf("opening device `%s`: size %d is not a multiple of unit %d: %w",
			path, size, iosz, ErrUnaligned)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening device `%s`: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("opening device `%s`: %w", path, err)
	}
	regular := stat.Mode&unix.S_IFMT == unix.S_IFREG
	if size == 0 {
		size = util.AlignDown(uint64(stat.Size), iosz)
	}
	if regular && uint64(stat.Size) < size {
		err = unix.Ftruncate(fd, int64(size))
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("opening device `%s`: growing to %d bytes: %w", path, size, err)
		}
	}
	util.DPrintf(1, "OpenFile: %s size %d io %d\n", path, size, iosz)
	return &fileDisk{path: path, fd: fd, iosz: iosz, size: size}, nil
}

func (d *fileDisk) ReadTo(off uint64, buf Unit) error {
	if d.fd < 0 {
		return ErrClosed
	}
	if err := checkUnit(off, len(buf), d.iosz, d.size); err != nil {
		return fmt.Errorf("reading device `%s` at offset `%d`: %w", d.path, off, err)
	}
	n, err := unix.Pread(d.fd, buf, int64(off))
	if err != nil {
		return fmt.Errorf("reading device `%s` at offset `%d`: %w", d.path, off, err)
	}
	// a sparse file tail reads short
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	util.DPrintf(20, "read: %v\n", off)
	return nil
}

func (d *fileDisk) Write(off uint64, v Unit) error {
	if d.fd < 0 {
		return ErrClosed
	}
	if err := checkUnit(off, len(v), d.iosz, d.size); err != nil {
		return fmt.Errorf("writing device `%s` at offset `%d`: %w", d.path, off, err)
	}
	_, err := unix.Pwrite(d.fd, v, int64(off))
	if err != nil {
		return fmt.Errorf("writing device `%s` at offset `%d`: %w", d.path, off, err)
	}
	util.DPrintf(20, "write: %v\n", off)
	return nil
}

func (d *fileDisk) IOSize() uint64 {
	return d.iosz
}

func (d *fileDisk) Size() uint64 {
	return d.size
}

func (d *fileDisk) Barrier() error {
	if d.fd < 0 {
		return ErrClosed
	}
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("syncing device `%s`: %w", d.path, err)
	}
	return nil
}

func (d *fileDisk) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	if err != nil {
		return fmt.Errorf("closing device `%s`: %w", d.path, err)
	}
	return nil
}
