package disk

import (
	"fmt"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-newfs/util"
)

var _ Device = (*gooseDisk)(nil)

// gooseDisk serves small I/O units out of a goose disk, whose blocks are
// disk.BlockSize bytes. Writes read-modify-write the containing block.
type gooseDisk struct {
	d      disk.Disk
	iosz   uint64
	owned  bool // close d along with the device
	closed bool
}

// NewGooseDevice exposes d as a Device with iosz-byte units. iosz must
// divide disk.BlockSize.
func NewGooseDevice(d disk.Disk, iosz uint64) (Device, error) {
	if iosz == 0 || disk.BlockSize%iosz != 0 {
		return nil, fmt.Errorf("unit size %d does not divide block size %d: %w",
			iosz, disk.BlockSize, ErrUnaligned)
	}
	return &gooseDisk{d: d, iosz: iosz}, nil
}

// NewMemDevice returns an in-memory device of at least size bytes.
func NewMemDevice(size uint64, iosz uint64) Device {
	d, err := NewGooseDevice(disk.NewMemDisk(util.RoundUp(size, disk.BlockSize)), iosz)
	if err != nil {
		panic(err)
	}
	return d
}

// OpenGooseFile opens a goose file disk at path holding size bytes.
func OpenGooseFile(path string, size uint64, iosz uint64) (Device, error) {
	fd, err := disk.NewFileDisk(path, util.RoundUp(size, disk.BlockSize))
	if err != nil {
		return nil, fmt.Errorf("opening goose disk `%s`: %w", path, err)
	}
	if iosz == 0 || disk.BlockSize%iosz != 0 {
		fd.Close()
		return nil, fmt.Errorf("unit size %d does not divide block size %d: %w",
			iosz, disk.BlockSize, ErrUnaligned)
	}
	return &gooseDisk{d: fd, iosz: iosz, owned: true}, nil
}

func (g *gooseDisk) locate(off uint64, n int) (uint64, uint64, error) {
	if g.closed {
		return 0, 0, ErrClosed
	}
	if err := checkUnit(off, n, g.iosz, g.Size()); err != nil {
		return 0, 0, err
	}
	return off / disk.BlockSize, off % disk.BlockSize, nil
}

func (g *gooseDisk) ReadTo(off uint64, buf Unit) error {
	a, o, err := g.locate(off, len(buf))
	if err != nil {
		return fmt.Errorf("reading goose disk at offset `%d`: %w", off, err)
	}
	blk := g.d.Read(a)
	copy(buf, blk[o:o+g.iosz])
	return nil
}

func (g *gooseDisk) Write(off uint64, v Unit) error {
	a, o, err := g.locate(off, len(v))
	if err != nil {
		return fmt.Errorf("writing goose disk at offset `%d`: %w", off, err)
	}
	blk := g.d.Read(a)
	copy(blk[o:o+g.iosz], v)
	g.d.Write(a, blk)
	return nil
}

func (g *gooseDisk) IOSize() uint64 {
	return g.iosz
}

func (g *gooseDisk) Size() uint64 {
	return g.d.Size() * disk.BlockSize
}

func (g *gooseDisk) Barrier() error {
	if g.closed {
		return ErrClosed
	}
	g.d.Barrier()
	return nil
}

// Close marks the device unusable. A goose disk passed to NewGooseDevice
// stays open so that an in-memory disk can be wrapped again and remounted.
func (g *gooseDisk) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if g.owned {
		g.d.Close()
	}
	return nil
}
