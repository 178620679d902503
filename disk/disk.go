package disk

import (
	"errors"
)

// Unit is an IOSize()-byte buffer
type Unit = []byte

var (
	ErrOutOfRange = errors.New("out-of-bounds device access")
	ErrUnaligned  = errors.New("device access is not unit aligned")
	ErrClosed     = errors.New("device is closed")
)

// Device provides access to a byte-addressable device that can only be
// read and written in fixed-size I/O units.
type Device interface {
	// ReadTo reads the I/O unit starting at byte offset off into b
	//
	// Expects off to be a multiple of IOSize(), len(b) == IOSize() and
	// off < Size().
	ReadTo(off uint64, b Unit) error

	// Write updates the I/O unit starting at byte offset off
	//
	// Same expectations as ReadTo.
	Write(off uint64, v Unit) error

	// IOSize reports the size of a single I/O unit, in bytes
	IOSize() uint64

	// Size reports how big the device is, in bytes
	Size() uint64

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// the device
	Barrier() error

	// Close releases any resources used by the device and makes it unusable.
	Close() error
}

// checkUnit validates an access of n bytes at off against a device of the
// given geometry.
func checkUnit(off uint64, n int, iosz uint64, size uint64) error {
	if uint64(n) != iosz || off%iosz != 0 {
		return ErrUnaligned
	}
	if off >= size || size-off < iosz {
		return ErrOutOfRange
	}
	return nil
}
