package addr

import (
	"github.com/mit-pdos/go-newfs/common"
)

// Addr identifies the start of a device object.
//
// Unit is the I/O unit containing the object, and Off the location of the
// object within that unit (expressed as a byte offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Unit uint64
	Off  uint64 // offset in bytes
}

// Flatid is the absolute byte offset of a on a device with iosz-byte units.
func (a Addr) Flatid(iosz uint64) uint64 {
	return a.Unit*iosz + a.Off
}

func MkAddr(unit uint64, off uint64) Addr {
	return Addr{Unit: unit, Off: off}
}

// MkByteAddr splits an absolute byte offset into unit and offset.
func MkByteAddr(off uint64, iosz uint64) Addr {
	return MkAddr(off/iosz, off%iosz)
}

// NUnits is the number of I/O units touched by sz bytes starting at a.
func (a Addr) NUnits(sz uint64, iosz uint64) uint64 {
	if sz == 0 {
		return 0
	}
	return (a.Off+sz-1)/iosz + 1
}

// BitAddr locates bit n of a bitmap.
type BitAddr struct {
	Byte uint64
	Bit  uint64
}

func MkBitAddr(n uint64) BitAddr {
	return BitAddr{Byte: n / common.NBITSPERBYTE, Bit: n % common.NBITSPERBYTE}
}

// Flatid is the bit index that a denotes.
func (a BitAddr) Flatid() uint64 {
	return a.Byte*common.NBITSPERBYTE + a.Bit
}
