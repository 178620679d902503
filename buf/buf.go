// buf manages sub-unit device objects, to be packed into I/O units
package buf

import (
	"github.com/mit-pdos/go-newfs/addr"
	"github.com/mit-pdos/go-newfs/util"
)

// A Buf is a write to a device object (superblock, inode record, dentry
// record, bitmap or data block) that may start and end inside an I/O unit.
type Buf struct {
	Addr addr.Addr
	Sz   uint64 // number of bytes
	Data []byte
}

func MkBuf(addr addr.Addr, data []byte) *Buf {
	b := &Buf{
		Addr: addr,
		Sz:   uint64(len(data)),
		Data: data,
	}
	return b
}

// Load the bytes of a run of units into a new buf, as specified by addr.
// units must start at addr.Unit.
func MkBufLoad(addr addr.Addr, sz uint64, units []byte) *Buf {
	data := units[addr.Off : addr.Off+sz]
	b := &Buf{
		Addr: addr,
		Sz:   sz,
		Data: data,
	}
	return b
}

// Install the bytes from buf into units, which start at buf.Addr.Unit.
func (buf *Buf) Install(units []byte) {
	util.DPrintf(20, "%v: install %d bytes\n", buf.Addr, buf.Sz)
	copy(units[buf.Addr.Off:buf.Addr.Off+buf.Sz], buf.Data)
}

// Aligned reports whether buf covers whole units, so that installing it
// does not need the old unit contents.
func (buf *Buf) Aligned(iosz uint64) bool {
	return buf.Addr.Off == 0 && buf.Sz%iosz == 0
}
