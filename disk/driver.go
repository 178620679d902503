package disk

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/addr"
	"github.com/mit-pdos/go-newfs/buf"
	"github.com/mit-pdos/go-newfs/util"
)

// Driver gives byte-granular access to a Device. Objects that do not cover
// whole I/O units are installed into the units they overlap with a
// read-modify-write.
type Driver struct {
	dev  Device
	iosz uint64
}

func MkDriver(dev Device) *Driver {
	return &Driver{dev: dev, iosz: dev.IOSize()}
}

func (drv *Driver) readUnits(start uint64, n uint64) ([]byte, error) {
	units := make([]byte, n*drv.iosz)
	for i := uint64(0); i < n; i++ {
		off := (start + i) * drv.iosz
		if err := drv.dev.ReadTo(off, units[i*drv.iosz:(i+1)*drv.iosz]); err != nil {
			return nil, err
		}
	}
	return units, nil
}

func (drv *Driver) writeUnits(start uint64, units []byte) error {
	n := uint64(len(units)) / drv.iosz
	for i := uint64(0); i < n; i++ {
		off := (start + i) * drv.iosz
		if err := drv.dev.Write(off, units[i*drv.iosz:(i+1)*drv.iosz]); err != nil {
			return err
		}
	}
	return nil
}

// ReadAt reads sz bytes starting at byte offset off.
func (drv *Driver) ReadAt(off uint64, sz uint64) ([]byte, error) {
	a := addr.MkByteAddr(off, drv.iosz)
	units, err := drv.readUnits(a.Unit, a.NUnits(sz, drv.iosz))
	if err != nil {
		return nil, fmt.Errorf("reading %d bytes at offset `%d`: %w", sz, off, err)
	}
	b := buf.MkBufLoad(a, sz, units)
	return util.CloneByteSlice(b.Data), nil
}

// WriteAt writes data starting at byte offset off.
func (drv *Driver) WriteAt(off uint64, data []byte) error {
	a := addr.MkByteAddr(off, drv.iosz)
	b := buf.MkBuf(a, data)
	var units []byte
	if b.Aligned(drv.iosz) {
		units = data
	} else {
		var err error
		units, err = drv.readUnits(a.Unit, a.NUnits(b.Sz, drv.iosz))
		if err != nil {
			return fmt.Errorf("writing %d bytes at offset `%d`: %w", b.Sz, off, err)
		}
		b.Install(units)
	}
	if err := drv.writeUnits(a.Unit, units); err != nil {
		return fmt.Errorf("writing %d bytes at offset `%d`: %w", b.Sz, off, err)
	}
	return nil
}
