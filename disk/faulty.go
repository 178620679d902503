package disk

import (
	"errors"
)

var ErrInjected = errors.New("injected device failure")

// FaultyDisk wraps a Device and fails accesses on demand.
type FaultyDisk struct {
	Device
	writes     uint64
	failWrites bool
	writeLimit uint64
	failReads  map[uint64]bool
}

func NewFaultyDisk(d Device) *FaultyDisk {
	return &FaultyDisk{Device: d, failReads: make(map[uint64]bool)}
}

// FailWritesAfter lets n more writes through and fails every one after.
func (f *FaultyDisk) FailWritesAfter(n uint64) {
	f.failWrites = true
	f.writeLimit = f.writes + n
}

// FailReadAt fails every read of the unit at off.
func (f *FaultyDisk) FailReadAt(off uint64) {
	f.failReads[off] = true
}

// Heal clears all injected failures.
func (f *FaultyDisk) Heal() {
	f.failWrites = false
	f.failReads = make(map[uint64]bool)
}

// Writes is the number of successful writes so far.
func (f *FaultyDisk) Writes() uint64 {
	return f.writes
}

func (f *FaultyDisk) ReadTo(off uint64, b Unit) error {
	if f.failReads[off] {
		return ErrInjected
	}
	return f.Device.ReadTo(off, b)
}

func (f *FaultyDisk) Write(off uint64, v Unit) error {
	if f.failWrites && f.writes >= f.writeLimit {
		return ErrInjected
	}
	if err := f.Device.Write(off, v); err != nil {
		return err
	}
	f.writes++
	return nil
}
