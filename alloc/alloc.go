package alloc

import (
	"errors"

	"github.com/mit-pdos/go-newfs/addr"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

var ErrNoSpace = errors.New("no free bit in bitmap")

// Allocator uses a bit map to allocate numbers. Bit 0 corresponds to
// number 0, bit 1 to 1, and so on. Numbers are handed out first-fit and are
// never returned: there is no Free.
type Alloc struct {
	bitmap []byte
	max    uint64 // numbers >= max are never handed out
}

// MkAlloc allocates out of bitmap, which the allocator takes ownership of.
func MkAlloc(bitmap []byte, max uint64) *Alloc {
	if max > uint64(len(bitmap))*common.NBITSPERBYTE {
		max = uint64(len(bitmap)) * common.NBITSPERBYTE
	}
	a := &Alloc{
		bitmap: bitmap,
		max:    max,
	}
	return a
}

// MkMaxAlloc allocates out of a fresh, all-free bitmap of max bits.
func MkMaxAlloc(max uint64) *Alloc {
	return MkAlloc(make([]byte, util.RoundUp(max, common.NBITSPERBYTE)), max)
}

func (a *Alloc) Max() uint64 {
	return a.max
}

// Bytes returns the bitmap, for writing back to disk.
func (a *Alloc) Bytes() []byte {
	return a.bitmap
}

func (a *Alloc) IsUsed(n uint64) bool {
	b := addr.MkBitAddr(n)
	return a.bitmap[b.Byte]&(1<<b.Bit) != 0
}

func (a *Alloc) MarkUsed(n uint64) {
	if n >= a.max {
		panic("MarkUsed")
	}
	b := addr.MkBitAddr(n)
	a.bitmap[b.Byte] |= 1 << b.Bit
}

// Returns and claims the first free bit in the bitmap
func (a *Alloc) findFreeBit() (uint64, bool) {
	for byt := uint64(0); byt < uint64(len(a.bitmap)); byt++ {
		if a.bitmap[byt] == 0xff {
			continue
		}
		for bit := uint64(0); bit < common.NBITSPERBYTE; bit++ {
			num := addr.BitAddr{Byte: byt, Bit: bit}.Flatid()
			if num >= a.max {
				return 0, false
			}
			if a.bitmap[byt]&(1<<bit) == 0 {
				a.bitmap[byt] |= 1 << bit
				util.DPrintf(10, "findFreeBit: num %d byte 0x%x\n", num, a.bitmap[byt])
				return num, true
			}
		}
	}
	return 0, false
}

func (a *Alloc) AllocNum() (uint64, error) {
	num, ok := a.findFreeBit()
	if !ok {
		return 0, ErrNoSpace
	}
	return num, nil
}

// AllocNums claims count numbers. If the bitmap runs out first, the numbers
// claimed so far are rolled back and ErrNoSpace returned.
func (a *Alloc) AllocNums(count uint64) ([]uint64, error) {
	nums := make([]uint64, 0, count)
	for uint64(len(nums)) < count {
		num, ok := a.findFreeBit()
		if !ok {
			a.Rollback(nums...)
			return nil, ErrNoSpace
		}
		nums = append(nums, num)
	}
	return nums, nil
}

// Rollback unclaims numbers handed out by an operation that then failed.
// It is not a way to free space: the engine never reclaims.
func (a *Alloc) Rollback(nums ...uint64) {
	for _, n := range nums {
		if n >= a.max {
			panic("Rollback")
		}
		b := addr.MkBitAddr(n)
		a.bitmap[b.Byte] &^= 1 << b.Bit
	}
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

// NumFree counts the free numbers below max.
func (a *Alloc) NumFree() uint64 {
	var used uint64
	for n := uint64(0); n < util.AlignDown(a.max, 8); n += 8 {
		used += popCnt(a.bitmap[n/8])
	}
	for n := util.AlignDown(a.max, 8); n < a.max; n++ {
		if a.IsUsed(n) {
			used++
		}
	}
	return a.max - used
}
