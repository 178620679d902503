package super

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

var ErrGeometry = errors.New("superblock geometry does not match device")

type ErrBadMagic struct {
	Found uint64
}

func (err ErrBadMagic) Error() string {
	return fmt.Sprintf(
		"bad magic: wanted `%#x`; found `%#x`",
		common.MAGIC,
		err.Found,
	)
}

const (
	nfields = 12
	uuidOff = nfields * 8
	// SuperSz is the number of bytes of the superblock record that are used.
	SuperSz = uuidOff + 16
)

// FsSuper is the in-memory superblock: the device geometry plus the
// persisted layout of a formatted device.
type FsSuper struct {
	Magic    uint64
	DiskSize uint64
	IOSize   uint64
	BlkSize  uint64

	InodeBitmapBlks uint64
	InodeBitmapOff  uint64
	DataBitmapBlks  uint64
	DataBitmapOff   uint64
	InodeOff        uint64 // first inode record
	DataOff         uint64 // first data block
	MaxIno          uint64
	MaxData         uint64

	Used uint64 // bytes of data blocks handed out
	UUID uuid.UUID
}

// checkBlkSize rejects blocks too small to hold a superblock record or a
// single directory entry.
func checkBlkSize(blksz uint64) error {
	if blksz < SuperSz || blksz < common.DIRENTSZ {
		return fmt.Errorf("%d-byte blocks cannot hold the %d-byte superblock and %d-byte entries: %w",
			blksz, SuperSz, common.DIRENTSZ, ErrGeometry)
	}
	return nil
}

// MkFsSuper lays out a fresh file system on a device of disksz bytes with
// iosz-byte I/O units:
//
//	| Super | Inode Map | Data Map | Inodes | Data |
func MkFsSuper(disksz uint64, iosz uint64) (*FsSuper, error) {
	blksz := common.BlockSize(iosz)
	if err := checkBlkSize(blksz); err != nil {
		return nil, fmt.Errorf("laying out %d-byte device: %w", disksz, err)
	}
	fs := &FsSuper{
		Magic:           common.MAGIC,
		DiskSize:        disksz,
		IOSize:          iosz,
		BlkSize:         blksz,
		InodeBitmapBlks: common.NINODEBITMAP,
		DataBitmapBlks:  common.NDATABITMAP,
		MaxIno:          common.MAXINO,
		UUID:            uuid.New(),
	}
	fs.InodeBitmapOff = common.SUPEROFF + fs.Blks(common.NSUPERBLK)
	fs.DataBitmapOff = fs.InodeBitmapOff + fs.Blks(fs.InodeBitmapBlks)
	fs.InodeOff = fs.DataBitmapOff + fs.Blks(fs.DataBitmapBlks)
	fs.DataOff = fs.InodeOff + util.AlignUp(fs.MaxIno*common.INODESZ, blksz)
	if fs.DataOff >= disksz {
		return nil, fmt.Errorf("laying out %d-byte device: %w", disksz, ErrGeometry)
	}
	fs.MaxData = (disksz - fs.DataOff) / blksz
	// a data bitmap bigger than its reserved blocks cannot be addressed
	fs.MaxData = util.Min(fs.MaxData, fs.Blks(fs.DataBitmapBlks)*common.NBITSPERBYTE)
	fs.MaxIno = util.Min(fs.MaxIno, fs.Blks(fs.InodeBitmapBlks)*common.NBITSPERBYTE)
	util.DPrintf(1, "MkFsSuper: %+v\n", fs)
	return fs, nil
}

// Blks is the size in bytes of n blocks.
func (fs *FsSuper) Blks(n uint64) uint64 {
	return n * fs.BlkSize
}

func (fs *FsSuper) Inum2Off(inum common.Inum) uint64 {
	return fs.InodeOff + uint64(inum)*common.INODESZ
}

func (fs *FsSuper) Data2Off(bnum common.Bnum) uint64 {
	return fs.DataOff + fs.Blks(bnum)
}

// Encode serializes the persisted fields into one block.
func (fs *FsSuper) Encode() []byte {
	enc := marshal.NewEnc(fs.BlkSize)
	enc.PutInt(fs.Magic)
	enc.PutInt(fs.Used)
	enc.PutInt(fs.InodeBitmapBlks)
	enc.PutInt(fs.InodeBitmapOff)
	enc.PutInt(fs.InodeOff)
	enc.PutInt(fs.DataBitmapBlks)
	enc.PutInt(fs.DataBitmapOff)
	enc.PutInt(fs.DataOff)
	enc.PutInt(fs.MaxIno)
	enc.PutInt(fs.MaxData)
	enc.PutInt(fs.IOSize)
	enc.PutInt(fs.DiskSize)
	b := enc.Finish()
	copy(b[uuidOff:SuperSz], fs.UUID[:])
	return b
}

// Decode parses a superblock record read from a device with the given
// geometry. A record without the magic number yields ErrBadMagic, which
// means the device has never been formatted.
func Decode(b []byte, disksz uint64, iosz uint64) (*FsSuper, error) {
	if err := checkBlkSize(common.BlockSize(iosz)); err != nil {
		return nil, fmt.Errorf("decoding superblock: %w", err)
	}
	if uint64(len(b)) < SuperSz {
		return nil, fmt.Errorf("decoding superblock: %d-byte record: %w", len(b), ErrGeometry)
	}
	dec := marshal.NewDec(b)
	fs := &FsSuper{
		DiskSize: disksz,
		IOSize:   iosz,
		BlkSize:  common.BlockSize(iosz),
	}
	fs.Magic = dec.GetInt()
	if fs.Magic != common.MAGIC {
		return nil, fmt.Errorf("decoding superblock: %w", ErrBadMagic{fs.Magic})
	}
	fs.Used = dec.GetInt()
	fs.InodeBitmapBlks = dec.GetInt()
	fs.InodeBitmapOff = dec.GetInt()
	fs.InodeOff = dec.GetInt()
	fs.DataBitmapBlks = dec.GetInt()
	fs.DataBitmapOff = dec.GetInt()
	fs.DataOff = dec.GetInt()
	fs.MaxIno = dec.GetInt()
	fs.MaxData = dec.GetInt()
	ondiskIO := dec.GetInt()
	ondiskSz := dec.GetInt()
	if ondiskIO != iosz || ondiskSz > disksz {
		return nil, fmt.Errorf(
			"decoding superblock: formatted for %d bytes in %d-byte units, device has %d in %d: %w",
			ondiskSz, ondiskIO, disksz, iosz, ErrGeometry)
	}
	id, err := uuid.FromBytes(b[uuidOff:SuperSz])
	if err != nil {
		return nil, fmt.Errorf("decoding superblock: %w", err)
	}
	fs.UUID = id
	return fs, nil
}

// IsUnformatted reports whether err says the device carries no file system.
func IsUnformatted(err error) bool {
	var bad ErrBadMagic
	return errors.As(err, &bad)
}
