package common

const (
	MAGIC uint64 = 0x513

	// Default device geometry: a 4 MiB device with 512-byte I/O units.
	DISKSZ uint64 = 4 * 1024 * 1024
	IOSZ   uint64 = 512
)

const (
	NSUPERBLK    uint64 = 1
	NINODEBITMAP uint64 = 1
	NDATABITMAP  uint64 = 1
	MAXINO       uint64 = 700
	NDATAPERFILE uint64 = 6
	NDATAPERDIR  uint64 = 2 // directories only use the first 2 block slots
	MAXNAMELEN   uint64 = 128
	SUPEROFF     uint64 = 0
	NBITSPERBYTE uint64 = 8

	INODESZ  uint64 = 8*4 + 8*NDATAPERFILE // on-disk size
	DIRENTSZ uint64 = MAXNAMELEN + 8 + 8   // on-disk size

	DEFAULTPERM uint32 = 0777
)

const ROOTNAME = "/"

type Inum uint64
type Bnum = uint64

const ROOTINUM Inum = 0

// Kind is the type of object an inode describes.
type Kind uint64

const (
	KindFile Kind = 0
	KindDir  Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	}
	return "unknown"
}

// NData is the number of meaningful block slots for an inode of kind k.
func (k Kind) NData() uint64 {
	if k == KindDir {
		return NDATAPERDIR
	}
	return NDATAPERFILE
}

// BlockSize is the file system block size for a device with I/O unit iosz.
func BlockSize(iosz uint64) uint64 {
	return 2 * iosz
}

// DirentsPerBlock is how many whole dentry records fit in one block.
func DirentsPerBlock(blksz uint64) uint64 {
	return blksz / DIRENTSZ
}

// MaxDirents is the number of children a directory can hold.
func MaxDirents(blksz uint64) uint64 {
	return NDATAPERDIR * DirentsPerBlock(blksz)
}
