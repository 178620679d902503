// Package inode holds the fixed-width on-disk inode and directory entry
// records. Field order and widths define the device format.
package inode

import (
	"bytes"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-newfs/common"
)

// DiskInode is the persisted form of an inode.
type DiskInode struct {
	Inum      common.Inum
	Size      uint64
	Kind      common.Kind
	NChildren uint64
	Blocks    []common.Bnum // always NDATAPERFILE slots
}

func MkDiskInode(inum common.Inum, kind common.Kind) *DiskInode {
	return &DiskInode{
		Inum:   inum,
		Kind:   kind,
		Blocks: make([]common.Bnum, common.NDATAPERFILE),
	}
}

func (ip *DiskInode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt(uint64(ip.Inum))
	enc.PutInt(ip.Size)
	enc.PutInt(uint64(ip.Kind))
	enc.PutInt(ip.NChildren)
	enc.PutInts(ip.Blocks)
	return enc.Finish()
}

func DecodeInode(b []byte) *DiskInode {
	dec := marshal.NewDec(b)
	ip := &DiskInode{}
	ip.Inum = common.Inum(dec.GetInt())
	ip.Size = dec.GetInt()
	ip.Kind = common.Kind(dec.GetInt())
	ip.NChildren = dec.GetInt()
	ip.Blocks = dec.GetInts(common.NDATAPERFILE)
	return ip
}

// DiskDirent is the persisted form of a directory entry: a NUL-padded name
// followed by the entry's kind and inode number.
type DiskDirent struct {
	Name string
	Kind common.Kind
	Inum common.Inum
}

func (de *DiskDirent) Encode() []byte {
	b := make([]byte, common.DIRENTSZ)
	copy(b[:common.MAXNAMELEN], de.Name)
	enc := marshal.NewEnc(common.DIRENTSZ - common.MAXNAMELEN)
	enc.PutInt(uint64(de.Kind))
	enc.PutInt(uint64(de.Inum))
	copy(b[common.MAXNAMELEN:], enc.Finish())
	return b
}

func DecodeDirent(b []byte) *DiskDirent {
	name := b[:common.MAXNAMELEN]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	dec := marshal.NewDec(b[common.MAXNAMELEN:common.DIRENTSZ])
	return &DiskDirent{
		Name: string(name),
		Kind: common.Kind(dec.GetInt()),
		Inum: common.Inum(dec.GetInt()),
	}
}
