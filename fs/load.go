package fs

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	dinode "github.com/mit-pdos/go-newfs/inode"
	"github.com/mit-pdos/go-newfs/util"
)

// inodeOf returns d's inode, reading it from disk on first use.
func (s *Session) inodeOf(d DentryID) (*inode, error) {
	if ip, ok := s.tree.resident(d); ok {
		return ip, nil
	}
	return s.loadInode(d)
}

// loadInode reads the inode named by dentry d from disk and makes it
// resident. A directory's entries become dentries whose own inodes are left
// unloaded; a file's blocks are read into memory.
func (s *Session) loadInode(d DentryID) (*inode, error) {
	dent := s.tree.dentry(d)
	if uint64(dent.inum) >= s.sb.MaxIno {
		return nil, fmt.Errorf("loading `%s`: inode %d out of range: %w", dent.name, dent.inum, ErrIO)
	}
	b, err := s.drv.ReadAt(s.sb.Inum2Off(dent.inum), common.INODESZ)
	if err != nil {
		return nil, ioErr(fmt.Sprintf("reading inode %d", dent.inum), err)
	}
	rec := dinode.DecodeInode(b)
	if rec.Inum != dent.inum || rec.Kind != dent.kind {
		return nil, fmt.Errorf("loading `%s`: record %d/%s does not match entry %d/%s: %w",
			dent.name, rec.Inum, rec.Kind, dent.inum, dent.kind, ErrIO)
	}

	ip := &inode{
		inum:     rec.Inum,
		kind:     rec.Kind,
		size:     rec.Size,
		children: NULLDENTRY,
		blocks:   rec.Blocks,
	}
	var ents []*dinode.DiskDirent
	if ip.isDir() {
		ents, err = s.readDirents(ip, rec.NChildren)
		if err != nil {
			return nil, fmt.Errorf("loading `%s`: %w", dent.name, err)
		}
	} else {
		ip.data = make([][]byte, common.NDATAPERFILE)
		for i, bn := range ip.blocks {
			blk, err := s.drv.ReadAt(s.sb.Data2Off(bn), s.sb.BlkSize)
			if err != nil {
				return nil, ioErr(fmt.Sprintf("reading block %d of `%s`", bn, dent.name), err)
			}
			ip.data[i] = blk
		}
	}

	s.tree.attach(d, ip)
	// entries are on disk newest first; prepending oldest first keeps that order
	for i := len(ents) - 1; i >= 0; i-- {
		child := s.tree.newDentry(ents[i].Name, ents[i].Kind, ents[i].Inum, d)
		s.tree.link(ip, child)
	}
	util.DPrintf(5, "loadInode: %s inum %d kind %s children %d\n", dent.name, ip.inum, ip.kind, ip.nchildren)
	return ip, nil
}

// readDirents reads up to n dentry records from a directory's blocks. A
// record never straddles two blocks.
func (s *Session) readDirents(ip *inode, n uint64) ([]*dinode.DiskDirent, error) {
	var ents []*dinode.DiskDirent
	for i := uint64(0); i < common.NDATAPERDIR && n > 0; i++ {
		off := s.sb.Data2Off(ip.blocks[i])
		end := off + s.sb.BlkSize
		for n > 0 && off+common.DIRENTSZ <= end {
			b, err := s.drv.ReadAt(off, common.DIRENTSZ)
			if err != nil {
				return nil, ioErr(fmt.Sprintf("reading dentry at %d", off), err)
			}
			ents = append(ents, dinode.DecodeDirent(b))
			off += common.DIRENTSZ
			n--
		}
	}
	return ents, nil
}
