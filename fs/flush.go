package fs

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	dinode "github.com/mit-pdos/go-newfs/inode"
	"github.com/mit-pdos/go-newfs/util"
)

func (ip *inode) record() *dinode.DiskInode {
	rec := dinode.MkDiskInode(ip.inum, ip.kind)
	rec.Size = ip.size
	rec.NChildren = ip.nchildren
	copy(rec.Blocks, ip.blocks)
	return rec
}

// flush writes ip and everything resident below it back to disk. A
// directory's entries are packed into its blocks newest first, a file's
// blocks are written whole. The first failing write aborts the flush.
func (s *Session) flush(ip *inode) error {
	name := s.tree.dentry(ip.dentry).name
	if err := s.drv.WriteAt(s.sb.Inum2Off(ip.inum), ip.record().Encode()); err != nil {
		return ioErr(fmt.Sprintf("writing inode %d (`%s`)", ip.inum, name), err)
	}
	if !ip.isDir() {
		for i, blk := range ip.data {
			if err := s.drv.WriteAt(s.sb.Data2Off(ip.blocks[i]), blk); err != nil {
				return ioErr(fmt.Sprintf("writing block %d of `%s`", ip.blocks[i], name), err)
			}
		}
		return nil
	}

	cur := ip.children
	for i := uint64(0); i < common.NDATAPERDIR && cur != NULLDENTRY; i++ {
		off := s.sb.Data2Off(ip.blocks[i])
		end := off + s.sb.BlkSize
		for cur != NULLDENTRY && off+common.DIRENTSZ <= end {
			if err := s.flushEntry(cur, off); err != nil {
				return err
			}
			off += common.DIRENTSZ
			cur = s.tree.dentry(cur).next
		}
	}
	if cur != NULLDENTRY {
		panic("flush: directory holds more entries than its blocks")
	}
	util.DPrintf(5, "flush: %s inum %d children %d\n", name, ip.inum, ip.nchildren)
	return nil
}

// flushEntry writes dentry d at off and, if its inode is resident, the
// subtree under it.
func (s *Session) flushEntry(d DentryID, off uint64) error {
	dent := s.tree.dentry(d)
	de := &dinode.DiskDirent{Name: dent.name, Kind: dent.kind, Inum: dent.inum}
	if err := s.drv.WriteAt(off, de.Encode()); err != nil {
		return ioErr(fmt.Sprintf("writing entry `%s`", dent.name), err)
	}
	if child, ok := s.tree.resident(d); ok {
		return s.flush(child)
	}
	return nil
}
