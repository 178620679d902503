package fs

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("name `%s`: %w", name, ErrInvalid)
	}
	if uint64(len(name)) > common.MAXNAMELEN {
		return fmt.Errorf("name `%s`: %w", name, ErrNameTooLong)
	}
	return nil
}

// allocInode claims an inode number and the data blocks for an object of
// d's kind and makes the new inode resident on d. If the data blocks cannot
// be found the inode number is given back. Bits are never released
// otherwise: space used by unlinked entries is not reclaimed.
func (s *Session) allocInode(d DentryID) (*inode, error) {
	dent := s.tree.dentry(d)
	inum, err := s.imap.AllocNum()
	if err != nil {
		return nil, fmt.Errorf("allocating inode: %w", err)
	}
	bnums, err := s.dmap.AllocNums(dent.kind.NData())
	if err != nil {
		s.imap.Rollback(inum)
		return nil, fmt.Errorf("allocating %d data blocks: %w", dent.kind.NData(), err)
	}

	ip := &inode{
		inum:     common.Inum(inum),
		kind:     dent.kind,
		children: NULLDENTRY,
		blocks:   make([]common.Bnum, common.NDATAPERFILE),
	}
	copy(ip.blocks, bnums)
	if dent.kind == common.KindFile {
		ip.data = make([][]byte, common.NDATAPERFILE)
		for i := range ip.data {
			ip.data[i] = make([]byte, s.sb.BlkSize)
		}
	}
	dent.inum = ip.inum
	s.sb.Used += s.sb.Blks(uint64(len(bnums)))
	util.DPrintf(5, "allocInode: %s inum %d blocks %v\n", dent.name, inum, bnums)
	return s.tree.attach(d, ip), nil
}

// createEntry makes a new entry called name of the given kind in the
// directory parent.
func (s *Session) createEntry(parent DentryID, name string, kind common.Kind) (DentryID, error) {
	if err := checkName(name); err != nil {
		return NULLDENTRY, err
	}
	dir, err := s.inodeOf(parent)
	if err != nil {
		return NULLDENTRY, err
	}
	if !dir.isDir() {
		return NULLDENTRY, fmt.Errorf("creating `%s` in file `%s`: %w",
			name, s.tree.dentry(parent).name, ErrUnsupported)
	}
	if _, ok := s.tree.findChild(dir, name); ok {
		return NULLDENTRY, fmt.Errorf("creating `%s`: %w", name, ErrExists)
	}
	if dir.nchildren >= common.MaxDirents(s.sb.BlkSize) {
		return NULLDENTRY, fmt.Errorf("creating `%s` in `%s` with %d entries: %w",
			name, s.tree.dentry(parent).name, dir.nchildren, ErrDirFull)
	}

	d := s.tree.newDentry(name, kind, 0, parent)
	if _, err := s.allocInode(d); err != nil {
		// d is left unreachable in the arena
		return NULLDENTRY, fmt.Errorf("creating `%s`: %w", name, err)
	}
	s.tree.link(dir, d)
	return d, nil
}
