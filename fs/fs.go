// Package fs is the file system engine: it owns the on-disk layout, the
// in-memory dentry/inode tree, block allocation and the translation between
// the two.
//
// A Session is created by Mount and is the only handle on a mounted device.
// It is not safe for concurrent use; callers serialize operations.
package fs

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/alloc"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/disk"
	"github.com/mit-pdos/go-newfs/super"
	"github.com/mit-pdos/go-newfs/util"
)

type Session struct {
	dev     disk.Device
	drv     *disk.Driver
	sb      *super.FsSuper
	imap    *alloc.Alloc // inode bitmap
	dmap    *alloc.Alloc // data block bitmap
	tree    tree
	root    DentryID
	mounted bool
}

// Mount opens a file system on dev, formatting it first if it carries no
// valid superblock.
func Mount(dev disk.Device) (*Session, error) {
	s := &Session{dev: dev, drv: disk.MkDriver(dev)}
	sb, err := s.readSuper()
	if super.IsUnformatted(err) {
		util.DPrintf(1, "Mount: %v; formatting\n", err)
		return s.format()
	}
	if err != nil {
		return nil, err
	}
	s.sb = sb
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Format lays out a fresh, empty file system on dev regardless of what it
// holds, and mounts it.
func Format(dev disk.Device) (*Session, error) {
	s := &Session{dev: dev, drv: disk.MkDriver(dev)}
	return s.format()
}

func (s *Session) readSuper() (*super.FsSuper, error) {
	blksz := common.BlockSize(s.dev.IOSize())
	b, err := s.drv.ReadAt(common.SUPEROFF, blksz)
	if err != nil {
		return nil, ioErr("reading superblock", err)
	}
	return super.Decode(b, s.dev.Size(), s.dev.IOSize())
}

func (s *Session) format() (*Session, error) {
	sb, err := super.MkFsSuper(s.dev.Size(), s.dev.IOSize())
	if err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	s.sb = sb
	s.imap = alloc.MkAlloc(make([]byte, sb.Blks(sb.InodeBitmapBlks)), sb.MaxIno)
	s.dmap = alloc.MkAlloc(make([]byte, sb.Blks(sb.DataBitmapBlks)), sb.MaxData)
	s.tree = tree{}

	s.root = s.tree.newDentry(common.ROOTNAME, common.KindDir, common.ROOTINUM, NULLDENTRY)
	ip, err := s.allocInode(s.root)
	if err != nil {
		return nil, fmt.Errorf("formatting: allocating root: %w", err)
	}
	if ip.inum != common.ROOTINUM {
		panic("format: root inode is not ROOTINUM")
	}
	if err := s.flush(ip); err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	if err := s.writeMeta(); err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	util.DPrintf(1, "format: %s max_ino %d max_data %d\n", sb.UUID, sb.MaxIno, sb.MaxData)

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads both bitmaps and the root directory of a formatted device.
func (s *Session) load() error {
	sb := s.sb
	ibm, err := s.drv.ReadAt(sb.InodeBitmapOff, sb.Blks(sb.InodeBitmapBlks))
	if err != nil {
		return ioErr("reading inode bitmap", err)
	}
	dbm, err := s.drv.ReadAt(sb.DataBitmapOff, sb.Blks(sb.DataBitmapBlks))
	if err != nil {
		return ioErr("reading data bitmap", err)
	}
	s.imap = alloc.MkAlloc(ibm, sb.MaxIno)
	s.dmap = alloc.MkAlloc(dbm, sb.MaxData)

	s.tree = tree{}
	s.root = s.tree.newDentry(common.ROOTNAME, common.KindDir, common.ROOTINUM, NULLDENTRY)
	if _, err := s.loadInode(s.root); err != nil {
		return fmt.Errorf("loading root: %w", err)
	}
	s.mounted = true
	util.DPrintf(1, "load: mounted %s used %d\n", sb.UUID, sb.Used)
	return nil
}

// writeMeta persists the superblock and both bitmaps.
func (s *Session) writeMeta() error {
	sb := s.sb
	if err := s.drv.WriteAt(common.SUPEROFF, sb.Encode()); err != nil {
		return ioErr("writing superblock", err)
	}
	if err := s.drv.WriteAt(sb.InodeBitmapOff, s.imap.Bytes()); err != nil {
		return ioErr("writing inode bitmap", err)
	}
	if err := s.drv.WriteAt(sb.DataBitmapOff, s.dmap.Bytes()); err != nil {
		return ioErr("writing data bitmap", err)
	}
	return nil
}

// Unmount flushes the whole tree, the superblock and the bitmaps, then
// closes the device. The session is unusable afterwards. Unmounting an
// unmounted session does nothing.
func (s *Session) Unmount() error {
	if !s.mounted {
		return nil
	}
	ip, ok := s.tree.resident(s.root)
	if !ok {
		panic("Unmount: root not resident")
	}
	if err := s.flush(ip); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	if err := s.writeMeta(); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	if err := s.dev.Barrier(); err != nil {
		return fmt.Errorf("unmounting: %w", ioErr("barrier", err))
	}
	s.mounted = false
	s.imap = nil
	s.dmap = nil
	s.tree = tree{}
	util.DPrintf(1, "Unmount: %s\n", s.sb.UUID)
	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("unmounting: %w", ioErr("closing device", err))
	}
	return nil
}

// Sync writes the tree and metadata back without unmounting.
func (s *Session) Sync() error {
	if !s.mounted {
		return ErrUnmounted
	}
	ip, _ := s.tree.resident(s.root)
	if err := s.flush(ip); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	if err := s.writeMeta(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	if err := s.dev.Barrier(); err != nil {
		return fmt.Errorf("syncing: %w", ioErr("barrier", err))
	}
	return nil
}

func (s *Session) Mounted() bool {
	return s.mounted
}

// Super returns a copy of the superblock.
func (s *Session) Super() super.FsSuper {
	return *s.sb
}
