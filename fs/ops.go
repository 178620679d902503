package fs

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

// Attr describes an entry as the host sees it.
type Attr struct {
	Ino      common.Inum
	Kind     common.Kind
	Size     uint64
	Children uint64
	Blocks   uint64 // I/O units
	Nlink    uint32
	Perm     uint32
	IsRoot   bool
}

type Dirent struct {
	Name string
	Kind common.Kind
	Ino  common.Inum
}

// Stat summarizes the volume.
type Stat struct {
	BlkSize    uint64
	IOSize     uint64
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	FilesFree  uint64
	NameLen    uint64
	Used       uint64
}

// parentOf splits path into the directory that should hold its last
// component and that component.
func (s *Session) parentOf(path string) (DentryID, string, error) {
	if !s.mounted {
		return NULLDENTRY, "", ErrUnmounted
	}
	comps := splitPath(path)
	if len(comps) == 0 {
		return NULLDENTRY, "", fmt.Errorf("`%s` is the root: %w", path, ErrExists)
	}
	res, err := s.lookup(comps)
	if err != nil {
		return NULLDENTRY, "", err
	}
	if res.found {
		return NULLDENTRY, "", fmt.Errorf("`%s`: %w", path, ErrExists)
	}
	name := comps[len(comps)-1]
	if res.depth != len(comps)-1 {
		return NULLDENTRY, "", &LookupError{Path: path, Last: s.tree.path(res.d), Err: ErrNotFound}
	}
	return res.d, name, nil
}

// Mknod creates an empty entry of the given kind at path. Every component
// but the last must already exist.
func (s *Session) Mknod(path string, kind common.Kind) error {
	parent, name, err := s.parentOf(path)
	if err != nil {
		return err
	}
	if _, err := s.createEntry(parent, name, kind); err != nil {
		return err
	}
	util.DPrintf(1, "Mknod: %s %s\n", path, kind)
	return nil
}

func (s *Session) Mkdir(path string) error {
	return s.Mknod(path, common.KindDir)
}

func (s *Session) Create(path string) error {
	return s.Mknod(path, common.KindFile)
}

func (s *Session) GetAttr(path string) (Attr, error) {
	d, ip, err := s.resolve(path)
	if err != nil {
		return Attr{}, err
	}
	attr := Attr{
		Ino:      ip.inum,
		Kind:     ip.kind,
		Children: ip.nchildren,
		Perm:     common.DEFAULTPERM,
		Nlink:    1,
		Blocks:   s.sb.Blks(ip.kind.NData()) / s.sb.IOSize,
	}
	if ip.isDir() {
		attr.Size = ip.nchildren * common.DIRENTSZ
		attr.Nlink = 2
	} else {
		attr.Size = ip.size
	}
	if d == s.root {
		attr.IsRoot = true
		attr.Size = s.sb.Used
		attr.Blocks = s.sb.DiskSize / s.sb.IOSize
	}
	return attr, nil
}

func (s *Session) dir(path string) (*inode, error) {
	_, ip, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if !ip.isDir() {
		return nil, fmt.Errorf("`%s` is a file: %w", path, ErrUnsupported)
	}
	return ip, nil
}

// ReadDir returns the name of the idx-th entry of the directory at path,
// newest first. ok is false once idx runs past the last entry.
func (s *Session) ReadDir(path string, idx uint64) (string, bool, error) {
	ip, err := s.dir(path)
	if err != nil {
		return "", false, err
	}
	d, ok := s.tree.nthChild(ip, idx)
	if !ok {
		return "", false, nil
	}
	return s.tree.dentry(d).name, true, nil
}

func (s *Session) ListDir(path string) ([]Dirent, error) {
	ip, err := s.dir(path)
	if err != nil {
		return nil, err
	}
	ents := make([]Dirent, 0, ip.nchildren)
	for cur := ip.children; cur != NULLDENTRY; cur = s.tree.dentry(cur).next {
		dent := s.tree.dentry(cur)
		ents = append(ents, Dirent{Name: dent.name, Kind: dent.kind, Ino: dent.inum})
	}
	return ents, nil
}

func (s *Session) file(path string) (*inode, error) {
	_, ip, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if ip.isDir() {
		return nil, fmt.Errorf("`%s`: %w", path, ErrIsDir)
	}
	return ip, nil
}

func (s *Session) capacity() uint64 {
	return s.sb.Blks(common.NDATAPERFILE)
}

// Read copies file bytes starting at off into b. It returns 0 at or past
// the end of the file.
func (s *Session) Read(path string, b []byte, off uint64) (int, error) {
	ip, err := s.file(path)
	if err != nil {
		return 0, err
	}
	if off >= ip.size {
		return 0, nil
	}
	n := util.Min(uint64(len(b)), ip.size-off)
	var done uint64
	for done < n {
		pos := off + done
		blk := ip.data[pos/s.sb.BlkSize]
		done += uint64(copy(b[done:n], blk[pos%s.sb.BlkSize:]))
	}
	return int(n), nil
}

// Write copies data into the file at off, growing it if needed. Files are
// limited to their resident blocks; a write that would pass the last one
// fails without writing anything.
func (s *Session) Write(path string, data []byte, off uint64) (int, error) {
	ip, err := s.file(path)
	if err != nil {
		return 0, err
	}
	n := uint64(len(data))
	if n == 0 {
		return 0, nil
	}
	if util.SumOverflows(off, n) || off+n > s.capacity() {
		return 0, fmt.Errorf("writing %d bytes at %d to `%s`: %w", n, off, path, ErrNoSpace)
	}
	var done uint64
	for done < n {
		pos := off + done
		blk := ip.data[pos/s.sb.BlkSize]
		done += uint64(copy(blk[pos%s.sb.BlkSize:], data[done:]))
	}
	if off+n > ip.size {
		ip.size = off + n
	}
	return int(n), nil
}

// Truncate sets the file size, zeroing any bytes cut off.
func (s *Session) Truncate(path string, size uint64) error {
	ip, err := s.file(path)
	if err != nil {
		return err
	}
	if size > s.capacity() {
		return fmt.Errorf("truncating `%s` to %d: %w", path, size, ErrNoSpace)
	}
	for pos := size; pos < ip.size; pos++ {
		ip.data[pos/s.sb.BlkSize][pos%s.sb.BlkSize] = 0
	}
	ip.size = size
	return nil
}

func (s *Session) remove(path string, kind common.Kind) error {
	d, ip, err := s.resolve(path)
	if err != nil {
		return err
	}
	if d == s.root {
		return fmt.Errorf("removing root: %w", ErrAccess)
	}
	switch {
	case kind == common.KindFile && ip.isDir():
		return fmt.Errorf("unlinking `%s`: %w", path, ErrIsDir)
	case kind == common.KindDir && !ip.isDir():
		return fmt.Errorf("rmdir `%s`: %w", path, ErrInvalid)
	case ip.isDir() && ip.nchildren > 0:
		return fmt.Errorf("rmdir `%s`: %w", path, ErrNotEmpty)
	}
	parent, _ := s.tree.resident(s.tree.dentry(d).parent)
	s.tree.unlink(parent, d)
	util.DPrintf(1, "remove: %s inum %d (space not reclaimed)\n", path, ip.inum)
	return nil
}

// Unlink removes the file at path from its directory. Its inode and blocks
// stay allocated.
func (s *Session) Unlink(path string) error {
	return s.remove(path, common.KindFile)
}

// Rmdir removes the empty directory at path. Its inode and blocks stay
// allocated.
func (s *Session) Rmdir(path string) error {
	return s.remove(path, common.KindDir)
}

// Rename checks that from exists and otherwise does nothing.
func (s *Session) Rename(from string, to string) error {
	if _, _, err := s.resolve(from); err != nil {
		return err
	}
	util.DPrintf(1, "Rename: %s -> %s ignored\n", from, to)
	return nil
}

func (s *Session) Open(path string) error {
	_, _, err := s.resolve(path)
	return err
}

func (s *Session) Access(path string) error {
	_, _, err := s.resolve(path)
	return err
}

// Utimens accepts any timestamps; inodes carry none.
func (s *Session) Utimens(path string) error {
	_, _, err := s.resolve(path)
	return err
}

func (s *Session) Statfs() (Stat, error) {
	if !s.mounted {
		return Stat{}, ErrUnmounted
	}
	return Stat{
		BlkSize:    s.sb.BlkSize,
		IOSize:     s.sb.IOSize,
		Blocks:     s.sb.MaxData,
		BlocksFree: s.dmap.NumFree(),
		Files:      s.sb.MaxIno,
		FilesFree:  s.imap.NumFree(),
		NameLen:    common.MAXNAMELEN,
		Used:       s.sb.Used,
	}, nil
}

// Walk calls fn for every entry under path, parents before children,
// loading directories as it goes.
func (s *Session) Walk(path string, fn func(path string, attr Attr) error) error {
	attr, err := s.GetAttr(path)
	if err != nil {
		return err
	}
	if err := fn(path, attr); err != nil {
		return err
	}
	if attr.Kind != common.KindDir {
		return nil
	}
	ents, err := s.ListDir(path)
	if err != nil {
		return err
	}
	for _, e := range ents {
		child := path + "/" + e.Name
		if path == common.ROOTNAME {
			child = common.ROOTNAME + e.Name
		}
		if err := s.Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
