// Package fusefs serves a mounted newfs session to the kernel through
// bazil.org/fuse. Nodes carry their absolute path and every request is
// forwarded to the session under one lock, since the engine itself does no
// locking.
package fusefs

import (
	"context"
	"os"
	"path"
	"sync"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	log "github.com/sirupsen/logrus"

	"github.com/mit-pdos/go-newfs/common"
	newfs "github.com/mit-pdos/go-newfs/fs"
)

var (
	_ fs.FS          = (*FS)(nil)
	_ fs.FSStatfser  = (*FS)(nil)
	_ fs.FSDestroyer = (*FS)(nil)

	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.NodeMkdirer        = (*Dir)(nil)
	_ fs.NodeCreater        = (*Dir)(nil)
	_ fs.NodeRemover        = (*Dir)(nil)
	_ fs.NodeRenamer        = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)

	_ fs.HandleReader  = (*File)(nil)
	_ fs.HandleWriter  = (*File)(nil)
	_ fs.NodeSetattrer = (*File)(nil)
	_ fs.NodeFsyncer   = (*File)(nil)
	_ fs.NodeOpener    = (*File)(nil)
)

// FS implements the newfs FUSE filesystem
type FS struct {
	mu sync.Mutex // serializes all access to s
	s  *newfs.Session
}

func NewFS(s *newfs.Session) *FS {
	return &FS{s: s}
}

// errno converts an engine error into the number the kernel sees.
func errno(err error) error {
	if err == nil {
		return nil
	}
	return fuse.Errno(newfs.Errno(err))
}

func (f *FS) Root() (fs.Node, error) {
	return &Dir{fsys: f, path: common.ROOTNAME}, nil
}

func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.s.Statfs()
	if err != nil {
		return errno(err)
	}
	resp.Blocks = st.Blocks
	resp.Bfree = st.BlocksFree
	resp.Bavail = st.BlocksFree
	resp.Files = st.Files
	resp.Ffree = st.FilesFree
	resp.Bsize = uint32(st.BlkSize)
	resp.Frsize = uint32(st.BlkSize)
	resp.Namelen = uint32(st.NameLen)
	return nil
}

// Destroy is called when the kernel lets go of the mount.
func (f *FS) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.s.Unmount(); err != nil {
		log.Errorf("unmounting on destroy: %v", err)
	}
}

func (f *FS) attr(p string, a *fuse.Attr) error {
	attr, err := f.s.GetAttr(p)
	if err != nil {
		return errno(err)
	}
	fillAttr(attr, a)
	return nil
}

func fillAttr(attr newfs.Attr, a *fuse.Attr) {
	a.Inode = uint64(attr.Ino) + 1 // the kernel reserves inode 0
	a.Size = attr.Size
	a.Blocks = attr.Blocks
	a.Nlink = attr.Nlink
	a.Mode = os.FileMode(attr.Perm)
	if attr.Kind == common.KindDir {
		a.Mode |= os.ModeDir
	}
}

func (f *FS) node(p string, kind common.Kind) fs.Node {
	if kind == common.KindDir {
		return &Dir{fsys: f, path: p}
	}
	return &File{fsys: f, path: p}
}

// Dir implements both Node and Handle for directories
type Dir struct {
	fsys *FS
	path string
}

func (d *Dir) child(name string) string {
	return path.Join(d.path, name)
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	return d.fsys.attr(d.path, a)
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	p := d.child(name)
	attr, err := d.fsys.s.GetAttr(p)
	if err != nil {
		return nil, errno(err)
	}
	return d.fsys.node(p, attr.Kind), nil
}

func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	p := d.child(req.Name)
	if err := d.fsys.s.Mkdir(p); err != nil {
		return nil, errno(err)
	}
	return &Dir{fsys: d.fsys, path: p}, nil
}

func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	p := d.child(req.Name)
	if err := d.fsys.s.Create(p); err != nil {
		return nil, nil, errno(err)
	}
	if err := d.fsys.attr(p, &resp.Attr); err != nil {
		return nil, nil, err
	}
	file := &File{fsys: d.fsys, path: p}
	return file, file, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	ents, err := d.fsys.s.ListDir(d.path)
	if err != nil {
		return nil, errno(err)
	}
	dirents := make([]fuse.Dirent, 0, len(ents))
	for _, e := range ents {
		typ := fuse.DT_File
		if e.Kind == common.KindDir {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: uint64(e.Ino) + 1,
			Name:  e.Name,
			Type:  typ,
		})
	}
	return dirents, nil
}

func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	p := d.child(req.Name)
	if req.Dir {
		return errno(d.fsys.s.Rmdir(p))
	}
	return errno(d.fsys.s.Unlink(p))
}

func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()
	to := d.child(req.NewName)
	if nd, ok := newDir.(*Dir); ok {
		to = nd.child(req.NewName)
	}
	return errno(d.fsys.s.Rename(d.child(req.OldName), to))
}

// File implements both Node and Handle for files
type File struct {
	fsys *FS
	path string
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	f.fsys.mu.Lock()
	defer f.fsys.mu.Unlock()
	return f.fsys.attr(f.path, a)
}

func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	f.fsys.mu.Lock()
	defer f.fsys.mu.Unlock()
	if err := f.fsys.s.Open(f.path); err != nil {
		return nil, errno(err)
	}
	return f, nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	f.fsys.mu.Lock()
	defer f.fsys.mu.Unlock()
	if req.Offset < 0 {
		return errno(newfs.ErrSeek)
	}
	b := make([]byte, req.Size)
	n, err := f.fsys.s.Read(f.path, b, uint64(req.Offset))
	if err != nil {
		return errno(err)
	}
	resp.Data = b[:n]
	return nil
}

func (f *File) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	f.fsys.mu.Lock()
	defer f.fsys.mu.Unlock()
	if req.Offset < 0 {
		return errno(newfs.ErrSeek)
	}
	n, err := f.fsys.s.Write(f.path, req.Data, uint64(req.Offset))
	if err != nil {
		return errno(err)
	}
	resp.Size = n
	return nil
}

// Setattr applies size changes; timestamps and modes are accepted and
// dropped.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	f.fsys.mu.Lock()
	defer f.fsys.mu.Unlock()
	if req.Valid.Size() {
		if err := f.fsys.s.Truncate(f.path, req.Size); err != nil {
			return errno(err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		if err := f.fsys.s.Utimens(f.path); err != nil {
			return errno(err)
		}
	}
	return f.fsys.attr(f.path, &resp.Attr)
}

func (f *File) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	f.fsys.mu.Lock()
	defer f.fsys.mu.Unlock()
	return errno(f.fsys.s.Sync())
}
