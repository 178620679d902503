package fs

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-newfs/common"
	ndisk "github.com/mit-pdos/go-newfs/disk"
	"github.com/mit-pdos/go-newfs/super"
)

type FsSuite struct {
	suite.Suite
	d disk.Disk
	s *Session
}

func (suite *FsSuite) mount() *Session {
	dev, err := ndisk.NewGooseDevice(suite.d, common.IOSZ)
	suite.Require().NoError(err)
	s, err := Mount(dev)
	suite.Require().NoError(err)
	suite.s = s
	return s
}

func (suite *FsSuite) remount() *Session {
	suite.Require().NoError(suite.s.Unmount())
	return suite.mount()
}

func (suite *FsSuite) SetupTest() {
	suite.d = disk.NewMemDisk(common.DISKSZ / disk.BlockSize)
	suite.mount()
}

func TestFs(t *testing.T) {
	suite.Run(t, new(FsSuite))
}

func (suite *FsSuite) names(path string) []string {
	ents, err := suite.s.ListDir(path)
	suite.Require().NoError(err)
	var names []string
	for _, e := range ents {
		names = append(names, e.Name)
	}
	return names
}

func (suite *FsSuite) TestFreshMount() {
	s := suite.s
	sb := s.Super()
	suite.Equal(common.MAGIC, sb.Magic)
	suite.Equal(uint64(1024), sb.BlkSize)
	suite.Equal(uint64(59392), sb.DataOff)
	suite.Equal(uint64(700), sb.MaxIno)
	suite.Equal(uint64(4038), sb.MaxData)

	attr, err := s.GetAttr("/")
	suite.NoError(err)
	suite.True(attr.IsRoot)
	suite.Equal(common.ROOTINUM, attr.Ino)
	suite.Equal(common.KindDir, attr.Kind)
	suite.Equal(uint64(2048), attr.Size, "root reports used bytes")
	suite.Equal(uint64(0), attr.Children)
	suite.Empty(suite.names("/"))
}

func (suite *FsSuite) TestRoundTrip() {
	s := suite.s
	suite.NoError(s.Mkdir("/a"))
	suite.NoError(s.Mkdir("/a/b"))
	suite.NoError(s.Create("/a/b/c"))
	_, err := s.Write("/a/b/c", []byte("contents"), 0)
	suite.NoError(err)
	before, err := s.GetAttr("/a/b/c")
	suite.NoError(err)

	s = suite.remount()
	for _, p := range []string{"/a", "/a/b"} {
		attr, err := s.GetAttr(p)
		suite.NoError(err, p)
		suite.Equal(common.KindDir, attr.Kind, p)
	}
	after, err := s.GetAttr("/a/b/c")
	suite.NoError(err)
	suite.Equal(before, after)
	suite.Equal(common.KindFile, after.Kind)
	suite.Equal(uint64(8), after.Size)

	attr, err := s.GetAttr("/a")
	suite.NoError(err)
	suite.Equal(common.DIRENTSZ, attr.Size)
	suite.Equal(uint64(1), attr.Children)
	suite.Equal([]string{"c"}, suite.names("/a/b"))
}

func (suite *FsSuite) TestLazyLoad() {
	suite.NoError(suite.s.Mkdir("/a"))
	suite.NoError(suite.s.Mkdir("/a/b"))
	s := suite.remount()

	root, ok := s.tree.resident(s.root)
	suite.Require().True(ok)
	a, ok := s.tree.findChild(root, "a")
	suite.Require().True(ok)
	_, ok = s.tree.resident(a)
	suite.False(ok, "children are not loaded at mount")

	_, err := s.GetAttr("/a/b")
	suite.NoError(err)
	_, ok = s.tree.resident(a)
	suite.True(ok, "lookup loads the directories it walks")
}

func (suite *FsSuite) TestUniqueInums() {
	s := suite.s
	seen := map[common.Inum]string{common.ROOTINUM: "/"}
	for i := 0; i < 5; i++ {
		p := fmt.Sprintf("/d%d", i)
		suite.NoError(s.Mkdir(p))
		f := fmt.Sprintf("/d%d/f", i)
		suite.NoError(s.Create(f))
		for _, q := range []string{p, f} {
			attr, err := s.GetAttr(q)
			suite.NoError(err)
			other, dup := seen[attr.Ino]
			suite.False(dup, "%s shares inode %d with %s", q, attr.Ino, other)
			seen[attr.Ino] = q
		}
	}
}

func (suite *FsSuite) TestExactLookup() {
	s := suite.s
	suite.NoError(s.Mkdir("/xy"))
	_, err := s.GetAttr("/x")
	suite.True(errors.Is(err, ErrNotFound), "got %v", err)
	suite.NoError(s.Mkdir("/x"))
	_, err = s.GetAttr("/x")
	suite.NoError(err)
	_, err = s.GetAttr("/xyz")
	suite.True(errors.Is(err, ErrNotFound), "got %v", err)
}

func (suite *FsSuite) TestExistsNotFound() {
	s := suite.s
	suite.NoError(s.Mkdir("/a"))
	err := s.Mkdir("/a")
	suite.True(errors.Is(err, ErrExists), "got %v", err)
	err = s.Create("/a")
	suite.True(errors.Is(err, ErrExists), "got %v", err)
	err = s.Mkdir("/")
	suite.True(errors.Is(err, ErrExists), "got %v", err)

	err = s.Mkdir("/missing/child")
	suite.True(errors.Is(err, ErrNotFound), "got %v", err)
	var lerr *LookupError
	suite.Require().True(errors.As(err, &lerr))
	suite.Equal("/", lerr.Last)
	suite.Equal([]string{"a"}, suite.names("/"), "nothing created under the last directory visited")

	err = s.Mkdir("/a/missing/child")
	suite.Require().True(errors.As(err, &lerr))
	suite.Equal("/a", lerr.Last)
}

func (suite *FsSuite) TestBadNames() {
	s := suite.s
	err := s.Mkdir("/" + strings.Repeat("n", int(common.MAXNAMELEN)+1))
	suite.True(errors.Is(err, ErrNameTooLong), "got %v", err)
	suite.NoError(s.Mkdir("/" + strings.Repeat("n", int(common.MAXNAMELEN))))
	err = s.Mkdir("/..")
	suite.True(errors.Is(err, ErrInvalid), "got %v", err)

	s = suite.remount()
	suite.Equal([]string{strings.Repeat("n", int(common.MAXNAMELEN))}, suite.names("/"))
}

func (suite *FsSuite) TestDirCapacity() {
	s := suite.s
	max := common.MaxDirents(s.Super().BlkSize)
	suite.Equal(uint64(14), max)
	for i := uint64(0); i < max; i++ {
		suite.NoError(s.Create(fmt.Sprintf("/f%d", i)))
	}
	err := s.Create("/overflow")
	suite.True(errors.Is(err, ErrDirFull), "got %v", err)
	suite.True(errors.Is(err, ErrNoSpace), "got %v", err)

	s = suite.remount()
	names := suite.names("/")
	suite.Len(names, int(max))
	suite.Equal("f13", names[0])
	suite.Equal("f0", names[max-1])
}

func (suite *FsSuite) TestIdempotentMount() {
	s := suite.s
	suite.NoError(s.Mkdir("/a"))
	suite.NoError(s.Create("/a/f"))
	s = suite.remount()
	before, err := s.Statfs()
	suite.NoError(err)
	ibm := append([]byte(nil), s.imap.Bytes()...)
	dbm := append([]byte(nil), s.dmap.Bytes()...)

	s = suite.remount()
	after, err := s.Statfs()
	suite.NoError(err)
	suite.Equal(before, after)
	suite.Equal(ibm, s.imap.Bytes())
	suite.Equal(dbm, s.dmap.Bytes())
	suite.Equal(uint64(2+2+6)*1024, after.Used)

	// allocation after remount does not hand out numbers already in use
	suite.NoError(s.Mkdir("/b"))
	attr, err := s.GetAttr("/b")
	suite.NoError(err)
	suite.Equal(common.Inum(3), attr.Ino)
}

func (suite *FsSuite) TestNewestFirst() {
	s := suite.s
	for _, n := range []string{"p", "q", "r"} {
		suite.NoError(s.Mkdir("/" + n))
	}
	suite.Equal([]string{"r", "q", "p"}, suite.names("/"))
	name, ok, err := s.ReadDir("/", 0)
	suite.NoError(err)
	suite.True(ok)
	suite.Equal("r", name)
	_, ok, err = s.ReadDir("/", 3)
	suite.NoError(err)
	suite.False(ok)

	suite.remount()
	suite.Equal([]string{"r", "q", "p"}, suite.names("/"))
	suite.remount()
	suite.Equal([]string{"r", "q", "p"}, suite.names("/"))
}

func (suite *FsSuite) TestFileData() {
	s := suite.s
	suite.NoError(s.Create("/f"))
	data := []byte("hello, block boundary")
	n, err := s.Write("/f", data, 1020)
	suite.NoError(err)
	suite.Equal(len(data), n)

	s = suite.remount()
	attr, err := s.GetAttr("/f")
	suite.NoError(err)
	suite.Equal(uint64(1020+len(data)), attr.Size)
	b := make([]byte, 64)
	n, err = s.Read("/f", b, 1020)
	suite.NoError(err)
	suite.Equal(data, b[:n])
	n, err = s.Read("/f", b, 0)
	suite.NoError(err)
	suite.Equal(64, n)
	suite.Equal(make([]byte, 64), b, "hole reads as zeroes")
	n, err = s.Read("/f", b, attr.Size)
	suite.NoError(err)
	suite.Equal(0, n)
}

func (suite *FsSuite) TestFileLimits() {
	s := suite.s
	suite.NoError(s.Create("/f"))
	suite.NoError(s.Mkdir("/d"))
	capacity := common.NDATAPERFILE * s.Super().BlkSize

	_, err := s.Write("/f", []byte("12345"), capacity-4)
	suite.True(errors.Is(err, ErrNoSpace), "got %v", err)
	n, err := s.Write("/f", []byte("1234"), capacity-4)
	suite.NoError(err)
	suite.Equal(4, n)

	n, err = s.Write("/f", nil, capacity+100)
	suite.NoError(err)
	suite.Equal(0, n)
	attr, err := s.GetAttr("/f")
	suite.NoError(err)
	suite.Equal(capacity, attr.Size, "empty write leaves the size alone")

	_, err = s.Write("/d", []byte("x"), 0)
	suite.True(errors.Is(err, ErrIsDir), "got %v", err)
	_, err = s.Read("/d", make([]byte, 1), 0)
	suite.True(errors.Is(err, ErrIsDir), "got %v", err)

	suite.NoError(s.Truncate("/f", 2))
	b := make([]byte, 8)
	_, err = s.Write("/f", []byte("ab"), 0)
	suite.NoError(err)
	suite.NoError(s.Truncate("/f", 1))
	suite.NoError(s.Truncate("/f", 2))
	n, err = s.Read("/f", b, 0)
	suite.NoError(err)
	suite.Equal([]byte{'a', 0}, b[:n])
	err = s.Truncate("/f", capacity+1)
	suite.True(errors.Is(err, ErrNoSpace), "got %v", err)
}

func (suite *FsSuite) TestCreateInFile() {
	s := suite.s
	suite.NoError(s.Create("/f"))
	err := s.Mkdir("/f/x")
	suite.True(errors.Is(err, ErrUnsupported), "got %v", err)
	_, err = s.ListDir("/f")
	suite.True(errors.Is(err, ErrUnsupported), "got %v", err)
	_, err = s.GetAttr("/f/x")
	suite.True(errors.Is(err, ErrNotFound), "got %v", err)
}

func (suite *FsSuite) TestRemove() {
	s := suite.s
	suite.NoError(s.Mkdir("/d"))
	suite.NoError(s.Create("/d/f"))
	before, err := s.Statfs()
	suite.NoError(err)

	err = s.Rmdir("/d")
	suite.True(errors.Is(err, ErrNotEmpty), "got %v", err)
	err = s.Unlink("/d")
	suite.True(errors.Is(err, ErrIsDir), "got %v", err)
	err = s.Rmdir("/d/f")
	suite.True(errors.Is(err, ErrInvalid), "got %v", err)
	err = s.Rmdir("/")
	suite.True(errors.Is(err, ErrAccess), "got %v", err)

	suite.NoError(s.Unlink("/d/f"))
	suite.NoError(s.Rmdir("/d"))
	_, err = s.GetAttr("/d")
	suite.True(errors.Is(err, ErrNotFound), "got %v", err)

	after, err := s.Statfs()
	suite.NoError(err)
	suite.Equal(before, after, "space is not reclaimed")

	s = suite.remount()
	suite.Empty(suite.names("/"))
	suite.NoError(s.Mkdir("/d"))
	attr, err := s.GetAttr("/d")
	suite.NoError(err)
	suite.Equal(common.Inum(3), attr.Ino, "old inode numbers stay taken")
}

func (suite *FsSuite) TestStubs() {
	s := suite.s
	suite.NoError(s.Mkdir("/a"))
	suite.NoError(s.Rename("/a", "/b"))
	suite.Equal([]string{"a"}, suite.names("/"))
	err := s.Rename("/nope", "/b")
	suite.True(errors.Is(err, ErrNotFound), "got %v", err)
	suite.NoError(s.Open("/a"))
	suite.NoError(s.Access("/a"))
	suite.NoError(s.Utimens("/a"))
	suite.True(errors.Is(s.Open("/nope"), ErrNotFound))
}

func (suite *FsSuite) TestWalk() {
	s := suite.s
	suite.NoError(s.Mkdir("/a"))
	suite.NoError(s.Create("/a/f"))
	suite.NoError(s.Create("/g"))
	var paths []string
	err := s.Walk("/", func(p string, attr Attr) error {
		paths = append(paths, p)
		return nil
	})
	suite.NoError(err)
	suite.Equal([]string{"/", "/g", "/a", "/a/f"}, paths)
}

func (suite *FsSuite) TestUnmounted() {
	s := suite.s
	suite.NoError(s.Unmount())
	suite.False(s.Mounted())
	suite.NoError(s.Unmount(), "second unmount does nothing")
	suite.True(errors.Is(s.Mkdir("/a"), ErrUnmounted))
	_, err := s.GetAttr("/")
	suite.True(errors.Is(err, ErrUnmounted))
	_, err = s.Statfs()
	suite.True(errors.Is(err, ErrUnmounted))
	suite.True(errors.Is(s.Sync(), ErrUnmounted))
	suite.mount()
}

func (suite *FsSuite) TestFormat() {
	suite.NoError(suite.s.Mkdir("/a"))
	suite.NoError(suite.s.Unmount())
	dev, err := ndisk.NewGooseDevice(suite.d, common.IOSZ)
	suite.Require().NoError(err)
	s, err := Format(dev)
	suite.Require().NoError(err)
	suite.s = s
	suite.Empty(suite.names("/"))
	suite.Equal(uint64(2048), s.Super().Used)
}

func (suite *FsSuite) TestSync() {
	s := suite.s
	suite.NoError(s.Mkdir("/a"))
	suite.NoError(s.Sync())

	// a second session on the same disk sees the synced state
	dev, err := ndisk.NewGooseDevice(suite.d, common.IOSZ)
	suite.Require().NoError(err)
	other, err := Mount(dev)
	suite.Require().NoError(err)
	_, err = other.GetAttr("/a")
	suite.NoError(err)
}

func TestFlushError(t *testing.T) {
	assert := assert.New(t)
	f := ndisk.NewFaultyDisk(ndisk.NewMemDevice(common.DISKSZ, common.IOSZ))
	s, err := Mount(f)
	assert.NoError(err)
	assert.NoError(s.Mkdir("/a"))

	f.FailWritesAfter(0)
	err = s.Unmount()
	assert.True(errors.Is(err, ErrIO), "got %v", err)
	assert.True(errors.Is(err, ndisk.ErrInjected), "got %v", err)
	assert.Equal(syscall.EIO, Errno(err))
	assert.True(s.Mounted(), "failed unmount leaves the session mounted")

	f.Heal()
	assert.NoError(s.Unmount())
}

func TestLoadError(t *testing.T) {
	assert := assert.New(t)
	md := disk.NewMemDisk(common.DISKSZ / disk.BlockSize)
	dev, _ := ndisk.NewGooseDevice(md, common.IOSZ)
	s, err := Mount(dev)
	assert.NoError(err)
	assert.NoError(s.Mkdir("/a"))
	sb := s.Super()
	assert.NoError(s.Unmount())

	dev, _ = ndisk.NewGooseDevice(md, common.IOSZ)
	f := ndisk.NewFaultyDisk(dev)
	s, err = Mount(f)
	assert.NoError(err)
	// inode 1 shares a unit with the root record, which is already loaded
	f.FailReadAt(sb.Inum2Off(1) / common.IOSZ * common.IOSZ)
	_, err = s.GetAttr("/a")
	assert.True(errors.Is(err, ErrIO), "got %v", err)
	f.Heal()
	_, err = s.GetAttr("/a")
	assert.NoError(err)
}

func TestSmallUnits(t *testing.T) {
	for _, iosz := range []uint64{32, 64} {
		_, err := Mount(ndisk.NewMemDevice(common.DISKSZ, iosz))
		assert.True(t, errors.Is(err, super.ErrGeometry), "io size %d: got %v", iosz, err)
		_, err = Format(ndisk.NewMemDevice(common.DISKSZ, iosz))
		assert.True(t, errors.Is(err, super.ErrGeometry), "io size %d: got %v", iosz, err)
	}
}

func TestNoSpace(t *testing.T) {
	assert := assert.New(t)
	// room for 70 data blocks: the root's 2 and 11 files of 6
	s, err := Mount(ndisk.NewMemDevice(128*1024, common.IOSZ))
	assert.NoError(err)
	assert.Equal(uint64(70), s.Super().MaxData)
	for i := 0; i < 11; i++ {
		assert.NoError(s.Create(fmt.Sprintf("/f%d", i)))
	}
	st, _ := s.Statfs()
	err = s.Create("/full")
	assert.True(errors.Is(err, ErrNoSpace), "got %v", err)
	assert.Equal(syscall.ENOSPC, Errno(err))
	after, _ := s.Statfs()
	assert.Equal(st, after, "failed create rolls back its inode")

	assert.NoError(s.Mkdir("/d"))
	attr, err := s.GetAttr("/d")
	assert.NoError(err)
	assert.Equal(common.Inum(12), attr.Ino)
}

func TestErrno(t *testing.T) {
	tests := []struct {
		err   error
		errno syscall.Errno
	}{
		{nil, 0},
		{ErrAccess, syscall.EACCES},
		{ErrSeek, syscall.ESPIPE},
		{ErrIsDir, syscall.EISDIR},
		{ErrDirFull, syscall.ENOSPC},
		{fmt.Errorf("wrapped: %w", ErrExists), syscall.EEXIST},
		{&LookupError{Path: "/a/b", Last: "/", Err: ErrNotFound}, syscall.ENOENT},
		{ErrUnsupported, syscall.ENXIO},
		{ErrInvalid, syscall.EINVAL},
		{ErrNotEmpty, syscall.ENOTEMPTY},
		{ErrNameTooLong, syscall.ENAMETOOLONG},
		{ErrUnmounted, syscall.EIO},
		{errors.New("other"), syscall.EIO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.errno, Errno(tt.err), "%v", tt.err)
	}
}
