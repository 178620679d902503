package fs

import (
	"github.com/mit-pdos/go-newfs/common"
)

// DentryID names a directory entry in the session's dentry arena.
type DentryID uint64

// InodeID names a resident inode in the session's inode arena.
type InodeID uint64

const NULLDENTRY DentryID = ^DentryID(0)

type inodeState uint8

const (
	inodeNotLoaded inodeState = iota
	inodeLoaded
)

// inodeRef is a dentry's link to its inode, which is only populated once
// the inode has been read from disk or created.
type inodeRef struct {
	state inodeState
	id    InodeID
}

type dentry struct {
	name     string
	kind     common.Kind
	inum     common.Inum
	parent   DentryID // NULLDENTRY for the root
	next     DentryID // next sibling, older than this one
	inode    inodeRef
	unlinked bool
}

type inode struct {
	inum      common.Inum
	kind      common.Kind
	size      uint64 // bytes, for files
	nchildren uint64
	children  DentryID // newest child, for directories
	dentry    DentryID
	blocks    []common.Bnum // NDATAPERFILE slots, kind.NData() meaningful
	data      [][]byte      // resident file blocks; nil for directories
}

func (ip *inode) isDir() bool {
	return ip.kind == common.KindDir
}

// The arenas only grow; ids stay valid for the life of the session.
type tree struct {
	dentries []*dentry
	inodes   []*inode
}

func (t *tree) newDentry(name string, kind common.Kind, inum common.Inum, parent DentryID) DentryID {
	t.dentries = append(t.dentries, &dentry{
		name:   name,
		kind:   kind,
		inum:   inum,
		parent: parent,
		next:   NULLDENTRY,
	})
	return DentryID(len(t.dentries) - 1)
}

func (t *tree) dentry(id DentryID) *dentry {
	return t.dentries[id]
}

// attach makes ip the resident inode of dentry d, and d its back-reference.
func (t *tree) attach(d DentryID, ip *inode) *inode {
	t.inodes = append(t.inodes, ip)
	ip.dentry = d
	t.dentries[d].inode = inodeRef{state: inodeLoaded, id: InodeID(len(t.inodes) - 1)}
	return ip
}

// resident returns d's inode if it has been loaded.
func (t *tree) resident(d DentryID) (*inode, bool) {
	ref := t.dentries[d].inode
	if ref.state != inodeLoaded {
		return nil, false
	}
	return t.inodes[ref.id], true
}

// link prepends child to dir's children.
func (t *tree) link(dir *inode, child DentryID) {
	t.dentries[child].next = dir.children
	t.dentries[child].parent = dir.dentry
	dir.children = child
	dir.nchildren++
}

// unlink removes child from dir's children.
func (t *tree) unlink(dir *inode, child DentryID) {
	prev := NULLDENTRY
	for cur := dir.children; cur != NULLDENTRY; cur = t.dentries[cur].next {
		if cur != child {
			prev = cur
			continue
		}
		if prev == NULLDENTRY {
			dir.children = t.dentries[cur].next
		} else {
			t.dentries[prev].next = t.dentries[cur].next
		}
		t.dentries[cur].next = NULLDENTRY
		t.dentries[cur].unlinked = true
		dir.nchildren--
		return
	}
}

// findChild scans dir's children for an entry named exactly name.
func (t *tree) findChild(dir *inode, name string) (DentryID, bool) {
	for cur := dir.children; cur != NULLDENTRY; cur = t.dentries[cur].next {
		if t.dentries[cur].name == name {
			return cur, true
		}
	}
	return NULLDENTRY, false
}

// nthChild returns dir's n-th child, newest first.
func (t *tree) nthChild(dir *inode, n uint64) (DentryID, bool) {
	var i uint64
	for cur := dir.children; cur != NULLDENTRY; cur = t.dentries[cur].next {
		if i == n {
			return cur, true
		}
		i++
	}
	return NULLDENTRY, false
}

// path rebuilds the absolute path of d from parent links.
func (t *tree) path(d DentryID) string {
	if t.dentries[d].parent == NULLDENTRY {
		return common.ROOTNAME
	}
	var names []string
	for cur := d; t.dentries[cur].parent != NULLDENTRY; cur = t.dentries[cur].parent {
		names = append(names, t.dentries[cur].name)
	}
	p := ""
	for i := len(names) - 1; i >= 0; i-- {
		p += "/" + names[i]
	}
	return p
}
