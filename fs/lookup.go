package fs

import (
	"strings"

	"github.com/mit-pdos/go-newfs/util"
)

// splitPath breaks path into its components. Empty components are skipped,
// so "/", "" and "//" all denote the root.
func splitPath(path string) []string {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

// lookupResult is where the resolver stopped.
type lookupResult struct {
	d      DentryID
	found  bool
	isRoot bool
	depth  int // number of path components matched
}

// lookup walks comps from the root, loading inodes from disk as it goes.
// It returns the entry named by comps if there is one, and otherwise the
// deepest entry it visited. Either way that entry's inode is resident.
func (s *Session) lookup(comps []string) (lookupResult, error) {
	if len(comps) == 0 {
		if _, err := s.inodeOf(s.root); err != nil {
			return lookupResult{}, err
		}
		return lookupResult{d: s.root, found: true, isRoot: true}, nil
	}

	cur := s.root
	for lvl, name := range comps {
		ip, err := s.inodeOf(cur)
		if err != nil {
			return lookupResult{}, err
		}
		if !ip.isDir() {
			// a file has no descendants
			return lookupResult{d: cur, depth: lvl}, nil
		}
		child, ok := s.tree.findChild(ip, name)
		if !ok {
			util.DPrintf(10, "lookup: %s not in %s\n", name, s.tree.dentry(cur).name)
			return lookupResult{d: cur, depth: lvl}, nil
		}
		cur = child
	}
	if _, err := s.inodeOf(cur); err != nil {
		return lookupResult{}, err
	}
	return lookupResult{d: cur, found: true, depth: len(comps)}, nil
}

// resolve looks up path and fails with a *LookupError if it does not name
// an entry.
func (s *Session) resolve(path string) (DentryID, *inode, error) {
	if !s.mounted {
		return NULLDENTRY, nil, ErrUnmounted
	}
	res, err := s.lookup(splitPath(path))
	if err != nil {
		return NULLDENTRY, nil, err
	}
	if !res.found {
		return NULLDENTRY, nil, &LookupError{
			Path: path,
			Last: s.tree.path(res.d),
			Err:  ErrNotFound,
		}
	}
	ip, _ := s.tree.resident(res.d)
	return res.d, ip, nil
}
