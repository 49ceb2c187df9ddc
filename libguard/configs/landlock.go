package configs

import (
	"path/filepath"
	"sort"

	"github.com/landlock-lsm/go-landlock/landlock"
	ll "github.com/landlock-lsm/go-landlock/landlock/syscall"
)

// Common groups of Landlock filesystem rights.
const (
	AccessReadFile  landlock.AccessFSSet = ll.AccessFSReadFile
	AccessWriteFile landlock.AccessFSSet = ll.AccessFSWriteFile | ll.AccessFSTruncate
	AccessListDir   landlock.AccessFSSet = ll.AccessFSReadDir
	AccessReadTree  landlock.AccessFSSet = ll.AccessFSReadFile | ll.AccessFSReadDir
	AccessCreate    landlock.AccessFSSet = ll.AccessFSMakeReg | ll.AccessFSMakeDir
	AccessRemove    landlock.AccessFSSet = ll.AccessFSRemoveFile
	AccessRemoveDir landlock.AccessFSSet = ll.AccessFSRemoveDir
	AccessExecute   landlock.AccessFSSet = ll.AccessFSExecute
)

// PathRule grants Access to Path and, for directories, to everything
// beneath it.
type PathRule struct {
	Path   string               `json:"path"`
	Access landlock.AccessFSSet `json:"access"`
}

// Landlock holds the path rules of a policy. Every right known to the
// running kernel is handled; anything not granted here is denied.
type Landlock struct {
	Rules []PathRule `json:"rules"`
}

// Lookup returns the rule for path, comparing cleaned paths.
func (l *Landlock) Lookup(path string) (PathRule, bool) {
	if l == nil {
		return PathRule{}, false
	}
	path = filepath.Clean(path)
	for _, r := range l.Rules {
		if filepath.Clean(r.Path) == path {
			return r, true
		}
	}
	return PathRule{}, false
}

// Sort orders the rules by path.
func (l *Landlock) Sort() {
	sort.Slice(l.Rules, func(i, j int) bool {
		return l.Rules[i].Path < l.Rules[j].Path
	})
}
