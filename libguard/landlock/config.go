package landlock

import (
	"errors"
	"fmt"
	"sort"

	"github.com/landlock-lsm/go-landlock/landlock"
	ll "github.com/landlock-lsm/go-landlock/landlock/syscall"
)

var ErrLandlockNotSupported = errors.New("landlock: config provided but Landlock not supported")

// ErrLandlockUnavailable is returned when the running kernel does not
// provide Landlock. Path rules are never silently dropped.
var ErrLandlockUnavailable = errors.New("landlock: not available on this kernel")

var accessFSSets = map[string]landlock.AccessFSSet{
	"execute":     ll.AccessFSExecute,
	"write_file":  ll.AccessFSWriteFile,
	"read_file":   ll.AccessFSReadFile,
	"read_dir":    ll.AccessFSReadDir,
	"remove_dir":  ll.AccessFSRemoveDir,
	"remove_file": ll.AccessFSRemoveFile,
	"make_char":   ll.AccessFSMakeChar,
	"make_dir":    ll.AccessFSMakeDir,
	"make_reg":    ll.AccessFSMakeReg,
	"make_sock":   ll.AccessFSMakeSock,
	"make_fifo":   ll.AccessFSMakeFifo,
	"make_block":  ll.AccessFSMakeBlock,
	"make_sym":    ll.AccessFSMakeSym,
	"refer":       ll.AccessFSRefer,
	"truncate":    ll.AccessFSTruncate,
	"ioctl_dev":   ll.AccessFSIoctlDev,
}

// ConvertStringToAccessFSSet converts a string into a go-landlock AccessFSSet
// access right.
func ConvertStringToAccessFSSet(in string) (landlock.AccessFSSet, error) {
	if access, ok := accessFSSets[in]; ok {
		return access, nil
	}
	return 0, fmt.Errorf("string %s is not a valid access right for landlock", in)
}

// ConvertStringsToAccessFSSet is ConvertStringToAccessFSSet for a list of
// rights; the result is their union.
func ConvertStringsToAccessFSSet(in []string) (landlock.AccessFSSet, error) {
	var set landlock.AccessFSSet
	for _, s := range in {
		access, err := ConvertStringToAccessFSSet(s)
		if err != nil {
			return 0, err
		}
		set |= access
	}
	return set, nil
}

// KnownAccessRights returns the names accepted by ConvertStringToAccessFSSet.
func KnownAccessRights() []string {
	var res []string
	for k := range accessFSSets {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// AccessRightNames returns the names of the rights in set, sorted.
func AccessRightNames(set landlock.AccessFSSet) []string {
	var res []string
	for k, access := range accessFSSets {
		if set&access != 0 {
			res = append(res, k)
		}
	}
	sort.Strings(res)
	return res
}

// Rights handled by each Landlock ABI version. Index 0 is unused.
var abiAccessFS = []landlock.AccessFSSet{
	1: ll.AccessFSExecute | ll.AccessFSWriteFile | ll.AccessFSReadFile |
		ll.AccessFSReadDir | ll.AccessFSRemoveDir | ll.AccessFSRemoveFile |
		ll.AccessFSMakeChar | ll.AccessFSMakeDir | ll.AccessFSMakeReg |
		ll.AccessFSMakeSock | ll.AccessFSMakeFifo | ll.AccessFSMakeBlock |
		ll.AccessFSMakeSym,
	2: ll.AccessFSRefer,
	3: ll.AccessFSTruncate,
	4: 0,
	5: ll.AccessFSIoctlDev,
}

// HandledAccessFS returns every filesystem right known to the given ABI
// version. Versions newer than this package knows about are treated as the
// newest known one.
func HandledAccessFS(abi int) landlock.AccessFSSet {
	var set landlock.AccessFSSet
	for v := 1; v <= abi && v < len(abiAccessFS); v++ {
		set |= abiAccessFS[v]
	}
	return set
}

// accessFile holds the rights that apply to non-directories. The kernel
// rejects any other right on a rule for a regular file.
const accessFile landlock.AccessFSSet = ll.AccessFSExecute | ll.AccessFSWriteFile |
	ll.AccessFSReadFile | ll.AccessFSTruncate | ll.AccessFSIoctlDev
