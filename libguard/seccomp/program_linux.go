package seccomp

import (
	"errors"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// SECCOMP_SET_MODE_FILTER
	seccompSetModeFilter = 0x1

	// FilterFlagTsync is SECCOMP_FILTER_FLAG_TSYNC: every thread of the
	// process is switched to the new filter, or none is.
	FilterFlagTsync uint = 0x1
)

// Load installs the program on the calling OS thread using seccomp(2).
// The caller must have set no_new_privs on the thread or hold
// CAP_SYS_ADMIN. Load is irreversible.
func (p *Program) Load(flags uint) error {
	if len(p.raw) == 0 {
		return errors.New("seccomp: empty filter program")
	}
	filter := make([]unix.SockFilter, 0, len(p.raw))
	for _, insn := range p.raw {
		filter = append(filter, unix.SockFilter{
			Code: insn.Op,
			Jt:   insn.Jt,
			Jf:   insn.Jf,
			K:    insn.K,
		})
	}
	fprog := unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	}
	ret, _, errno := unix.RawSyscall(unix.SYS_SECCOMP,
		seccompSetModeFilter,
		uintptr(flags), uintptr(unsafe.Pointer(&fprog)))
	runtime.KeepAlive(filter)
	runtime.KeepAlive(fprog)
	if errno != 0 {
		return os.NewSyscallError("seccomp", errno)
	}
	// With TSYNC, a positive return is the tid of the thread that could
	// not be synchronized.
	if flags&FilterFlagTsync != 0 && ret != 0 {
		return &TsyncError{Tid: int(ret)}
	}
	return nil
}
