//go:build linux

package linux

import (
	"os"

	"golang.org/x/sys/unix"
)

// Exec wraps [unix.Exec].
func Exec(cmd string, args []string, env []string) error {
	err := retryOnEINTR(func() error {
		return unix.Exec(cmd, args, env)
	})
	if err != nil {
		return &os.PathError{Op: "exec", Path: cmd, Err: err}
	}
	return nil
}

// Open wraps [unix.Open].
func Open(path string, mode int, perm uint32) (fd int, err error) {
	fd, err = retryOnEINTR2(func() (int, error) {
		return unix.Open(path, mode, perm)
	})
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

// Fstat wraps [unix.Fstat].
func Fstat(fd int) (*unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, os.NewSyscallError("fstat", err)
	}
	return &st, nil
}

// Prctl wraps [unix.Prctl].
func Prctl(option int, arg2, arg3, arg4, arg5 uintptr) error {
	return os.NewSyscallError("prctl", unix.Prctl(option, arg2, arg3, arg4, arg5))
}

// PrctlRetInt wraps [unix.PrctlRetInt].
func PrctlRetInt(option int, arg2, arg3, arg4, arg5 uintptr) (int, error) {
	ret, err := unix.PrctlRetInt(option, arg2, arg3, arg4, arg5)
	return ret, os.NewSyscallError("prctl", err)
}
