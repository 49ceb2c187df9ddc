//go:build linux

package system

import (
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/internal/linux"
)

// SetNoNewPrivs sets no_new_privs on the calling thread.
func SetNoNewPrivs() error {
	return linux.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
}

// NoNewPrivs reports whether no_new_privs is set on the calling thread.
func NoNewPrivs() (bool, error) {
	ret, err := linux.PrctlRetInt(unix.PR_GET_NO_NEW_PRIVS, 0, 0, 0, 0)
	return ret == 1, err
}

// SeccompMode returns the seccomp mode of the calling thread.
func SeccompMode() (int, error) {
	return linux.PrctlRetInt(unix.PR_GET_SECCOMP, 0, 0, 0, 0)
}

func Gettid() int {
	return unix.Gettid()
}
