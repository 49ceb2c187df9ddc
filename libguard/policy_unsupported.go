//go:build !linux

package libguard

import "github.com/selfguard/selfguard/libguard/seccomp"

func (p *Policy) ApplyToCurrentThread() error {
	return seccomp.ErrSeccompNotEnabled
}

func (p *Policy) ApplyToAllThreads() error {
	return seccomp.ErrSeccompNotEnabled
}
