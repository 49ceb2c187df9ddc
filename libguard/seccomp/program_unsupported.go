//go:build !linux

package seccomp

// FilterFlagTsync is SECCOMP_FILTER_FLAG_TSYNC.
const FilterFlagTsync uint = 0x1

func (p *Program) Load(flags uint) error {
	return ErrSeccompNotEnabled
}
