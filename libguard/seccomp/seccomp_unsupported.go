//go:build !linux || !cgo

package seccomp

import (
	"github.com/selfguard/selfguard/libguard/configs"
)

// Enabled is true if seccomp support is compiled in.
const Enabled = false

// Compile is not supported without linux and cgo.
func Compile(config *configs.Seccomp) (*Program, error) {
	return nil, ErrSeccompNotEnabled
}

// Version returns major, minor, and micro.
func Version() (uint, uint, uint) {
	return 0, 0, 0
}
