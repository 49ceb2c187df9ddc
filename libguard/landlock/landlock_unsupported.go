//go:build !linux

package landlock

import (
	"github.com/selfguard/selfguard/libguard/configs"
)

// Ruleset is not supported on this platform.
type Ruleset struct{}

func ABIVersion() (int, error) {
	return 0, ErrLandlockNotSupported
}

// Build does nothing because Landlock is not supported.
func Build(config *configs.Landlock) (*Ruleset, error) {
	return nil, ErrLandlockNotSupported
}

func (r *Ruleset) RestrictSelf() error {
	return ErrLandlockNotSupported
}

func (r *Ruleset) Close() error {
	return nil
}
