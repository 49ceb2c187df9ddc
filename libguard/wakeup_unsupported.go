//go:build !linux

package libguard

import "github.com/selfguard/selfguard/libguard/configs"

func wakeupRules() []*configs.Syscall {
	return nil
}
