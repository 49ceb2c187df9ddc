package rulesets

import (
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/configs"
)

// Threads grants thread management beyond what BasicRuleset allows.
type Threads struct {
	rules
}

func (Threads) Name() string {
	return "Threads"
}

// AllowCreate allows clone(2) with CLONE_THREAD. clone3 stays denied and
// answers ENOSYS, so libc falls back to clone.
func (t Threads) AllowCreate() Threads {
	t.rules = t.allowIf(libguard.ThreadCloneRule()).allow("set_robust_list", "rseq")
	return t
}

func (t Threads) AllowSleep() libguard.YesReally[Threads] {
	t.rules = t.allow(timeSleepSyscalls...)
	return libguard.NewYesReally(t)
}

// AllowSetName allows prctl(PR_SET_NAME) and nothing else of prctl.
func (t Threads) AllowSetName() Threads {
	t.rules = t.allowIf(when("prctl", configs.ArgEq(0, unix.PR_SET_NAME)))
	return t
}
