package libguard

import (
	"errors"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/selfguard/selfguard/libguard/seccomp"
	"github.com/selfguard/selfguard/libguard/system"
)

var (
	lockOSThread   = runtime.LockOSThread
	unlockOSThread = runtime.UnlockOSThread
)

// ApplyToCurrentThread installs the policy on the OS thread running the
// calling goroutine. Once anything is installed the goroutine stays locked
// to that thread for the rest of its life; when it exits the runtime
// discards the thread instead of reusing it. If ApplyToCurrentThread fails
// before that, the goroutine is unlocked again.
//
// Processes forked from this thread inherit the restrictions. Threads do
// not: the Go runtime starts new threads from an unrestricted template
// thread whenever the requesting thread is locked, so goroutines keep
// running unrestricted on every other thread.
//
// Landlock rules are enforced before the seccomp filter.
func (p *Policy) ApplyToCurrentThread() error {
	if p.state != unapplied {
		return ErrAlreadyApplied
	}
	lockOSThread()
	// Nothing can be logged once the filter is in place.
	logrus.Debugf("applying policy to thread %d", system.Gettid())

	if err := system.SetNoNewPrivs(); err != nil {
		unlockOSThread()
		return &InstallError{Mechanism: MechanismNoNewPrivs, Err: err}
	}
	if p.ruleset != nil {
		// Restricting the thread cannot be undone, so the policy counts as
		// applied from here on even if seccomp fails.
		p.state = appliedToThread
		if err := p.ruleset.RestrictSelf(); err != nil {
			return &InstallError{Mechanism: MechanismLandlock, Err: err}
		}
	}
	if err := p.program.Load(0); err != nil {
		if p.state == unapplied {
			unlockOSThread()
		}
		return &InstallError{Mechanism: MechanismSeccomp, Err: err}
	}
	p.state = appliedToThread
	return nil
}

// ApplyToAllThreads installs the seccomp filter on every thread of the
// process at once. Policies with Landlock rules cannot be synchronized
// across threads and fail with ErrLandlockNoThreadSync before anything is
// installed.
func (p *Policy) ApplyToAllThreads() error {
	if p.state != unapplied {
		return ErrAlreadyApplied
	}
	if p.ruleset != nil {
		return ErrLandlockNoThreadSync
	}

	// no_new_privs and the filter must land on the same thread; TSYNC then
	// copies both to the others.
	lockOSThread()
	defer unlockOSThread()
	logrus.Debugf("applying policy to all threads")

	if err := system.SetNoNewPrivs(); err != nil {
		return &InstallError{Mechanism: MechanismNoNewPrivs, Err: err}
	}
	if err := p.program.Load(seccomp.FilterFlagTsync); err != nil {
		var tsyncErr *seccomp.TsyncError
		if errors.As(err, &tsyncErr) {
			return &InstallError{Mechanism: MechanismSeccomp, Tid: tsyncErr.Tid, Err: err}
		}
		return &InstallError{Mechanism: MechanismSeccomp, Err: err}
	}
	p.state = appliedToAllThreads
	return nil
}
