package libguard

import (
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard/configs"
)

// Syscalls the Go runtime issues on any thread: memory management, futexes,
// signals and preemption, scheduling, the netpoller, timers, and thread
// exit. Denying any of them crashes the runtime sooner or later.
var basicSyscalls = []string{
	// memory
	"brk",
	"madvise",
	"mmap",
	"mprotect",
	"mremap",
	"munmap",

	// synchronization and scheduling
	"futex",
	"sched_getaffinity",
	"sched_yield",
	"nanosleep",
	"clock_gettime",
	"restart_syscall",

	// signals and preemption
	"rt_sigaction",
	"rt_sigprocmask",
	"rt_sigreturn",
	"sigaltstack",
	"getpid",
	"gettid",
	"tgkill",

	// netpoller
	"epoll_create1",
	"epoll_ctl",
	"epoll_pwait",
	"epoll_wait",
	"eventfd2",

	// threads created and torn down by libc
	"rseq",
	"set_robust_list",

	"getrandom",
	"exit",
	"exit_group",
}

// BasicRuleset allows what every Go thread needs to keep running. It is
// enabled by NewSafetyContext and does not count as a user ruleset.
//
// New threads may be created with clone(CLONE_THREAD), so the runtime can
// start Ms on a restricted thread; new processes may not.
type BasicRuleset struct{}

func (BasicRuleset) Name() string {
	return "BasicRuleset"
}

func (BasicRuleset) SimpleRules() []string {
	return append([]string(nil), basicSyscalls...)
}

func (BasicRuleset) ConditionalRules() map[string][]*configs.Syscall {
	return map[string][]*configs.Syscall{
		"clone": {ThreadCloneRule()},
	}
}

// ThreadCloneRule allows clone(2) only when CLONE_THREAD is set.
func ThreadCloneRule() *configs.Syscall {
	return &configs.Syscall{
		Name:   "clone",
		Action: configs.Allow,
		Args: []*configs.Arg{
			configs.ArgMaskedEq(configs.CloneFlagsArg, unix.CLONE_THREAD, unix.CLONE_THREAD),
		},
	}
}
