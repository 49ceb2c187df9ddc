package rulesets

import (
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/configs"
)

var forkExecSyscalls = []string{
	"fork", "vfork", "clone3",
	"execve", "execveat",
	"wait4", "waitid",
	"dup2", "dup3", "fcntl",
	"exit",
}

// ForkAndExec allows creating processes and running other programs in
// them. The new program inherits every restriction of the caller.
type ForkAndExec struct {
	rules
}

// NewForkAndExec returns the ForkAndExec ruleset.
func NewForkAndExec() libguard.YesReally[ForkAndExec] {
	var f ForkAndExec
	f.rules = f.allow(forkExecSyscalls...).allowIf(
		when("clone", configs.ArgMaskedEq(configs.CloneFlagsArg, unix.CLONE_THREAD, 0)),
		libguard.ThreadCloneRule(),
	)
	return libguard.NewYesReally(f)
}

func (ForkAndExec) Name() string {
	return "ForkAndExec"
}

// Kill allows sending signals to any process.
type Kill struct {
	rules
}

func NewKill() libguard.YesReally[Kill] {
	var k Kill
	k.rules = k.allow("kill", "tkill", "rt_sigqueueinfo")
	return libguard.NewYesReally(k)
}

func (Kill) Name() string {
	return "Kill"
}

// Pipes allows creating pipes.
type Pipes struct {
	rules
}

func NewPipes() Pipes {
	var p Pipes
	p.rules = p.allow("pipe", "pipe2")
	return p
}

func (Pipes) Name() string {
	return "Pipes"
}

// Truncate allows truncating files by path and by descriptor.
type Truncate struct {
	rules
}

func NewTruncate() Truncate {
	var t Truncate
	t.rules = t.allow("truncate", "ftruncate")
	return t
}

func (Truncate) Name() string {
	return "Truncate"
}

// SocketPair allows creating connected socket pairs.
type SocketPair struct {
	rules
}

func NewSocketPair() SocketPair {
	var s SocketPair
	s.rules = s.allow("socketpair")
	return s
}

func (SocketPair) Name() string {
	return "SocketPair"
}

// Netlink grants netlink sockets, as used to query routes and interfaces.
type Netlink struct {
	rules
}

func (Netlink) Name() string {
	return "Netlink"
}

func (n Netlink) AllowSockets() Netlink {
	n.rules = n.allowIf(
		socketRule(unix.AF_NETLINK, unix.SOCK_RAW),
		socketRule(unix.AF_NETLINK, unix.SOCK_DGRAM),
	).allow("bind", "getsockname", "sendto", "recvfrom", "sendmsg", "recvmsg")
	return n
}
