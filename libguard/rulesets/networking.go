package rulesets

import (
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/configs"
)

// The low bits of socket(2)'s type argument; the rest are SOCK_NONBLOCK
// and SOCK_CLOEXEC.
const sockTypeMask = 0xf

var (
	netSetupSyscalls = []string{"getsockopt", "setsockopt", "getsockname", "getpeername"}

	netIOSyscalls = []string{
		"read", "readv", "write", "writev",
		"recvfrom", "recvmsg", "recvmmsg", "sendto", "sendmsg", "sendmmsg",
		"shutdown", "close", "poll", "ppoll",
		"getsockopt", "setsockopt", "getsockname", "getpeername",
	}
)

// socketRule allows socket(2) for one address family and socket type.
func socketRule(domain, typ int) *configs.Syscall {
	return when("socket",
		configs.ArgEq(0, uint64(domain)),
		configs.ArgMaskedEq(1, sockTypeMask, uint64(typ)))
}

func inetSocketRules(typ int) []*configs.Syscall {
	return []*configs.Syscall{
		socketRule(unix.AF_INET, typ),
		socketRule(unix.AF_INET6, typ),
	}
}

func unixSocketRules() []*configs.Syscall {
	return []*configs.Syscall{
		socketRule(unix.AF_UNIX, unix.SOCK_STREAM),
		socketRule(unix.AF_UNIX, unix.SOCK_DGRAM),
	}
}

// Networking grants socket creation and socket I/O. Creating a socket is
// restricted by address family and type.
//
// The running methods allow read and write on any descriptor, so they
// conflict with the fd-restricted grants of SystemIO such as AllowStdout.
type Networking struct {
	rules
}

func (Networking) Name() string {
	return "Networking"
}

// AllowStartTCPServers allows creating, binding and listening on TCP
// sockets.
func (n Networking) AllowStartTCPServers() Networking {
	n.rules = n.allowIf(inetSocketRules(unix.SOCK_STREAM)...).
		allow("bind", "listen").
		allow(netSetupSyscalls...)
	return n
}

// AllowRunningTCPServers allows accepting connections and doing I/O on
// sockets.
func (n Networking) AllowRunningTCPServers() Networking {
	n.rules = n.allow("accept", "accept4").allow(netIOSyscalls...)
	return n
}

// AllowStartTCPClients allows creating and connecting TCP sockets.
func (n Networking) AllowStartTCPClients() Networking {
	n.rules = n.allowIf(inetSocketRules(unix.SOCK_STREAM)...).
		allow("connect").
		allow(netSetupSyscalls...)
	return n
}

func (n Networking) AllowRunningTCPClients() Networking {
	n.rules = n.allow(netIOSyscalls...)
	return n
}

// AllowStartUDPServers allows creating and binding UDP sockets. A bound UDP
// socket can send datagrams to any address.
func (n Networking) AllowStartUDPServers() libguard.YesReally[Networking] {
	n.rules = n.allowIf(inetSocketRules(unix.SOCK_DGRAM)...).
		allow("bind").
		allow(netSetupSyscalls...)
	return libguard.NewYesReally(n)
}

func (n Networking) AllowRunningUDPSockets() Networking {
	n.rules = n.allow(netIOSyscalls...)
	return n
}

func (n Networking) AllowStartUnixServers() Networking {
	n.rules = n.allowIf(unixSocketRules()...).
		allow("bind", "listen").
		allow(netSetupSyscalls...)
	return n
}

func (n Networking) AllowRunningUnixServers() Networking {
	n.rules = n.allow("accept", "accept4").allow(netIOSyscalls...)
	return n
}

func (n Networking) AllowStartUnixClients() Networking {
	n.rules = n.allowIf(unixSocketRules()...).
		allow("connect").
		allow(netSetupSyscalls...)
	return n
}

func (n Networking) AllowRunningUnixClients() Networking {
	n.rules = n.allow(netIOSyscalls...)
	return n
}
