package profile

import (
	"fmt"
	"sort"
	"strings"

	golandlock "github.com/landlock-lsm/go-landlock/landlock"

	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/rulesets"
)

type landlockAccess = golandlock.AccessFSSet

// whole is the grant name of rulesets that come as a single unit.
const whole = "all"

type builder interface {
	build(spec *RulesetSpec) (libguard.RuleSet, error)
	info() RulesetInfo
}

// grants maps the grant names of one ruleset to its builder methods.
type grants[T libguard.RuleSet] struct {
	name      string
	start     func() T
	safe      map[string]func(T) T
	dangerous map[string]func(T) libguard.YesReally[T]
	path      func(T, string, landlockAccess) T
}

func (g *grants[T]) build(spec *RulesetSpec) (libguard.RuleSet, error) {
	rs := g.start()
	for _, name := range spec.Allow {
		if _, ok := g.dangerous[name]; ok {
			return nil, fmt.Errorf("%s is dangerous and must be listed under dangerous", name)
		}
		grant, ok := g.safe[name]
		if !ok {
			return nil, g.unknown(name)
		}
		rs = grant(rs)
	}
	for _, name := range spec.Dangerous {
		if _, ok := g.safe[name]; ok {
			return nil, fmt.Errorf("%s is not dangerous; list it under allow", name)
		}
		grant, ok := g.dangerous[name]
		if !ok {
			return nil, g.unknown(name)
		}
		rs = grant(rs).YesReally()
	}
	if len(spec.Paths) > 0 && g.path == nil {
		return nil, fmt.Errorf("%s does not take path rules", g.name)
	}
	for _, ps := range spec.Paths {
		access, err := ps.access()
		if err != nil {
			return nil, err
		}
		rs = g.path(rs, ps.Path, access)
	}
	return rs, nil
}

func (g *grants[T]) unknown(name string) error {
	info := g.info()
	known := append(info.Allow, info.Dangerous...)
	return fmt.Errorf("unknown grant %q (known: %s)", name, strings.Join(known, ", "))
}

func (g *grants[T]) info() RulesetInfo {
	info := RulesetInfo{Name: g.name, Paths: g.path != nil}
	for name := range g.safe {
		info.Allow = append(info.Allow, name)
	}
	for name := range g.dangerous {
		info.Dangerous = append(info.Dangerous, name)
	}
	sort.Strings(info.Allow)
	sort.Strings(info.Dangerous)
	return info
}

func zero[T any]() T {
	var z T
	return z
}

var builders = map[string]builder{
	"systemio": &grants[rulesets.SystemIO]{
		name:  "systemio",
		start: zero[rulesets.SystemIO],
		safe: map[string]func(rulesets.SystemIO) rulesets.SystemIO{
			"read":          rulesets.SystemIO.AllowRead,
			"write":         rulesets.SystemIO.AllowWrite,
			"open-readonly": rulesets.SystemIO.AllowOpenReadonly,
			"metadata":      rulesets.SystemIO.AllowMetadata,
			"ioctl":         rulesets.SystemIO.AllowIoctl,
			"close":         rulesets.SystemIO.AllowClose,
			"stdin":         rulesets.SystemIO.AllowStdin,
			"stdout":        rulesets.SystemIO.AllowStdout,
			"stderr":        rulesets.SystemIO.AllowStderr,
			"dns-files":     rulesets.SystemIO.AllowDNSFiles,
			"ssl-files":     rulesets.SystemIO.AllowSSLFiles,
		},
		dangerous: map[string]func(rulesets.SystemIO) libguard.YesReally[rulesets.SystemIO]{
			"open":       rulesets.SystemIO.AllowOpen,
			"everything": rulesets.SystemIO.Everything,
		},
		path: rulesets.SystemIO.AllowPath,
	},
	"networking": &grants[rulesets.Networking]{
		name:  "networking",
		start: zero[rulesets.Networking],
		safe: map[string]func(rulesets.Networking) rulesets.Networking{
			"start-tcp-servers":    rulesets.Networking.AllowStartTCPServers,
			"running-tcp-servers":  rulesets.Networking.AllowRunningTCPServers,
			"start-tcp-clients":    rulesets.Networking.AllowStartTCPClients,
			"running-tcp-clients":  rulesets.Networking.AllowRunningTCPClients,
			"running-udp-sockets":  rulesets.Networking.AllowRunningUDPSockets,
			"start-unix-servers":   rulesets.Networking.AllowStartUnixServers,
			"running-unix-servers": rulesets.Networking.AllowRunningUnixServers,
			"start-unix-clients":   rulesets.Networking.AllowStartUnixClients,
			"running-unix-clients": rulesets.Networking.AllowRunningUnixClients,
		},
		dangerous: map[string]func(rulesets.Networking) libguard.YesReally[rulesets.Networking]{
			"start-udp-servers": rulesets.Networking.AllowStartUDPServers,
		},
	},
	"time": &grants[rulesets.Time]{
		name:  "time",
		start: zero[rulesets.Time],
		safe: map[string]func(rulesets.Time) rulesets.Time{
			"query": rulesets.Time.AllowQuery,
			"sleep": rulesets.Time.AllowSleep,
		},
		dangerous: map[string]func(rulesets.Time) libguard.YesReally[rulesets.Time]{
			"modify":     rulesets.Time.AllowModify,
			"everything": rulesets.Time.Everything,
		},
	},
	"userid": &grants[rulesets.UserID]{
		name:  "userid",
		start: zero[rulesets.UserID],
		safe: map[string]func(rulesets.UserID) rulesets.UserID{
			"get-ids": rulesets.UserID.AllowGetIDs,
		},
		dangerous: map[string]func(rulesets.UserID) libguard.YesReally[rulesets.UserID]{
			"set-ids":    rulesets.UserID.AllowSetIDs,
			"everything": rulesets.UserID.Everything,
		},
	},
	"threads": &grants[rulesets.Threads]{
		name:  "threads",
		start: zero[rulesets.Threads],
		safe: map[string]func(rulesets.Threads) rulesets.Threads{
			"create":   rulesets.Threads.AllowCreate,
			"set-name": rulesets.Threads.AllowSetName,
		},
		dangerous: map[string]func(rulesets.Threads) libguard.YesReally[rulesets.Threads]{
			"sleep": rulesets.Threads.AllowSleep,
		},
	},
	"fork-and-exec": &grants[rulesets.ForkAndExec]{
		name:  "fork-and-exec",
		start: zero[rulesets.ForkAndExec],
		dangerous: map[string]func(rulesets.ForkAndExec) libguard.YesReally[rulesets.ForkAndExec]{
			whole: func(rulesets.ForkAndExec) libguard.YesReally[rulesets.ForkAndExec] { return rulesets.NewForkAndExec() },
		},
	},
	"kill": &grants[rulesets.Kill]{
		name:  "kill",
		start: zero[rulesets.Kill],
		dangerous: map[string]func(rulesets.Kill) libguard.YesReally[rulesets.Kill]{
			whole: func(rulesets.Kill) libguard.YesReally[rulesets.Kill] { return rulesets.NewKill() },
		},
	},
	"pipes": &grants[rulesets.Pipes]{
		name:  "pipes",
		start: zero[rulesets.Pipes],
		safe: map[string]func(rulesets.Pipes) rulesets.Pipes{
			whole: func(rulesets.Pipes) rulesets.Pipes { return rulesets.NewPipes() },
		},
	},
	"truncate": &grants[rulesets.Truncate]{
		name:  "truncate",
		start: zero[rulesets.Truncate],
		safe: map[string]func(rulesets.Truncate) rulesets.Truncate{
			whole: func(rulesets.Truncate) rulesets.Truncate { return rulesets.NewTruncate() },
		},
	},
	"socketpair": &grants[rulesets.SocketPair]{
		name:  "socketpair",
		start: zero[rulesets.SocketPair],
		safe: map[string]func(rulesets.SocketPair) rulesets.SocketPair{
			whole: func(rulesets.SocketPair) rulesets.SocketPair { return rulesets.NewSocketPair() },
		},
	},
	"netlink": &grants[rulesets.Netlink]{
		name:  "netlink",
		start: zero[rulesets.Netlink],
		safe: map[string]func(rulesets.Netlink) rulesets.Netlink{
			"sockets": rulesets.Netlink.AllowSockets,
		},
	},
}

// RulesetInfo describes what a profile may grant for one ruleset.
type RulesetInfo struct {
	Name      string   `json:"name"`
	Allow     []string `json:"allow,omitempty"`
	Dangerous []string `json:"dangerous,omitempty"`
	Paths     bool     `json:"paths,omitempty"`
}

// KnownRulesets lists the rulesets a profile may name, sorted by name.
// Used by `selfguard features`.
func KnownRulesets() []RulesetInfo {
	infos := make([]RulesetInfo, 0, len(builders))
	for _, b := range builders {
		infos = append(infos, b.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
