package libguard

import (
	"fmt"
	"strings"

	"github.com/selfguard/selfguard/libguard/configs"
	"github.com/selfguard/selfguard/libguard/landlock"
	"github.com/selfguard/selfguard/libguard/seccomp"
)

type applyState int

const (
	unapplied applyState = iota
	appliedToThread
	appliedToAllThreads
)

func (s applyState) String() string {
	switch s {
	case unapplied:
		return "unapplied"
	case appliedToThread:
		return "applied to thread"
	case appliedToAllThreads:
		return "applied to all threads"
	}
	return fmt.Sprintf("applyState(%d)", int(s))
}

// Policy is a compiled, ready to install SafetyContext. A Policy can be
// applied once.
type Policy struct {
	seccomp  *configs.Seccomp
	wakeup   []*configs.Syscall
	landlock *configs.Landlock
	program  *seccomp.Program
	ruleset  *landlock.Ruleset
	state    applyState
}

// Seccomp returns the syscall table the program was compiled from. It must
// not be modified.
func (p *Policy) Seccomp() *configs.Seccomp {
	return p.seccomp
}

// Landlock returns the path rules of the policy, or nil if there are none.
func (p *Policy) Landlock() *configs.Landlock {
	return p.landlock
}

// Program returns the compiled filter.
func (p *Policy) Program() *seccomp.Program {
	return p.program
}

// Close releases a Landlock ruleset that has not been applied.
func (p *Policy) Close() error {
	if p.ruleset == nil {
		return nil
	}
	return p.ruleset.Close()
}

// String lists the syscall rules, then the rules among them that were added
// for the Go runtime's wakeup fd, then the path rules.
func (p *Policy) String() string {
	var b strings.Builder
	b.WriteString(p.seccomp.String())
	for _, rule := range p.wakeup {
		fmt.Fprintf(&b, "runtime wakeup: %s\n", rule)
	}
	if p.landlock != nil {
		for _, rule := range p.landlock.Rules {
			fmt.Fprintf(&b, "path %s: %v\n", rule.Path, rule.Access)
		}
	}
	return b.String()
}
