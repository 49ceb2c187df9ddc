package libguard

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard/configs"
	"github.com/selfguard/selfguard/libguard/landlock"
	"github.com/selfguard/selfguard/libguard/seccomp"
)

type syscallEntry struct {
	owners []string
	// rules is nil for an unconditional grant.
	rules []*configs.Syscall
}

func (e *syscallEntry) unconditional() bool {
	return e.rules == nil
}

func (e *syscallEntry) addOwner(name string) {
	if !e.hasOwner(name) {
		e.owners = append(e.owners, name)
	}
}

func (e *syscallEntry) hasOwner(name string) bool {
	for _, o := range e.owners {
		if o == name {
			return true
		}
	}
	return false
}

func (e *syscallEntry) ownerString() string {
	return strings.Join(e.owners, ", ")
}

type pathEntry struct {
	owner string
	rule  configs.PathRule
}

// SafetyContext gathers rulesets into a single policy. The zero value is
// not usable; use NewSafetyContext. A SafetyContext is not safe for
// concurrent use.
type SafetyContext struct {
	syscalls      map[string]*syscallEntry
	paths         map[string]*pathEntry
	enabled       int
	defaultAction configs.Action
	defaultErrno  uint
	finalized     bool
}

// NewSafetyContext returns a context with BasicRuleset enabled.
func NewSafetyContext() *SafetyContext {
	c := &SafetyContext{
		syscalls:      make(map[string]*syscallEntry),
		paths:         make(map[string]*pathEntry),
		defaultAction: configs.Errno,
		defaultErrno:  uint(unix.EPERM),
	}
	if err := c.enable(BasicRuleset{}); err != nil {
		panic(fmt.Sprintf("enabling %s on an empty context: %v", BasicRuleset{}.Name(), err))
	}
	return c
}

// Enable merges the rules of rs into the context. It fails without
// changing the context when rs grants a syscall unconditionally that an
// earlier Enable granted only conditionally, or the other way round, even
// if both rulesets have the same name. Within rs itself an unconditional
// grant covers a conditional one. Enable also fails when rs grants rights
// on a path that a differently named ruleset already covers.
func (c *SafetyContext) Enable(rs RuleSet) (*SafetyContext, error) {
	if c.finalized {
		return c, ErrContextFinalized
	}
	if err := c.enable(rs); err != nil {
		logrus.Debugf("enable %s: %v", rs.Name(), err)
		return c, err
	}
	c.enabled++
	return c, nil
}

func (c *SafetyContext) enable(rs RuleSet) error {
	name := rs.Name()

	simple := make(map[string]bool)
	for _, sc := range rs.SimpleRules() {
		simple[sc] = true
	}
	conditional := rs.ConditionalRules()
	var pathRules []configs.PathRule
	if prs, ok := rs.(PathRuleSet); ok {
		pathRules = prs.PathRules()
	}

	for _, sc := range sortedKeys(simple) {
		if e, ok := c.syscalls[sc]; ok && !e.unconditional() {
			return &ConflictError{Syscall: sc, Conditional: e.ownerString(), Unconditional: name}
		}
	}
	for _, sc := range sortedKeys(conditional) {
		if simple[sc] {
			// The ruleset also grants sc outright.
			continue
		}
		rules := conditional[sc]
		if len(rules) == 0 {
			return &RuleError{Ruleset: name, Syscall: sc, Reason: "no conditional rules listed"}
		}
		for _, rule := range rules {
			if rule.Name != sc {
				return &RuleError{Ruleset: name, Syscall: sc, Reason: fmt.Sprintf("rule for %s listed under %s", rule.Name, sc)}
			}
			if !rule.Conditional() {
				return &RuleError{Ruleset: name, Syscall: sc, Reason: "conditional rule has no conditions"}
			}
		}
		if e, ok := c.syscalls[sc]; ok && e.unconditional() {
			return &ConflictError{Syscall: sc, Conditional: name, Unconditional: e.ownerString()}
		}
	}
	for _, rule := range pathRules {
		if e, ok := c.paths[rule.Path]; ok && e.owner != name {
			return &DuplicatePathError{Path: rule.Path, First: e.owner, Second: name}
		}
	}

	for sc := range simple {
		e, ok := c.syscalls[sc]
		if !ok {
			e = &syscallEntry{}
			c.syscalls[sc] = e
		}
		e.addOwner(name)
	}
	for sc, rules := range conditional {
		if simple[sc] {
			continue
		}
		e, ok := c.syscalls[sc]
		if !ok {
			e = &syscallEntry{rules: []*configs.Syscall{}}
			c.syscalls[sc] = e
		}
		e.addOwner(name)
		for _, rule := range rules {
			e.rules = appendRule(e.rules, rule)
		}
	}
	for _, rule := range pathRules {
		if e, ok := c.paths[rule.Path]; ok {
			e.rule.Access |= rule.Access
			continue
		}
		c.paths[rule.Path] = &pathEntry{owner: name, rule: rule}
	}
	logrus.Debugf("enabled %s", name)
	return nil
}

// appendRule adds an allow copy of rule unless an identical one is present.
func appendRule(rules []*configs.Syscall, rule *configs.Syscall) []*configs.Syscall {
	r := rule.Clone()
	r.Action = configs.Allow
	r.ErrnoRet = nil
	for _, existing := range rules {
		if existing.String() == r.String() {
			return rules
		}
	}
	return append(rules, r)
}

// SetDefaultAction sets what happens to syscalls the policy does not
// allow. errno is only used with configs.Errno; zero means EPERM.
func (c *SafetyContext) SetDefaultAction(action configs.Action, errno uint) (*SafetyContext, error) {
	if c.finalized {
		return c, ErrContextFinalized
	}
	switch action {
	case configs.Errno:
		if errno == 0 {
			errno = uint(unix.EPERM)
		}
	case configs.KillThread, configs.KillProcess, configs.Trap, configs.Log:
		errno = 0
	default:
		return c, fmt.Errorf("%w: %s", ErrInvalidDefaultAction, action)
	}
	c.defaultAction = action
	c.defaultErrno = errno
	return c, nil
}

// SeccompConfig returns the merged syscall table, sorted by syscall name.
// The context is not consumed.
func (c *SafetyContext) SeccompConfig() *configs.Seccomp {
	config := &configs.Seccomp{DefaultAction: c.defaultAction}
	if c.defaultAction == configs.Errno {
		errno := c.defaultErrno
		config.DefaultErrnoRet = &errno
	}
	for _, sc := range sortedKeys(c.syscalls) {
		e := c.syscalls[sc]
		if e.unconditional() {
			config.Syscalls = append(config.Syscalls, &configs.Syscall{Name: sc, Action: configs.Allow})
			continue
		}
		for _, rule := range e.rules {
			config.Syscalls = append(config.Syscalls, rule.Clone())
		}
	}
	return config
}

// LandlockConfig returns the merged path rules, or nil if no ruleset
// grants any path.
func (c *SafetyContext) LandlockConfig() *configs.Landlock {
	if len(c.paths) == 0 {
		return nil
	}
	config := &configs.Landlock{}
	for _, p := range sortedKeys(c.paths) {
		config.Rules = append(config.Rules, c.paths[p].rule)
	}
	return config
}

// runtimeConfig is SeccompConfig plus the rules the Go runtime needs for
// its wakeup fd, which are also returned on their own. A user grant of the
// same syscall takes precedence: an unconditional one replaces these
// rules, a conditional one is merged.
func (c *SafetyContext) runtimeConfig() (*configs.Seccomp, []*configs.Syscall) {
	config := c.SeccompConfig()
	var added []*configs.Syscall
	for _, rule := range wakeupRules() {
		if e, ok := c.syscalls[rule.Name]; ok && e.unconditional() {
			continue
		}
		added = append(added, rule)
	}
	config.Syscalls = append(config.Syscalls, added...)
	config.Sort()
	return config, added
}

// Finalize compiles the context into a Policy. It fails with
// ErrNoRulesEnabled if no ruleset was enabled besides BasicRuleset. The
// context is consumed even if Finalize fails.
func (c *SafetyContext) Finalize() (*Policy, error) {
	if c.finalized {
		return nil, ErrContextFinalized
	}
	c.finalized = true
	if c.enabled == 0 {
		return nil, ErrNoRulesEnabled
	}

	config, wakeup := c.runtimeConfig()
	program, err := seccomp.Compile(config)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	p := &Policy{seccomp: config, wakeup: wakeup, program: program}

	if paths := c.LandlockConfig(); paths != nil {
		ruleset, err := landlock.Build(paths)
		if err != nil {
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				if e, ok := c.paths[pathErr.Path]; ok {
					return nil, &PathRuleError{Path: pathErr.Path, Ruleset: e.owner, Err: err}
				}
			}
			return nil, &InstallError{Mechanism: MechanismLandlock, Err: err}
		}
		p.landlock = paths
		p.ruleset = ruleset
	}
	logrus.Debugf("finalized policy: %d syscall rules, %d path rules", len(config.Syscalls), len(c.paths))
	return p, nil
}

// ApplyToCurrentThread finalizes the context and applies the policy to
// the calling goroutine's OS thread. See Policy.ApplyToCurrentThread.
func (c *SafetyContext) ApplyToCurrentThread() error {
	p, err := c.Finalize()
	if err != nil {
		return err
	}
	defer p.Close()
	return p.ApplyToCurrentThread()
}

// ApplyToAllThreads finalizes the context and applies the policy to every
// thread of the process. See Policy.ApplyToAllThreads.
func (c *SafetyContext) ApplyToAllThreads() error {
	p, err := c.Finalize()
	if err != nil {
		return err
	}
	defer p.Close()
	return p.ApplyToAllThreads()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
