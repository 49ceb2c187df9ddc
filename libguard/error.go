package libguard

import (
	"errors"
	"fmt"
)

var (
	ErrNoRulesEnabled       = errors.New("no rulesets were enabled; refusing to apply an empty policy")
	ErrContextFinalized     = errors.New("safety context already finalized")
	ErrAlreadyApplied       = errors.New("policy already applied")
	ErrLandlockNoThreadSync = errors.New("landlock rules cannot be applied to all threads; use ApplyToCurrentThread")
	ErrInvalidDefaultAction = errors.New("default action must deny")
)

// ConflictError is returned by Enable when one ruleset grants a syscall
// unconditionally and another grants it only under conditions. The
// unconditional grant would make the conditions meaningless.
type ConflictError struct {
	Syscall       string
	Conditional   string
	Unconditional string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("syscall %s: conditional rule from %s would be overridden by unconditional rule from %s",
		e.Syscall, e.Conditional, e.Unconditional)
}

// DuplicatePathError is returned by Enable when two different rulesets
// grant rights on the same path.
type DuplicatePathError struct {
	Path   string
	First  string
	Second string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("path %q: rights granted by both %s and %s", e.Path, e.First, e.Second)
}

// RuleError is returned by Enable when a ruleset declares a malformed
// conditional rule.
type RuleError struct {
	Ruleset string
	Syscall string
	Reason  string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("ruleset %s: syscall %s: %s", e.Ruleset, e.Syscall, e.Reason)
}

// CompileError wraps a failure to turn the merged syscall table into a
// filter program.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return "compiling seccomp filter: " + e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// PathRuleError is returned by Finalize when the path of a Landlock rule
// cannot be opened.
type PathRuleError struct {
	Path    string
	Ruleset string
	Err     error
}

func (e *PathRuleError) Error() string {
	return fmt.Sprintf("landlock rule for %q from %s: %v", e.Path, e.Ruleset, e.Err)
}

func (e *PathRuleError) Unwrap() error {
	return e.Err
}

// Mechanisms reported by InstallError.
const (
	MechanismNoNewPrivs = "no_new_privs"
	MechanismSeccomp    = "seccomp"
	MechanismLandlock   = "landlock"
)

// InstallError is returned when the kernel refuses a restriction. Tid is
// set when a thread of the process could not be synchronized to the
// filter.
type InstallError struct {
	Mechanism string
	Tid       int
	Err       error
}

func (e *InstallError) Error() string {
	if e.Tid != 0 {
		return fmt.Sprintf("installing %s on thread %d: %v", e.Mechanism, e.Tid, e.Err)
	}
	return fmt.Sprintf("installing %s: %v", e.Mechanism, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}
