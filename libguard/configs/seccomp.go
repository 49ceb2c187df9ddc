package configs

import (
	"fmt"
	"sort"
	"strings"
)

// Seccomp represents a merged syscall filter: every syscall listed in
// Syscalls is handled with its Action, everything else with DefaultAction.
type Seccomp struct {
	DefaultAction   Action     `json:"default_action"`
	DefaultErrnoRet *uint      `json:"default_errno_ret,omitempty"`
	Syscalls        []*Syscall `json:"syscalls"`
}

// Action is taken upon rule match in Seccomp
type Action int

const (
	Allow Action = iota + 1
	Errno
	Trap
	Log
	KillThread
	KillProcess
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Errno:
		return "errno"
	case Trap:
		return "trap"
	case Log:
		return "log"
	case KillThread:
		return "kill-thread"
	case KillProcess:
		return "kill-process"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Operator is a comparison operator to be used when matching syscall arguments in Seccomp
type Operator int

const (
	EqualTo Operator = iota + 1
	NotEqualTo
	GreaterThan
	GreaterThanOrEqualTo
	LessThan
	LessThanOrEqualTo
	MaskEqualTo
)

var operatorFormats = map[Operator]string{
	EqualTo:              "arg%d == %#x",
	NotEqualTo:           "arg%d != %#x",
	GreaterThan:          "arg%d > %#x",
	GreaterThanOrEqualTo: "arg%d >= %#x",
	LessThan:             "arg%d < %#x",
	LessThanOrEqualTo:    "arg%d <= %#x",
}

// Arg is a rule to match a specific syscall argument in Seccomp.
// For MaskEqualTo, Value is the mask and ValueTwo the value the masked
// argument must equal.
type Arg struct {
	Index    uint     `json:"index"`
	Value    uint64   `json:"value"`
	ValueTwo uint64   `json:"value_two"`
	Op       Operator `json:"op"`
}

func ArgEq(index uint, value uint64) *Arg {
	return &Arg{Index: index, Value: value, Op: EqualTo}
}

func ArgNe(index uint, value uint64) *Arg {
	return &Arg{Index: index, Value: value, Op: NotEqualTo}
}

func ArgGt(index uint, value uint64) *Arg {
	return &Arg{Index: index, Value: value, Op: GreaterThan}
}

func ArgGe(index uint, value uint64) *Arg {
	return &Arg{Index: index, Value: value, Op: GreaterThanOrEqualTo}
}

func ArgLt(index uint, value uint64) *Arg {
	return &Arg{Index: index, Value: value, Op: LessThan}
}

func ArgLe(index uint, value uint64) *Arg {
	return &Arg{Index: index, Value: value, Op: LessThanOrEqualTo}
}

// ArgMaskedEq matches when arg[index] & mask == value.
func ArgMaskedEq(index uint, mask, value uint64) *Arg {
	return &Arg{Index: index, Value: mask, ValueTwo: value, Op: MaskEqualTo}
}

func (a *Arg) String() string {
	if a.Op == MaskEqualTo {
		return fmt.Sprintf("arg%d & %#x == %#x", a.Index, a.Value, a.ValueTwo)
	}
	if f, ok := operatorFormats[a.Op]; ok {
		return fmt.Sprintf(f, a.Index, a.Value)
	}
	return fmt.Sprintf("arg%d <unknown op %d> %#x", a.Index, a.Op, a.Value)
}

// Syscall is a rule to match a syscall in Seccomp. All Args must match
// for the rule to apply; a Syscall with no Args matches unconditionally.
type Syscall struct {
	Name     string `json:"name"`
	Action   Action `json:"action"`
	ErrnoRet *uint  `json:"errnoRet,omitempty"`
	Args     []*Arg `json:"args,omitempty"`
}

// Conditional reports whether the rule restricts any argument.
func (s *Syscall) Conditional() bool {
	return len(s.Args) > 0
}

// Clone returns a deep copy of s.
func (s *Syscall) Clone() *Syscall {
	c := &Syscall{Name: s.Name, Action: s.Action}
	if s.ErrnoRet != nil {
		errno := *s.ErrnoRet
		c.ErrnoRet = &errno
	}
	for _, arg := range s.Args {
		a := *arg
		c.Args = append(c.Args, &a)
	}
	return c
}

func (s *Syscall) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	conds := make([]string, 0, len(s.Args))
	for _, arg := range s.Args {
		conds = append(conds, arg.String())
	}
	return s.Name + " (" + strings.Join(conds, " && ") + ")"
}

// Sort orders the rules by syscall name, keeping the relative order of
// rules for the same syscall.
func (c *Seccomp) Sort() {
	sort.SliceStable(c.Syscalls, func(i, j int) bool {
		return c.Syscalls[i].Name < c.Syscalls[j].Name
	})
}

// Lookup returns every rule for the named syscall.
func (c *Seccomp) Lookup(name string) []*Syscall {
	var rules []*Syscall
	for _, s := range c.Syscalls {
		if s.Name == name {
			rules = append(rules, s)
		}
	}
	return rules
}

func (c *Seccomp) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "default: %s", c.DefaultAction)
	if c.DefaultAction == Errno && c.DefaultErrnoRet != nil {
		fmt.Fprintf(&b, "(%d)", *c.DefaultErrnoRet)
	}
	b.WriteByte('\n')
	for _, s := range c.Syscalls {
		fmt.Fprintf(&b, "%s: %s\n", s.Action, s)
	}
	return b.String()
}
