package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyscallString(t *testing.T) {
	for _, test := range []struct {
		rule     *Syscall
		expected string
	}{
		{
			rule:     &Syscall{Name: "read"},
			expected: "read",
		},
		{
			rule:     &Syscall{Name: "write", Args: []*Arg{ArgEq(0, 1)}},
			expected: "write (arg0 == 0x1)",
		},
		{
			rule:     &Syscall{Name: "openat", Args: []*Arg{ArgMaskedEq(2, 0x3, 0)}},
			expected: "openat (arg2 & 0x3 == 0x0)",
		},
		{
			rule:     &Syscall{Name: "socket", Args: []*Arg{ArgEq(0, 2), ArgMaskedEq(1, 0xf, 1)}},
			expected: "socket (arg0 == 0x2 && arg1 & 0xf == 0x1)",
		},
		{
			rule:     &Syscall{Name: "kill", Args: []*Arg{ArgGe(0, 10), ArgLt(1, 9)}},
			expected: "kill (arg0 >= 0xa && arg1 < 0x9)",
		},
	} {
		assert.Equal(t, test.expected, test.rule.String())
	}
}

func TestSyscallClone(t *testing.T) {
	errno := uint(1)
	orig := &Syscall{Name: "write", Action: Allow, ErrnoRet: &errno, Args: []*Arg{ArgEq(0, 1)}}
	c := orig.Clone()
	require.Equal(t, orig, c)

	c.Args[0].Value = 2
	*c.ErrnoRet = 5
	assert.Equal(t, uint64(1), orig.Args[0].Value)
	assert.Equal(t, uint(1), *orig.ErrnoRet)
}

func TestSeccompSortIsStable(t *testing.T) {
	c := &Seccomp{Syscalls: []*Syscall{
		{Name: "write", Args: []*Arg{ArgEq(0, 2)}},
		{Name: "close"},
		{Name: "write", Args: []*Arg{ArgEq(0, 1)}},
	}}
	c.Sort()
	assert.Equal(t, "close", c.Syscalls[0].String())
	assert.Equal(t, "write (arg0 == 0x2)", c.Syscalls[1].String())
	assert.Equal(t, "write (arg0 == 0x1)", c.Syscalls[2].String())
	assert.Len(t, c.Lookup("write"), 2)
	assert.Empty(t, c.Lookup("read"))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "kill-process", KillProcess.String())
	assert.Equal(t, "Action(42)", Action(42).String())
}
