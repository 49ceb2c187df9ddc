package libguard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/selfguard/selfguard/libguard/configs"
)

func TestPolicyStringListsWakeupRules(t *testing.T) {
	readWakeup := &configs.Syscall{Name: "read", Action: configs.Allow, Args: []*configs.Arg{configs.ArgEq(0, 5)}}
	writeWakeup := &configs.Syscall{Name: "write", Action: configs.Allow, Args: []*configs.Arg{configs.ArgEq(0, 5)}}
	p := &Policy{
		seccomp: &configs.Seccomp{
			DefaultAction: configs.KillProcess,
			Syscalls: []*configs.Syscall{
				{Name: "exit_group", Action: configs.Allow},
				readWakeup,
				writeWakeup,
			},
		},
		wakeup: []*configs.Syscall{readWakeup, writeWakeup},
	}
	assert.Equal(t, "default: kill-process\n"+
		"allow: exit_group\n"+
		"allow: read (arg0 == 0x5)\n"+
		"allow: write (arg0 == 0x5)\n"+
		"runtime wakeup: read (arg0 == 0x5)\n"+
		"runtime wakeup: write (arg0 == 0x5)\n", p.String())
}
