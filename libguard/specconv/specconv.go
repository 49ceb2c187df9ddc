// Package specconv converts merged policies into OCI runtime-spec
// structures, so a policy can be handed to a container runtime.
package specconv

import (
	"errors"
	"fmt"
	"runtime"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/selfguard/selfguard/libguard/configs"
)

var specActions = map[configs.Action]specs.LinuxSeccompAction{
	configs.Allow:       specs.ActAllow,
	configs.Errno:       specs.ActErrno,
	configs.Trap:        specs.ActTrap,
	configs.Log:         specs.ActLog,
	configs.KillThread:  specs.ActKillThread,
	configs.KillProcess: specs.ActKillProcess,
}

var specOperators = map[configs.Operator]specs.LinuxSeccompOperator{
	configs.EqualTo:              specs.OpEqualTo,
	configs.NotEqualTo:           specs.OpNotEqual,
	configs.GreaterThan:          specs.OpGreaterThan,
	configs.GreaterThanOrEqualTo: specs.OpGreaterEqual,
	configs.LessThan:             specs.OpLessThan,
	configs.LessThanOrEqualTo:    specs.OpLessEqual,
	configs.MaskEqualTo:          specs.OpMaskedEqual,
}

var nativeArches = map[string]specs.Arch{
	"386":      specs.ArchX86,
	"amd64":    specs.ArchX86_64,
	"arm":      specs.ArchARM,
	"arm64":    specs.ArchAARCH64,
	"mips64":   specs.ArchMIPS64,
	"mips64le": specs.ArchMIPSEL64,
	"ppc64":    specs.ArchPPC64,
	"ppc64le":  specs.ArchPPC64LE,
	"riscv64":  specs.ArchRISCV64,
	"s390x":    specs.ArchS390X,
}

// ToLinuxSeccomp converts config into a runtime-spec seccomp section for
// the native architecture. Consecutive unconditional rules with the same
// action share one entry.
func ToLinuxSeccomp(config *configs.Seccomp) (*specs.LinuxSeccomp, error) {
	if config == nil {
		return nil, errors.New("cannot convert seccomp config: nil config passed")
	}
	defAct, ok := specActions[config.DefaultAction]
	if !ok {
		return nil, fmt.Errorf("invalid default action %s", config.DefaultAction)
	}
	out := &specs.LinuxSeccomp{
		DefaultAction: defAct,
		Syscalls:      []specs.LinuxSyscall{},
	}
	if config.DefaultErrnoRet != nil {
		errno := *config.DefaultErrnoRet
		out.DefaultErrnoRet = &errno
	}
	if arch, ok := nativeArches[runtime.GOARCH]; ok {
		out.Architectures = []specs.Arch{arch}
	}

	for _, call := range config.Syscalls {
		act, ok := specActions[call.Action]
		if !ok {
			return nil, fmt.Errorf("syscall %s: invalid action %s", call.Name, call.Action)
		}
		if !call.Conditional() && call.ErrnoRet == nil {
			if n := len(out.Syscalls); n > 0 {
				last := &out.Syscalls[n-1]
				if last.Action == act && len(last.Args) == 0 && last.ErrnoRet == nil {
					last.Names = append(last.Names, call.Name)
					continue
				}
			}
		}
		sc := specs.LinuxSyscall{
			Names:  []string{call.Name},
			Action: act,
		}
		if call.ErrnoRet != nil {
			errno := *call.ErrnoRet
			sc.ErrnoRet = &errno
		}
		for _, arg := range call.Args {
			op, ok := specOperators[arg.Op]
			if !ok {
				return nil, fmt.Errorf("syscall %s: invalid operator %d", call.Name, arg.Op)
			}
			sc.Args = append(sc.Args, specs.LinuxSeccompArg{
				Index:    arg.Index,
				Value:    arg.Value,
				ValueTwo: arg.ValueTwo,
				Op:       op,
			})
		}
		out.Syscalls = append(out.Syscalls, sc)
	}
	return out, nil
}
