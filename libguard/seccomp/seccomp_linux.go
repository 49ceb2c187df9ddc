//go:build linux && cgo

package seccomp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	libseccomp "github.com/seccomp/libseccomp-golang"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard/configs"
)

// Enabled is true if seccomp support is compiled in.
const Enabled = true

// Syscalls libc only falls back from when they fail with ENOSYS. Unless
// the policy grants them they are answered with ENOSYS instead of the
// default action.
var enosysSyscalls = []string{"clone3"}

// Compile builds the native-architecture BPF program for config. Rules
// naming a syscall that does not exist on this architecture are skipped.
// Compile does not touch the calling thread.
func Compile(config *configs.Seccomp) (*Program, error) {
	if config == nil {
		return nil, errors.New("cannot compile seccomp filter - nil config passed")
	}

	defaultAction, err := getAction(config.DefaultAction, config.DefaultErrnoRet)
	if err != nil {
		return nil, fmt.Errorf("error initializing seccomp - invalid default action: %w", err)
	}
	if defaultAction == libseccomp.ActAllow {
		return nil, errors.New("error initializing seccomp - default action must deny")
	}

	filter, err := libseccomp.NewFilter(defaultAction)
	if err != nil {
		return nil, fmt.Errorf("error creating filter: %w", err)
	}
	defer filter.Release()

	granted := make(map[string]bool)
	for _, call := range config.Syscalls {
		if err := matchCall(filter, call, defaultAction); err != nil {
			return nil, err
		}
		granted[call.Name] = true
	}
	if err := addEnosysStubs(filter, granted, defaultAction); err != nil {
		return nil, err
	}

	raw, err := exportBPF(filter)
	if err != nil {
		return nil, err
	}
	program, err := newProgram(raw)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("seccomp: compiled %d rules into %d instructions", len(config.Syscalls), program.Len())
	return program, nil
}

// Version returns major, minor, and micro.
func Version() (uint, uint, uint) {
	return libseccomp.GetLibraryVersion()
}

// Convert Action to libseccomp ScmpAction.
func getAction(act configs.Action, errnoRet *uint) (libseccomp.ScmpAction, error) {
	switch act {
	case configs.Allow:
		return libseccomp.ActAllow, nil
	case configs.Errno:
		if errnoRet != nil {
			return libseccomp.ActErrno.SetReturnCode(int16(*errnoRet)), nil
		}
		return libseccomp.ActErrno.SetReturnCode(int16(unix.EPERM)), nil
	case configs.Trap:
		return libseccomp.ActTrap, nil
	case configs.Log:
		return libseccomp.ActLog, nil
	case configs.KillThread:
		return libseccomp.ActKillThread, nil
	case configs.KillProcess:
		return libseccomp.ActKillProcess, nil
	default:
		return libseccomp.ActInvalid, fmt.Errorf("invalid action %s, cannot use in rule", act)
	}
}

// Convert Operator to libseccomp ScmpCompareOp.
func getOperator(op configs.Operator) (libseccomp.ScmpCompareOp, error) {
	switch op {
	case configs.EqualTo:
		return libseccomp.CompareEqual, nil
	case configs.NotEqualTo:
		return libseccomp.CompareNotEqual, nil
	case configs.GreaterThan:
		return libseccomp.CompareGreater, nil
	case configs.GreaterThanOrEqualTo:
		return libseccomp.CompareGreaterEqual, nil
	case configs.LessThan:
		return libseccomp.CompareLess, nil
	case configs.LessThanOrEqualTo:
		return libseccomp.CompareLessOrEqual, nil
	case configs.MaskEqualTo:
		return libseccomp.CompareMaskedEqual, nil
	default:
		return libseccomp.CompareInvalid, fmt.Errorf("invalid operator %d, cannot use in rule", op)
	}
}

// Convert Arg to libseccomp ScmpCondition.
func getCondition(arg *configs.Arg) (libseccomp.ScmpCondition, error) {
	cond := libseccomp.ScmpCondition{}

	if arg == nil {
		return cond, errors.New("cannot convert nil to syscall condition")
	}
	if arg.Index >= maxArgs {
		return cond, fmt.Errorf("syscall argument index %d out of range", arg.Index)
	}

	op, err := getOperator(arg.Op)
	if err != nil {
		return cond, err
	}

	return libseccomp.MakeCondition(arg.Index, op, arg.Value, arg.ValueTwo)
}

// getConditions validates every condition of call before anything is
// resolved against the running architecture, so a malformed rule is
// rejected even when its syscall does not exist here.
func getConditions(call *configs.Syscall) ([]libseccomp.ScmpCondition, error) {
	conditions := make([]libseccomp.ScmpCondition, 0, len(call.Args))
	seen := make(map[uint]bool, len(call.Args))
	for _, arg := range call.Args {
		newCond, err := getCondition(arg)
		if err != nil {
			return nil, fmt.Errorf("syscall %s: %w", call.Name, err)
		}
		if seen[arg.Index] {
			return nil, fmt.Errorf("syscall %s: argument %d compared more than once", call.Name, arg.Index)
		}
		seen[arg.Index] = true
		conditions = append(conditions, newCond)
	}
	return conditions, nil
}

// Add a rule to match a single syscall
func matchCall(filter *libseccomp.ScmpFilter, call *configs.Syscall, defAct libseccomp.ScmpAction) error {
	if call == nil || filter == nil {
		return errors.New("cannot use nil as syscall to allow")
	}
	if len(call.Name) == 0 {
		return errors.New("empty string is not a valid syscall")
	}

	callAct, err := getAction(call.Action, call.ErrnoRet)
	if err != nil {
		return fmt.Errorf("syscall %s: %w", call.Name, err)
	}
	conditions, err := getConditions(call)
	if err != nil {
		return err
	}
	if callAct == defAct {
		// libseccomp rejects rules that repeat the default action.
		logrus.Debugf("seccomp: rule %s matches the default action -- skipping", call)
		return nil
	}

	callNum, err := libseccomp.GetSyscallFromName(call.Name)
	if err != nil {
		logrus.Debugf("seccomp: syscall %q unknown on this architecture -- skipping", call.Name)
		return nil
	}

	if len(conditions) == 0 {
		if err := filter.AddRule(callNum, callAct); err != nil {
			return fmt.Errorf("error adding seccomp filter rule for syscall %s: %w", call.Name, err)
		}
	} else {
		if err := filter.AddRuleConditional(callNum, callAct, conditions); err != nil {
			return fmt.Errorf("error adding seccomp rule for syscall %s: %w", call, err)
		}
	}
	logrus.Debugf("seccomp: add %s => [%s]", call, call.Action)
	return nil
}

func addEnosysStubs(filter *libseccomp.ScmpFilter, granted map[string]bool, defAct libseccomp.ScmpAction) error {
	enosys := libseccomp.ActErrno.SetReturnCode(int16(unix.ENOSYS))
	if enosys == defAct {
		return nil
	}
	for _, name := range enosysSyscalls {
		if granted[name] {
			continue
		}
		callNum, err := libseccomp.GetSyscallFromName(name)
		if err != nil {
			continue
		}
		if err := filter.AddRule(callNum, enosys); err != nil {
			return fmt.Errorf("error adding -ENOSYS rule for syscall %s: %w", name, err)
		}
		logrus.Debugf("seccomp: add -ENOSYS stub for %s", name)
	}
	return nil
}

// exportBPF runs the libseccomp generator and reads the resulting program
// back through a pipe.
func exportBPF(filter *libseccomp.ScmpFilter) ([]bpf.RawInstruction, error) {
	rdr, wtr, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("error creating scratch pipe: %w", err)
	}
	defer wtr.Close()
	defer rdr.Close()

	readerBuffer := new(bytes.Buffer)
	errChan := make(chan error, 1)
	go func() {
		_, err := io.Copy(readerBuffer, rdr)
		errChan <- err
		close(errChan)
	}()

	if err := filter.ExportBPF(wtr); err != nil {
		return nil, fmt.Errorf("error exporting BPF: %w", err)
	}
	// Close so that the reader actually gets EOF.
	_ = wtr.Close()

	if copyErr := <-errChan; copyErr != nil {
		return nil, fmt.Errorf("error reading from ExportBPF pipe: %w", copyErr)
	}

	program, err := parseProgram(readerBuffer)
	if err != nil {
		return nil, fmt.Errorf("parsing generated BPF filter: %w", err)
	}
	return program, nil
}

func parseProgram(rdr io.Reader) ([]bpf.RawInstruction, error) {
	var program []bpf.RawInstruction
loop:
	for {
		// seccomp_export_bpf outputs the program in host endianness.
		var insn unix.SockFilter
		if err := binary.Read(rdr, binary.NativeEndian, &insn); err != nil {
			if errors.Is(err, io.EOF) {
				// Parsing complete.
				break loop
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("program parsing halted mid-instruction: %w", err)
			}
			return nil, fmt.Errorf("error parsing instructions: %w", err)
		}
		program = append(program, bpf.RawInstruction{
			Op: insn.Code,
			Jt: insn.Jt,
			Jf: insn.Jf,
			K:  insn.K,
		})
	}
	return program, nil
}
