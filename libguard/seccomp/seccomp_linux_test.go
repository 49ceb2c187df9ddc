//go:build linux && cgo

package seccomp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"testing"

	libseccomp "github.com/seccomp/libseccomp-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard/configs"
)

const (
	retAllow       uint32 = 0x7fff0000
	retErrno       uint32 = 0x00050000
	retKillProcess uint32 = 0x80000000
)

func nativeAuditArch(t *testing.T) uint32 {
	arch, ok := map[string]uint32{
		"386":     unix.AUDIT_ARCH_I386,
		"amd64":   unix.AUDIT_ARCH_X86_64,
		"arm":     unix.AUDIT_ARCH_ARM,
		"arm64":   unix.AUDIT_ARCH_AARCH64,
		"ppc64":   unix.AUDIT_ARCH_PPC64,
		"ppc64le": unix.AUDIT_ARCH_PPC64LE,
		"riscv64": unix.AUDIT_ARCH_RISCV64,
		"s390x":   unix.AUDIT_ARCH_S390X,
	}[runtime.GOARCH]
	if !ok {
		t.Skipf("no audit arch known for %s", runtime.GOARCH)
	}
	return arch
}

func isLittleEndian() bool {
	return binary.NativeEndian.Uint16([]byte{1, 0}) == 1
}

// mockSyscallPayload creates a fake seccomp_data struct. golang.org/x/net/bpf
// loads every word big-endian while the generated filter addresses the two
// halves of each 64-bit argument in host order, so the halves are laid out
// in host order and each half is encoded big-endian.
func mockSyscallPayload(t *testing.T, name string, args ...uint64) []byte {
	t.Helper()
	if len(args) > 6 {
		t.Fatalf("bad syscall payload: linux only supports 6-argument syscalls")
	}
	sysno, err := libseccomp.GetSyscallFromName(name)
	if err != nil {
		t.Skipf("syscall %s unknown on %s", name, runtime.GOARCH)
	}

	buf := make([]byte, 64)
	binary.BigEndian.PutUint32(buf[0:], uint32(sysno))
	binary.BigEndian.PutUint32(buf[4:], nativeAuditArch(t))
	binary.BigEndian.PutUint64(buf[8:], 0xDEADBEEFCAFE)
	for i, arg := range args {
		off := 16 + 8*i
		lo, hi := uint32(arg), uint32(arg>>32)
		if isLittleEndian() {
			binary.BigEndian.PutUint32(buf[off:], lo)
			binary.BigEndian.PutUint32(buf[off+4:], hi)
		} else {
			binary.BigEndian.PutUint32(buf[off:], hi)
			binary.BigEndian.PutUint32(buf[off+4:], lo)
		}
	}
	return buf
}

func compileVM(t *testing.T, config *configs.Seccomp) (*bpf.VM, *Program) {
	t.Helper()
	program, err := Compile(config)
	require.NoError(t, err)
	vm, err := bpf.NewVM(program.Instructions())
	require.NoError(t, err)
	return vm, program
}

func runFilter(t *testing.T, vm *bpf.VM, program *Program, payload []byte) uint32 {
	t.Helper()
	rawRet, err := vm.Run(payload)
	if err != nil {
		t.Logf("program:\n%s", program)
		t.Fatalf("error running filter: %v", err)
	}
	return uint32(rawRet)
}

func denyConfig(rules ...*configs.Syscall) *configs.Seccomp {
	return &configs.Seccomp{DefaultAction: configs.Errno, Syscalls: rules}
}

func allow(name string, args ...*configs.Arg) *configs.Syscall {
	return &configs.Syscall{Name: name, Action: configs.Allow, Args: args}
}

func TestCompileUnconditional(t *testing.T) {
	vm, program := compileVM(t, denyConfig(allow("read"), allow("close")))

	for _, test := range []struct {
		name     string
		expected uint32
	}{
		{"read", retAllow},
		{"close", retAllow},
		{"write", retErrno | uint32(unix.EPERM)},
		{"openat", retErrno | uint32(unix.EPERM)},
	} {
		ret := runFilter(t, vm, program, mockSyscallPayload(t, test.name))
		if ret != test.expected {
			t.Logf("program:\n%s", program)
			t.Errorf("%s: expected %#x, got %#x", test.name, test.expected, ret)
		}
	}
}

func TestCompileConditional(t *testing.T) {
	vm, program := compileVM(t, denyConfig(
		allow("write", configs.ArgEq(0, 1)),
		allow("write", configs.ArgEq(0, 2)),
	))

	for _, test := range []struct {
		fd       uint64
		expected uint32
	}{
		{1, retAllow},
		{2, retAllow},
		{0, retErrno | uint32(unix.EPERM)},
		{3, retErrno | uint32(unix.EPERM)},
		{1 << 32, retErrno | uint32(unix.EPERM)},
	} {
		ret := runFilter(t, vm, program, mockSyscallPayload(t, "write", test.fd, 0, 0))
		assert.Equalf(t, test.expected, ret, "write(%#x)", test.fd)
	}
}

func TestCompileWideArgument(t *testing.T) {
	const value = 0x1_0000_0002
	vm, program := compileVM(t, denyConfig(allow("lseek", configs.ArgEq(1, value))))

	assert.Equal(t, retAllow, runFilter(t, vm, program, mockSyscallPayload(t, "lseek", 3, value)))
	assert.Equal(t, retErrno|uint32(unix.EPERM), runFilter(t, vm, program, mockSyscallPayload(t, "lseek", 3, 2)))
	assert.Equal(t, retErrno|uint32(unix.EPERM), runFilter(t, vm, program, mockSyscallPayload(t, "lseek", 3, 1<<32)))
}

func TestCompileMaskedEqual(t *testing.T) {
	const writeFlags = unix.O_WRONLY | unix.O_RDWR | unix.O_CREAT | unix.O_TRUNC
	vm, program := compileVM(t, denyConfig(allow("openat", configs.ArgMaskedEq(2, writeFlags, 0))))

	for _, test := range []struct {
		flags    uint64
		expected uint32
	}{
		{unix.O_RDONLY, retAllow},
		{unix.O_RDONLY | unix.O_CLOEXEC, retAllow},
		{unix.O_WRONLY, retErrno | uint32(unix.EPERM)},
		{unix.O_RDWR | unix.O_CREAT, retErrno | uint32(unix.EPERM)},
	} {
		payload := mockSyscallPayload(t, "openat", 3, 0x1000, test.flags)
		assert.Equalf(t, test.expected, runFilter(t, vm, program, payload), "openat flags %#x", test.flags)
	}
}

func TestCompileDefaultActions(t *testing.T) {
	errno := uint(unix.EACCES)
	for _, test := range []struct {
		config   *configs.Seccomp
		expected uint32
	}{
		{&configs.Seccomp{DefaultAction: configs.Errno}, retErrno | uint32(unix.EPERM)},
		{&configs.Seccomp{DefaultAction: configs.Errno, DefaultErrnoRet: &errno}, retErrno | uint32(unix.EACCES)},
		{&configs.Seccomp{DefaultAction: configs.KillProcess}, retKillProcess},
	} {
		test.config.Syscalls = []*configs.Syscall{allow("read")}
		vm, program := compileVM(t, test.config)
		assert.Equal(t, test.expected, runFilter(t, vm, program, mockSyscallPayload(t, "write")))
		assert.Equal(t, retAllow, runFilter(t, vm, program, mockSyscallPayload(t, "read")))
	}
}

func TestCompileClone3Enosys(t *testing.T) {
	vm, program := compileVM(t, denyConfig(allow("read")))
	assert.Equal(t, retErrno|uint32(unix.ENOSYS), runFilter(t, vm, program, mockSyscallPayload(t, "clone3")))

	vm, program = compileVM(t, denyConfig(allow("clone3")))
	assert.Equal(t, retAllow, runFilter(t, vm, program, mockSyscallPayload(t, "clone3")))
}

func TestCompileSkipsUnknownSyscall(t *testing.T) {
	vm, program := compileVM(t, denyConfig(allow("not_a_real_syscall"), allow("read")))
	assert.Equal(t, retAllow, runFilter(t, vm, program, mockSyscallPayload(t, "read")))
}

func TestCompileRejectsMalformed(t *testing.T) {
	for _, test := range []struct {
		name string
		rule *configs.Syscall
	}{
		{"index out of range", allow("write", configs.ArgEq(6, 1))},
		{"unknown operator", allow("write", &configs.Arg{Index: 0, Value: 1, Op: configs.Operator(99)})},
		{"repeated index", allow("write", configs.ArgGe(0, 1), configs.ArgLe(0, 2))},
		{"index out of range on unknown syscall", allow("not_a_real_syscall", configs.ArgEq(7, 1))},
		{"empty name", allow("")},
		{"invalid action", &configs.Syscall{Name: "read", Action: configs.Action(0)}},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Compile(denyConfig(test.rule))
			assert.Error(t, err)
		})
	}
}

func TestCompileRejectsAllowDefault(t *testing.T) {
	_, err := Compile(&configs.Seccomp{DefaultAction: configs.Allow})
	assert.Error(t, err)
	_, err = Compile(nil)
	assert.Error(t, err)
}

func TestCompileTooLarge(t *testing.T) {
	config := denyConfig()
	for i := 0; i < 2000; i++ {
		config.Syscalls = append(config.Syscalls, allow("write", configs.ArgEq(0, uint64(i)<<33|uint64(i))))
	}
	_, err := Compile(config)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProgramTooLarge), fmt.Sprintf("unexpected error: %v", err))
}
