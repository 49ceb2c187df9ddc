//go:build linux && cgo

package libguard_test

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/internal/testutil"
	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/rulesets"
	"github.com/selfguard/selfguard/libguard/system"
)

// getuid reports the errno of a raw getuid(2). Unlike unix.Getuid it does
// not treat the result as infallible.
func getuid() unix.Errno {
	_, _, errno := unix.RawSyscall(unix.SYS_GETUID, 0, 0, 0)
	return errno
}

func onRestrictedThread(t *testing.T, ctx *libguard.SafetyContext, fn func() error) {
	t.Helper()
	testutil.SkipUnlessSeccompFilter(t)
	err := testutil.OnDisposableThread(func() error {
		if err := ctx.ApplyToCurrentThread(); err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		return fn()
	})
	require.NoError(t, err)
}

func TestOpenReadonly(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "existing")
	require.NoError(t, os.WriteFile(existing, []byte("data"), 0o600))
	created := filepath.Join(t.TempDir(), "created")

	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.SystemIO{}.AllowOpenReadonly().AllowRead().AllowClose())
	require.NoError(t, err)

	onRestrictedThread(t, ctx, func() error {
		fd, err := unix.Open(existing, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("read-only open denied: %w", err)
		}
		buf := make([]byte, 4)
		if _, err := unix.Read(fd, buf); err != nil {
			return fmt.Errorf("read denied: %w", err)
		}
		if err := unix.Close(fd); err != nil {
			return err
		}
		_, err = unix.Open(created, unix.O_WRONLY|unix.O_CREAT|unix.O_CLOEXEC, 0o600)
		if !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("create: expected EPERM, got %v", err)
		}
		return nil
	})

	_, err = os.Stat(created)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStdoutOnly(t *testing.T) {
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.SystemIO{}.AllowStdout())
	require.NoError(t, err)

	onRestrictedThread(t, ctx, func() error {
		if _, err := unix.Write(1, nil); err != nil {
			return fmt.Errorf("write to stdout denied: %w", err)
		}
		if _, err := unix.Write(p[1], []byte("x")); !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("write to pipe: expected EPERM, got %v", err)
		}
		return nil
	})
}

func TestTCPClientCannotListen(t *testing.T) {
	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.Networking{}.AllowStartTCPClients().AllowRunningTCPClients())
	require.NoError(t, err)

	onRestrictedThread(t, ctx, func() error {
		fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
		if err != nil {
			return fmt.Errorf("tcp socket denied: %w", err)
		}
		defer unix.Close(fd)
		if err := unix.Bind(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}); !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("bind: expected EPERM, got %v", err)
		}
		if _, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0); !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("udp socket: expected EPERM, got %v", err)
		}
		if _, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0); !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("unix socket: expected EPERM, got %v", err)
		}
		return nil
	})
}

func TestCurrentThreadOnly(t *testing.T) {
	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.Time{}.AllowQuery())
	require.NoError(t, err)

	onRestrictedThread(t, ctx, func() error {
		if errno := getuid(); errno != unix.EPERM {
			return fmt.Errorf("getuid: expected EPERM, got %v", errno)
		}
		return nil
	})
	assert.Equal(t, unix.Errno(0), getuid())
}

func TestApplyTwice(t *testing.T) {
	testutil.SkipUnlessSeccompFilter(t)

	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.UserID{}.AllowGetIDs())
	require.NoError(t, err)
	policy, err := ctx.Finalize()
	require.NoError(t, err)
	defer policy.Close()

	err = testutil.OnDisposableThread(func() error {
		if err := policy.ApplyToCurrentThread(); err != nil {
			return err
		}
		if err := policy.ApplyToCurrentThread(); !errors.Is(err, libguard.ErrAlreadyApplied) {
			return fmt.Errorf("second apply: expected ErrAlreadyApplied, got %v", err)
		}
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, policy.ApplyToAllThreads(), libguard.ErrAlreadyApplied)
}

func TestLandlockReadFile(t *testing.T) {
	testutil.SkipUnlessLandlock(t)

	dir := t.TempDir()
	allowed, denied := filepath.Join(dir, "allowed"), filepath.Join(dir, "denied")
	for _, f := range []string{allowed, denied} {
		require.NoError(t, os.WriteFile(f, []byte("data"), 0o600))
	}

	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.SystemIO{}.AllowOpenReadonly().AllowClose().AllowReadFile(allowed))
	require.NoError(t, err)

	onRestrictedThread(t, ctx, func() error {
		fd, err := unix.Open(allowed, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("open allowed file: %w", err)
		}
		unix.Close(fd)
		if _, err := unix.Open(denied, unix.O_RDONLY|unix.O_CLOEXEC, 0); !errors.Is(err, unix.EACCES) {
			return fmt.Errorf("open denied file: expected EACCES, got %v", err)
		}
		return nil
	})
}

func TestLandlockMissingPath(t *testing.T) {
	testutil.SkipUnlessLandlock(t)

	missing := filepath.Join(t.TempDir(), "missing")
	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.SystemIO{}.AllowReadFile(missing))
	require.NoError(t, err)

	_, err = ctx.Finalize()
	var pathErr *libguard.PathRuleError
	require.True(t, errors.As(err, &pathErr), "unexpected error: %v", err)
	assert.Equal(t, missing, pathErr.Path)
	assert.Equal(t, "SystemIO", pathErr.Ruleset)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLandlockRefusesAllThreads(t *testing.T) {
	testutil.SkipUnlessLandlock(t)

	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.SystemIO{}.AllowReadFile(os.Args[0]))
	require.NoError(t, err)
	assert.ErrorIs(t, ctx.ApplyToAllThreads(), libguard.ErrLandlockNoThreadSync)

	// Nothing was installed.
	mode, err := system.SeccompMode()
	require.NoError(t, err)
	assert.Equal(t, 0, mode)
	assert.Equal(t, unix.Errno(0), getuid())
}

func TestThreadsStartedAfterApplyAreUnrestricted(t *testing.T) {
	ctx := libguard.NewSafetyContext()
	_, err := ctx.Enable(rulesets.Threads{}.AllowCreate())
	require.NoError(t, err)

	var spawned unix.Errno
	onRestrictedThread(t, ctx, func() error {
		if errno := getuid(); errno != unix.EPERM {
			return fmt.Errorf("getuid on the restricted thread: expected EPERM, got %v", errno)
		}
		done := make(chan unix.Errno)
		go func() {
			runtime.LockOSThread()
			done <- getuid()
		}()
		spawned = <-done
		return nil
	})
	assert.Equal(t, unix.Errno(0), spawned)
}

const (
	exitApplyFailed = 2 + iota
	exitNotDenied
	exitForkFailed
	exitDenied
)

func TestHelperProcess(t *testing.T) {
	switch testutil.HelperName() {
	case "":
		return
	case "all-threads":
		os.Exit(allThreadsHelper())
	case "fork-exec":
		os.Exit(forkExecHelper())
	case "getuid":
		if getuid() != 0 {
			os.Exit(exitDenied)
		}
		os.Exit(0)
	}
}

// forkExecHelper restricts its own thread, then forks and execs the
// "getuid" helper from that thread. The child inherits the filter, so it
// must not get as far as reporting a successful getuid.
func forkExecHelper() int {
	argv := []string{os.Args[0], "-test.run=^TestHelperProcess$"}
	attr := &syscall.ProcAttr{
		Env:   append(os.Environ(), testutil.HelperEnv("getuid")),
		Files: []uintptr{0, 1, 2},
	}

	ctx := libguard.NewSafetyContext()
	for _, rs := range []libguard.RuleSet{
		rulesets.NewForkAndExec().YesReally(),
		rulesets.NewPipes(),
		rulesets.SystemIO{}.AllowRead().AllowWrite().AllowClose(),
	} {
		if _, err := ctx.Enable(rs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitApplyFailed
		}
	}
	if err := ctx.ApplyToCurrentThread(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitApplyFailed
	}

	pid, err := syscall.ForkExec(argv[0], argv, attr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fork/exec:", err)
		return exitForkFailed
	}
	var ws syscall.WaitStatus
	for {
		_, err = syscall.Wait4(pid, &ws, 0, nil)
		if err != syscall.EINTR {
			break
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "wait4:", err)
		return exitForkFailed
	}
	if ws.Exited() && ws.ExitStatus() == 0 {
		return exitNotDenied
	}
	return 0
}

// allThreadsHelper restricts the whole process and checks that threads
// started before and after the restriction are both confined.
func allThreadsHelper() int {
	const n = 8
	ready := make(chan struct{})
	results := make(chan unix.Errno, 2*n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			<-ready
			results <- getuid()
		}()
	}

	ctx := libguard.NewSafetyContext()
	if _, err := ctx.Enable(rulesets.Time{}.AllowQuery()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitApplyFailed
	}
	if err := ctx.ApplyToAllThreads(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitApplyFailed
	}
	close(ready)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			results <- getuid()
		}()
	}
	wg.Wait()
	close(results)
	for errno := range results {
		if errno != unix.EPERM {
			return exitNotDenied
		}
	}
	return 0
}

func runHelper(t *testing.T, name string) {
	t.Helper()
	out, err := testutil.HelperCommand(t, name).CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("helper %q exited with %d: %s", name, exitErr.ExitCode(), out)
	}
	require.NoError(t, err)
}

func TestApplyToAllThreads(t *testing.T) {
	testutil.SkipUnlessSeccompFilter(t)
	runHelper(t, "all-threads")
}

func TestForkedChildInheritsFilter(t *testing.T) {
	testutil.SkipUnlessSeccompFilter(t)

	// Unrestricted, the child runs and its getuid succeeds.
	runHelper(t, "getuid")
	runHelper(t, "fork-exec")
}
