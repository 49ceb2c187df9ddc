package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"testing"

	ll "github.com/landlock-lsm/go-landlock/landlock/syscall"
	"golang.org/x/sys/unix"
)

const helperEnv = "SELFGUARD_TEST_HELPER"

// SkipUnlessSeccompFilter skips the test if the kernel cannot install
// seccomp filters.
func SkipUnlessSeccompFilter(t *testing.T) {
	t.Helper()
	if _, err := unix.PrctlRetInt(unix.PR_GET_SECCOMP, 0, 0, 0, 0); err != nil {
		t.Skipf("seccomp not available: %v", err)
	}
}

// SkipUnlessLandlock skips the test if the kernel does not provide
// Landlock.
func SkipUnlessLandlock(t *testing.T) {
	t.Helper()
	abi, err := ll.LandlockGetABIVersion()
	if err != nil || abi < 1 {
		t.Skipf("landlock not available (abi %d): %v", abi, err)
	}
}

// OnDisposableThread runs fn on a new goroutine wired to its own OS
// thread. The goroutine never unlocks the thread, so the runtime throws
// the thread away once fn returns, together with any restriction fn
// placed on it.
func OnDisposableThread(fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		errCh <- fn()
	}()
	return <-errCh
}

// HelperCommand returns a command re-running the current test binary as
// the named helper. The test binary must define TestHelperProcess, which
// dispatches on HelperName.
func HelperCommand(t *testing.T, name string, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=^TestHelperProcess$", "--"}, args...)...)
	cmd.Env = append(os.Environ(), HelperEnv(name))
	return cmd
}

// HelperEnv returns the environment entry that starts the test binary as
// the named helper, for callers that build the command themselves.
func HelperEnv(name string) string {
	return helperEnv + "=" + name
}

// HelperName returns the helper this process was started as, or "" when
// running as a normal test binary.
func HelperName() string {
	return os.Getenv(helperEnv)
}
