//go:build linux

package libguard

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfguard/selfguard/internal/testutil"
	"github.com/selfguard/selfguard/libguard/seccomp"
)

func TestApplyFailureReleasesThread(t *testing.T) {
	var locks, unlocks int
	lockOSThread = func() {
		locks++
		runtime.LockOSThread()
	}
	unlockOSThread = func() {
		unlocks++
		runtime.UnlockOSThread()
	}
	t.Cleanup(func() {
		lockOSThread = runtime.LockOSThread
		unlockOSThread = runtime.UnlockOSThread
	})

	for _, tc := range []struct {
		name  string
		apply func(*Policy) error
	}{
		{name: "current thread", apply: (*Policy).ApplyToCurrentThread},
		{name: "all threads", apply: (*Policy).ApplyToAllThreads},
	} {
		t.Run(tc.name, func(t *testing.T) {
			locks, unlocks = 0, 0
			p := &Policy{program: &seccomp.Program{}}
			err := testutil.OnDisposableThread(func() error {
				return tc.apply(p)
			})

			var installErr *InstallError
			require.ErrorAs(t, err, &installErr)
			assert.Equal(t, MechanismSeccomp, installErr.Mechanism)
			assert.ErrorContains(t, err, "empty filter program")
			assert.Equal(t, unapplied, p.state)
			assert.Equal(t, 1, locks)
			assert.Equal(t, 1, unlocks)
		})
	}
}
