package landlock

import (
	"errors"
	"fmt"

	"github.com/landlock-lsm/go-landlock/landlock"
	ll "github.com/landlock-lsm/go-landlock/landlock/syscall"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/internal/linux"
	"github.com/selfguard/selfguard/libguard/configs"
)

// Ruleset is a Landlock ruleset that has been created in the kernel but not
// yet enforced.
type Ruleset struct {
	fd      int
	abi     int
	handled landlock.AccessFSSet
}

// ABIVersion returns the Landlock ABI version of the running kernel.
func ABIVersion() (int, error) {
	return ll.LandlockGetABIVersion()
}

// Build creates a ruleset handling every filesystem right the running
// kernel knows about and adds one path-beneath rule per entry of config.
// Each path is opened with O_PATH when Build runs; a missing or
// inaccessible path fails the whole build with an *os.PathError.
func Build(config *configs.Landlock) (*Ruleset, error) {
	if config == nil {
		return nil, errors.New("cannot build Landlock ruleset - nil config passed")
	}

	abi, err := ABIVersion()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLandlockUnavailable, err)
	}
	if abi < 1 {
		return nil, ErrLandlockUnavailable
	}
	handled := HandledAccessFS(abi)
	logrus.Debugf("landlock: ABI v%d, handling %v", abi, handled)

	fd, err := ll.LandlockCreateRuleset(&ll.RulesetAttr{HandledAccessFS: uint64(handled)}, 0)
	if err != nil {
		return nil, fmt.Errorf("landlock_create_ruleset: %w", err)
	}
	r := &Ruleset{fd: fd, abi: abi, handled: handled}
	for _, rule := range config.Rules {
		if err := r.addPathRule(rule); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Ruleset) addPathRule(rule configs.PathRule) error {
	fd, err := linux.Open(rule.Path, unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	st, err := linux.Fstat(fd)
	if err != nil {
		return fmt.Errorf("landlock rule %q: %w", rule.Path, err)
	}
	access := rule.Access & r.handled
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		access &= accessFile
	}
	if access == 0 {
		logrus.Debugf("landlock: no rights left for %q on ABI v%d -- skipping", rule.Path, r.abi)
		return nil
	}

	attr := &ll.PathBeneathAttr{
		ParentFd:      fd,
		AllowedAccess: uint64(access),
	}
	if err := ll.LandlockAddPathBeneathRule(r.fd, attr, 0); err != nil {
		return fmt.Errorf("landlock_add_rule %q %v: %w", rule.Path, access, err)
	}
	logrus.Debugf("landlock: allow %v beneath %q", access, rule.Path)
	return nil
}

// RestrictSelf enforces the ruleset on the calling OS thread only. The
// caller must have locked the goroutine to its thread and set
// no_new_privs. The ruleset is consumed whether or not this succeeds.
func (r *Ruleset) RestrictSelf() error {
	if r.fd < 0 {
		return errors.New("landlock: ruleset already consumed")
	}
	defer r.Close()

	_, _, errno := unix.Syscall(unix.SYS_LANDLOCK_RESTRICT_SELF, uintptr(r.fd), 0, 0)
	if errno != 0 {
		if errno == unix.E2BIG {
			return fmt.Errorf("landlock_restrict_self: too many stacked rulesets on this thread: %w", errno)
		}
		return fmt.Errorf("landlock_restrict_self: %w", errno)
	}
	logrus.Debugf("landlock: ruleset enforced on thread %d", unix.Gettid())
	return nil
}

// Close releases the ruleset without enforcing it. It is safe to call
// more than once.
func (r *Ruleset) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}
