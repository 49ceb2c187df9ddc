package libguard

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/selfguard/selfguard/libguard/configs"
)

const (
	eventfdLink   = "anon_inode:[eventfd]"
	eventpollLink = "anon_inode:[eventpoll]"
)

// wakeupRules allows read and write on the runtime's netpoll wakeup
// eventfd: whichever thread resets a timer may write to it, and the
// runtime aborts if that write fails.
func wakeupRules() []*configs.Syscall {
	// Arming a timer initializes the netpoller.
	time.AfterFunc(time.Hour, func() {}).Stop()

	fds, err := wakeupFds("/proc/self")
	if err != nil {
		logrus.Debugf("cannot find the runtime wakeup fd: %v", err)
		return nil
	}
	var rules []*configs.Syscall
	for _, fd := range fds {
		for _, name := range []string{"read", "write"} {
			rules = append(rules, &configs.Syscall{
				Name:   name,
				Action: configs.Allow,
				Args:   []*configs.Arg{configs.ArgEq(0, uint64(fd))},
			})
		}
		logrus.Debugf("allowing runtime wakeup I/O on eventfd %d", fd)
	}
	return rules
}

// wakeupFds returns the eventfds of the process under proc that are
// watched by an epoll instance. If no eventfd is watched, or the epoll
// registrations cannot be read, every eventfd is returned.
func wakeupFds(proc string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(proc, "fd"))
	if err != nil {
		return nil, err
	}
	var eventfds []int
	watched := make(map[int]bool)
	for _, entry := range entries {
		fd, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		link, err := os.Readlink(filepath.Join(proc, "fd", entry.Name()))
		if err != nil {
			continue
		}
		switch link {
		case eventfdLink:
			eventfds = append(eventfds, fd)
		case eventpollLink:
			targets, err := readEpollTargets(filepath.Join(proc, "fdinfo", entry.Name()))
			if err != nil {
				logrus.Debugf("cannot read epoll fd %d: %v", fd, err)
				continue
			}
			for _, t := range targets {
				watched[t] = true
			}
		}
	}

	var fds []int
	for _, fd := range eventfds {
		if watched[fd] {
			fds = append(fds, fd)
		}
	}
	if len(fds) == 0 {
		return eventfds, nil
	}
	return fds, nil
}

func readEpollTargets(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseEpollTargets(f)
}

// parseEpollTargets returns the watched fds listed in the fdinfo of an
// epoll fd, one "tfd: <fd> events: ..." line each.
func parseEpollTargets(r io.Reader) ([]int, error) {
	var fds []int
	s := bufio.NewScanner(r)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 || fields[0] != "tfd:" {
			continue
		}
		fd, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, err
		}
		fds = append(fds, fd)
	}
	return fds, s.Err()
}
