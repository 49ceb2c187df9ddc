package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/syndtr/gocapability/capability"
)

// Status describes the restrictions in force on a thread.
type Status struct {
	NoNewPrivs     bool     `json:"no_new_privs"`
	Seccomp        string   `json:"seccomp"`
	SeccompFilters int      `json:"seccomp_filters"`
	Capabilities   []string `json:"capabilities"`
}

var seccompModes = map[string]string{
	"0": "disabled",
	"1": "strict",
	"2": "filter",
}

// parseProcStatus fills a Status from a /proc/<pid>/status file.
func parseProcStatus(r io.Reader) (*Status, error) {
	st := &Status{Seccomp: "unsupported"}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		pair := strings.SplitN(line, ":", 2)
		if len(pair) != 2 {
			continue
		}
		k := strings.TrimSpace(pair[0])
		v := strings.TrimSpace(pair[1])
		switch k {
		case "NoNewPrivs":
			st.NoNewPrivs = v == "1"
		case "Seccomp":
			mode, ok := seccompModes[v]
			if !ok {
				return nil, fmt.Errorf("failed to parse line %q", line)
			}
			st.Seccomp = mode
		case "Seccomp_filters":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse line %q", line)
			}
			st.SeccompFilters = n
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return st, nil
}

// effectiveCaps returns the names of the effective capabilities of the
// calling thread.
func effectiveCaps() ([]string, error) {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return nil, err
	}
	if err := caps.Load(); err != nil {
		return nil, err
	}
	var res []string
	for _, c := range capability.List() {
		if caps.Get(capability.EFFECTIVE, c) {
			res = append(res, "CAP_"+strings.ToUpper(c.String()))
		}
	}
	return res, nil
}

// CurrentStatus reports the restrictions of the calling thread.
func CurrentStatus() (*Status, error) {
	f, err := os.Open("/proc/thread-self/status")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := parseProcStatus(f)
	if err != nil {
		return nil, err
	}
	st.Capabilities, err = effectiveCaps()
	if err != nil {
		return nil, fmt.Errorf("reading capabilities: %w", err)
	}
	return st, nil
}

// HasCapability reports whether name (e.g. "CAP_SYS_ADMIN") is in the
// effective set.
func (s *Status) HasCapability(name string) bool {
	for _, c := range s.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
