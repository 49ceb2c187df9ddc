package rulesets

import (
	"github.com/selfguard/selfguard/libguard"
)

var (
	timeQuerySyscalls  = []string{"clock_gettime", "clock_getres", "gettimeofday", "time"}
	timeSleepSyscalls  = []string{"nanosleep", "clock_nanosleep"}
	timeModifySyscalls = []string{"clock_settime", "settimeofday", "clock_adjtime", "adjtimex"}
)

// Time grants reading, waiting on and setting clocks. Most clock reads go
// through the vDSO and need no syscall at all.
type Time struct {
	rules
}

func (Time) Name() string {
	return "Time"
}

func (t Time) AllowQuery() Time {
	t.rules = t.allow(timeQuerySyscalls...)
	return t
}

func (t Time) AllowSleep() Time {
	t.rules = t.allow(timeSleepSyscalls...)
	return t
}

// AllowModify allows setting the system clocks.
func (t Time) AllowModify() libguard.YesReally[Time] {
	t.rules = t.allow(timeModifySyscalls...)
	return libguard.NewYesReally(t)
}

func (t Time) Everything() libguard.YesReally[Time] {
	t.rules = t.allow(concat(timeQuerySyscalls, timeSleepSyscalls, timeModifySyscalls)...)
	return libguard.NewYesReally(t)
}
