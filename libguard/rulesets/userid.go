package rulesets

import (
	"github.com/selfguard/selfguard/libguard"
)

var (
	getIDSyscalls = []string{
		"getuid", "geteuid", "getgid", "getegid",
		"getresuid", "getresgid", "getgroups",
	}

	setIDSyscalls = []string{
		"setuid", "setgid", "setreuid", "setregid",
		"setresuid", "setresgid", "setgroups", "setfsuid", "setfsgid",
	}
)

// UserID grants querying and changing user and group ids.
type UserID struct {
	rules
}

func (UserID) Name() string {
	return "UserID"
}

func (u UserID) AllowGetIDs() UserID {
	u.rules = u.allow(getIDSyscalls...)
	return u
}

func (u UserID) AllowSetIDs() libguard.YesReally[UserID] {
	u.rules = u.allow(setIDSyscalls...)
	return libguard.NewYesReally(u)
}

func (u UserID) Everything() libguard.YesReally[UserID] {
	u.rules = u.allow(concat(getIDSyscalls, setIDSyscalls)...)
	return libguard.NewYesReally(u)
}
