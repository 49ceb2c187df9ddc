// Package features provides the JSON structure printed by `selfguard features`.
// The types are experimental and subject to change.
package features

import "github.com/selfguard/selfguard/libguard/profile"

// Features reports what this build of selfguard and the running kernel
// support.
type Features struct {
	// Version is the selfguard version.
	Version string `json:"version"`

	// Rulesets lists the rulesets a profile may name, with their grants.
	Rulesets []profile.RulesetInfo `json:"rulesets,omitempty"`

	// Seccomp is nil when selfguard was built without libseccomp.
	Seccomp *Seccomp `json:"seccomp,omitempty"`

	// Landlock is nil when the kernel does not provide Landlock.
	Landlock *Landlock `json:"landlock,omitempty"`
}

// Seccomp represents the "seccomp" field.
type Seccomp struct {
	// Actions is the list of the recognized deny actions, e.g., "SCMP_ACT_ERRNO".
	Actions []string `json:"actions,omitempty"`

	// Operators is the list of the recognized operators, e.g., "SCMP_CMP_NE".
	Operators []string `json:"operators,omitempty"`

	// LibseccompVersion is the version of libseccomp, e.g., "2.5.1".
	LibseccompVersion string `json:"libseccompVersion,omitempty"`
}

// Landlock represents the "landlock" field.
type Landlock struct {
	// ABI is the Landlock ABI version of the running kernel.
	ABI int `json:"abi"`

	// AccessRights is the list of the filesystem access rights the kernel
	// enforces, e.g., "read_file".
	AccessRights []string `json:"accessRights,omitempty"`
}
