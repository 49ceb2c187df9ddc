package libguard

import (
	"github.com/selfguard/selfguard/libguard/configs"
)

// RuleSet declares a set of syscalls a program needs.
//
// SimpleRules are granted for any arguments. ConditionalRules are granted
// only when the arguments match; they are keyed by syscall name and each
// entry's Args are ANDed, while entries for the same syscall are ORed.
// Only the Name and Args of a conditional rule are used.
//
// Name identifies the ruleset in error messages. Two values with the same
// Name are treated as the same provider.
type RuleSet interface {
	SimpleRules() []string
	ConditionalRules() map[string][]*configs.Syscall
	Name() string
}

// PathRuleSet is a RuleSet that also grants Landlock filesystem rights.
type PathRuleSet interface {
	RuleSet
	PathRules() []configs.PathRule
}
