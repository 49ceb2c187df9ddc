// Package rulesets provides ready-made RuleSets covering the syscall
// groups most programs need.
//
// Every ruleset starts from its zero value, which grants nothing, and is
// extended with Allow methods that return a modified copy. Grants that
// open a meaningful hole in the sandbox return a libguard.YesReally that
// the caller has to unwrap.
package rulesets

import (
	"slices"
	"sort"

	"github.com/landlock-lsm/go-landlock/landlock"

	"github.com/selfguard/selfguard/libguard/configs"
)

// rules is the immutable core of the catalogue rulesets.
type rules struct {
	simple      []string
	conditional map[string][]*configs.Syscall
	paths       []configs.PathRule
}

func (r rules) allow(syscalls ...string) rules {
	r.simple = append(slices.Clip(r.simple), syscalls...)
	return r
}

func (r rules) allowIf(calls ...*configs.Syscall) rules {
	conditional := make(map[string][]*configs.Syscall, len(r.conditional)+len(calls))
	for name, calls := range r.conditional {
		conditional[name] = slices.Clip(calls)
	}
	for _, call := range calls {
		conditional[call.Name] = append(conditional[call.Name], call)
	}
	r.conditional = conditional
	return r
}

func (r rules) allowPath(path string, access landlock.AccessFSSet) rules {
	r.paths = append(slices.Clip(r.paths), configs.PathRule{Path: path, Access: access})
	return r
}

func (r rules) SimpleRules() []string {
	res := slices.Clone(r.simple)
	sort.Strings(res)
	return slices.Compact(res)
}

func (r rules) ConditionalRules() map[string][]*configs.Syscall {
	res := make(map[string][]*configs.Syscall, len(r.conditional))
	for name, calls := range r.conditional {
		for _, call := range calls {
			res[name] = append(res[name], call.Clone())
		}
	}
	return res
}

func (r rules) PathRules() []configs.PathRule {
	return slices.Clone(r.paths)
}

// when builds a conditional allow rule.
func when(name string, args ...*configs.Arg) *configs.Syscall {
	return &configs.Syscall{Name: name, Action: configs.Allow, Args: args}
}

func concat(groups ...[]string) []string {
	var res []string
	for _, g := range groups {
		res = append(res, g...)
	}
	return res
}
