package seccomp

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/selfguard/selfguard/libguard/configs"
)

var ErrSeccompNotEnabled = errors.New("seccomp: config provided but seccomp not supported")

// ErrProgramTooLarge is returned when the generated filter exceeds the
// kernel's BPF_MAXINSNS limit.
var ErrProgramTooLarge = errors.New("seccomp: filter program exceeds kernel instruction limit")

// maxInstructions is BPF_MAXINSNS.
const maxInstructions = 4096

// maxArgs is the number of syscall arguments visible to a filter.
const maxArgs = 6

var operators = map[string]configs.Operator{
	"SCMP_CMP_NE":        configs.NotEqualTo,
	"SCMP_CMP_LT":        configs.LessThan,
	"SCMP_CMP_LE":        configs.LessThanOrEqualTo,
	"SCMP_CMP_EQ":        configs.EqualTo,
	"SCMP_CMP_GE":        configs.GreaterThanOrEqualTo,
	"SCMP_CMP_GT":        configs.GreaterThan,
	"SCMP_CMP_MASKED_EQ": configs.MaskEqualTo,
}

// KnownOperators returns the list of the known operations.
// Used by `selfguard features`.
func KnownOperators() []string {
	var res []string
	for k := range operators {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

var actions = map[string]configs.Action{
	"SCMP_ACT_ERRNO":        configs.Errno,
	"SCMP_ACT_TRAP":         configs.Trap,
	"SCMP_ACT_LOG":          configs.Log,
	"SCMP_ACT_KILL_THREAD":  configs.KillThread,
	"SCMP_ACT_KILL_PROCESS": configs.KillProcess,
}

// KnownActions returns the list of the known actions a policy may deny
// with. Used by `selfguard features`.
func KnownActions() []string {
	var res []string
	for k := range actions {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// ConvertStringToAction converts a string into a deny action. Both the
// libseccomp spelling ("SCMP_ACT_KILL_PROCESS") and the short form used in
// profiles ("kill-process") are accepted. Allow is not a valid deny action.
func ConvertStringToAction(in string) (configs.Action, error) {
	if act, ok := actions[in]; ok {
		return act, nil
	}
	short := "SCMP_ACT_" + strings.ToUpper(strings.ReplaceAll(in, "-", "_"))
	if act, ok := actions[short]; ok {
		return act, nil
	}
	return 0, fmt.Errorf("string %s is not a valid deny action for seccomp", in)
}
