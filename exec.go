//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/selfguard/selfguard/internal/linux"
	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/configs"
)

var execCommand = cli.Command{
	Name:  "exec",
	Usage: "run a command confined by a profile",
	ArgsUsage: `<profile> -- <command> [command options]

Where "<profile>" is the path to a YAML profile and "<command>" is the
program to run, looked up in $PATH.`,
	Description: `The exec command applies the profile to itself and then replaces itself
with the command, which inherits the restrictions. Besides the grants of the
profile, execve(2) is allowed and, when the profile has path rules, the
command's executable may be read and executed. Shared libraries and the
dynamic loader need their own path rules.`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "all-threads",
			Usage: "apply the policy to every thread of selfguard (not allowed with path rules)",
		},
	},
	SkipArgReorder: true,
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 2, minArgs); err != nil {
			return err
		}
		p, err := loadProfile(context)
		if err != nil {
			return err
		}
		allThreads := context.Bool("all-threads")
		if allThreads && p.HasPaths() {
			return fmt.Errorf("--all-threads: %w", libguard.ErrLandlockNoThreadSync)
		}

		args := context.Args().Tail()
		if args[0] == "--" {
			args = args[1:]
		}
		if len(args) == 0 {
			return errors.New("exec: no command given")
		}
		path, err := exec.LookPath(args[0])
		if err != nil {
			return err
		}
		if path, err = filepath.Abs(path); err != nil {
			return err
		}

		ctx, err := p.Context()
		if err != nil {
			return err
		}
		if _, err := ctx.Enable(newExecRuleset(ctx, path)); err != nil {
			return err
		}
		logrus.Debugf("exec %s %v", path, args[1:])
		if allThreads {
			err = ctx.ApplyToAllThreads()
		} else {
			err = ctx.ApplyToCurrentThread()
		}
		if err != nil {
			return err
		}
		return linux.Exec(path, args, os.Environ())
	},
}

// execRuleset allows the final execve(2) of the exec command.
type execRuleset struct {
	path  string
	paths bool
}

// newExecRuleset adds a path rule for the executable only when ctx has
// path rules and none of them is for path already.
func newExecRuleset(ctx *libguard.SafetyContext, path string) execRuleset {
	ll := ctx.LandlockConfig()
	_, covered := ll.Lookup(path)
	return execRuleset{path: path, paths: ll != nil && !covered}
}

func (execRuleset) Name() string {
	return "selfguard exec"
}

func (execRuleset) SimpleRules() []string {
	return []string{"execve"}
}

func (execRuleset) ConditionalRules() map[string][]*configs.Syscall {
	return nil
}

func (r execRuleset) PathRules() []configs.PathRule {
	if !r.paths {
		return nil
	}
	return []configs.PathRule{{Path: r.path, Access: configs.AccessExecute | configs.AccessReadFile}}
}
