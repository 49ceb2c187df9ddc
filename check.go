//go:build linux

package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var checkCommand = cli.Command{
	Name:      "check",
	Usage:     "validate a profile and print the merged policy",
	ArgsUsage: `<profile>

Where "<profile>" is the path to a YAML profile.`,
	Description: `The check command loads the profile, enables every ruleset it lists and
compiles the result without applying it. Conflicting rulesets and paths that
do not exist are reported as errors.`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "bpf",
			Usage: "also print the disassembled seccomp program",
		},
	},
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 1, exactArgs); err != nil {
			return err
		}
		p, err := loadProfile(context)
		if err != nil {
			return err
		}
		ctx, err := p.Context()
		if err != nil {
			return err
		}
		policy, err := ctx.Finalize()
		if err != nil {
			return err
		}
		defer policy.Close()

		fmt.Fprint(context.App.Writer, policy)
		if context.Bool("bpf") {
			fmt.Fprint(context.App.Writer, policy.Program())
		}
		return nil
	},
}
