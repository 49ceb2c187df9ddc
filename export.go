//go:build linux

package main

import (
	"github.com/urfave/cli"

	"github.com/selfguard/selfguard/libguard/specconv"
)

var exportCommand = cli.Command{
	Name:      "export",
	Usage:     "print a profile as an OCI seccomp configuration",
	ArgsUsage: `<profile>

Where "<profile>" is the path to a YAML profile.`,
	Description: `The export command prints the merged syscall rules of the profile as the
"linux.seccomp" section of an OCI runtime configuration. Path rules have no
OCI equivalent and are left out.`,
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
		out, err := specconv.ToLinuxSeccomp(ctx.SeccompConfig())
		if err != nil {
			return err
		}
		return printJSON(context, out)
	},
}
