//go:build linux

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/selfguard/selfguard/libguard/landlock"
	"github.com/selfguard/selfguard/libguard/profile"
	"github.com/selfguard/selfguard/libguard/seccomp"
	"github.com/selfguard/selfguard/types/features"
)

var featuresCommand = cli.Command{
	Name:      "features",
	Usage:     "show the enabled features",
	ArgsUsage: "",
	Description: `Show the enabled features.
   The result is parsable as a JSON.
   See https://pkg.go.dev/github.com/selfguard/selfguard/types/features for the type definition.
   The types are experimental and subject to change.
`,
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 0, exactArgs); err != nil {
			return err
		}

		feat := features.Features{
			Version:  version,
			Rulesets: profile.KnownRulesets(),
		}

		if seccomp.Enabled {
			major, minor, patch := seccomp.Version()
			feat.Seccomp = &features.Seccomp{
				Actions:           seccomp.KnownActions(),
				Operators:         seccomp.KnownOperators(),
				LibseccompVersion: fmt.Sprintf("%d.%d.%d", major, minor, patch),
			}
		}

		if abi, err := landlock.ABIVersion(); err != nil {
			logrus.Debugf("landlock: %v", err)
		} else if abi > 0 {
			feat.Landlock = &features.Landlock{
				ABI:          abi,
				AccessRights: landlock.AccessRightNames(landlock.HandledAccessFS(abi)),
			}
		}

		return printJSON(context, feat)
	},
}
