//go:build linux

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli"

	"github.com/selfguard/selfguard/libguard/system"
)

var statusCommand = cli.Command{
	Name:  "status",
	Usage: "show the restrictions selfguard itself runs under",
	Description: `The status command reports the seccomp mode, the number of installed
filters, no_new_privs and the effective capabilities of the calling thread.
Installing a filter needs either no_new_privs or CAP_SYS_ADMIN; selfguard
always sets no_new_privs.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "format, f",
			Value: "table",
			Usage: `select one of: table or json (default: "table")`,
		},
	},
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 0, exactArgs); err != nil {
			return err
		}
		st, err := system.CurrentStatus()
		if err != nil {
			return err
		}
		switch context.String("format") {
		case "table":
			w := tabwriter.NewWriter(context.App.Writer, 12, 1, 3, ' ', 0)
			fmt.Fprintf(w, "SECCOMP\t%s\n", st.Seccomp)
			fmt.Fprintf(w, "FILTERS\t%d\n", st.SeccompFilters)
			fmt.Fprintf(w, "NO_NEW_PRIVS\t%t\n", st.NoNewPrivs)
			fmt.Fprintf(w, "CAP_SYS_ADMIN\t%t\n", st.HasCapability("CAP_SYS_ADMIN"))
			return w.Flush()
		case "json":
			return printJSON(context, st)
		default:
			return fmt.Errorf("invalid format option")
		}
	},
}
