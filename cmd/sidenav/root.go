package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgPath  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "sidenav",
		Short:         "Context-aware navigation sidebar renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fs := cmd.PersistentFlags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "sidenav.yaml", "config yaml path")
	fs.StringVar(&opts.logLevel, "log-level", "", "override observe.logging.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newSelectCmd(opts),
		newPurgeCmd(opts),
	)
	return cmd
}
