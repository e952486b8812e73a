package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/sidenav/cache"
)

func newPurgeCmd(root *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove expired cache entries from the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPurge(cmd.Context(), root, all, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "clear every entry, not only expired ones")
	return cmd
}

func runPurge(ctx context.Context, root *rootOptions, all bool, out io.Writer) error {
	a, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if all {
		n, err := a.store.Clear(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "cleared %d entries\n", n)
		return err
	}
	n, err := cache.NewPurgeWorker(a.store, 0, a.logger).RunOnce(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "purged %d expired entries\n", n)
	return err
}
