package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDetectCmd(a *app) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "detect [flags] [SOURCE | -- COMMAND [ARGS...]]",
		Short: "Show how each registered detector scores a source",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := src.rawSource(cmd, args)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ORDER\tDETECTOR\tSCORE")
			for _, c := range a.registry.Detect(raw) {
				fmt.Fprintf(tw, "%d\t%s\t%.2f\n", c.Order, c.Detector.Name(), c.Score)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			best, err := a.registry.Resolve(raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected: %s\n", best.Detector.Name())
			return nil
		},
	}

	src.register(cmd)
	return cmd
}
