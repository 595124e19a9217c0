package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

func newStreamCmd(a *app) *cobra.Command {
	var (
		src           sourceFlags
		merge         bool
		propagateExit bool
	)

	cmd := &cobra.Command{
		Use:   "stream [flags] [SOURCE | -- COMMAND [ARGS...]]",
		Short: "Stream the protocol lines produced by a source",
		Example: `  tapsource stream t/basic.sh
  tapsource stream results.tap
  tapsource stream --merge -- prove-helper t/basic.t
  tapsource stream --exec "perl -Ilib t/basic.t"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := src.rawSource(cmd, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("merge") {
				merge = a.cfg.Merge
			}

			s, err := a.registry.MakeStream(cmd.Context(), raw, stream.Options{
				Merge:      merge,
				Stderr:     cmd.ErrOrStderr(),
				CloseGrace: a.cfg.CloseGrace,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			for s.Next() {
				if _, err := fmt.Fprintln(out, s.Line()); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
			if err := s.Err(); err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			if err := s.Close(); err != nil {
				return fmt.Errorf("close source: %w", err)
			}

			status, _ := s.Status()
			a.logger.Debug("source finished", "source", raw.String(), "status", status.String())
			if propagateExit && !status.Success() {
				code := status.Code
				if status.Signaled || code <= 0 {
					code = 1
				}
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().BoolVar(&merge, "merge", false, "interleave the child's stderr into the stream (default from config)")
	cmd.Flags().BoolVar(&propagateExit, "propagate-exit", false, "exit with the child's exit code when it fails")
	return cmd
}
