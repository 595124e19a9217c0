package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"

	"github.com/yoshikazusawa/Test-Harness/internal/source"
)

// sourceFlags selects a raw source from exactly one of --exec, --source or
// positional arguments.
type sourceFlags struct {
	exec string
	file string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.exec, "exec", "", "command line to run, split into words and $VAR-expanded like a shell would")
	cmd.Flags().StringVar(&f.file, "source", "", "YAML or JSON file describing the source (path, [argv...] or {exec: [argv...]})")
	cmd.MarkFlagsMutuallyExclusive("exec", "source")
}

// rawSource builds the source. Arguments after "--" are always an explicit
// command. Otherwise a single positional argument is a path or raw text and
// several are an explicit command.
func (f *sourceFlags) rawSource(cmd *cobra.Command, args []string) (source.RawSource, error) {
	switch {
	case f.exec != "" && len(args) > 0, f.file != "" && len(args) > 0:
		return source.RawSource{}, errors.New("positional arguments cannot be combined with --exec or --source")
	case f.exec != "":
		argv, err := shell.Fields(f.exec, os.Getenv)
		if err != nil {
			return source.RawSource{}, fmt.Errorf("failed to split --exec: %w", err)
		}
		return source.FromExec(argv...), nil
	case f.file != "":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return source.RawSource{}, fmt.Errorf("failed to read source file: %w", err)
		}
		return source.ParseRaw(data)
	}

	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		if dash > 0 {
			return source.RawSource{}, errors.New("a path cannot be combined with a command after --")
		}
		if len(args) == 0 {
			return source.RawSource{}, errors.New("no command given after --")
		}
		return source.FromExec(args...), nil
	}

	switch len(args) {
	case 0:
		return source.RawSource{}, errors.New("no source given: pass a path, --exec, --source or a command after --")
	case 1:
		return source.FromScalar(args[0]), nil
	default:
		return source.FromExec(args...), nil
	}
}
