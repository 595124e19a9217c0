package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yoshikazusawa/Test-Harness/internal/config"
	"github.com/yoshikazusawa/Test-Harness/internal/logging"
	"github.com/yoshikazusawa/Test-Harness/internal/source"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile  string
	logLevel string

	cfg      *config.Config
	logger   *log.Logger
	registry *source.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "tapsource",
		Short: "Resolve a test-output source and stream its protocol lines",
		Long: `tapsource decides which strategy can turn a source description into a
stream of protocol lines, then streams it.

A source is a script or executable file, a recorded .tap file, multi-line
protocol text, or an explicit command given with --exec or after "--".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./tapsource.{yaml,toml,json})")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(newStreamCmd(a))
	cmd.AddCommand(newDetectCmd(a))
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.NewProvider().Load(cmd.Context(), config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.registry = source.NewDefaultRegistry(source.DefaultOptions{
		ExecutableExtensions: cfg.Executable.Extensions,
		FileExtensions:       cfg.File.Extensions,
		Logger:               logger,
	})
	return nil
}
