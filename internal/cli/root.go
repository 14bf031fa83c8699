// Package cli wires the command surface: the default invocation runs the
// fix-and-report flow over every discovered preferences file, and the
// revert subcommand opens the interactive backup browser.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sudowork/rgbfix/internal/backup"
	"github.com/sudowork/rgbfix/internal/config"
	"github.com/sudowork/rgbfix/internal/fixer"
	"github.com/sudowork/rgbfix/internal/prefs"
	"github.com/sudowork/rgbfix/internal/tui"
)

// NewRootCmd returns the root cobra command.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rgbfix",
		Short: "Force M1 Macs into RGB mode for monitors that default to YPbPr",
		Long: "rgbfix rewrites the color-encoding fields in the windowserver display\n" +
			"preferences when a monitor was mis-detected as YPbPr, backing up every\n" +
			"file before it is touched. Run `rgbfix revert` to browse and restore\n" +
			"those backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, logger := runSetup(cmd, stderr)
			f := fixer.New(opts, backup.NewDirStore(), logger)
			if len(cfg.PreferencePaths) > 0 {
				f.Paths = cfg.PreferencePaths
			}
			return f.Run()
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().Bool("dry-run", false, "print what would be done without modifying any files")

	cmd.AddCommand(newRevertCmd(stderr))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

func newRevertCmd(stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "revert",
		Short: "Browse backups and restore one interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, _ := runSetup(cmd, stderr)
			paths := cfg.PreferencePaths
			if len(paths) == 0 {
				paths = prefs.CandidatePaths()
			}
			return tui.Run(backup.NewDirStore(), paths)
		},
	}
}

// runSetup reads the global flags and the optional local config, and
// builds the run logger.
func runSetup(cmd *cobra.Command, stderr io.Writer) (fixer.Options, *config.Config, *log.Logger) {
	dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	logger := log.NewWithOptions(stderr, log.Options{
		ReportTimestamp: true,
	})

	cfg := config.DefaultConfig()
	if manager, err := config.NewManager(); err == nil {
		if err := manager.Load(); err != nil {
			logger.Warn("Ignoring unreadable config", "err", err)
		} else {
			cfg = manager.Get()
		}
	}
	if cfg.DryRun {
		dryRun = true
	}

	return fixer.Options{DryRun: dryRun}, cfg, logger
}

// Execute runs the CLI with the process stdio and returns the exit code.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		log.New(os.Stderr).Error(err.Error())
		return 1
	}
	return 0
}
