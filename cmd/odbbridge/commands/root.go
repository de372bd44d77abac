package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"odbbridge/internal/app"
	"odbbridge/internal/domain"
)

var (
	configPath string
	logLevel   string
	wire       *app.Wire
)

// Execute runs the root command on the process arguments. Usage errors wrap
// domain.ErrUsage.
func Execute() error {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrUsage):
		return 2
	}
	return 1
}

func execute(args []string, stdout, stderr io.Writer) error {
	root := &cobra.Command{
		Use:           "odbbridge",
		Short:         "Export and rebuild FE meshes with their NT11 temperature field",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			wire, err = app.NewWire(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire != nil {
				return wire.Close()
			}
			return nil
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(cmd, "%v", err)
	})

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(exportCmd(), importCmd(), inspectCmd())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		if errors.Is(err, domain.ErrUsage) && cmd != nil {
			fmt.Fprint(stderr, cmd.UsageString())
		}
	}
	return err
}

func usageError(cmd *cobra.Command, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", cmd.CommandPath(), domain.ErrUsage, fmt.Sprintf(format, args...))
}

// stepList trims each --steps entry and drops empty ones, so
// "A, B,," selects A and B.
func stepList(raw []string) []string {
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
