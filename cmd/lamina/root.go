package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/lamina/pkg/logging"
)

type rootOptions struct {
	config  string
	verbose int
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "lamina",
		Short:         "Slice 3D models into G-code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			switch {
			case o.verbose > 1:
				level = slog.LevelDebug
			case o.verbose == 1:
				level = slog.LevelInfo
			}
			logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().StringVarP(&o.config, "config", "c", "", "settings file (.toml or .yaml)")
	cmd.PersistentFlags().CountVarP(&o.verbose, "verbose", "v", "log more (repeat for debug output)")

	cmd.AddCommand(
		newSliceCmd(o),
		newInfoCmd(o),
		newExportCmd(o),
		newConfigCmd(o),
	)
	return cmd
}
