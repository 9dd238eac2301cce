package main

import (
	"github.com/spf13/cobra"

	"github.com/chazu/lamina/pkg/settings"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newApp(root).settings(root.config)
			if err != nil {
				return err
			}
			if _, err := settings.Decode(s); err != nil {
				return err
			}
			return settings.WriteTOML(cmd.OutOrStdout(), s)
		},
	}
}
