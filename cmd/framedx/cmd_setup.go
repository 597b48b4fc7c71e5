package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frame-dx-server/internal/setup"
)

func newSetupCmd(a *app) *cobra.Command {
	var (
		configPath string
		binary     string
		noFeedback bool
		remove     bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register framedx with a desktop MCP client",
		Long: `Adds a "framedx" entry to the desktop client's mcpServers configuration so
the client launches "framedx mcp". Other entries are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				var err error
				if path, err = setup.ClientConfigPath(); err != nil {
					return err
				}
			}

			if remove {
				removed, err := setup.Unregister(path)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "framedx is not registered in %s\n", path)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed framedx from %s\n", path)
				return nil
			}

			if binary == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("failed to locate framedx binary: %w", err)
				}
				binary = exe
			}

			replaced, err := setup.Register(path, setup.Options{
				BinaryPath: binary,
				FramesFile: a.framesFile,
				DataDir:    a.cfg.DataDir,
				NoFeedback: noFeedback,
			})
			if err != nil {
				return err
			}

			action := "registered"
			if replaced {
				action = "updated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s framedx in %s\nrestart the client to pick it up\n", action, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "client config file (defaults to the desktop client's location for this OS)")
	cmd.Flags().StringVar(&binary, "binary", "", "framedx binary the client should launch (defaults to this executable)")
	cmd.Flags().BoolVar(&noFeedback, "no-feedback", false, "register without the feedback tools")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the framedx entry instead")
	return cmd
}
