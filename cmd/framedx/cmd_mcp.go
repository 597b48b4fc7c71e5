package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frame-dx-server/internal/feedback"
	"github.com/frame-dx-server/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	var noFeedback bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the diagnosis tools over MCP on stdio",
		Long: `Starts a Model Context Protocol server over stdin/stdout. Logs go to
stderr. Feedback is stored in SQLite under $FRAMEDX_DATA_DIR unless
--no-feedback is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frames, diagnosis, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			opts := []mcp.Option{mcp.WithLogger(a.logger)}
			if !noFeedback {
				if err := a.cfg.EnsureDataDir(); err != nil {
					return fmt.Errorf("failed to create data directory: %w", err)
				}
				store, err := feedback.NewSQLiteStore(a.cfg.FeedbackDBPath())
				if err != nil {
					return fmt.Errorf("failed to open feedback store: %w", err)
				}
				defer store.Close()
				opts = append(opts, mcp.WithFeedbackStore(store))
			}

			return mcp.NewServer(frames, diagnosis, opts...).Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noFeedback, "no-feedback", false, "do not expose the feedback tools")
	return cmd
}
