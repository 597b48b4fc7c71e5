package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frame-dx-server/internal/kb"
)

func newValidateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a frame file builds a valid hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := kb.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d frames, %d diseases, %d symptoms (root %s, version %s)\n",
				store.Len(), len(store.Diseases()), len(store.SymptomVocabulary()), store.Root(), store.Version())
			return nil
		},
	}
}
