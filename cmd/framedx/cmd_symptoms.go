package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSymptomsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "List every finding the frames know about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frames, _, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			vocabulary := frames.Catalog().SymptomVocabulary()

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(vocabulary)
			}
			for _, s := range vocabulary {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as a JSON array")
	return cmd
}
