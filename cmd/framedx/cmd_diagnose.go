package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/frame-dx-server/internal/domain"
)

func newDiagnoseCmd(a *app) *cobra.Command {
	var (
		opts   domain.DiagnoseOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "diagnose <symptom>...",
		Short: "Rank diseases against the given findings",
		Long:  "Rank diseases against the given findings. Quote multi-word findings,\ne.g. framedx diagnose fever \"sore throat\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, diagnosis, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			result, err := diagnosis.Diagnose(cmd.Context(), args, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result.Response())
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tDISEASE\tSCORE\tMATCHED")
			for i, r := range result.Ranked {
				fmt.Fprintf(w, "%d\t%s\t%g\t%s\n", i+1, r.Disease, r.Score, matched(result.Details[r.Disease]))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, id := range disqualified(result) {
				d := result.Details[id]
				fmt.Fprintf(out, "excluded %s: %s\n", id, reason(d))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most N diseases (0 = all)")
	cmd.Flags().BoolVar(&opts.ExcludeZero, "exclude-zero", false, "hide diseases that scored 0")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the API response JSON")
	return cmd
}

func matched(d domain.DiagnosisDetails) string {
	if len(d.MatchedFindings) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(d.MatchedFindings))
	for id := range d.MatchedFindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

// disqualified lists the frames that failed a hard rule, sorted by id.
func disqualified(result *domain.DiagnosisResult) []string {
	var out []string
	for id, d := range result.Details {
		if len(d.UnmetMust) > 0 || len(d.ForbiddenPresent) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func reason(d domain.DiagnosisDetails) string {
	var parts []string
	if len(d.UnmetMust) > 0 {
		parts = append(parts, "missing "+strings.Join(d.UnmetMust, ", "))
	}
	if len(d.ForbiddenPresent) > 0 {
		parts = append(parts, "has "+strings.Join(d.ForbiddenPresent, ", "))
	}
	return strings.Join(parts, "; ")
}
