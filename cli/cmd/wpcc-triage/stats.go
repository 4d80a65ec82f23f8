package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"wpcc/cli/internal/erruser"
	"wpcc/cli/internal/stats"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the triage history (false-positive rate, per-identifier breakdown)",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().Bool("json", false, "Emit JSON instead of text")
	cmd.Flags().Int("top", 10, "Identifiers to list in text output (0 = all)")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd.Context(), cmd, nil)
	if err != nil {
		return err
	}
	res, err := stats.Quality(cfg.EffectiveStateDir(root))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return erruser.New("Could not write stats.", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	if res.Runs == 0 {
		fmt.Fprintln(w, "No triage history yet. Run 'wpcc-triage annotate <report.json>' first.")
		return nil
	}
	fmt.Fprintf(w, "runs: %d (%d reports)\n", res.Runs, res.Reports)
	fmt.Fprintf(w, "reviewed: %d of %d findings (%.1f%%)\n", res.Reviewed, res.TotalFindings, 100*res.CoverageRate)
	fmt.Fprintf(w, "confirmed: %d (%.1f%%)\n", res.Confirmed, 100*res.ConfirmedRate)
	fmt.Fprintf(w, "false positives: %d (%.1f%%)\n", res.FalsePositives, 100*res.FalsePositiveRate)
	fmt.Fprintf(w, "needs review: %d (%.1f%%)\n", res.NeedsReview, 100*res.NeedsReviewRate)
	for _, lvl := range []string{"high", "medium", "low"} {
		if n := res.ConfidenceLevels[lvl]; n > 0 {
			fmt.Fprintf(w, "runs with %s confidence: %d\n", lvl, n)
		}
	}
	top, _ := cmd.Flags().GetInt("top")
	ids := res.IDs()
	if top > 0 && len(ids) > top {
		ids = ids[:top]
	}
	if len(ids) > 0 {
		fmt.Fprintln(w, "---")
	}
	for _, id := range ids {
		s := res.ByID[id]
		fmt.Fprintf(w, "%-36s reviewed=%d confirmed=%d fp=%d review=%d fp_rate=%.1f%%\n",
			id, s.Reviewed, s.Confirmed, s.FalsePositives, s.NeedsReview, 100*s.FalsePositiveRate)
	}
	return nil
}
