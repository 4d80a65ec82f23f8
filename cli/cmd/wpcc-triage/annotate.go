package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wpcc/cli/internal/annotate"
	"wpcc/cli/internal/history"
	"wpcc/cli/internal/trace"
	"wpcc/cli/internal/triage"
	"wpcc/cli/internal/version"
)

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <report.json>",
		Short: "Triage a report's findings and write the ai_triage block back into it",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnnotate,
	}
	cmd.Flags().Bool("stdout", false, "Write the annotated report to stdout and leave the file unchanged")
	cmd.Flags().Int("max-findings", 0, "Maximum recognized findings to triage (overrides config and env)")
	cmd.Flags().Int("workers", 0, "Parallel classification workers (overrides config and env)")
	cmd.Flags().Bool("trace", false, "Print every rule evaluation to stderr")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the triage history")
	addLoggingFlags(cmd)
	return cmd
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, root, err := loadConfig(ctx, cmd, overridesFromFlags(cmd))
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	var traceOut io.Writer
	if on, _ := cmd.Flags().GetBool("trace"); on {
		traceOut = cmd.ErrOrStderr()
	}
	engine := &triage.Engine{
		MaxFindings: cfg.MaxFindings,
		Workers:     cfg.Workers,
		Logger:      log,
		Tracer:      trace.New(traceOut),
	}
	stateDir := cfg.EffectiveStateDir(root)
	opts := annotate.Options{Engine: engine, Logger: log, StateDir: stateDir}
	toStdout, _ := cmd.Flags().GetBool("stdout")
	if toStdout {
		opts.Stdout = cmd.OutOrStdout()
	}
	res, err := annotate.Annotate(ctx, args[0], opts)
	if err != nil {
		return err
	}
	if toStdout {
		return nil
	}

	var (
		delta   history.Delta
		hasPrev bool
	)
	if cfg.HistoryEnabled {
		rec := history.NewRecord(res.Path, res.TotalFindings, res.Report, version.String())
		prev, ok, err := history.Previous(stateDir, res.Path)
		if err != nil {
			log.Warn("could not read triage history", zap.Error(err))
		} else if ok {
			delta, hasPrev = history.Compare(prev, rec), true
		}
		if err := history.Append(stateDir, rec, cfg.HistoryMaxRecords); err != nil {
			log.Warn("could not record triage history", zap.Error(err))
		}
	}
	writeBreakdown(cmd.OutOrStdout(), res, delta, hasPrev)
	return nil
}

// writeBreakdown prints the classification summary of a finished run.
func writeBreakdown(w io.Writer, res *annotate.Result, delta history.Delta, hasPrev bool) {
	r := res.Report
	fmt.Fprintf(w, "Triaged %d of %d findings in %s (cap %d).\n",
		r.Scope.FindingsReviewed, res.TotalFindings, res.Path, r.Scope.MaxFindingsReviewed)
	color.New(color.FgRed, color.Bold).Fprintf(w, "  confirmed issues: %d\n", r.Summary.ConfirmedIssues)
	color.New(color.FgGreen).Fprintf(w, "  false positives:  %d\n", r.Summary.FalsePositives)
	color.New(color.FgYellow).Fprintf(w, "  needs review:     %d\n", r.Summary.NeedsReview)
	fmt.Fprintf(w, "Overall confidence: %s (high %d, medium %d, low %d)\n", r.Summary.ConfidenceLevel,
		r.ConfidenceBreakdown.High, r.ConfidenceBreakdown.Medium, r.ConfidenceBreakdown.Low)
	switch {
	case !hasPrev:
	case delta.Zero():
		fmt.Fprintln(w, "Since previous run: no change.")
	default:
		fmt.Fprintf(w, "Since previous run: confirmed %+d, false positives %+d, needs review %+d\n",
			delta.Confirmed, delta.FalsePositives, delta.NeedsReview)
	}
}
