package triage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wpcc/cli/internal/evidence"
	"wpcc/cli/internal/findings"
	"wpcc/cli/internal/trace"
)

// DefaultMaxFindings is the review cap when none is configured.
const DefaultMaxFindings = 200

// Engine triages findings in input order up to MaxFindings recognized
// findings. The zero value is not usable; MaxFindings must be set.
type Engine struct {
	MaxFindings int
	// Workers > 1 classifies in parallel; results are folded in input order.
	Workers int
	Now func() time.Time
	// NewID overrides the run id. By default the id is derived from the
	// findings, the cap and the timestamp, so identical runs get identical ids.
	NewID  func() string
	Logger *zap.Logger
	Tracer *trace.Tracer
}

type outcome struct {
	d  Decision
	ok bool
}

// Run triages fs and returns the ai_triage report. Findings are never
// modified. Unrecognized identifiers are skipped and do not count against
// the cap. Only ctx cancellation returns an error.
func (e *Engine) Run(ctx context.Context, fs []findings.Finding) (*Report, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limit := e.MaxFindings
	if limit < 0 {
		limit = 0
	}
	e.Tracer.Section("Classify")

	var (
		records []Record
		counts  Counts
		skipped int
		i       int
	)
	for i < len(fs) && counts.Reviewed < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// A window never exceeds the remaining cap, so every recognized
		// finding in it is within budget.
		end := i + (limit - counts.Reviewed)
		if end > len(fs) {
			end = len(fs)
		}
		window := fs[i:end]
		results, err := e.classifyWindow(ctx, window)
		if err != nil {
			return nil, err
		}
		for j, res := range results {
			if !res.ok {
				skipped++
				continue
			}
			f := window[j]
			ev := evidence.Of(f)
			records = append(records, Record{Key: KeyOf(f), Decision: res.d, ThirdParty: ev.ThirdParty()})
			counts.Add(res.d)
		}
		i = end
	}

	log.Debug("triage complete",
		zap.Int("total", len(fs)),
		zap.Int("reviewed", counts.Reviewed),
		zap.Int("unrecognized", skipped),
		zap.Int("not_reached", len(fs)-i),
	)
	e.Tracer.Printf("reviewed=%d unrecognized=%d cap=%d\n", counts.Reviewed, skipped, limit)

	if records == nil {
		records = []Record{}
	}
	ts := e.now().UTC().Format(time.RFC3339)
	return &Report{
		Performed:           true,
		Status:              StatusComplete,
		Version:             ReportVersion,
		RunID:               e.runID(fs, limit, ts),
		Timestamp:           ts,
		Scope:               Scope{MaxFindingsReviewed: limit, FindingsReviewed: counts.Reviewed},
		Summary:             counts.Summary(),
		ConfidenceBreakdown: counts.Breakdown(),
		Narrative:           Narrative(records),
		Recommendations:     Recommendations(records),
		TriagedFindings:     records,
	}, nil
}

func (e *Engine) classifyWindow(ctx context.Context, window []findings.Finding) ([]outcome, error) {
	out := make([]outcome, len(window))
	if e.Workers <= 1 || len(window) == 1 {
		for j, f := range window {
			d, ok := ClassifyTraced(f, e.Tracer)
			out[j] = outcome{d, ok}
		}
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for j := range window {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, ok := ClassifyTraced(window[j], e.Tracer)
			out[j] = outcome{d, ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// runNamespace seeds name-based run ids.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://wpcc-triage/run"))

func (e *Engine) runID(fs []findings.Finding, limit int, ts string) string {
	if e.NewID != nil {
		return e.NewID()
	}
	h := sha256.New()
	// Finding has no fields json cannot encode.
	_ = json.NewEncoder(h).Encode(fs)
	fmt.Fprintf(h, "%d\n%s", limit, ts)
	return uuid.NewSHA1(runNamespace, h.Sum(nil)).String()
}
