// Package history keeps one JSON line per annotate run in
// <state_dir>/triage-history.jsonl. The active file is bounded; older lines
// move to numbered gzip archives. Records are read by the stats command and
// by annotate to report the change since the previous run of a report.
package history

import (
	"sort"

	"wpcc/cli/internal/triage"
)

// IDCounts is the verdict tally for one finding identifier in one run.
type IDCounts struct {
	Confirmed      int `json:"confirmed"`
	FalsePositives int `json:"false_positives"`
	NeedsReview    int `json:"needs_review"`
}

// Total is the number of triaged findings with this identifier.
func (c IDCounts) Total() int { return c.Confirmed + c.FalsePositives + c.NeedsReview }

// Record is one line in triage-history.jsonl.
type Record struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	// Report is the absolute path of the annotated report.
	Report      string `json:"report"`
	ToolVersion string `json:"tool_version,omitempty"`
	// TotalFindings is the size of the report's findings array, recognized or not.
	TotalFindings       int                        `json:"total_findings"`
	MaxFindings         int                        `json:"max_findings"`
	Reviewed            int                        `json:"reviewed"`
	Summary             triage.Summary             `json:"summary"`
	ConfidenceBreakdown triage.ConfidenceBreakdown `json:"confidence_breakdown"`
	ByID                map[string]IDCounts        `json:"by_id,omitempty"`
}

// NewRecord summarizes a finished run for the history log.
func NewRecord(reportPath string, totalFindings int, r *triage.Report, toolVersion string) Record {
	byID := make(map[string]IDCounts)
	for _, rec := range r.TriagedFindings {
		c := byID[rec.Key.ID]
		switch rec.Classification {
		case triage.Confirmed:
			c.Confirmed++
		case triage.FalsePositive:
			c.FalsePositives++
		case triage.NeedsReview:
			c.NeedsReview++
		}
		byID[rec.Key.ID] = c
	}
	return Record{
		RunID:               r.RunID,
		Timestamp:           r.Timestamp,
		Report:              reportPath,
		ToolVersion:         toolVersion,
		TotalFindings:       totalFindings,
		MaxFindings:         r.Scope.MaxFindingsReviewed,
		Reviewed:            r.Scope.FindingsReviewed,
		Summary:             r.Summary,
		ConfidenceBreakdown: r.ConfidenceBreakdown,
		ByID:                byID,
	}
}

// IDs returns the identifiers in r.ByID, sorted.
func (r Record) IDs() []string {
	ids := make([]string, 0, len(r.ByID))
	for id := range r.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
