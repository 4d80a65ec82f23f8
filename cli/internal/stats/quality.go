// Package stats aggregates triage quality metrics from the run history.
package stats

import (
	"sort"

	"wpcc/cli/internal/history"
)

// IDStats is the verdict tally for one finding identifier across runs.
type IDStats struct {
	Reviewed          int     `json:"reviewed"`
	Confirmed         int     `json:"confirmed"`
	FalsePositives    int     `json:"false_positives"`
	NeedsReview       int     `json:"needs_review"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// QualityResult holds aggregated metrics from triage-history.jsonl.
type QualityResult struct {
	Runs           int `json:"runs"`
	Reports        int `json:"reports"`
	TotalFindings  int `json:"total_findings"`
	Reviewed       int `json:"reviewed"`
	Confirmed      int `json:"confirmed"`
	FalsePositives int `json:"false_positives"`
	NeedsReview    int `json:"needs_review"`
	// Rates are fractions of Reviewed; CoverageRate is Reviewed over TotalFindings.
	FalsePositiveRate float64 `json:"false_positive_rate"`
	ConfirmedRate     float64 `json:"confirmed_rate"`
	NeedsReviewRate   float64 `json:"needs_review_rate"`
	CoverageRate      float64 `json:"coverage_rate"`
	// ConfidenceLevels counts runs by their overall confidence.
	ConfidenceLevels map[string]int     `json:"confidence_levels"`
	ByID             map[string]IDStats `json:"by_id"`
}

// Quality reads the history under stateDir (including rotated archives) and
// aggregates it. Missing or empty history yields zero counts and no error.
func Quality(stateDir string) (*QualityResult, error) {
	records, err := history.ReadRecords(stateDir)
	if err != nil {
		return nil, err
	}
	return Aggregate(records), nil
}

// Aggregate folds history records into a QualityResult.
func Aggregate(records []history.Record) *QualityResult {
	res := &QualityResult{
		ConfidenceLevels: map[string]int{},
		ByID:             map[string]IDStats{},
	}
	reports := make(map[string]struct{})
	for _, rec := range records {
		res.Runs++
		reports[rec.Report] = struct{}{}
		res.TotalFindings += rec.TotalFindings
		res.Reviewed += rec.Reviewed
		res.Confirmed += rec.Summary.ConfirmedIssues
		res.FalsePositives += rec.Summary.FalsePositives
		res.NeedsReview += rec.Summary.NeedsReview
		if lvl := string(rec.Summary.ConfidenceLevel); lvl != "" {
			res.ConfidenceLevels[lvl]++
		}
		for id, c := range rec.ByID {
			s := res.ByID[id]
			s.Reviewed += c.Total()
			s.Confirmed += c.Confirmed
			s.FalsePositives += c.FalsePositives
			s.NeedsReview += c.NeedsReview
			res.ByID[id] = s
		}
	}
	res.Reports = len(reports)
	res.FalsePositiveRate = ratio(res.FalsePositives, res.Reviewed)
	res.ConfirmedRate = ratio(res.Confirmed, res.Reviewed)
	res.NeedsReviewRate = ratio(res.NeedsReview, res.Reviewed)
	res.CoverageRate = ratio(res.Reviewed, res.TotalFindings)
	for id, s := range res.ByID {
		s.FalsePositiveRate = ratio(s.FalsePositives, s.Reviewed)
		res.ByID[id] = s
	}
	return res
}

// IDs returns the identifiers in ByID, most reviewed first, ties by name.
func (r *QualityResult) IDs() []string {
	ids := make([]string, 0, len(r.ByID))
	for id := range r.ByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.ByID[ids[i]], r.ByID[ids[j]]
		if a.Reviewed != b.Reviewed {
			return a.Reviewed > b.Reviewed
		}
		return ids[i] < ids[j]
	})
	return ids
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
