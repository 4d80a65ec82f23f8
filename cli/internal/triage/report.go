package triage

import "wpcc/cli/internal/findings"

// ReportVersion is the schema version of the ai_triage object.
const ReportVersion = "1.0"

// StatusComplete is the only status a finished run reports.
const StatusComplete = "complete"

// FindingKey identifies a triaged finding without duplicating its code.
type FindingKey struct {
	ID   string `json:"id" yaml:"id"`
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// KeyOf returns the key of f.
func KeyOf(f findings.Finding) FindingKey {
	return FindingKey{ID: f.ID, File: f.File, Line: f.Line}
}

// Record is one triaged finding.
type Record struct {
	Key      FindingKey `json:"finding_key" yaml:"finding_key"`
	Decision `yaml:",inline"`
	// ThirdParty is set for findings in vendored or minified files. It only
	// feeds the narrative.
	ThirdParty bool `json:"-" yaml:"-"`
}

// Scope records the cap and how much of it was used.
type Scope struct {
	MaxFindingsReviewed int `json:"max_findings_reviewed"`
	FindingsReviewed    int `json:"findings_reviewed"`
}

// Summary is the classification tally and the overall confidence.
type Summary struct {
	ConfirmedIssues int        `json:"confirmed_issues"`
	FalsePositives  int        `json:"false_positives"`
	NeedsReview     int        `json:"needs_review"`
	ConfidenceLevel Confidence `json:"confidence_level"`
}

// ConfidenceBreakdown counts decisions per confidence level.
type ConfidenceBreakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Report is the ai_triage object. Field order is the serialized order.
type Report struct {
	Performed           bool                `json:"performed"`
	Status              string              `json:"status"`
	Version             string              `json:"version"`
	RunID               string              `json:"run_id"`
	Timestamp           string              `json:"timestamp"`
	Scope               Scope               `json:"scope"`
	Summary             Summary             `json:"summary"`
	ConfidenceBreakdown ConfidenceBreakdown `json:"confidence_breakdown"`
	Narrative           string              `json:"narrative"`
	Recommendations     []string            `json:"recommendations"`
	TriagedFindings     []Record            `json:"triaged_findings"`
}

// Check verifies the report's internal consistency: reviewed count matches
// the record list, counts sum to it, and every record carries a valid
// verdict and a rationale.
func (r *Report) Check() error {
	if !r.Performed {
		return errInconsistent("performed is false")
	}
	if r.Scope.FindingsReviewed != len(r.TriagedFindings) {
		return errInconsistent("findings_reviewed %d != %d triaged findings", r.Scope.FindingsReviewed, len(r.TriagedFindings))
	}
	s := r.Summary
	if sum := s.ConfirmedIssues + s.FalsePositives + s.NeedsReview; sum != r.Scope.FindingsReviewed {
		return errInconsistent("summary counts sum to %d, want %d", sum, r.Scope.FindingsReviewed)
	}
	if r.Scope.FindingsReviewed > r.Scope.MaxFindingsReviewed {
		return errInconsistent("findings_reviewed %d exceeds max %d", r.Scope.FindingsReviewed, r.Scope.MaxFindingsReviewed)
	}
	for i, rec := range r.TriagedFindings {
		if !rec.Classification.Valid() || !rec.Confidence.Valid() || rec.Rationale == "" {
			return errInconsistent("triaged finding %d (%s) has an incomplete decision", i, rec.Key.ID)
		}
		if !Recognized(rec.Key.ID) {
			return errInconsistent("triaged finding %d has unrecognized identifier %q", i, rec.Key.ID)
		}
	}
	return nil
}
