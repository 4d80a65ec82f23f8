package triage

import (
	"errors"
	"fmt"
)

// ErrInconsistent is returned when a report violates its own counts.
var ErrInconsistent = errors.New("inconsistent triage report")

func errInconsistent(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

// Counts is the fold of a record list.
type Counts struct {
	Reviewed       int
	Confirmed      int
	FalsePositives int
	NeedsReview    int
	High           int
	Medium         int
	Low            int
}

// Add folds one decision into c.
func (c *Counts) Add(d Decision) {
	c.Reviewed++
	switch d.Classification {
	case Confirmed:
		c.Confirmed++
	case FalsePositive:
		c.FalsePositives++
	case NeedsReview:
		c.NeedsReview++
	}
	switch d.Confidence {
	case High:
		c.High++
	case Medium:
		c.Medium++
	case Low:
		c.Low++
	}
}

// Aggregate folds records into counts.
func Aggregate(records []Record) Counts {
	var c Counts
	for _, r := range records {
		c.Add(r.Decision)
	}
	return c
}

// Overall-confidence thresholds, as ratios of reviewed findings.
const (
	highRatioMin    = 0.6
	lowRatioHighMax = 0.15
	lowRatioMin     = 0.4
)

// OverallConfidence is high when most decisions are high-confidence and few
// are low, low when a large share is low, and medium otherwise (including
// when nothing was reviewed).
func (c Counts) OverallConfidence() Confidence {
	if c.Reviewed == 0 {
		return Medium
	}
	highRatio := float64(c.High) / float64(c.Reviewed)
	lowRatio := float64(c.Low) / float64(c.Reviewed)
	switch {
	case highRatio >= highRatioMin && lowRatio <= lowRatioHighMax:
		return High
	case lowRatio >= lowRatioMin:
		return Low
	default:
		return Medium
	}
}

// Summary returns the summary block for c.
func (c Counts) Summary() Summary {
	return Summary{
		ConfirmedIssues: c.Confirmed,
		FalsePositives:  c.FalsePositives,
		NeedsReview:     c.NeedsReview,
		ConfidenceLevel: c.OverallConfidence(),
	}
}

// Breakdown returns the per-confidence counts.
func (c Counts) Breakdown() ConfidenceBreakdown {
	return ConfidenceBreakdown{High: c.High, Medium: c.Medium, Low: c.Low}
}
