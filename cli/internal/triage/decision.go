// Package triage is the classification engine: an ordered rule table keyed
// by finding identifier, the aggregator that folds decisions into a summary,
// and the narrative built from the categories actually observed.
package triage

// Classification is the triage verdict. The set is closed.
type Classification string

const (
	Confirmed     Classification = "Confirmed"
	FalsePositive Classification = "False Positive"
	NeedsReview   Classification = "Needs Review"
)

// Valid reports whether c is one of the three verdicts.
func (c Classification) Valid() bool {
	switch c {
	case Confirmed, FalsePositive, NeedsReview:
		return true
	default:
		return false
	}
}

// Confidence is ordered: high > medium > low.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Rank returns 3 for high, 2 for medium, 1 for low and 0 otherwise.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c is high, medium or low.
func (c Confidence) Valid() bool { return c.Rank() > 0 }

// Decision is the verdict for one finding. Every decision carries a
// rationale; Rule names the table entry that produced it.
type Decision struct {
	Classification Classification `json:"classification" yaml:"classification"`
	Confidence     Confidence     `json:"confidence" yaml:"confidence"`
	Rationale      string         `json:"rationale" yaml:"rationale"`
	Rule           string         `json:"rule,omitempty" yaml:"rule,omitempty"`
}

func decide(c Classification, conf Confidence, rationale string) Decision {
	return Decision{Classification: c, Confidence: conf, Rationale: rationale}
}
