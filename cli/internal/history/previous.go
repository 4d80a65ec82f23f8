package history

// Delta is the change in verdict counts between two runs of one report.
type Delta struct {
	Confirmed      int `json:"confirmed"`
	FalsePositives int `json:"false_positives"`
	NeedsReview    int `json:"needs_review"`
}

// Zero reports whether nothing changed.
func (d Delta) Zero() bool {
	return d.Confirmed == 0 && d.FalsePositives == 0 && d.NeedsReview == 0
}

// Previous returns the most recent record for reportPath, if any. Call it
// before appending the current run.
func Previous(stateDir, reportPath string) (Record, bool, error) {
	records, err := ReadRecords(stateDir)
	if err != nil {
		return Record{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Report == reportPath {
			return records[i], true, nil
		}
	}
	return Record{}, false, nil
}

// Compare returns cur minus prev.
func Compare(prev, cur Record) Delta {
	return Delta{
		Confirmed:      cur.Summary.ConfirmedIssues - prev.Summary.ConfirmedIssues,
		FalsePositives: cur.Summary.FalsePositives - prev.Summary.FalsePositives,
		NeedsReview:    cur.Summary.NeedsReview - prev.Summary.NeedsReview,
	}
}
