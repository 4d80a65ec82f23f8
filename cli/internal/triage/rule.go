package triage

import (
	"fmt"

	"wpcc/cli/internal/evidence"
	"wpcc/cli/internal/findings"
	"wpcc/cli/internal/trace"
)

// Rule is one predicate→decision pair in a chain.
type Rule struct {
	Name string
	When func(*evidence.Set) bool
	Then func(*evidence.Set) Decision
}

// Chain is the ordered rule list for one finding identifier. Rules are
// evaluated in declaration order and the first match wins; Default applies
// when none match.
type Chain struct {
	ID string
	// Category is the human name used in the narrative.
	Category string
	Rules    []Rule
	Default  Rule
}

// Evaluate runs the chain over s. It never returns an empty decision.
func (c *Chain) Evaluate(s *evidence.Set) Decision {
	d, _ := c.evaluate(s, nil)
	return d
}

// evaluate also returns a per-rule log when log is non-nil.
func (c *Chain) evaluate(s *evidence.Set, log *[]string) (Decision, bool) {
	for _, r := range c.Rules {
		if r.When(s) {
			note(log, "  %s: MATCH", r.Name)
			return stamp(r, s), true
		}
		note(log, "  %s: no", r.Name)
	}
	note(log, "  %s: DEFAULT", c.Default.Name)
	return stamp(c.Default, s), false
}

func stamp(r Rule, s *evidence.Set) Decision {
	d := r.Then(s)
	d.Rule = r.Name
	return d
}

func note(log *[]string, format string, args ...interface{}) {
	if log == nil {
		return
	}
	*log = append(*log, fmt.Sprintf(format, args...))
}

// Classify returns the decision for f. The boolean is false when the
// identifier has no chain; such findings are left untriaged.
func Classify(f findings.Finding) (Decision, bool) {
	c, ok := Lookup(f.ID)
	if !ok {
		return Decision{}, false
	}
	return c.Evaluate(evidence.Of(f)), true
}

// ClassifyTraced is Classify with every rule evaluation written to tr.
func ClassifyTraced(f findings.Finding, tr *trace.Tracer) (Decision, bool) {
	if !tr.Enabled() {
		return Classify(f)
	}
	header := fmt.Sprintf("%s %s:%d", f.ID, f.File, f.Line)
	c, ok := Lookup(f.ID)
	if !ok {
		tr.Block([]string{header, "  (unrecognized identifier, not triaged)"})
		return Decision{}, false
	}
	log := []string{header}
	d, _ := c.evaluate(evidence.Of(f), &log)
	log = append(log, fmt.Sprintf("  => %s/%s", d.Classification, d.Confidence))
	tr.Block(log)
	return d, true
}

// always is the predicate for unconditional rules.
func always(*evidence.Set) bool { return true }

// fixed returns a Then that ignores evidence.
func fixed(c Classification, conf Confidence, rationale string) func(*evidence.Set) Decision {
	d := decide(c, conf, rationale)
	return func(*evidence.Set) Decision { return d }
}
