package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"wpcc/cli/internal/findings"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testEngine(limit, workers int) *Engine {
	return &Engine{
		MaxFindings: limit,
		Workers:     workers,
		Now:         func() time.Time { return fixedTime },
		NewID:       func() string { return "00000000-0000-4000-8000-000000000000" },
	}
}

func lines(r *Report) []int {
	out := make([]int, len(r.TriagedFindings))
	for i, rec := range r.TriagedFindings {
		out[i] = rec.Key.Line
	}
	return out
}

func TestRun_scenario(t *testing.T) {
	t.Parallel()
	fs := []findings.Finding{
		{ID: IDDebugCode, File: "js/a.js", Line: 3, Code: "debugger;"},
		{ID: IDSuperglobals, File: "inc/b.php", Line: 9, Code: "$_POST['x'] = 1;", Guarded: findings.True, Sanitized: findings.True},
		{ID: "not-a-rule", File: "inc/c.php", Line: 1},
	}
	r, err := testEngine(10, 1).Run(context.Background(), fs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Scope.FindingsReviewed != 2 || r.Scope.MaxFindingsReviewed != 10 {
		t.Errorf("scope = %+v", r.Scope)
	}
	wantSummary := Summary{ConfirmedIssues: 1, FalsePositives: 1, NeedsReview: 0, ConfidenceLevel: High}
	if diff := cmp.Diff(wantSummary, r.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	wantKeys := []FindingKey{
		{ID: IDDebugCode, File: "js/a.js", Line: 3},
		{ID: IDSuperglobals, File: "inc/b.php", Line: 9},
	}
	var gotKeys []FindingKey
	for _, rec := range r.TriagedFindings {
		gotKeys = append(gotKeys, rec.Key)
	}
	if diff := cmp.Diff(wantKeys, gotKeys); diff != "" {
		t.Errorf("triaged keys mismatch (-want +got):\n%s", diff)
	}
	if r.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("timestamp = %q", r.Timestamp)
	}
	if !r.Performed || r.Status != StatusComplete || r.Version != ReportVersion {
		t.Errorf("header = %v %q %q", r.Performed, r.Status, r.Version)
	}
	if err := r.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestRun_capIsFIFO(t *testing.T) {
	t.Parallel()
	var fs []findings.Finding
	for i := 1; i <= 8; i++ {
		fs = append(fs, findings.Finding{ID: IDDebugCode, Line: i})
	}
	for _, workers := range []int{1, 3} {
		r, err := testEngine(3, workers).Run(context.Background(), fs)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if diff := cmp.Diff([]int{1, 2, 3}, lines(r)); diff != "" {
			t.Errorf("workers=%d lines mismatch (-want +got):\n%s", workers, diff)
		}
		if r.Scope.FindingsReviewed != 3 {
			t.Errorf("workers=%d reviewed = %d", workers, r.Scope.FindingsReviewed)
		}
	}
}

func TestRun_unrecognizedDoNotUseCap(t *testing.T) {
	t.Parallel()
	fs := []findings.Finding{
		{ID: "x", Line: 1},
		{ID: IDHTTPNoTimeout, Line: 2},
		{ID: "y", Line: 3},
		{ID: IDHTTPNoTimeout, Line: 4},
		{ID: IDHTTPNoTimeout, Line: 5},
	}
	r, err := testEngine(2, 1).Run(context.Background(), fs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]int{2, 4}, lines(r)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func mixedFindings(n int) []findings.Finding {
	ids := []string{IDDebugCode, "unknown", IDSuperglobals, IDNPlusOne, IDUnsafeRegExp, IDRESTNoPagination, "other"}
	fs := make([]findings.Finding, n)
	for i := range fs {
		fs[i] = findings.Finding{
			ID:   ids[i%len(ids)],
			File: fmt.Sprintf("src/f%d.php", i),
			Line: i + 1,
			Code: "foreach ( $users as $u ) { get_user_meta( $u->ID ); }",
		}
		if i%4 == 0 {
			fs[i].File = "vendor/pkg/f.min.js"
		}
	}
	return fs
}

func TestRun_parallelMatchesSequential(t *testing.T) {
	t.Parallel()
	fs := mixedFindings(60)
	for _, limit := range []int{0, 1, 17, 200} {
		seq, err := testEngine(limit, 1).Run(context.Background(), fs)
		if err != nil {
			t.Fatalf("sequential Run: %v", err)
		}
		par, err := testEngine(limit, 4).Run(context.Background(), fs)
		if err != nil {
			t.Fatalf("parallel Run: %v", err)
		}
		if diff := cmp.Diff(seq, par); diff != "" {
			t.Errorf("max=%d parallel differs (-seq +par):\n%s", limit, diff)
		}
		if seq.Scope.FindingsReviewed > limit {
			t.Errorf("max=%d reviewed %d", limit, seq.Scope.FindingsReviewed)
		}
		if err := seq.Check(); err != nil {
			t.Errorf("max=%d Check: %v", limit, err)
		}
	}
}

func TestRun_idempotentBytes(t *testing.T) {
	t.Parallel()
	fs := mixedFindings(25)
	a, err := testEngine(200, 1).Run(context.Background(), fs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testEngine(200, 3).Run(context.Background(), fs)
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Errorf("reports differ:\n%s\n%s", ja, jb)
	}
}

func TestRun_runIDDerivedFromInput(t *testing.T) {
	t.Parallel()
	run := func(now time.Time, fs []findings.Finding) (*Report, []byte) {
		t.Helper()
		e := &Engine{MaxFindings: 10, Now: func() time.Time { return now }}
		r, err := e.Run(context.Background(), fs)
		if err != nil {
			t.Fatal(err)
		}
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		return r, data
	}
	fs := []findings.Finding{{ID: IDRESTNoPagination, File: "inc/api.php", Line: 7}}
	a, ja := run(fixedTime, fs)
	_, jb := run(fixedTime, fs)
	if !bytes.Equal(ja, jb) {
		t.Errorf("same input and clock produced different reports:\n%s\n%s", ja, jb)
	}
	if _, err := uuid.Parse(a.RunID); err != nil {
		t.Errorf("run_id %q is not a UUID: %v", a.RunID, err)
	}
	later, _ := run(fixedTime.Add(time.Second), fs)
	other, _ := run(fixedTime, []findings.Finding{{ID: IDRESTNoPagination, File: "inc/api.php", Line: 8}})
	if later.RunID == a.RunID || other.RunID == a.RunID {
		t.Errorf("run_id did not change with clock or input: %s %s %s", a.RunID, later.RunID, other.RunID)
	}
}

func TestRun_empty(t *testing.T) {
	t.Parallel()
	r, err := testEngine(200, 1).Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Scope.FindingsReviewed != 0 || r.Summary.ConfidenceLevel != Medium {
		t.Errorf("report = %+v", r)
	}
	if r.TriagedFindings == nil {
		t.Error("TriagedFindings is nil; want empty list so it serializes as []")
	}
	if diff := cmp.Diff([]string{recFallback}, r.Recommendations); diff != "" {
		t.Errorf("recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testEngine(10, 2).Run(ctx, mixedFindings(5))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}

func TestRun_findingsNotMutated(t *testing.T) {
	t.Parallel()
	fs := mixedFindings(10)
	before := make([]findings.Finding, len(fs))
	copy(before, fs)
	if _, err := testEngine(200, 2).Run(context.Background(), fs); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, fs); diff != "" {
		t.Errorf("findings mutated (-before +after):\n%s", diff)
	}
}

func TestRun_thirdPartyFlag(t *testing.T) {
	t.Parallel()
	fs := []findings.Finding{
		{ID: IDDebugCode, File: "node_modules/x/a.js"},
		{ID: IDDebugCode, File: "js/a.js"},
	}
	r, err := testEngine(5, 1).Run(context.Background(), fs)
	if err != nil {
		t.Fatal(err)
	}
	if !r.TriagedFindings[0].ThirdParty || r.TriagedFindings[1].ThirdParty {
		t.Errorf("ThirdParty flags = %v, %v", r.TriagedFindings[0].ThirdParty, r.TriagedFindings[1].ThirdParty)
	}
}

func TestReport_Check(t *testing.T) {
	t.Parallel()
	base := func(t *testing.T) *Report {
		t.Helper()
		r, err := testEngine(10, 1).Run(context.Background(), []findings.Finding{
			{ID: IDDebugCode, Line: 1},
			{ID: IDHTTPNoTimeout, Line: 2},
		})
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	tests := []struct {
		name   string
		mutate func(*Report)
	}{
		{"not performed", func(r *Report) { r.Performed = false }},
		{"reviewed mismatch", func(r *Report) { r.Scope.FindingsReviewed = 3 }},
		{"counts do not sum", func(r *Report) { r.Summary.NeedsReview = 1 }},
		{"over cap", func(r *Report) { r.Scope.MaxFindingsReviewed = 1 }},
		{"bad classification", func(r *Report) { r.TriagedFindings[0].Classification = "Maybe" }},
		{"missing rationale", func(r *Report) { r.TriagedFindings[1].Rationale = "" }},
		{"unrecognized id", func(r *Report) { r.TriagedFindings[0].Key.ID = "zzz" }},
	}
	if err := base(t).Check(); err != nil {
		t.Fatalf("Check on untouched report: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base(t)
			tt.mutate(r)
			if err := r.Check(); !errors.Is(err, ErrInconsistent) {
				t.Errorf("Check = %v, want ErrInconsistent", err)
			}
		})
	}
}
