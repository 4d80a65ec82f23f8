package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wpcc/cli/internal/findings"
	"wpcc/cli/internal/triage"
)

func rec(runID, report string, confirmed int) Record {
	return Record{
		RunID:    runID,
		Report:   report,
		Reviewed: confirmed,
		Summary:  triage.Summary{ConfirmedIssues: confirmed, ConfidenceLevel: triage.High},
	}
}

func runIDs(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RunID
	}
	return out
}

func TestAppend_createsFileAndReadsBack(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", ".wpcc")
	require.NoError(t, Append(dir, rec("r1", "/p/scan.json", 2), 0))
	require.NoError(t, Append(dir, rec("r2", "/p/scan.json", 1), 0))

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	recs, err := ReadRecords(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, runIDs(recs))
	assert.Equal(t, 2, recs[0].Summary.ConfirmedIssues)
}

func TestAppend_rotationArchivesOldest(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		require.NoError(t, Append(dir, rec(fmt.Sprintf("r%d", i), "/p/a.json", i), 2))
	}
	lines, err := readLines(Path(dir))
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	arcs, err := archives(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, arcs)

	recs, err := ReadRecords(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, runIDs(recs), "archives then active file, oldest first")
}

func TestAppend_prunesArchivesBeyondCap(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for i := 1; i <= maxRotatedArchives+4; i++ {
		require.NoError(t, Append(dir, rec(fmt.Sprintf("r%d", i), "/p/a.json", 0), 1))
	}
	arcs, err := archives(dir)
	require.NoError(t, err)
	assert.Len(t, arcs, maxRotatedArchives)
	recs, err := ReadRecords(dir)
	require.NoError(t, err)
	assert.Len(t, recs, maxRotatedArchives+1)
	assert.Equal(t, fmt.Sprintf("r%d", maxRotatedArchives+4), recs[len(recs)-1].RunID)
}

func TestAppend_stateDirIsFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.Error(t, Append(path, rec("r", "", 0), 0))
}

func TestReadRecords_missingDir(t *testing.T) {
	t.Parallel()
	recs, err := ReadRecords(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReadRecords_corruptLine(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("{\"run_id\":\"ok\"}\nnot json\n"), 0644))
	_, err := ReadRecords(dir)
	assert.ErrorContains(t, err, "corrupt")
}

func TestPreviousAndCompare(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, ok, err := Previous(dir, "/p/a.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Append(dir, rec("r1", "/p/a.json", 4), 0))
	require.NoError(t, Append(dir, rec("r2", "/p/b.json", 9), 0))
	require.NoError(t, Append(dir, rec("r3", "/p/a.json", 3), 0))

	prev, ok, err := Previous(dir, "/p/a.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r3", prev.RunID)

	d := Compare(prev, rec("r4", "/p/a.json", 1))
	assert.Equal(t, Delta{Confirmed: -2}, d)
	assert.False(t, d.Zero())
	assert.True(t, Compare(prev, prev).Zero())
}

func TestNewRecord(t *testing.T) {
	t.Parallel()
	eng := &triage.Engine{
		MaxFindings: 10,
		Now:         func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
		NewID:       func() string { return "run-1" },
	}
	report, err := eng.Run(context.Background(), []findings.Finding{
		{ID: triage.IDDebugCode},
		{ID: triage.IDDebugCode},
		{ID: triage.IDWPDBNoPrepare, Code: "SELECT FOUND_ROWS()"},
		{ID: "unknown"},
	})
	require.NoError(t, err)

	r := NewRecord("/p/scan.json", 4, report, "v1.2.0")
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "2026-03-01T00:00:00Z", r.Timestamp)
	assert.Equal(t, 4, r.TotalFindings)
	assert.Equal(t, 3, r.Reviewed)
	assert.Equal(t, []string{triage.IDDebugCode, triage.IDWPDBNoPrepare}, r.IDs())
	assert.Equal(t, IDCounts{Confirmed: 2}, r.ByID[triage.IDDebugCode])
	assert.Equal(t, IDCounts{FalsePositives: 1}, r.ByID[triage.IDWPDBNoPrepare])
	assert.Equal(t, 1, r.ByID[triage.IDWPDBNoPrepare].Total())
}
