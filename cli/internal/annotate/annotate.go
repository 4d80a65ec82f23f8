// Package annotate triages a WP Code Check report and writes the result back
// into the same file as a top-level ai_triage object. Every other byte of the
// report is preserved.
package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"wpcc/cli/internal/erruser"
	"wpcc/cli/internal/findings"
	"wpcc/cli/internal/triage"
)

// Key is the top-level report key the triage object is written under.
const Key = "ai_triage"

const (
	lockFilename = "annotate.lock"
	// defaultStateDir is used next to the report when Options.StateDir is empty.
	defaultStateDir = ".wpcc"
)

// ErrLocked indicates another run holds the write-back lock for the report.
var ErrLocked = errors.New("report is locked by another run")

// ErrIntegrity is wrapped by every post-write verification failure.
var ErrIntegrity = errors.New("annotated report failed verification")

// Options configures Annotate.
type Options struct {
	Engine *triage.Engine
	// Stdout, when non-nil, receives the annotated report and the file on
	// disk is left untouched.
	Stdout io.Writer
	Logger *zap.Logger
	// StateDir holds the write-back lock. Empty means <report dir>/.wpcc.
	StateDir string
}

// Result describes a finished annotation.
type Result struct {
	Report *triage.Report
	// TotalFindings is the length of the report's findings array.
	TotalFindings int
	// Path is the absolute path of the report.
	Path string
	// Written is false when the output went to Options.Stdout.
	Written bool
}

// Annotate reads the report at path, triages its findings and writes the
// ai_triage object back. The write is atomic, guarded by an advisory lock in
// the state directory, and verified by re-reading the file.
func Annotate(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.Engine == nil {
		return nil, erruser.New("No triage engine configured.", nil)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, erruser.New("Could not resolve report path.", err)
	}

	if opts.Stdout == nil {
		stateDir := opts.StateDir
		if stateDir == "" {
			stateDir = filepath.Join(filepath.Dir(abs), defaultStateDir)
		}
		release, err := acquireLock(stateDir)
		if err != nil {
			if errors.Is(err, ErrLocked) {
				return nil, erruser.New("Another wpcc-triage run is annotating this report.", err)
			}
			return nil, erruser.New("Could not lock report for writing.", err)
		}
		defer release()
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, erruser.New("Could not read report file.", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, erruser.New("Report is not valid JSON.", fmt.Errorf("%s: invalid JSON", abs))
	}
	total := 0
	if arr := gjson.GetBytes(data, "findings"); arr.IsArray() {
		total = len(arr.Array())
	} else {
		log.Warn("report has no findings array", zap.String("path", abs))
	}

	report, err := opts.Engine.Run(ctx, findings.ParseReport(data))
	if err != nil {
		return nil, err
	}
	out, err := Inject(data, report)
	if err != nil {
		return nil, erruser.New("Could not build annotated report.", err)
	}
	res := &Result{Report: report, TotalFindings: total, Path: abs}

	if opts.Stdout != nil {
		if _, err := opts.Stdout.Write(out); err != nil {
			return nil, erruser.New("Could not write annotated report.", err)
		}
		return res, nil
	}

	if err := writeAtomic(abs, out); err != nil {
		return nil, erruser.New("Could not write annotated report.", err)
	}
	written, err := os.ReadFile(abs)
	if err != nil {
		return nil, erruser.New("Could not re-read annotated report.", err)
	}
	if err := Verify(data, written); err != nil {
		return nil, erruser.New("Annotated report failed verification.", err)
	}
	res.Written = true
	log.Info("report annotated",
		zap.String("path", abs),
		zap.String("run_id", report.RunID),
		zap.Int("findings", total),
		zap.Int("reviewed", report.Scope.FindingsReviewed),
	)
	return res, nil
}

// Inject returns data with the ai_triage key set to report, replacing any
// previous value.
func Inject(data []byte, report *triage.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", Key, err)
	}
	out, err := sjson.SetRawBytes(data, Key, bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", Key, err)
	}
	return out, nil
}

// Verify checks an annotated report against the input it was built from.
func Verify(original, annotated []byte) error {
	if !gjson.ValidBytes(annotated) {
		return fmt.Errorf("%w: not valid JSON", ErrIntegrity)
	}
	t := gjson.GetBytes(annotated, Key)
	if !t.IsObject() {
		return fmt.Errorf("%w: %s missing", ErrIntegrity, Key)
	}
	if !t.Get("performed").Bool() {
		return fmt.Errorf("%w: performed is not true", ErrIntegrity)
	}
	reviewed := t.Get("scope.findings_reviewed").Int()
	if n := int64(len(t.Get("triaged_findings").Array())); n != reviewed {
		return fmt.Errorf("%w: findings_reviewed %d != %d triaged findings", ErrIntegrity, reviewed, n)
	}
	s := t.Get("summary")
	if sum := s.Get("confirmed_issues").Int() + s.Get("false_positives").Int() + s.Get("needs_review").Int(); sum != reviewed {
		return fmt.Errorf("%w: summary counts sum to %d, want %d", ErrIntegrity, sum, reviewed)
	}
	if gjson.GetBytes(original, "findings").Raw != gjson.GetBytes(annotated, "findings").Raw {
		return fmt.Errorf("%w: findings array changed", ErrIntegrity)
	}
	return nil
}

// writeAtomic replaces path with data through a temp file in the same
// directory, keeping the original permissions.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
