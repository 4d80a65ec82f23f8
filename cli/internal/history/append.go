// Append, read and rotation for triage-history.jsonl.

package history

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"wpcc/cli/internal/erruser"
)

const (
	historyFilename = "triage-history.jsonl"
	archivePrefix   = historyFilename + "."
	archiveSuffix   = ".gz"
	// DefaultMaxRecords is the active-file bound when none is configured.
	DefaultMaxRecords  = 1000
	maxRotatedArchives = 5
	// maxLineSize bounds a single record line; per-identifier maps keep
	// records small, so this is generous.
	maxLineSize = 1024 * 1024
)

// Path returns the active history file under stateDir.
func Path(stateDir string) string {
	return filepath.Join(stateDir, historyFilename)
}

type archive struct {
	n    int
	path string
}

// archives lists triage-history.jsonl.N.gz files in dir, sorted by N
// ascending (oldest first).
func archives(dir string) ([]archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []archive
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		n, err := strconv.Atoi(name[len(archivePrefix) : len(name)-len(archiveSuffix)])
		if err != nil || n < 1 {
			continue
		}
		out = append(out, archive{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].n < out[j].n })
	return out, nil
}

// ReadRecords returns every record under stateDir, oldest first: archives in
// ascending order, then the active file. A missing state directory yields no
// records.
func ReadRecords(stateDir string) ([]Record, error) {
	arcs, err := archives(stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, erruser.New("Could not read history directory.", err)
	}
	var out []Record
	for _, a := range arcs {
		recs, err := readGzipRecords(a.path)
		if err != nil {
			return nil, erruser.New("Could not read history archive.", err)
		}
		out = append(out, recs...)
	}
	lines, err := readLines(Path(stateDir))
	if err != nil && !os.IsNotExist(err) {
		return nil, erruser.New("Could not read history file.", err)
	}
	recs, err := parseRecordLines(lines)
	if err != nil {
		return nil, erruser.New("History file is corrupt.", err)
	}
	return append(out, recs...), nil
}

func readGzipRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer func() { _ = gr.Close() }()
	lines, err := readLinesFrom(gr)
	if err != nil {
		return nil, err
	}
	return parseRecordLines(lines)
}

func parseRecordLines(lines []string) ([]Record, error) {
	var out []Record
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("history line %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append writes record as one JSON line to stateDir/triage-history.jsonl,
// creating both if missing. When maxRecords > 0 and the file then holds more
// lines, the oldest lines move to a gzip archive.
func Append(stateDir string, record Record, maxRecords int) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return erruser.New("Could not create state directory for history.", err)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return erruser.New("Could not record triage history.", err)
	}
	path := Path(stateDir)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return erruser.New("Could not record triage history.", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return erruser.New("Could not record triage history.", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return erruser.New("Could not record triage history.", err)
	}
	if err := f.Close(); err != nil {
		return erruser.New("Could not record triage history.", err)
	}
	if maxRecords > 0 {
		return rotateIfNeeded(path, maxRecords)
	}
	return nil
}

// rotateIfNeeded moves all but the last maxRecords lines of path into the
// next numbered archive, prunes archives beyond maxRotatedArchives, then
// rewrites path with the kept lines (temp file + rename).
func rotateIfNeeded(path string, maxRecords int) error {
	lines, err := readLines(path)
	if err != nil {
		return erruser.New("Could not read history for rotation.", err)
	}
	if len(lines) <= maxRecords {
		return nil
	}
	dropped, keep := lines[:len(lines)-maxRecords], lines[len(lines)-maxRecords:]
	dir := filepath.Dir(path)

	arcs, err := archives(dir)
	if err != nil {
		return erruser.New("Could not rotate history file.", err)
	}
	next := 1
	if len(arcs) > 0 {
		next = arcs[len(arcs)-1].n + 1
	}
	archivePath := filepath.Join(dir, archivePrefix+strconv.Itoa(next)+archiveSuffix)
	if err := writeGzippedLines(archivePath, dropped); err != nil {
		return erruser.New("Could not write rotated history archive.", err)
	}
	arcs = append(arcs, archive{n: next, path: archivePath})
	for len(arcs) > maxRotatedArchives {
		if err := os.Remove(arcs[0].path); err != nil {
			return erruser.New("Could not prune history archives.", err)
		}
		arcs = arcs[1:]
	}

	if err := writeLinesAtomic(path, keep); err != nil {
		return erruser.New("Could not rotate history file.", err)
	}
	return nil
}

func writeLinesAtomic(path string, lines []string) error {
	f, err := os.CreateTemp(filepath.Dir(path), "triage-history.*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
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
	return os.Rename(tmp, path)
}

func writeGzippedLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	gw := gzip.NewWriter(f)
	for _, l := range lines {
		if _, err := io.WriteString(gw, l); err != nil {
			_ = gw.Close()
			return err
		}
	}
	if err := gw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// readLines returns the lines of path, each with its trailing newline.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLinesFrom(f)
}

func readLinesFrom(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text()+"\n")
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
