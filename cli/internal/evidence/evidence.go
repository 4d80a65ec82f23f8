// Package evidence derives the text and path signals the triage rules look
// at: vendor/minified location, the flagged code line, and the proximate text
// formed by the code line plus its context snippets.
//
// Every function here is a pure string check. Nothing reads files.
package evidence

import (
	"strings"

	"wpcc/cli/internal/findings"
)

var vendorMarkers = []string{
	"/vendor/",
	"/vendor_prefixed/",
	"/node_modules/",
	"/assets/lib/",
}

var minifiedSuffixes = []string{
	".min.js",
	".min.css",
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// IsVendorOrThirdParty reports whether path lies under a known dependency
// directory. A relative path such as "vendor/x.php" matches too.
func IsVendorOrThirdParty(path string) bool {
	p := rooted(NormalizePath(path))
	for _, m := range vendorMarkers {
		if strings.Contains(p, m) {
			return true
		}
	}
	return false
}

func rooted(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// IsMinified reports whether path names a bundled/minified asset.
func IsMinified(path string) bool {
	p := strings.ToLower(path)
	for _, s := range minifiedSuffixes {
		if strings.HasSuffix(p, s) {
			return true
		}
	}
	return false
}

// Proximate concatenates the flagged code with every context snippet.
func Proximate(code string, context []findings.ContextLine) string {
	var b strings.Builder
	b.WriteString(code)
	for _, c := range context {
		b.WriteString(c.Code)
	}
	return b.String()
}

// Compact strips all whitespace so markers match regardless of spacing
// style ("foreach ( $users" and "foreach($users" compact identically).
func Compact(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, s)
}

// Set is the evidence for one finding, computed once and shared by every rule
// in its chain.
type Set struct {
	Finding findings.Finding
	// Path is the normalized, lower-cased file path, always rooted with "/"
	// so directory fragments match at the start of relative paths.
	Path     string
	Vendor   bool
	Minified bool
	// Code is the flagged line with surrounding whitespace trimmed.
	Code string
	// Text is Code plus all context snippets.
	Text string
	// CompactText is Text without whitespace.
	CompactText string
}

// Of builds the evidence set for f.
func Of(f findings.Finding) *Set {
	code := strings.TrimSpace(f.Code)
	text := Proximate(code, f.Context)
	return &Set{
		Finding:     f,
		Path:        rooted(strings.ToLower(NormalizePath(f.File))),
		Vendor:      IsVendorOrThirdParty(f.File),
		Minified:    IsMinified(f.File),
		Code:        code,
		Text:        text,
		CompactText: Compact(text),
	}
}

// CodeHas reports whether the flagged line contains s.
func (s *Set) CodeHas(sub string) bool { return strings.Contains(s.Code, sub) }

// TextHas reports whether the code or any context snippet contains sub.
func (s *Set) TextHas(sub string) bool { return strings.Contains(s.Text, sub) }

// TextHasAny reports whether the proximate text contains any of subs.
func (s *Set) TextHasAny(subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s.Text, sub) {
			return true
		}
	}
	return false
}

// CompactHasAny matches already-compacted markers against CompactText.
func (s *Set) CompactHasAny(markers ...string) bool {
	_, ok := FirstIn(s.CompactText, markers)
	return ok
}

// PathHasAny reports whether the normalized path contains any fragment.
func (s *Set) PathHasAny(fragments ...string) bool {
	_, ok := FirstIn(s.Path, fragments)
	return ok
}

// ThirdParty reports vendor or minified location.
func (s *Set) ThirdParty() bool { return s.Vendor || s.Minified }

// FirstIn returns the first marker (in declaration order) contained in s.
func FirstIn(s string, markers []string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return m, true
		}
	}
	return "", false
}
