// Package findings defines the read-only input model for triage: one finding
// from a WP Code Check JSON report, with its code snippet, nearby context and
// the optional scanner-supplied guarded/sanitized flags.
//
// Decoding is tolerant. A missing or wrongly-typed field becomes the zero
// value (empty string, empty slice, Unknown flag) so sparse or older reports
// never fail to load.
package findings

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Tristate is a scanner flag that may be true, false or absent. Absent means
// "unknown", which is not the same as false.
type Tristate int8

const (
	Unknown Tristate = iota
	False
	True
)

// Known reports whether the scanner supplied a value.
func (t Tristate) Known() bool { return t != Unknown }

// IsTrue reports whether the flag is known and true.
func (t Tristate) IsTrue() bool { return t == True }

// String returns "true", "false" or "unknown".
func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Unknown as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false or null. Any other value decodes to
// Unknown rather than failing.
func (t *Tristate) UnmarshalJSON(data []byte) error {
	*t = tristateFrom(gjson.ParseBytes(data))
	return nil
}

// MarshalYAML renders the flag for the explain command.
func (t Tristate) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func tristateFrom(r gjson.Result) Tristate {
	switch r.Type {
	case gjson.True:
		return True
	case gjson.False:
		return False
	default:
		return Unknown
	}
}

// ContextLine is one snippet of code near the flagged line.
type ContextLine struct {
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
	Code string `json:"code" yaml:"code"`
}

// Finding is one flagged location from the scanner report.
type Finding struct {
	ID        string        `json:"id" yaml:"id"`
	File      string        `json:"file" yaml:"file"`
	Line      int           `json:"line" yaml:"line"`
	Message   string        `json:"message" yaml:"message"`
	Code      string        `json:"code" yaml:"code"`
	Context   []ContextLine `json:"context,omitempty" yaml:"context,omitempty"`
	Guarded   Tristate      `json:"guarded" yaml:"guarded"`
	Sanitized Tristate      `json:"sanitized" yaml:"sanitized"`
}

// FromResult decodes one finding object. Non-object input yields a zero
// Finding.
func FromResult(r gjson.Result) Finding {
	if !r.IsObject() {
		return Finding{}
	}
	f := Finding{
		ID:        str(r.Get("id")),
		File:      str(r.Get("file")),
		Line:      integer(r.Get("line")),
		Message:   str(r.Get("message")),
		Code:      str(r.Get("code")),
		Guarded:   tristateFrom(r.Get("guarded")),
		Sanitized: tristateFrom(r.Get("sanitized")),
	}
	ctx := r.Get("context")
	if ctx.IsArray() {
		for _, c := range ctx.Array() {
			if c.Type == gjson.String {
				f.Context = append(f.Context, ContextLine{Code: c.String()})
				continue
			}
			f.Context = append(f.Context, ContextLine{
				Line: integer(c.Get("line")),
				Code: str(c.Get("code")),
			})
		}
	}
	return f
}

// FromJSON decodes a single finding object from raw JSON.
func FromJSON(data []byte) Finding {
	return FromResult(gjson.ParseBytes(data))
}

// ParseReport returns the findings array of a report in input order. A
// report without a findings array yields nil.
func ParseReport(data []byte) []Finding {
	arr := gjson.GetBytes(data, "findings")
	if !arr.IsArray() {
		return nil
	}
	items := arr.Array()
	out := make([]Finding, 0, len(items))
	for _, r := range items {
		out = append(out, FromResult(r))
	}
	return out
}

// str returns r as a string only when it is a JSON string; numbers, objects
// and null become "".
func str(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

// integer accepts a JSON number or a numeric string ("12").
func integer(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return int(r.Int())
	case gjson.String:
		v, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}
