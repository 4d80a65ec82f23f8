package findings

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want Finding
	}{
		{
			name: "full",
			in: `{"id":"spo-002-superglobals","file":"inc/a.php","line":12,"message":"Direct superglobal manipulation",
				"code":"$_POST['x'] = 1;","context":[{"line":11,"code":"if ( $ok ) {"},{"line":13,"code":"}"}],
				"guarded":true,"sanitized":false}`,
			want: Finding{
				ID: "spo-002-superglobals", File: "inc/a.php", Line: 12, Message: "Direct superglobal manipulation",
				Code:      "$_POST['x'] = 1;",
				Context:   []ContextLine{{Line: 11, Code: "if ( $ok ) {"}, {Line: 13, Code: "}"}},
				Guarded:   True,
				Sanitized: False,
			},
		},
		{
			name: "missing_fields_default",
			in:   `{"id":"http-no-timeout"}`,
			want: Finding{ID: "http-no-timeout"},
		},
		{
			name: "null_flags_are_unknown",
			in:   `{"id":"x","guarded":null,"sanitized":null}`,
			want: Finding{ID: "x"},
		},
		{
			name: "wrong_types_tolerated",
			in:   `{"id":7,"file":["a"],"line":"42","code":null,"context":"nope","guarded":"yes"}`,
			want: Finding{Line: 42},
		},
		{
			name: "context_of_strings",
			in:   `{"id":"x","context":["a()","b()"]}`,
			want: Finding{ID: "x", Context: []ContextLine{{Code: "a()"}, {Code: "b()"}}},
		},
		{
			name: "not_an_object",
			in:   `[1,2]`,
			want: Finding{},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FromJSON([]byte(tt.in))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FromJSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseReport(t *testing.T) {
	t.Parallel()
	data := []byte(`{"version":"1.0","findings":[{"id":"a","line":1},"garbage",{"id":"b","line":2}]}`)
	got := ParseReport(data)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "" || got[2].ID != "b" {
		t.Errorf("order not preserved: %+v", got)
	}
	if ParseReport([]byte(`{"summary":{}}`)) != nil {
		t.Error("report without findings should yield nil")
	}
}

func TestTristate_JSON(t *testing.T) {
	t.Parallel()
	var v struct {
		A Tristate `json:"a"`
		B Tristate `json:"b"`
		C Tristate `json:"c"`
		D Tristate `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":true,"b":false,"c":null}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.A != True || v.B != False || v.C != Unknown || v.D != Unknown {
		t.Errorf("got %v %v %v %v", v.A, v.B, v.C, v.D)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"a":true,"b":false,"c":null,"d":null}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestTristate_Helpers(t *testing.T) {
	t.Parallel()
	if Unknown.Known() || !False.Known() || !True.Known() {
		t.Error("Known() wrong")
	}
	if Unknown.IsTrue() || False.IsTrue() || !True.IsTrue() {
		t.Error("IsTrue() wrong")
	}
	if Unknown.String() != "unknown" {
		t.Errorf("String() = %q", Unknown.String())
	}
}
