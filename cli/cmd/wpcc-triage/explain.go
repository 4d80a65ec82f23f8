package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"wpcc/cli/internal/erruser"
	"wpcc/cli/internal/evidence"
	"wpcc/cli/internal/findings"
	"wpcc/cli/internal/trace"
	"wpcc/cli/internal/triage"
)

// explanation is the explain output for one finding.
type explanation struct {
	Finding    triage.FindingKey `json:"finding" yaml:"finding"`
	Recognized bool              `json:"recognized" yaml:"recognized"`
	Category   string            `json:"category,omitempty" yaml:"category,omitempty"`
	ThirdParty bool              `json:"third_party" yaml:"third_party"`
	Guarded    findings.Tristate `json:"guarded" yaml:"guarded"`
	Sanitized  findings.Tristate `json:"sanitized" yaml:"sanitized"`
	Decision   *triage.Decision  `json:"decision,omitempty" yaml:"decision,omitempty"`
}

func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [finding.json|-]",
		Short: "Classify one finding (or every finding of a report) and show the deciding rule",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExplain,
	}
	cmd.Flags().Bool("json", false, "Emit JSON instead of YAML")
	cmd.Flags().Bool("trace", false, "Print every rule evaluation to stderr")
	return cmd
}

func runExplain(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return erruser.New("Input is not valid JSON.", nil)
	}
	var tr *trace.Tracer
	if on, _ := cmd.Flags().GetBool("trace"); on {
		tr = trace.New(cmd.ErrOrStderr())
	}

	var out interface{}
	if arr := gjson.GetBytes(data, "findings"); arr.IsArray() {
		list := []explanation{}
		for _, f := range findings.ParseReport(data) {
			list = append(list, explain(f, tr))
		}
		out = list
	} else {
		out = explain(findings.FromJSON(data), tr)
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(out); err != nil {
			return erruser.New("Could not write explanation.", err)
		}
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return erruser.New("Could not write explanation.", err)
	}
	return enc.Close()
}

func explain(f findings.Finding, tr *trace.Tracer) explanation {
	e := explanation{
		Finding:    triage.KeyOf(f),
		ThirdParty: evidence.Of(f).ThirdParty(),
		Guarded:    f.Guarded,
		Sanitized:  f.Sanitized,
	}
	d, ok := triage.ClassifyTraced(f, tr)
	if !ok {
		return e
	}
	c, _ := triage.Lookup(f.ID)
	e.Recognized = true
	e.Category = c.Category
	e.Decision = &d
	return e
}

// readInput reads the named file, or stdin when the argument is "-" or absent.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, erruser.New("Could not read standard input.", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, erruser.New("Could not read input file.", err)
	}
	return data, nil
}
