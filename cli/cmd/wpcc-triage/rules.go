package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wpcc/cli/internal/erruser"
	"wpcc/cli/internal/heuristics"
	"wpcc/cli/internal/triage"
)

// ruleTable is the YAML shape of one chain.
type ruleTable struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Rules    []string `yaml:"rules"`
	Default  string   `yaml:"default"`
}

// primingHook is a hook after which core has cached an object's metadata.
type primingHook struct {
	Hook string                `yaml:"hook"`
	Kind heuristics.ObjectKind `yaml:"kind"`
}

type rulesOutput struct {
	Chains []ruleTable `yaml:"chains"`
	// CachePrimingHooks is listed in the order the n-plus-one rule matches them.
	CachePrimingHooks []primingHook `yaml:"cache_priming_hooks"`
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the decision rule table and cache-priming hooks as YAML, in evaluation order",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
}

func runRules(cmd *cobra.Command, args []string) error {
	var out rulesOutput
	for _, c := range triage.Chains() {
		t := ruleTable{ID: c.ID, Category: c.Category, Default: c.Default.Name}
		for _, r := range c.Rules {
			t.Rules = append(t.Rules, r.Name)
		}
		out.Chains = append(out.Chains, t)
	}
	for _, h := range heuristics.Hooks() {
		kind, _ := heuristics.HookObjectKind(h)
		out.CachePrimingHooks = append(out.CachePrimingHooks, primingHook{Hook: h, Kind: kind})
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return erruser.New("Could not write rule table.", err)
	}
	return enc.Close()
}
