package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wpcc/cli/internal/config"
	"wpcc/cli/internal/erruser"
	"wpcc/cli/internal/logging"
	"wpcc/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(args []string) int {
	return execute(args, os.Stdin, os.Stdout, os.Stderr)
}

// execute runs the command tree with explicit streams so tests can capture them.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := &cobra.Command{
		Use:     "wpcc-triage",
		Short:   "Deterministic triage for WP Code Check reports",
		Version: version.String(),
	}
	rootCmd.PersistentFlags().String("root", "", "Project root for .wpcc/triage.toml and the state directory (default: current directory)")
	rootCmd.PersistentFlags().String("config", "", "Global config file (default: $XDG_CONFIG_HOME/wpcc-triage/config.toml)")
	rootCmd.AddCommand(newAnnotateCmd())
	rootCmd.AddCommand(newExplainCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(stderr, err)
		if d := erruser.Details(err); d != nil {
			fmt.Fprintf(stderr, "Details: %v\n", d)
		}
		return 1
	}
	return 0
}

// projectRoot returns --root or the current directory.
func projectRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("root")
	if root != "" {
		return root, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", erruser.New("Could not determine current directory.", err)
	}
	return cwd, nil
}

// loadConfig resolves the project root and loads the layered configuration.
func loadConfig(ctx context.Context, cmd *cobra.Command, overrides *config.Overrides) (*config.Config, string, error) {
	root, err := projectRoot(cmd)
	if err != nil {
		return nil, "", err
	}
	global, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(ctx, config.LoadOptions{
		ProjectRoot:      root,
		GlobalConfigPath: global,
		Overrides:        overrides,
	})
	if err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// newLogger builds the CLI logger on stderr from cfg.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, func() error, error) {
	log, closeFn, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Name:   "wpcc-triage",
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, erruser.New("Invalid logging configuration.", err)
	}
	return log, closeFn, nil
}

// addLoggingFlags registers --log-level and --log-format.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error (overrides config and env)")
	cmd.Flags().String("log-format", "", "Log format: console or json (overrides config and env)")
}

// overridesFromFlags returns Overrides for the flags that were set on cmd.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	o := &config.Overrides{}
	set := false
	if changed("max-findings") {
		v, _ := cmd.Flags().GetInt("max-findings")
		o.MaxFindings, set = &v, true
	}
	if changed("workers") {
		v, _ := cmd.Flags().GetInt("workers")
		o.Workers, set = &v, true
	}
	if changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		o.LogLevel, set = &v, true
	}
	if changed("log-format") {
		v, _ := cmd.Flags().GetString("log-format")
		o.LogFormat, set = &v, true
	}
	if changed("no-history") {
		v, _ := cmd.Flags().GetBool("no-history")
		enabled := !v
		o.HistoryEnabled, set = &enabled, true
	}
	if !set {
		return nil
	}
	return o
}
