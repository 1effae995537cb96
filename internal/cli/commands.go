package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/engine"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
	"github.com/Ramprasad4121/anchor-sentinel/internal/plugins"
	"github.com/Ramprasad4121/anchor-sentinel/internal/report"
	"github.com/Ramprasad4121/anchor-sentinel/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.AddCommand(newScanCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
}

// errFailOn is returned when a finding meets the --fail-on threshold.
type errFailOn struct{ sev model.Severity }

func (e errFailOn) Error() string { return fmt.Sprintf("fail-on threshold met: %s", e.sev) }

func newScanCmd() *cobra.Command {
	var (
		format        string
		budgetMs      int
		failOn        string
		outputFile    string
		sarifOut      string
		useTUI        bool
		writeBaseline string
		baselinePath  string
		configPath    string
		logLevel      string
		verbose       int
	)
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan an Anchor workspace or a single Rust file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			req := model.ScanRequest{
				Path:         path,
				ConfigPath:   configPath,
				BaselinePath: baselinePath,
			}
			if logLevel != "" {
				lvl, err := config.ParseLogLevel(logLevel)
				if err != nil {
					return err
				}
				req.LogLevel = int(lvl)
			} else if verbose > 0 {
				lvl := config.WarnLevel + config.LogLevel(verbose)
				if lvl > config.TraceLevel {
					lvl = config.TraceLevel
				}
				req.LogLevel = int(lvl)
			}
			ctx := cmd.Context()
			if budgetMs > 0 {
				req.TimeBudget = time.Duration(budgetMs) * time.Millisecond
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, req.TimeBudget)
				defer cancel()
			}

			reg := plugins.NewRegistry()
			reg.RegisterBuiltin()
			result, err := engine.NewWithRegistry(reg).Scan(ctx, req)
			if err != nil {
				return err
			}

			if useTUI {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("--tui needs an interactive terminal")
				}
				if err := tui.Run(result.Findings); err != nil {
					return err
				}
			} else if err := render(cmd.OutOrStdout(), format, outputFile, sarifOut, result, rulesOf(reg)); err != nil {
				return err
			}

			if writeBaseline != "" {
				if err := engine.WriteBaseline(writeBaseline, result.Findings); err != nil {
					return err
				}
			}
			if failOn != "" {
				threshold := model.ParseSeverity(failOn)
				for _, f := range result.Findings {
					if model.SeverityGTE(f.Severity, threshold) {
						return errFailOn{sev: f.Severity}
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|json|sarif")
	cmd.Flags().IntVar(&budgetMs, "budget-ms", 0, "Time budget for the scan in milliseconds (0 uses the config value)")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Fail if a finding of severity or higher is found (low|medium|high|critical)")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write report to file (with --format json)")
	cmd.Flags().StringVar(&sarifOut, "sarif-out", "", "Write SARIF report to file (with --format sarif)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Browse findings interactively")
	cmd.Flags().StringVar(&writeBaseline, "write-baseline", "", "Write a baseline file with finding fingerprints")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Hide findings whose fingerprint is in this baseline file")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: search for "+config.FileName+" upwards)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: error|warn|info|debug|trace")
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "Raise the log level once per -v (ignored with --log-level)")
	return cmd
}

func rulesOf(reg *plugins.Registry) []model.RuleMeta {
	var out []model.RuleMeta
	for _, d := range reg.Detectors() {
		out = append(out, d.Meta())
	}
	return out
}

func render(w io.Writer, format, outputFile, sarifOut string, result *model.ScanResult, rules []model.RuleMeta) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if outputFile != "" {
			return os.WriteFile(outputFile, data, 0o644)
		}
		fmt.Fprintln(w, string(data))
	case "sarif":
		data, err := report.ToSARIF(result.Findings, rules)
		if err != nil {
			return err
		}
		if sarifOut != "" {
			return os.WriteFile(sarifOut, data, 0o644)
		}
		fmt.Fprintln(w, string(data))
	case "table", "":
		fmt.Fprintf(w, "Findings: %d in %d file(s) (elapsed %s)\n", len(result.Findings), result.Files, result.Elapsed.Round(time.Millisecond))
		for _, f := range result.Findings {
			fmt.Fprintf(w, "- %s [%s] %s:%d %s (conf=%.2f)\n", f.RuleID, f.Severity, f.File, f.StartLine, f.Message, f.Confidence)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}
