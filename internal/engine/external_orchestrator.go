package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
	"github.com/Ramprasad4121/anchor-sentinel/internal/tools"
	"github.com/Ramprasad4121/anchor-sentinel/internal/util"
)

type externalTool struct {
	name    string
	command string
	args    []string
}

var (
	cargoAudit = externalTool{name: "cargo-audit", command: "cargo", args: []string{"audit", "--json"}}
	clippy     = externalTool{name: "clippy", command: "cargo", args: []string{"clippy", "--message-format=json", "--quiet"}}
)

// runExternalTools executes the enabled tools within the remaining budget
// and converts their output to findings. Failures are logged and skipped.
func runExternalTools(ctx context.Context, cfg config.Config, root string, budget time.Duration, log *config.LogGroup) []model.Finding {
	var enabled []externalTool
	if cfg.ExternalTools.CargoAudit {
		enabled = append(enabled, cargoAudit)
	}
	if cfg.ExternalTools.Clippy {
		enabled = append(enabled, clippy)
	}
	if len(enabled) == 0 {
		return nil
	}
	if budget <= 0 {
		log.Warnf("external: no time budget left, skipping %d tool(s)", len(enabled))
		return nil
	}
	dir := root
	if !isDir(root) {
		dir = filepath.Dir(root)
	}
	per := budget / time.Duration(len(enabled))
	var out []model.Finding
	for _, t := range enabled {
		tctx, cancel := context.WithTimeout(ctx, per)
		res := tools.RunWithTimeout(tctx, dir, t.command, t.args...)
		cancel()
		if res.Err != nil {
			log.Warnf("external: %s: %v", t.name, res.Err)
			continue
		}
		fs, err := tools.Normalize(t.name, res.Raw)
		if err != nil {
			log.Warnf("external: %s: %v", t.name, err)
		}
		log.Infof("external: %s reported %d finding(s) in %s", t.name, len(fs), res.Duration)
		out = append(out, convertExternal(fs, t.name, dir)...)
	}
	return out
}

func convertExternal(ext []tools.Finding, source, dir string) []model.Finding {
	var out []model.Finding
	for _, f := range ext {
		conf := f.Confidence
		if conf == 0 {
			conf = 0.5
		}
		file := f.File
		if file != "" && !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		out = append(out, model.Finding{
			RuleID:      source + ":" + f.RuleID,
			Severity:    model.ParseSeverity(f.Severity),
			Confidence:  conf,
			DetectorID:  "external:" + source,
			File:        filepath.ToSlash(file),
			StartLine:   f.StartLine,
			EndLine:     f.EndLine,
			Message:     f.Message,
			Fingerprint: fingerprintExternal(source, f),
		})
	}
	return out
}

func fingerprintExternal(source string, f tools.Finding) string {
	return util.Fingerprint(source+":"+f.RuleID, f.File, f.StartLine, f.EndLine, f.Message)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
