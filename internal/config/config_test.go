package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSearchesUpwards(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "programs", "vault", "src")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	yml := `severityThreshold: high
analysis:
  contextTypes: [Context, Ctx]
  extendedSinks: true
ignore:
  - rule: ANC-V019-LOOP-BOUND
    path: tests/
`
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := Load(nested)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != filepath.Join(root, FileName) {
		t.Errorf("path = %q", path)
	}
	if cfg.SeverityThreshold != "high" {
		t.Errorf("SeverityThreshold = %q", cfg.SeverityThreshold)
	}
	if got := cfg.Analysis.ContextTypes; len(got) != 2 || got[1] != "Ctx" {
		t.Errorf("ContextTypes = %v", got)
	}
	if !cfg.Analysis.ExtendedSinks {
		t.Error("ExtendedSinks not set")
	}
	// fields absent from the file keep their defaults
	if cfg.Analysis.ContextReceiver != "ctx" || cfg.TimeBudgetMs != 4500 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if len(cfg.Ignore) != 1 || cfg.Ignore[0].Path != "tests/" {
		t.Errorf("Ignore = %+v", cfg.Ignore)
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	if err != nil || path != "" {
		t.Fatalf("Load = %q, %v", path, err)
	}
	if cfg.Analysis.LoopBoundThreshold != 1000 {
		t.Errorf("LoopBoundThreshold = %d", cfg.Analysis.LoopBoundThreshold)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("plugins: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMarshalRoundTripsThroughLoadFile(t *testing.T) {
	cfg := Default()
	cfg.Plugins = []string{"ANC-V023-TAINTED-FLOW"}
	b, err := Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Plugins) != 1 || got.Plugins[0] != "ANC-V023-TAINTED-FLOW" {
		t.Errorf("Plugins = %v", got.Plugins)
	}
}

func TestLogGroupLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogGroupAt(InfoLevel, &buf)
	l.SetAllFlags(0)
	l.Debugf("hidden")
	l.Infof("shown %d", 1)
	l.Errorf("boom")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message printed at info level: %q", out)
	}
	if !strings.Contains(out, "[INFO] shown 1") || !strings.Contains(out, "[ERROR] boom") {
		t.Errorf("output = %q", out)
	}

	var nilGroup *LogGroup
	nilGroup.Warnf("no panic")
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": DebugLevel, "5": TraceLevel, "WARN": WarnLevel} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error")
	}
}
