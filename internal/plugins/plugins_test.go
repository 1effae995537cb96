package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

func loadProject(t *testing.T, name string) *analysis.ProjectContext {
	t.Helper()
	ar, err := txtar.ParseFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	pc := &analysis.ProjectContext{
		RootPath:     ".",
		FileContents: map[string]string{},
		Options:      config.Default().Analysis,
	}
	var files []analysis.SourceFile
	for _, f := range ar.Files {
		files = append(files, analysis.SourceFile{Path: f.Name, Content: string(f.Data)})
		pc.Files = append(pc.Files, f.Name)
		pc.FileContents[f.Name] = string(f.Data)
	}
	pc.Index, err = analysis.BuildProgramIndex(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	return pc
}

// summary renders findings as "file:line entity" in sorted order.
func summary(fs []model.Finding) []string {
	var out []string
	for _, f := range fs {
		out = append(out, fmt.Sprintf("%s:%d %s", f.File, f.StartLine, f.Entity))
	}
	sort.Strings(out)
	return out
}

func TestDetectors(t *testing.T) {
	pc := loadProject(t, "program.txtar")
	tests := []struct {
		d    Detector
		want []string
	}{
		{&taintedFlow{}, []string{"lib.rs:14 withdraw::amount"}},
		{&scopeValidation{}, []string{"lib.rs:14 withdraw::amount"}},
		{&loopBound{}, []string{"lib.rs:15 withdraw"}},
		{&missingSigner{}, []string{"lib.rs:30 Withdraw::authority"}},
		{&uncheckedAccount{}, []string{"lib.rs:30 Withdraw::authority"}},
		{&accountUsage{}, []string{"lib.rs:21 withdraw::vault"}},
	}
	for _, tt := range tests {
		meta := tt.d.Meta()
		t.Run(meta.ID, func(t *testing.T) {
			fs, err := tt.d.Analyze(context.Background(), pc)
			if err != nil {
				t.Fatal(err)
			}
			got := summary(fs)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			for _, f := range fs {
				if f.RuleID != meta.ID || f.CWE != meta.CWE || f.Fingerprint == "" || f.Message == "" || f.Confidence == 0 {
					t.Errorf("incomplete finding %+v", f)
				}
			}
		})
	}
}

func TestScopeFindingCarriesExplanation(t *testing.T) {
	fs, _ := (&scopeValidation{}).Analyze(context.Background(), loadProject(t, "program.txtar"))
	if len(fs) != 1 || !strings.Contains(fs[0].Rationale, "checked inside a block (depth 1) but used outside (depth 0)") {
		t.Errorf("findings = %+v", fs)
	}
}

func TestLoopBoundThreshold(t *testing.T) {
	pc := loadProject(t, "program.txtar")
	pc.Options.LoopBoundThreshold = 10000
	fs, _ := (&loopBound{}).Analyze(context.Background(), pc)
	if len(fs) != 0 {
		t.Errorf("findings above a raised threshold: %v", summary(fs))
	}
	pc.Options.LoopBoundThreshold = 5
	fs, _ = (&loopBound{}).Analyze(context.Background(), pc)
	if len(fs) != 2 {
		t.Errorf("findings = %v", summary(fs))
	}
}

func TestExtendedSinksOption(t *testing.T) {
	pc := loadProject(t, "program.txtar")
	pc.Options.ExtendedSinks = true
	fs, _ := (&taintedFlow{}).Analyze(context.Background(), pc)
	var unchecked []model.Finding
	for _, f := range fs {
		if strings.Contains(f.Message, "unchecked arithmetic") {
			unchecked = append(unchecked, f)
		}
	}
	// lib.rs subtracts an unvalidated amount, safe.rs adds a validated one
	if len(unchecked) != 1 || unchecked[0].StartLine != 21 || unchecked[0].Severity != model.SeverityMedium {
		t.Errorf("findings = %v", summary(fs))
	}
}

func TestRegistryRun(t *testing.T) {
	pc := loadProject(t, "program.txtar")
	reg := NewRegistry()
	reg.RegisterBuiltin()

	fs := reg.Run(context.Background(), pc)
	if len(fs) != 6 {
		t.Fatalf("findings = %v", summary(fs))
	}
	// registration order is preserved
	var ids []string
	for _, d := range reg.Detectors() {
		ids = append(ids, d.Meta().ID)
	}
	for i, f := range fs {
		if f.RuleID != ids[i] {
			t.Errorf("finding %d from %s, want %s", i, f.RuleID, ids[i])
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if fs := reg.Run(ctx, pc); len(fs) != 0 {
		t.Errorf("cancelled run returned %v", summary(fs))
	}
}

func TestBuiltinMetadata(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterBuiltin()
	seen := map[string]bool{}
	for _, d := range reg.Detectors() {
		m := d.Meta()
		if !strings.HasPrefix(m.ID, "ANC-V") || m.Title == "" || !strings.HasPrefix(m.CWE, "CWE-") {
			t.Errorf("meta = %+v", m)
		}
		if seen[m.ID] {
			t.Errorf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
}
