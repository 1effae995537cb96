package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Ramprasad4121/anchor-sentinel/internal/cache"
	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

const program = `use anchor_lang::prelude::*;

pub const CAP: u64 = 7;

#[program]
pub mod vault {
    use super::*;

    pub fn withdraw(ctx: Context<Withdraw>, amount: u64) -> Result<()> {
        token::transfer(ctx.accounts.transfer_ctx(), amount)?;
        Ok(())
    }
}

#[derive(Accounts)]
pub struct Withdraw<'info> {
    pub user: Signer<'info>,
}
`

func project(t *testing.T) string {
	t.Helper()
	t.Setenv(cache.EnvDir, t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.rs"), []byte(program), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "anchor-sentinel", SilenceUsage: true, SilenceErrors: true}
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScanJSON(t *testing.T) {
	dir := project(t)
	out, err := execute(t, "scan", dir, "--format", "json", "--log-level", "error")
	if err != nil {
		t.Fatal(err)
	}
	var res model.ScanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if len(res.Findings) != 1 || res.Findings[0].RuleID != "ANC-V023-TAINTED-FLOW" {
		t.Errorf("findings = %+v", res.Findings)
	}
}

func TestScanFailOnAndBaseline(t *testing.T) {
	dir := project(t)
	base := filepath.Join(t.TempDir(), "baseline.json")
	_, err := execute(t, "scan", dir, "--fail-on", "high", "--write-baseline", base, "--log-level", "error")
	var failed errFailOn
	if !errors.As(err, &failed) || failed.sev != model.SeverityHigh {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(base); err != nil {
		t.Fatalf("baseline not written: %v", err)
	}
	out, err := execute(t, "scan", dir, "--fail-on", "high", "--baseline", base, "--log-level", "error")
	if err != nil {
		t.Fatalf("baselined scan failed: %v", err)
	}
	if !strings.HasPrefix(out, "Findings: 0 in 1 file(s)") {
		t.Errorf("out = %q", out)
	}
}

func TestScanSARIF(t *testing.T) {
	dir := project(t)
	sarifPath := filepath.Join(t.TempDir(), "out.sarif")
	if _, err := execute(t, "scan", dir, "--format", "sarif", "--sarif-out", sarifPath, "--log-level", "error"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(sarifPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"ruleId": "ANC-V023-TAINTED-FLOW"`)) || !bytes.Contains(data, []byte(`"id": "ANC-V001-MISSING-SIGNER"`)) {
		t.Errorf("sarif = %s", data)
	}
}

func TestScanRejectsBadFlags(t *testing.T) {
	dir := project(t)
	if _, err := execute(t, "scan", dir, "--format", "xml", "--log-level", "error"); err == nil {
		t.Error("unknown format accepted")
	}
	if _, err := execute(t, "scan", dir, "--log-level", "loud"); err == nil {
		t.Error("unknown log level accepted")
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "--dir", dir); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SeverityThreshold != config.Default().SeverityThreshold {
		t.Errorf("cfg = %+v", cfg)
	}
	if _, err := execute(t, "init", "--dir", dir); err == nil {
		t.Error("init overwrote an existing config without --force")
	}
}

func TestRulesList(t *testing.T) {
	out, err := execute(t, "rules", "list")
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out, "\n"); n != 6 {
		t.Errorf("%d rules listed:\n%s", n, out)
	}
}

func TestIndexCommand(t *testing.T) {
	dir := project(t)
	out, err := execute(t, "index", dir)
	if err != nil {
		t.Fatal(err)
	}
	var dump struct {
		Structs      []struct{ Name string } `json:"structs"`
		Instructions []struct{ Name string } `json:"instructions"`
	}
	if err := json.Unmarshal([]byte(out), &dump); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if len(dump.Structs) != 1 || dump.Structs[0].Name != "Withdraw" || len(dump.Instructions) != 1 {
		t.Errorf("dump = %+v", dump)
	}
}

func TestIndexCommandFindsProjectConfig(t *testing.T) {
	dir := project(t)
	src := "pub fn settle(ctx: Ctx<Settle>, amount: u64) -> Result<()> {\n    Ok(())\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "lib.rs"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := "analysis:\n  contextTypes: [Ctx]\n  cache: false\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "programs")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(filepath.Join(dir, "lib.rs"), filepath.Join(sub, "lib.rs")); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "index", sub)
	if err != nil {
		t.Fatal(err)
	}
	var dump struct {
		Instructions []struct{ Name string } `json:"instructions"`
	}
	if err := json.Unmarshal([]byte(out), &dump); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if len(dump.Instructions) != 1 || dump.Instructions[0].Name != "settle" {
		t.Errorf("instructions = %+v", dump.Instructions)
	}
}
