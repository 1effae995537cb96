package analysis

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

//go:embed testdata
var testdata embed.FS

// Match annotations of the form "@Flow(id1, id2)" and "@Violation(id)". The
// annotation applies to the line it is written on.
var (
	flowRegex      = regexp.MustCompile(`//.*@Flow\(((?:\s*\w+\s*,?)+)\)`)
	violationRegex = regexp.MustCompile(`//.*@Violation\(((?:\s*\w+\s*,?)+)\)`)
)

// lineVar identifies a finding by line and variable name.
type lineVar struct {
	Line int
	Name string
}

func (l lineVar) String() string { return fmt.Sprintf("%d:%s", l.Line, l.Name) }

func loadTestFile(t *testing.T, name string) (*rust.File, string) {
	t.Helper()
	b, err := testdata.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	f, err := rust.ParseSource(string(b))
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return f, string(b)
}

func expectedAnnotations(src string, re *regexp.Regexp) map[lineVar]bool {
	want := map[lineVar]bool{}
	for i, line := range strings.Split(src, "\n") {
		m := re.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		for _, id := range strings.Split(m[1], ",") {
			want[lineVar{Line: i + 1, Name: strings.TrimSpace(id)}] = true
		}
	}
	return want
}

func compareAnnotations(t *testing.T, kind string, got, want map[lineVar]bool) {
	t.Helper()
	var missing, extra []string
	for k := range want {
		if !got[k] {
			missing = append(missing, k.String())
		}
	}
	for k := range got {
		if !want[k] {
			extra = append(extra, k.String())
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	for _, m := range missing {
		t.Errorf("expected %s at %s, not reported", kind, m)
	}
	for _, e := range extra {
		t.Errorf("unexpected %s at %s", kind, e)
	}
}

func TestTaintAnnotations(t *testing.T) {
	f, src := loadTestFile(t, "taint.rs")
	got := map[lineVar]bool{}
	for _, fn := range f.Functions() {
		tr := NewTaintTracker(src)
		for _, flow := range tr.AnalyzeFunction(fn) {
			got[lineVar{Line: flow.Location.Line, Name: flow.Variable}] = true
		}
	}
	compareAnnotations(t, "flow", got, expectedAnnotations(src, flowRegex))
}

func TestScopeAnnotations(t *testing.T) {
	f, src := loadTestFile(t, "scope.rs")
	got := map[lineVar]bool{}
	for _, fn := range f.Functions() {
		st := NewScopeTracker()
		st.Analyze(fn)
		for _, v := range st.FindViolations() {
			got[lineVar{Line: v.Location.Line, Name: v.Variable}] = true
		}
	}
	compareAnnotations(t, "violation", got, expectedAnnotations(src, violationRegex))
}
