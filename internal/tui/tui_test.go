package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m browser, msgs ...tea.Msg) (browser, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(browser)
	}
	return m, cmd
}

func sample(n int) []model.Finding {
	var fs []model.Finding
	for i := 0; i < n; i++ {
		fs = append(fs, model.Finding{
			RuleID:    "ANC-V023-TAINTED-FLOW",
			Severity:  model.SeverityHigh,
			File:      "lib.rs",
			StartLine: i + 1,
			Message:   "tainted",
			Rationale: "why",
		})
	}
	return fs
}

func TestCursorStaysInRange(t *testing.T) {
	m, _ := send(newBrowser(sample(3)), key("k"), key("j"), key("j"), key("j"), key("j"))
	if m.cursor != 2 {
		t.Errorf("cursor = %d", m.cursor)
	}
	m, _ = send(m, key("g"))
	if m.cursor != 0 {
		t.Errorf("cursor after g = %d", m.cursor)
	}
}

func TestDetailView(t *testing.T) {
	m, _ := send(newBrowser(sample(2)), key("j"), key("enter"))
	v := m.View()
	if !strings.Contains(v, "lib.rs:2") || !strings.Contains(v, "Why: why") {
		t.Errorf("detail view = %q", v)
	}
	m, _ = send(m, key("j"))
	if m.cursor != 1 {
		t.Error("cursor moved while in detail view")
	}
	m, _ = send(m, key("esc"))
	if m.detail || !strings.Contains(m.View(), "> high") {
		t.Errorf("list view = %q", m.View())
	}
}

func TestScrollFollowsCursor(t *testing.T) {
	m, _ := send(newBrowser(sample(10)), tea.WindowSizeMsg{Width: 80, Height: 7})
	for i := 0; i < 9; i++ {
		m, _ = send(m, key("j"))
	}
	if m.offset != 7 {
		t.Errorf("offset = %d", m.offset)
	}
	v := m.View()
	if strings.Contains(v, "lib.rs:1 ") || !strings.Contains(v, "lib.rs:10") {
		t.Errorf("view = %q", v)
	}
}

func TestQuit(t *testing.T) {
	_, cmd := send(newBrowser(nil), key("q"))
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestEmptyList(t *testing.T) {
	m, _ := send(newBrowser(nil), key("enter"), key("G"))
	if m.detail || !strings.Contains(m.View(), "Findings (0)") {
		t.Errorf("view = %q", m.View())
	}
}
