package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// browser lists findings and opens one in a detail pane.
type browser struct {
	findings []model.Finding
	cursor   int
	offset   int
	height   int
	detail   bool
}

func newBrowser(findings []model.Finding) browser {
	return browser{findings: findings, height: 20}
}

func (m browser) Init() tea.Cmd { return nil }

func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header and footer take four lines
		m.height = msg.Height - 4
		if m.height < 1 {
			m.height = 1
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			m.detail = false
		case "enter", " ":
			if len(m.findings) > 0 {
				m.detail = !m.detail
			}
		case "up", "k":
			if !m.detail && m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if !m.detail && m.cursor < len(m.findings)-1 {
				m.cursor++
			}
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			if len(m.findings) > 0 {
				m.cursor = len(m.findings) - 1
			}
		}
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	return m, nil
}

func (m browser) View() string {
	if m.detail {
		return m.detailView()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Findings (%d)\n\n", len(m.findings))
	end := m.offset + m.height
	if end > len(m.findings) {
		end = len(m.findings)
	}
	for i := m.offset; i < end; i++ {
		f := m.findings[i]
		mark := "  "
		if i == m.cursor {
			mark = "> "
		}
		fmt.Fprintf(&b, "%s%-8s %s %s:%d %s\n", mark, f.Severity, f.RuleID, f.File, f.StartLine, f.Message)
	}
	b.WriteString("\nj/k move  enter details  q quit\n")
	return b.String()
}

func (m browser) detailView() string {
	f := m.findings[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] conf=%.2f\n", f.RuleID, f.Severity, f.Confidence)
	fmt.Fprintf(&b, "%s:%d-%d\n\n", f.File, f.StartLine, f.EndLine)
	fmt.Fprintf(&b, "%s\n", f.Message)
	if f.Rationale != "" {
		fmt.Fprintf(&b, "\nWhy: %s\n", f.Rationale)
	}
	if f.Remediation != "" {
		fmt.Fprintf(&b, "Fix: %s\n", f.Remediation)
	}
	if f.CWE != "" {
		fmt.Fprintf(&b, "%s\n", f.CWE)
	}
	if f.Snippet != "" {
		fmt.Fprintf(&b, "\n%s\n", f.Snippet)
	}
	fmt.Fprintf(&b, "\nfingerprint %s\n\nesc back  q quit\n", f.Fingerprint)
	return b.String()
}

// Run opens the findings browser on the terminal.
func Run(findings []model.Finding) error {
	p := tea.NewProgram(newBrowser(findings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
