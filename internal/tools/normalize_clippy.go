package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// cargo clippy --message-format=json emits one JSON object per line.
type clippySpan struct {
	FileName  string `json:"file_name"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	IsPrimary bool   `json:"is_primary"`
}

type clippyLine struct {
	Reason  string `json:"reason"`
	Message struct {
		Code *struct {
			Code string `json:"code"`
		} `json:"code"`
		Level   string       `json:"level"`
		Message string       `json:"message"`
		Spans   []clippySpan `json:"spans"`
	} `json:"message"`
}

func normalizeClippy(raw []byte) ([]Finding, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var out []Finding
	for {
		var l clippyLine
		if err := dec.Decode(&l); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		m := l.Message
		if l.Reason != "compiler-message" || m.Code == nil || !strings.HasPrefix(m.Code.Code, "clippy::") {
			continue
		}
		sev := "low"
		if m.Level == "error" {
			sev = "medium"
		}
		f := Finding{RuleID: m.Code.Code, Severity: sev, Confidence: 0.6, StartLine: 1, EndLine: 1, Message: m.Message}
		for _, s := range m.Spans {
			if s.IsPrimary {
				f.File, f.StartLine, f.EndLine = s.FileName, s.LineStart, s.LineEnd
				break
			}
		}
		out = append(out, f)
	}
}
