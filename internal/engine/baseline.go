package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/exp/slices"

	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

const baselineVersion = 1

// baselineEntry records what was accepted alongside its fingerprint so that
// reviewers can read the file without rerunning the scan.
type baselineEntry struct {
	Fingerprint string `json:"fingerprint"`
	RuleID      string `json:"ruleId"`
	File        string `json:"file"`
	Entity      string `json:"entity,omitempty"`
}

type baselineFile struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Entries     []baselineEntry `json:"entries"`
}

type baseline map[string]bool

// loadBaseline reads the versioned entries form written by WriteBaseline.
// A plain JSON array of fingerprints is accepted too.
func loadBaseline(path string) (baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b := baseline{}
	var fps []string
	if err := json.Unmarshal(data, &fps); err == nil {
		for _, fp := range fps {
			b[fp] = true
		}
		return b, nil
	}
	var bf baselineFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if bf.Version > baselineVersion {
		return nil, fmt.Errorf("%s: baseline version %d is newer than supported (%d)", path, bf.Version, baselineVersion)
	}
	for _, e := range bf.Entries {
		b[e.Fingerprint] = true
	}
	return b, nil
}

func filterByBaseline(findings []model.Finding, b baseline) []model.Finding {
	if len(b) == 0 {
		return findings
	}
	var out []model.Finding
	for _, f := range findings {
		if f.Fingerprint != "" && b[f.Fingerprint] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// WriteBaseline records findings, one entry per fingerprint, sorted by
// fingerprint so that regenerated files diff cleanly.
func WriteBaseline(path string, findings []model.Finding) error {
	seen := map[string]bool{}
	bf := baselineFile{Version: baselineVersion, GeneratedAt: time.Now().UTC()}
	for _, f := range findings {
		if f.Fingerprint == "" || seen[f.Fingerprint] {
			continue
		}
		seen[f.Fingerprint] = true
		bf.Entries = append(bf.Entries, baselineEntry{Fingerprint: f.Fingerprint, RuleID: f.RuleID, File: f.File, Entity: f.Entity})
	}
	slices.SortFunc(bf.Entries, func(a, b baselineEntry) bool { return a.Fingerprint < b.Fingerprint })
	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
