package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
	"github.com/Ramprasad4121/anchor-sentinel/internal/plugins"
)

type Engine struct {
	registry *plugins.Registry
}

func New() *Engine {
	reg := plugins.NewRegistry()
	reg.RegisterBuiltin()
	return &Engine{registry: reg}
}

// NewWithRegistry returns an engine running the detectors of reg.
func NewWithRegistry(reg *plugins.Registry) *Engine { return &Engine{registry: reg} }

// Scan runs both passes over the Rust sources under req.Path: pass 1 builds
// the frozen program index, pass 2 runs the detectors against it. Findings
// are then filtered by ignores, severity, plugin allowlist and baseline.
func (e *Engine) Scan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	start := time.Now()
	root := req.Path
	if root == "" {
		root = "."
	}
	cfg, err := LoadConfig(root, req.ConfigPath)
	if err != nil {
		return nil, err
	}
	if req.LogLevel != 0 {
		cfg.LogLevel = req.LogLevel
	}
	log := config.NewLogGroup(&cfg)

	paths, err := discoverFiles(root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	log.Infof("engine: %d Rust file(s) under %s", len(paths), root)

	pc := &analysis.ProjectContext{
		RootPath:     root,
		FileContents: make(map[string]string, len(paths)),
		Options:      cfg.Analysis,
		Log:          log,
	}
	var sources []analysis.SourceFile
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			log.Warnf("engine: %v", err)
			continue
		}
		pc.Files = append(pc.Files, p)
		pc.FileContents[p] = string(b)
		sources = append(sources, analysis.SourceFile{Path: p, Content: string(b)})
	}

	pc.Index, err = analysis.BuildProgramIndex(ctx, sources,
		analysis.WithContextTypes(cfg.Analysis.ContextTypes...),
		analysis.WithCache(cfg.Analysis.Cache),
		analysis.WithWorkers(cfg.Analysis.Workers),
		analysis.WithIndexLogger(log),
		analysis.WithCollisionHook(func(c analysis.Collision) {
			log.Warnf("engine: %s %q defined in %s and %s, using the latter", c.Kind, c.Name, c.Previous, c.Current)
		}))
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	findings := e.registry.Run(ctx, pc)

	budget := req.TimeBudget
	if budget <= 0 {
		budget = time.Duration(cfg.TimeBudgetMs) * time.Millisecond
	}
	findings = append(findings, runExternalTools(ctx, cfg, root, budget-time.Since(start), log)...)

	findings = calibrateFindings(findings)
	findings = applyIgnores(findings, cfg, pc.FileContents)
	findings = filterBySeverity(findings, cfg)
	findings = filterByPlugins(findings, cfg)
	if req.BaselinePath != "" {
		b, err := loadBaseline(req.BaselinePath)
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		findings = filterByBaseline(findings, b)
	}
	sortFindings(findings)
	return &model.ScanResult{Findings: findings, Files: len(pc.Files), Elapsed: time.Since(start)}, nil
}

// BuildIndex runs pass 1 only.
func BuildIndex(ctx context.Context, root string, cfg config.Config) (*analysis.ProgramIndex, error) {
	paths, err := discoverFiles(root)
	if err != nil {
		return nil, err
	}
	var sources []analysis.SourceFile
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		sources = append(sources, analysis.SourceFile{Path: p, Content: string(b)})
	}
	return analysis.BuildProgramIndex(ctx, sources,
		analysis.WithContextTypes(cfg.Analysis.ContextTypes...),
		analysis.WithCache(cfg.Analysis.Cache),
		analysis.WithWorkers(cfg.Analysis.Workers))
}

// LoadConfig reads explicit when set. Otherwise it searches for
// config.FileName from root (or its directory, for a single file) upwards.
func LoadConfig(root, explicit string) (config.Config, error) {
	if explicit != "" {
		return config.LoadFile(explicit)
	}
	dir := root
	if fi, err := os.Stat(root); err == nil && !fi.IsDir() {
		dir = filepath.Dir(root)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return config.Default(), err
	}
	cfg, _, err := config.Load(abs)
	return cfg, err
}

var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	".git":         true,
	".anchor":      true,
}

// discoverFiles returns the .rs files under root in lexical order. Build
// output, dependencies and hidden directories are skipped. A single file
// root is returned as is.
func discoverFiles(root string) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{root}, nil
	}
	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) == ".rs" {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func sortFindings(fs []model.Finding) {
	slices.SortFunc(fs, func(a, b model.Finding) bool {
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Entity < b.Entity
	})
}
