package plugins

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// Detector inspects a project after the program index is frozen. Detectors
// must not mutate the project context; each builds its own trackers.
type Detector interface {
	Meta() model.RuleMeta
	Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error)
}

type Registry struct{ detectors []Detector }

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(d Detector) { r.detectors = append(r.detectors, d) }

func (r *Registry) RegisterBuiltin() {
	r.Register(&missingSigner{})
	r.Register(&uncheckedAccount{})
	r.Register(&loopBound{})
	r.Register(&taintedFlow{})
	r.Register(&accountUsage{})
	r.Register(&scopeValidation{})
}

// Run executes every detector with bounded parallelism. Results keep
// registration order. A detector that fails or returns after ctx is done
// contributes nothing.
func (r *Registry) Run(ctx context.Context, pc *analysis.ProjectContext) []model.Finding {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		cpu = 2
	}
	results := make([][]model.Finding, len(r.detectors))
	var wg sync.WaitGroup
	sem := make(chan struct{}, cpu)
	for i, d := range r.detectors {
		i, d := i, d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			fs, err := d.Analyze(ctx, pc)
			if err != nil {
				pc.Log.Warnf("detector %s: %v", d.Meta().ID, err)
				return
			}
			for j := range fs {
				fs[j].File = filepath.ToSlash(fs[j].File)
			}
			pc.Log.Infof("detector %s: %d finding(s)", d.Meta().ID, len(fs))
			results[i] = fs
		}()
	}
	wg.Wait()
	var out []model.Finding
	for _, fs := range results {
		out = append(out, fs...)
	}
	return out
}

func (r *Registry) Detectors() []Detector { return r.detectors }
