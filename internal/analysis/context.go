package analysis

import (
	"context"
	"sync"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// ProjectContext carries the artifacts shared by detectors during pass 2.
// Index is frozen before any detector runs.
type ProjectContext struct {
	RootPath     string
	Files        []string
	FileContents map[string]string
	Index        *ProgramIndex
	Options      config.AnalysisOptions
	Log          *config.LogGroup

	mu     sync.Mutex
	syntax map[string]*parsed
}

type parsed struct {
	once sync.Once
	file *rust.File
}

// Syntax parses a project file on first use and memoizes the result. It is
// safe for concurrent use. ok is false for unknown or malformed files.
func (p *ProjectContext) Syntax(path string) (*rust.File, bool) {
	src, known := p.FileContents[path]
	if !known {
		return nil, false
	}
	p.mu.Lock()
	if p.syntax == nil {
		p.syntax = map[string]*parsed{}
	}
	e, ok := p.syntax[path]
	if !ok {
		e = &parsed{}
		p.syntax[path] = e
	}
	p.mu.Unlock()

	e.once.Do(func() {
		f, err := rust.ParseFile(context.Background(), path, []byte(src))
		if err != nil {
			p.Log.Debugf("syntax: %v", err)
			return
		}
		e.file = f
	})
	return e.file, e.file != nil
}

// Handler is an instruction handler with its parsed function item.
type Handler struct {
	Info *InstructionInfo
	Fn   *rust.FnItem
	File *rust.File
}

// Handlers returns the instruction handlers declared in path, matched by
// name and line against the parsed file.
func (p *ProjectContext) Handlers(path string) []Handler {
	if p.Index == nil {
		return nil
	}
	infos := p.Index.InstructionsIn(path)
	if len(infos) == 0 {
		return nil
	}
	f, ok := p.Syntax(path)
	if !ok {
		return nil
	}
	var out []Handler
	for _, fn := range f.Functions() {
		for i := range infos {
			if infos[i].Name == fn.Name && infos[i].Line == fn.Pos.Line {
				out = append(out, Handler{Info: &infos[i], Fn: fn, File: f})
			}
		}
	}
	return out
}

// NewTaintTracker returns a tracker configured from the project options.
func (p *ProjectContext) NewTaintTracker(source string) *TaintTracker {
	return NewTaintTracker(source,
		WithReceiver(p.Options.ContextReceiver),
		WithExtendedSinks(p.Options.ExtendedSinks),
		WithTaintLogger(p.Log))
}

func (p *ProjectContext) NewScopeTracker() *ScopeTracker {
	return NewScopeTracker(WithScopeLogger(p.Log))
}
