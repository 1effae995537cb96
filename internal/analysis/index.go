package analysis

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/Ramprasad4121/anchor-sentinel/internal/cache"
	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// FieldInfo describes one named field of an indexed struct.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// TypeName is the outer type name, e.g. "Account" for Account<'info, Vault>.
	TypeName string `json:"typeName"`
	// Constraints is the argument text of the field's #[account(...)] attributes.
	Constraints []string `json:"constraints,omitempty"`
	Docs        []string `json:"docs,omitempty"`
	Line        int      `json:"line"`
}

// HasConstraint reports whether any #[account(...)] argument starts with key,
// e.g. "has_one", "seeds", "signer".
func (f FieldInfo) HasConstraint(key string) bool {
	for _, c := range f.Constraints {
		for _, part := range splitTopLevel(c) {
			name := strings.TrimSpace(part)
			if i := strings.IndexAny(name, "=@("); i >= 0 {
				name = strings.TrimSpace(name[:i])
			}
			if name == key || strings.HasPrefix(name, key+"::") {
				return true
			}
		}
	}
	return false
}

// ConstraintValue returns the right-hand side of `key = value` in the
// field's constraints.
func (f FieldInfo) ConstraintValue(key string) (string, bool) {
	for _, c := range f.Constraints {
		for _, part := range splitTopLevel(c) {
			k, v, ok := strings.Cut(part, "=")
			if ok && strings.TrimSpace(k) == key {
				v, _, _ = strings.Cut(v, "@")
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

// StructInfo is an indexed struct definition.
type StructInfo struct {
	Name              string            `json:"name"`
	File              string            `json:"file"`
	Line              int               `json:"line"`
	Fields            map[string]string `json:"fields"`
	FieldList         []FieldInfo       `json:"fieldList"`
	IsAccount         bool              `json:"isAccount"`
	IsAccountsContext bool              `json:"isAccountsContext"`
}

// Field returns the details of a named field.
func (s *StructInfo) Field(name string) (FieldInfo, bool) {
	for _, f := range s.FieldList {
		if f.Name == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// ConstantInfo is an indexed constant item. Value is nil when the initializer
// does not fold to an integer.
type ConstantInfo struct {
	Name  string   `json:"name"`
	File  string   `json:"file"`
	Value *big.Int `json:"value"`
	Raw   string   `json:"raw"`
}

// InstructionInfo is a function taking an execution-context parameter.
type InstructionInfo struct {
	Name        string            `json:"name"`
	File        string            `json:"file"`
	Line        int               `json:"line"`
	Args        map[string]string `json:"args"`
	ArgOrder    []string          `json:"argOrder"`
	ContextArg  string            `json:"contextArg"`
	ContextType string            `json:"contextType"`
}

// ContextStruct returns the name of the accounts struct bound by the context
// parameter: "Deposit" for Context<'_, '_, '_, 'info, Deposit<'info>>.
func (i *InstructionInfo) ContextStruct() string {
	t := i.ContextType
	if j := strings.IndexByte(t, '<'); j >= 0 {
		t = t[:j]
	}
	if j := strings.LastIndex(t, "::"); j >= 0 {
		t = t[j+2:]
	}
	return strings.TrimSpace(t)
}

// Collision is reported when a later file redefines a name.
type Collision struct {
	Kind     string // "struct", "constant" or "instruction"
	Name     string
	Previous string
	Current  string
}

// symbols is everything one file contributes to the index. It is the unit
// merged in pass 1 and the unit stored in the on-disk cache.
type symbols struct {
	Structs      []StructInfo      `json:"structs"`
	Constants    []ConstantInfo    `json:"constants"`
	Instructions []InstructionInfo `json:"instructions"`
}

// ProgramIndex is the whole-program symbol table built in pass 1. It is
// append-only until Freeze and read-only afterwards; a frozen index is safe
// for concurrent readers.
type ProgramIndex struct {
	contextTypes map[string]bool
	onCollision  func(Collision)
	log          *config.LogGroup
	useCache     bool
	workers      int

	structs      map[string]*StructInfo
	accounts     map[string]*StructInfo
	constants    map[string]*ConstantInfo
	instructions []InstructionInfo
	byName       map[string]int
	files        []string
	frozen       bool
}

type IndexOption func(*ProgramIndex)

// WithContextTypes sets the outer generic names recognised as execution
// contexts. The default is "Context".
func WithContextTypes(names ...string) IndexOption {
	return func(p *ProgramIndex) {
		if len(names) == 0 {
			return
		}
		p.contextTypes = map[string]bool{}
		for _, n := range names {
			p.contextTypes[n] = true
		}
	}
}

// WithCollisionHook is called whenever a name indexed earlier is overwritten.
func WithCollisionHook(fn func(Collision)) IndexOption {
	return func(p *ProgramIndex) { p.onCollision = fn }
}

func WithIndexLogger(l *config.LogGroup) IndexOption {
	return func(p *ProgramIndex) { p.log = l }
}

// WithCache stores per-file symbols in the on-disk cache during BuildProgramIndex.
func WithCache(on bool) IndexOption {
	return func(p *ProgramIndex) { p.useCache = on }
}

// WithWorkers bounds parsing parallelism in BuildProgramIndex.
func WithWorkers(n int) IndexOption {
	return func(p *ProgramIndex) { p.workers = n }
}

func NewProgramIndex(opts ...IndexOption) *ProgramIndex {
	p := &ProgramIndex{
		contextTypes: map[string]bool{"Context": true},
		structs:      map[string]*StructInfo{},
		accounts:     map[string]*StructInfo{},
		constants:    map[string]*ConstantInfo{},
		byName:       map[string]int{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// IndexFile parses source and adds its symbols. A file that does not parse is
// skipped and false is returned; indexing never fails otherwise.
func (p *ProgramIndex) IndexFile(path, source string) bool {
	if p.frozen {
		p.log.Warnf("index: %s: index is frozen, file ignored", path)
		return false
	}
	f, err := rust.ParseFile(context.Background(), path, []byte(source))
	if err != nil {
		p.log.Debugf("index: skipping %v", err)
		return false
	}
	p.merge(path, p.extract(f))
	return true
}

// AddFile adds the symbols of an already parsed file.
func (p *ProgramIndex) AddFile(f *rust.File) {
	if p.frozen {
		p.log.Warnf("index: %s: index is frozen, file ignored", f.Path)
		return
	}
	p.merge(f.Path, p.extract(f))
}

// Freeze ends pass 1. Later IndexFile and AddFile calls are ignored.
func (p *ProgramIndex) Freeze() { p.frozen = true }

func (p *ProgramIndex) Frozen() bool { return p.frozen }

// SourceFile is an input of BuildProgramIndex.
type SourceFile struct {
	Path    string
	Content string
}

// BuildProgramIndex parses files in parallel and merges their symbols in
// input order, so the result equals indexing the files sequentially. The
// returned index is frozen.
func BuildProgramIndex(ctx context.Context, files []SourceFile, opts ...IndexOption) (*ProgramIndex, error) {
	p := NewProgramIndex(opts...)
	results := make([]*symbols, len(files))

	workers := p.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sf := range files {
		i, sf := i, sf
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.fileSymbols(gctx, sf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, sf := range files {
		if results[i] != nil {
			p.merge(sf.Path, results[i])
		}
	}
	p.Freeze()
	p.log.Infof("index: %d file(s), %d struct(s), %d constant(s), %d instruction(s)",
		len(p.files), len(p.structs), len(p.constants), len(p.instructions))
	return p, nil
}

func (p *ProgramIndex) cacheKey(sf SourceFile) string {
	abs, _ := filepath.Abs(sf.Path)
	types := maps.Keys(p.contextTypes)
	slices.Sort(types)
	return cache.Key("symbols-v1", abs, strings.Join(types, ","), sf.Content)
}

// fileSymbols extracts the symbols of one file, consulting the cache when
// enabled. Nil means the file did not parse.
func (p *ProgramIndex) fileSymbols(ctx context.Context, sf SourceFile) *symbols {
	var key string
	if p.useCache {
		key = p.cacheKey(sf)
		if b, ok := cache.Load(key); ok {
			var s symbols
			if err := json.Unmarshal(b, &s); err == nil {
				p.log.Tracef("index: cache hit for %s", sf.Path)
				return &s
			}
		}
	}
	f, err := rust.ParseFile(ctx, sf.Path, []byte(sf.Content))
	if err != nil {
		p.log.Debugf("index: skipping %v", err)
		return nil
	}
	s := p.extract(f)
	if p.useCache {
		if data, err := json.Marshal(s); err == nil {
			_ = cache.Store(key, data)
		}
	}
	return s
}

// extract reads one file. Structs in inline modules one level deep are
// included, as are instruction handlers declared in a #[program] module.
func (p *ProgramIndex) extract(f *rust.File) *symbols {
	s := &symbols{}
	for _, it := range f.Items {
		switch it := it.(type) {
		case *rust.StructItem:
			s.Structs = append(s.Structs, structInfo(f.Path, it))
		case *rust.ConstItem:
			s.Constants = append(s.Constants, constantInfo(f.Path, it))
		case *rust.FnItem:
			if in, ok := p.instructionInfo(f.Path, it); ok {
				s.Instructions = append(s.Instructions, in)
			}
		case *rust.ModItem:
			program := rust.HasAttr(it.Attrs, "program")
			for _, inner := range it.Items {
				switch inner := inner.(type) {
				case *rust.StructItem:
					s.Structs = append(s.Structs, structInfo(f.Path, inner))
				case *rust.FnItem:
					if !program {
						continue
					}
					if in, ok := p.instructionInfo(f.Path, inner); ok {
						s.Instructions = append(s.Instructions, in)
					}
				}
			}
		}
	}
	return s
}

func (p *ProgramIndex) merge(path string, s *symbols) {
	p.files = append(p.files, path)
	for i := range s.Structs {
		info := s.Structs[i]
		if prev, ok := p.structs[info.Name]; ok {
			p.collide("struct", info.Name, prev.File, path)
		}
		p.structs[info.Name] = &info
		if info.IsAccount {
			p.accounts[info.Name] = &info
		} else {
			delete(p.accounts, info.Name)
		}
	}
	for i := range s.Constants {
		info := s.Constants[i]
		if prev, ok := p.constants[info.Name]; ok {
			p.collide("constant", info.Name, prev.File, path)
		}
		p.constants[info.Name] = &info
	}
	for _, in := range s.Instructions {
		if j, ok := p.byName[in.Name]; ok {
			p.collide("instruction", in.Name, p.instructions[j].File, path)
		}
		p.byName[in.Name] = len(p.instructions)
		p.instructions = append(p.instructions, in)
	}
}

func (p *ProgramIndex) collide(kind, name, prev, cur string) {
	p.log.Debugf("index: %s %s in %s overrides %s", kind, name, cur, prev)
	if p.onCollision != nil {
		p.onCollision(Collision{Kind: kind, Name: name, Previous: prev, Current: cur})
	}
}

func structInfo(path string, st *rust.StructItem) StructInfo {
	info := StructInfo{
		Name:   st.Name,
		File:   path,
		Line:   st.Pos.Line,
		Fields: map[string]string{},
	}
	for _, a := range st.Attrs {
		switch a.Name() {
		case "account":
			info.IsAccount = true
		case "derive":
			for _, d := range strings.Split(a.Args, ",") {
				d = strings.TrimSpace(d)
				if d == "Accounts" || strings.HasSuffix(d, "::Accounts") {
					info.IsAccountsContext = true
				}
			}
		}
	}
	for _, f := range st.Fields {
		if f.Name == "" || f.Type == nil {
			continue
		}
		fi := FieldInfo{
			Name:     f.Name,
			Type:     f.Type.Text,
			TypeName: f.Type.Name,
			Docs:     f.Docs,
			Line:     f.Pos.Line,
		}
		for _, a := range f.Attrs {
			if a.Name() == "account" {
				fi.Constraints = append(fi.Constraints, a.Args)
			}
		}
		info.Fields[f.Name] = f.Type.Text
		info.FieldList = append(info.FieldList, fi)
	}
	return info
}

func constantInfo(path string, c *rust.ConstItem) ConstantInfo {
	return ConstantInfo{Name: c.Name, File: path, Value: foldConstant(c.Value), Raw: c.Raw}
}

// instructionInfo records fn when one of its parameters has a context type:
// a generic whose outer name is a known context name and which carries
// exactly one type argument besides lifetimes.
func (p *ProgramIndex) instructionInfo(path string, fn *rust.FnItem) (InstructionInfo, bool) {
	info := InstructionInfo{
		Name: fn.Name,
		File: path,
		Line: fn.Pos.Line,
		Args: map[string]string{},
	}
	for _, prm := range fn.Params {
		if prm.Name == "" || prm.Type == nil {
			continue
		}
		info.Args[prm.Name] = prm.Type.Text
		info.ArgOrder = append(info.ArgOrder, prm.Name)
		t := prm.Type
		if info.ContextType == "" && p.contextTypes[t.Name] && len(t.Args) == 1 {
			info.ContextArg = prm.Name
			info.ContextType = t.Args[0].Text
		}
	}
	return info, info.ContextType != ""
}

// foldConstant evaluates integer literals under parentheses, casts and unary
// negation. Anything else yields nil.
func foldConstant(x rust.Expr) *big.Int {
	switch x := x.(type) {
	case *rust.Lit:
		if x.Kind == rust.IntLit {
			return parseIntLiteral(x.Value)
		}
	case *rust.ParenExpr:
		return foldConstant(x.X)
	case *rust.CastExpr:
		return foldConstant(x.X)
	case *rust.UnaryExpr:
		if x.Op == "-" {
			if v := foldConstant(x.X); v != nil {
				return v.Neg(v)
			}
		}
	}
	return nil
}

// parseIntLiteral parses a Rust integer literal such as 1_000u64 or 0xFF.
func parseIntLiteral(s string) *big.Int {
	s = strings.ReplaceAll(s, "_", "")
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, s = 16, s[2:]
		case 'o', 'O':
			base, s = 8, s[2:]
		case 'b', 'B':
			base, s = 2, s[2:]
		}
	}
	if i := strings.IndexAny(s, "ui"); i >= 0 {
		s = s[:i]
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil
	}
	return v
}

// ResolveStruct returns the struct indexed under name.
func (p *ProgramIndex) ResolveStruct(name string) (*StructInfo, bool) {
	s, ok := p.structs[name]
	return s, ok
}

// Account returns name from the accounts-only map.
func (p *ProgramIndex) Account(name string) (*StructInfo, bool) {
	s, ok := p.accounts[name]
	return s, ok
}

// ResolveConstant returns the folded value of a constant. ok is false when the
// constant is unknown or did not fold.
func (p *ProgramIndex) ResolveConstant(name string) (*big.Int, bool) {
	c, ok := p.constants[name]
	if !ok || c.Value == nil {
		return nil, false
	}
	return new(big.Int).Set(c.Value), true
}

// Eval folds an integer expression, resolving bare or qualified constant
// names through the index.
func (p *ProgramIndex) Eval(x rust.Expr) (*big.Int, bool) {
	switch x := x.(type) {
	case *rust.Ident:
		return p.ResolveConstant(x.Name)
	case *rust.PathExpr:
		return p.ResolveConstant(x.Last())
	case *rust.ParenExpr:
		return p.Eval(x.X)
	case *rust.CastExpr:
		return p.Eval(x.X)
	}
	if v := foldConstant(x); v != nil {
		return v, true
	}
	return nil, false
}

func (p *ProgramIndex) Constant(name string) (*ConstantInfo, bool) {
	c, ok := p.constants[name]
	return c, ok
}

// FieldType returns the textual type of a struct field.
func (p *ProgramIndex) FieldType(structName, field string) (string, bool) {
	s, ok := p.structs[structName]
	if !ok {
		return "", false
	}
	t, ok := s.Fields[field]
	return t, ok
}

// ListInstructions returns every instruction in indexing order, including
// same-named handlers from different files.
func (p *ProgramIndex) ListInstructions() []InstructionInfo { return p.instructions }

// Instruction returns the last indexed instruction called name.
func (p *ProgramIndex) Instruction(name string) (*InstructionInfo, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return &p.instructions[i], true
}

// InstructionsIn returns the instructions declared in file.
func (p *ProgramIndex) InstructionsIn(file string) []InstructionInfo {
	var out []InstructionInfo
	for _, in := range p.instructions {
		if in.File == file {
			out = append(out, in)
		}
	}
	return out
}

// IndexDump is a deterministic snapshot of the index.
type IndexDump struct {
	Files        []string          `json:"files"`
	Structs      []*StructInfo     `json:"structs"`
	Accounts     []string          `json:"accounts"`
	Constants    []*ConstantInfo   `json:"constants"`
	Instructions []InstructionInfo `json:"instructions"`
}

// Dump returns the contents of the index sorted by name.
func (p *ProgramIndex) Dump() IndexDump {
	d := IndexDump{Files: p.files, Instructions: p.instructions}
	names := maps.Keys(p.structs)
	slices.Sort(names)
	for _, n := range names {
		d.Structs = append(d.Structs, p.structs[n])
	}
	d.Accounts = maps.Keys(p.accounts)
	slices.Sort(d.Accounts)
	consts := maps.Keys(p.constants)
	slices.Sort(consts)
	for _, n := range consts {
		d.Constants = append(d.Constants, p.constants[n])
	}
	return d
}

// splitTopLevel splits s at commas outside brackets, braces and parentheses.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
