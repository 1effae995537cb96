// Package rust turns Rust source files into the small syntax tree the
// analysis engines walk. Parsing is done by the tree-sitter Rust grammar;
// the concrete syntax tree is lowered into the closed set of node types in
// ast.go so that analysis code never touches tree-sitter directly.
package rust

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	tsrust "github.com/smacker/go-tree-sitter/rust"
)

// ErrSyntax is wrapped by every error returned for malformed input.
var ErrSyntax = errors.New("syntax error")

// SyntaxError locates the first error node of a file that failed to parse.
type SyntaxError struct {
	Path string
	Pos  Pos
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Pos.Line, e.Pos.Col, ErrSyntax)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// ParseFile parses src. A file containing any error or missing node is
// rejected as a whole: callers skip it rather than analysing a partial tree.
func ParseFile(ctx context.Context, path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsrust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &SyntaxError{Path: path, Pos: firstError(root)}
	}
	l := &lowerer{src: src}
	return &File{Path: path, Source: string(src), Items: l.items(root)}, nil
}

// ParseSource parses an in-memory snippet.
func ParseSource(src string) (*File, error) {
	return ParseFile(context.Background(), "<source>", []byte(src))
}

func firstError(n *sitter.Node) Pos {
	if n.Type() == "ERROR" || n.IsMissing() {
		return pos(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.HasError() {
			return firstError(c)
		}
	}
	return pos(n)
}

func pos(n *sitter.Node) Pos {
	p := n.StartPoint()
	return Pos{Line: int(p.Row) + 1, Col: int(p.Column) + 1}
}
