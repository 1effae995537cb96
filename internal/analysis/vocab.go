package analysis

import (
	"strings"
	"unicode"

	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// scopeStopwords are context plumbing words never treated as variables by
// the scope tracker.
var scopeStopwords = map[string]bool{
	"ctx":      true,
	"accounts": true,
	"key":      true,
	"unwrap":   true,
	"require":  true,
	"true":     true,
	"false":    true,
}

var (
	deserializers = map[string]bool{
		"try_deserialize":           true,
		"try_deserialize_unchecked": true,
		"try_from_slice":            true,
		"deserialize":               true,
	}
	dataBorrows = map[string]bool{
		"try_borrow_data":     true,
		"try_borrow_mut_data": true,
		"borrow_data":         true,
	}
)

// isAssertion reports whether a macro path names a validating assertion:
// require!, require_eq!, require_keys_eq!, require_gt!, assert!, assert_eq!,
// debug_assert! and friends.
func isAssertion(path string) bool {
	name := path
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	name = strings.TrimSpace(name)
	return strings.HasPrefix(name, "require") ||
		strings.HasPrefix(name, "assert") ||
		strings.HasPrefix(name, "debug_assert")
}

// callSinks classifies a call by its callee text.
func callSinks(callee string) []SinkKind {
	lower := strings.ToLower(callee)
	var out []SinkKind
	if strings.Contains(lower, "transfer") && !strings.Contains(lower, "transfer_checked") {
		out = append(out, Transfer)
	}
	if strings.Contains(lower, "invoke") {
		out = append(out, Invoke)
	}
	return out
}

// isSensitiveCall is the scope tracker's notion of a guarded operation.
func isSensitiveCall(callee string) bool {
	lower := strings.ToLower(callee)
	return strings.Contains(lower, "transfer") ||
		strings.Contains(lower, "invoke") ||
		strings.Contains(lower, "burn")
}

func isCheckedMath(method string) bool {
	return strings.HasPrefix(method, "checked_") || strings.HasPrefix(method, "saturating_")
}

// identWords splits raw token text into identifier-like words: runs of
// letters, digits and underscores that start with a letter.
func identWords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if unicode.IsLetter([]rune(f)[0]) {
			out = append(out, f)
		}
	}
	return out
}

// constituents returns the variable names an expression reads: the base of
// field chains, the first segment of paths, both sides of binary operators,
// call arguments, and method receivers plus arguments.
func constituents(x rust.Expr) []string {
	var out []string
	var walk func(rust.Expr)
	walk = func(x rust.Expr) {
		switch x := x.(type) {
		case *rust.Ident:
			out = append(out, x.Name)
		case *rust.PathExpr:
			if len(x.Segments) > 0 {
				out = append(out, x.Segments[0])
			}
		case *rust.FieldExpr:
			walk(x.X)
		case *rust.BinaryExpr:
			walk(x.X)
			walk(x.Y)
		case *rust.CallExpr:
			for _, a := range x.Args {
				walk(a)
			}
		case *rust.MethodCallExpr:
			walk(x.Recv)
			for _, a := range x.Args {
				walk(a)
			}
		case *rust.ParenExpr:
			walk(x.X)
		case *rust.UnaryExpr:
			walk(x.X)
		case *rust.CastExpr:
			walk(x.X)
		case *rust.TryExpr:
			walk(x.X)
		case *rust.IndexExpr:
			walk(x.X)
			walk(x.Index)
		case *rust.LetExpr:
			walk(x.Value)
		}
	}
	walk(x)
	return out
}

// tokenNames approximates the identifier tokens of an expression's source
// text: names, path segments, field and method names and macro tokens.
// Scope stopwords are removed.
func tokenNames(x rust.Expr) []string {
	if x == nil {
		return nil
	}
	var out []string
	add := func(words ...string) {
		for _, w := range words {
			if w != "" && unicode.IsLetter([]rune(w)[0]) && !scopeStopwords[w] {
				out = append(out, w)
			}
		}
	}
	rust.Inspect(x, func(n rust.Node) bool {
		switch n := n.(type) {
		case *rust.Ident:
			add(n.Name)
		case *rust.PathExpr:
			add(n.Segments...)
		case *rust.FieldExpr:
			add(n.Field)
		case *rust.MethodCallExpr:
			add(n.Method)
		case *rust.MacroExpr:
			add(identWords(n.Path)...)
			add(identWords(n.Tokens)...)
		}
		return true
	})
	return out
}

// sourceOf reports whether an expression reads deserialized or raw account
// data, which makes the bound value attacker controlled regardless of the
// taint of its operands.
func sourceOf(x rust.Expr) (SourceKind, bool) {
	var (
		kind  SourceKind
		found bool
	)
	rust.Inspect(x, func(n rust.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *rust.MethodCallExpr:
			switch {
			case deserializers[n.Method]:
				kind, found = DeserializedData, true
			case dataBorrows[n.Method]:
				kind, found = AccountData, true
			case n.Method == "borrow" || n.Method == "borrow_mut":
				if f, ok := n.Recv.(*rust.FieldExpr); ok && f.Field == "data" {
					kind, found = AccountData, true
				}
			}
		case *rust.CallExpr:
			if p, ok := n.Fun.(*rust.PathExpr); ok && deserializers[p.Last()] {
				kind, found = DeserializedData, true
			}
		}
		return !found
	})
	return kind, found
}
