package pipeline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"runtime"
)

// ReturnsFromFunc is the best-effort reflector convenience layer described
// in spec.md §4.2: given a StepFunc, it inspects the function's source (via
// go/parser, mirroring the role Python's `inspect.getsource` plays in the
// original) and extracts the identifier(s) named in its *last* return
// statement, analogous to the original's "single name or tuple of names"
// rule.
//
// It never errors. When source is unavailable (a stripped binary, a
// function built at a location go/parser can't read, or a return statement
// that isn't a bare identifier or tuple of identifiers) it returns nil, per
// spec.md §4.2's "Failure" clause — callers are expected to declare
// Returns(...) explicitly instead, per spec.md §9's Open Question.
func ReturnsFromFunc(fn StepFunc) []string {
	pc := reflect.ValueOf(fn).Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return nil
	}
	file, _ := rf.FileLine(pc)
	if file == "" {
		return nil
	}

	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
	if err != nil {
		return nil
	}

	shortName := funcShortName(rf.Name())
	var target *ast.FuncDecl
	ast.Inspect(astFile, func(n ast.Node) bool {
		if target != nil {
			return false
		}
		if fd, ok := n.(*ast.FuncDecl); ok && fd.Name.Name == shortName {
			target = fd
			return false
		}
		return true
	})
	if target == nil || target.Body == nil {
		return nil
	}

	var lastReturn *ast.ReturnStmt
	ast.Inspect(target.Body, func(n ast.Node) bool {
		if rs, ok := n.(*ast.ReturnStmt); ok {
			lastReturn = rs
		}
		return true
	})
	if lastReturn == nil {
		return nil
	}

	names := make([]string, 0, len(lastReturn.Results))
	for _, expr := range lastReturn.Results {
		ident, ok := expr.(*ast.Ident)
		if !ok {
			// An expression (e.g. `a + b`), not a bare name: spec.md §9's
			// Open Question says do not guess.
			return nil
		}
		names = append(names, ident.Name)
	}
	return names
}

// sourceOfFunc extracts the Go source text of fn's declaration, used as the
// default checkpoint fingerprint (spec.md §4.5 "Source fingerprint"). It
// returns "" when fn is a closure or its source can't be located or parsed;
// callers needing drift detection on such steps should set Source(...)
// explicitly.
func sourceOfFunc(fn StepFunc) string {
	pc := reflect.ValueOf(fn).Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return ""
	}
	file, _ := rf.FileLine(pc)
	if file == "" {
		return ""
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return ""
	}

	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, file, data, 0)
	if err != nil {
		return ""
	}

	shortName := funcShortName(rf.Name())
	var target ast.Node
	ast.Inspect(astFile, func(n ast.Node) bool {
		if target != nil {
			return false
		}
		if fd, ok := n.(*ast.FuncDecl); ok && fd.Name.Name == shortName {
			target = fd
			return false
		}
		return true
	})
	if target == nil {
		return ""
	}

	start := fset.Position(target.Pos()).Offset
	end := fset.Position(target.End()).Offset
	if start < 0 || end > len(data) || start >= end {
		return ""
	}
	return string(data[start:end])
}

// funcShortName strips package and receiver qualifiers from a
// runtime.Func's dotted name (e.g. "pkg.(*T).Method" -> "Method").
func funcShortName(full string) string {
	depth := 0
	start := 0
	for i, r := range full {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '.':
			if depth == 0 {
				start = i + 1
			}
		}
	}
	return full[start:]
}
