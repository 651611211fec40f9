package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/ecmac/lang/token"
)

// ErrorKind distinguishes the two error kinds the compiler reports
// (spec §7): SyntaxError for strict-mode and grammar-adjacent violations,
// CompilerError for structural AST invariant violations.
type ErrorKind int

const (
	SyntaxError ErrorKind = iota
	CompilerErrorKind
)

func (k ErrorKind) String() string {
	if k == SyntaxError {
		return "SyntaxError"
	}
	return "CompilerError"
}

// CompileError is one positioned compilation failure.
type CompileError struct {
	Kind ErrorKind
	Pos  token.Position
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// CompileErrors aggregates every error produced while compiling one
// program, mirroring the shape of the teacher's scanner.ErrorList: a
// sortable, nil-safe error collection surfaced as a single error value.
type CompileErrors struct {
	list []*CompileError
}

func (e *CompileErrors) add(kind ErrorKind, pos token.Position, format string, args ...interface{}) {
	e.list = append(e.list, &CompileError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// Sort orders errors by position, for stable, readable output.
func (e *CompileErrors) Sort() {
	sort.Slice(e.list, func(i, j int) bool {
		a, b := e.list[i].Pos, e.list[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}

// Err returns e as an error if it holds any entries, or nil otherwise —
// the idiom that lets a *CompileErrors be threaded through as an error
// return value without a nil-interface surprise.
func (e *CompileErrors) Err() error {
	if e == nil || len(e.list) == 0 {
		return nil
	}
	return e
}

func (e *CompileErrors) Error() string {
	msgs := make([]string, len(e.list))
	for i, er := range e.list {
		msgs[i] = er.Error()
	}
	return strings.Join(msgs, "\n")
}

// List returns the individual errors, in their current order.
func (e *CompileErrors) List() []*CompileError { return e.list }
