package compiler

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
	"github.com/mna/ecmac/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSiblingBlocksReuseLocalSlots verifies that two non-overlapping
// `{ let x }` blocks at the same nesting depth share one physical slot,
// while a still-live outer binding keeps its own.
func TestSiblingBlocksReuseLocalSlots(t *testing.T) {
	prog := &ast.Program{Body: []ast.Stmt{
		&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: "a"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 1.0}},
		}},
		&ast.BlockStmt{Body: []ast.Stmt{
			&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
				{ID: &ast.Identifier{Name: "b"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 2.0}},
			}},
		}},
		&ast.BlockStmt{Body: []ast.Stmt{
			&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
				{ID: &ast.Identifier{Name: "c"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 3.0}},
			}},
		}},
	}}

	file := token.NewFile("test.js", "")
	out, err := CompileProgram(file, prog)
	require.NoError(t, err)

	// a occupies slot 0 for the whole function; b and c, declared in two
	// disjoint sibling blocks, both reuse slot 1 rather than each getting
	// their own — so peak local usage is 2, not 3.
	assert.Equal(t, 2, out.Toplevel.LocalCount)
}

// TestLocalNamesAreSortedBySlotNotByScopeExitOrder exercises the
// golang.org/x/exp/slices.SortFunc pass added to compileBody: a scope
// that is entered later but exits first must not leave LocalNames out of
// slot order.
func TestLocalNamesAreSortedBySlotNotByScopeExitOrder(t *testing.T) {
	prog := &ast.Program{Body: []ast.Stmt{
		&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: "outer"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 1.0}},
		}},
		&ast.BlockStmt{Body: []ast.Stmt{
			&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
				{ID: &ast.Identifier{Name: "inner"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 2.0}},
			}},
		}},
	}}
	file := token.NewFile("test.js", "")
	out, err := CompileProgram(file, prog)
	require.NoError(t, err)

	var slots []int
	for _, ln := range out.Toplevel.LocalNames {
		slots = append(slots, ln.Slot)
	}
	for i := 1; i < len(slots); i++ {
		assert.LessOrEqual(t, slots[i-1], slots[i], "LocalNames must be slot-ascending: %v", slots)
	}
}

// TestUsingDeclarationEmitsDisposalOnBlockExit checks that a `using`
// binding's disposal call is present on the normal fallthrough exit path
// of its block (spec §4.8).
func TestUsingDeclarationEmitsDisposalOnBlockExit(t *testing.T) {
	prog := &ast.Program{Body: []ast.Stmt{
		&ast.BlockStmt{Body: []ast.Stmt{
			&ast.VariableDeclaration{Kind: ast.DeclUsing, Declarators: []*ast.VariableDeclarator{
				{ID: &ast.Identifier{Name: "r"}, Init: &ast.CallExpr{Callee: &ast.Identifier{Name: "makeResource"}}},
			}},
		}},
	}}
	file := token.NewFile("test.js", "")
	out, err := CompileProgram(file, prog)
	require.NoError(t, err)

	insns, err := bytecode.Decode(out.Toplevel.Code)
	require.NoError(t, err)
	var sawDisposeLookup bool
	for _, insn := range insns {
		if insn.Op == bytecode.GET_FIELD && out.Toplevel.Atoms[insn.Arg] == "dispose" {
			sawDisposeLookup = true
		}
	}
	assert.True(t, sawDisposeLookup, "using-declared resource must be disposed on scope exit")
}

// TestEmptyProgramCompilesToABareReturn covers the boundary case of a
// program with no statements at all: it should still build a valid
// Funcode ending in an implicit `return undefined`.
func TestEmptyProgramCompilesToABareReturn(t *testing.T) {
	file := token.NewFile("test.js", "")
	out, err := CompileProgram(file, &ast.Program{})
	require.NoError(t, err)

	insns, err := bytecode.Decode(out.Toplevel.Code)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(insns), 2)
	last := insns[len(insns)-1]
	assert.Equal(t, bytecode.RETURN, last.Op)
	assert.Equal(t, bytecode.UNDEFINED, insns[len(insns)-2].Op)
}

// TestClosureCapturesArePushedBeforeFClosure checks that a nested
// function closing over an outer `let` binding emits the capture-source
// load (GET_LOCAL, here) immediately before the FCLOSURE that builds its
// closure value, in Funcode.Captures order (spec §4.5).
func TestClosureCapturesArePushedBeforeFClosure(t *testing.T) {
	prog := &ast.Program{Body: []ast.Stmt{
		&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: "x"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 1.0}},
		}},
		&ast.VariableDeclaration{Kind: ast.DeclLet, Declarators: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: "f"}, Init: &ast.FuncExpr{Fn: &ast.FuncLit{
				Body: &ast.BlockStmt{Body: []ast.Stmt{
					&ast.ReturnStmt{Arg: &ast.Identifier{Name: "x"}},
				}},
			}}},
		}},
	}}

	file := token.NewFile("test.js", "")
	out, err := CompileProgram(file, prog)
	require.NoError(t, err)

	require.Len(t, out.Toplevel.Children, 1)
	child := out.Toplevel.Children[0]
	require.Len(t, child.Captures, 1)
	cap := child.Captures[0]
	assert.Equal(t, bytecode.CaptureLocal, cap.Kind)
	assert.Equal(t, "x", cap.Name)

	var childIdx = -1
	for i, c := range out.Toplevel.Constants {
		if fn, ok := c.(*bytecode.Funcode); ok && fn == child {
			childIdx = i
		}
	}
	require.GreaterOrEqual(t, childIdx, 0, "child Funcode must appear in parent's constant pool")

	insns, err := bytecode.Decode(out.Toplevel.Code)
	require.NoError(t, err)
	var found bool
	for i, insn := range insns {
		if insn.Op == bytecode.FCLOSURE && int(insn.Arg) == childIdx {
			require.Greater(t, i, 0, "FCLOSURE must be preceded by a capture push")
			prevInsn := insns[i-1]
			assert.Equal(t, bytecode.GET_LOCAL, prevInsn.Op, "FCLOSURE must be immediately preceded by the capture-source load")
			assert.Equal(t, uint32(cap.Slot), prevInsn.Arg, "capture push must load the captured binding's own slot")
			found = true
		}
	}
	assert.True(t, found, "expected an FCLOSURE referencing the nested function's Funcode")
}

// TestRecompilingTheSameProgramIsByteIdentical asserts that compiling the
// same AST twice produces identical bytecode (spec §8): the compiler
// holds no hidden global counters that would make output depend on
// anything but the input tree.
func TestRecompilingTheSameProgramIsByteIdentical(t *testing.T) {
	mk := func() *ast.Program {
		return &ast.Program{Body: []ast.Stmt{
			&ast.VariableDeclaration{Kind: ast.DeclConst, Declarators: []*ast.VariableDeclarator{
				{ID: &ast.Identifier{Name: "x"}, Init: &ast.Literal{Kind: ast.LitNumber, Value: 42.0}},
			}},
		}}
	}
	file := token.NewFile("test.js", "")
	out1, err := CompileProgram(file, mk())
	require.NoError(t, err)
	out2, err := CompileProgram(file, mk())
	require.NoError(t, err)

	if diff := pretty.Compare(out1.Toplevel.Code, out2.Toplevel.Code); diff != "" {
		t.Fatalf("recompilation produced different bytecode:\n%s", diff)
	}
	assert.Equal(t, out1.Toplevel.Atoms, out2.Toplevel.Atoms)
}
