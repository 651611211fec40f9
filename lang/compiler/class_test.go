package compiler

import (
	"testing"

	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
	"github.com/mna/ecmac/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyFn() *ast.FuncLit {
	return &ast.FuncLit{Body: &ast.BlockStmt{}}
}

func compileOne(t *testing.T, stmt ast.Stmt) (*bytecode.Program, error) {
	t.Helper()
	file := token.NewFile("test.js", "")
	prog := &ast.Program{Body: []ast.Stmt{stmt}}
	return CompileProgram(file, prog)
}

func TestClassDuplicatePrivateMethodIsSyntaxError(t *testing.T) {
	cls := &ast.ClassLit{
		Name: &ast.Identifier{Name: "C"},
		Elements: []ast.ClassElement{
			&ast.MethodDef{Key: &ast.PrivateIdentifier{Name: "x"}, Private: true, Kind: ast.MethodNormal, Fn: emptyFn()},
			&ast.MethodDef{Key: &ast.PrivateIdentifier{Name: "x"}, Private: true, Kind: ast.MethodNormal, Fn: emptyFn()},
		},
	}
	_, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#x is declared more than once")
}

func TestClassPrivateGetterSetterPairIsNotADuplicate(t *testing.T) {
	cls := &ast.ClassLit{
		Name: &ast.Identifier{Name: "C"},
		Elements: []ast.ClassElement{
			&ast.MethodDef{Key: &ast.PrivateIdentifier{Name: "x"}, Private: true, Kind: ast.MethodGetter, Fn: emptyFn()},
			&ast.MethodDef{Key: &ast.PrivateIdentifier{Name: "x"}, Private: true, Kind: ast.MethodSetter, Fn: emptyFn()},
		},
	}
	_, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.NoError(t, err)
}

func TestClassTwoGettersForSamePrivateNameIsADuplicate(t *testing.T) {
	cls := &ast.ClassLit{
		Name: &ast.Identifier{Name: "C"},
		Elements: []ast.ClassElement{
			&ast.MethodDef{Key: &ast.PrivateIdentifier{Name: "x"}, Private: true, Kind: ast.MethodGetter, Fn: emptyFn()},
			&ast.MethodDef{Key: &ast.PrivateIdentifier{Name: "x"}, Private: true, Kind: ast.MethodGetter, Fn: emptyFn()},
		},
	}
	_, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.Error(t, err)
}

// findConstructor returns the first Funcode, fn itself or a nested one
// found by recursing through fn.Children, whose IsConstructor is set.
func findConstructor(fn *bytecode.Funcode) *bytecode.Funcode {
	if fn.IsConstructor {
		return fn
	}
	for _, c := range fn.Children {
		if found := findConstructor(c); found != nil {
			return found
		}
	}
	return nil
}

func TestDerivedClassWithNoConstructorSynthesizesBareSuperCall(t *testing.T) {
	cls := &ast.ClassLit{
		Name:       &ast.Identifier{Name: "B"},
		SuperClass: &ast.Identifier{Name: "A"},
	}
	prog, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.NoError(t, err)

	ctor := findConstructor(prog.Toplevel)
	require.NotNil(t, ctor, "expected a synthesized constructor among the compiled program's children")
	assert.True(t, ctor.HasRestParam, "synthesized default derived constructor takes (...args)")

	insns, err := bytecode.Decode(ctor.Code)
	require.NoError(t, err)
	var sawCallConstructor bool
	for _, insn := range insns {
		if insn.Op == bytecode.CALL_CONSTRUCTOR {
			sawCallConstructor = true
		}
	}
	assert.True(t, sawCallConstructor, "synthesized constructor must call super(...args)")
}

func TestBaseClassWithNoConstructorHasNoSuperCall(t *testing.T) {
	cls := &ast.ClassLit{Name: &ast.Identifier{Name: "A"}}
	prog, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.NoError(t, err)

	ctor := findConstructor(prog.Toplevel)
	require.NotNil(t, ctor)
	assert.False(t, ctor.HasRestParam)

	insns, err := bytecode.Decode(ctor.Code)
	require.NoError(t, err)
	for _, insn := range insns {
		assert.NotEqual(t, bytecode.CALL_CONSTRUCTOR, insn.Op)
	}
}

func TestComputedPublicFieldKeyIsCachedOnceOnTheConstructor(t *testing.T) {
	cls := &ast.ClassLit{
		Name: &ast.Identifier{Name: "C"},
		Elements: []ast.ClassElement{
			&ast.PropertyDef{
				Key:      &ast.Literal{Kind: ast.LitString, Value: "x"},
				Computed: true,
				Value:    &ast.Literal{Kind: ast.LitNumber, Value: 1.0},
			},
		},
	}
	prog, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.NoError(t, err)

	var sawFieldKeyAtom bool
	for _, a := range prog.Toplevel.Atoms {
		if a == "$fieldkey$0" {
			sawFieldKeyAtom = true
		}
	}
	assert.True(t, sawFieldKeyAtom, "computed public field key must be cached under a synthesized name on the class's own defining scope")

	insns, err := bytecode.Decode(prog.Toplevel.Code)
	require.NoError(t, err)
	var defineCount int
	for _, insn := range insns {
		if insn.Op == bytecode.DEFINE_PRIVATE_FIELD && prog.Toplevel.Atoms[insn.Arg] == "$fieldkey$0" {
			defineCount++
		}
	}
	assert.Equal(t, 1, defineCount, "the computed key expression must be evaluated and cached exactly once at class-definition time")
}

func TestStaticFieldAndStaticBlockRunInSourceOrder(t *testing.T) {
	cls := &ast.ClassLit{
		Name: &ast.Identifier{Name: "C"},
		Elements: []ast.ClassElement{
			&ast.PropertyDef{Key: &ast.Identifier{Name: "a"}, Static: true, Value: &ast.Literal{Kind: ast.LitNumber, Value: 1.0}},
			&ast.StaticBlockDef{Body: &ast.BlockStmt{}},
			&ast.PropertyDef{Key: &ast.Identifier{Name: "b"}, Static: true, Value: &ast.Literal{Kind: ast.LitNumber, Value: 2.0}},
		},
	}
	prog, err := compileOne(t, &ast.ClassDeclStmt{Class: cls})
	require.NoError(t, err)

	// Each static field/block install is an FCLOSURE+APPLY sequence; there
	// should be exactly three of them (field a, the block, field b), in
	// that order, each referencing a distinct child Funcode.
	insns, err := bytecode.Decode(prog.Toplevel.Code)
	require.NoError(t, err)
	var closures []uint32
	for _, insn := range insns {
		if insn.Op == bytecode.FCLOSURE {
			closures = append(closures, insn.Arg)
		}
	}
	// One FCLOSURE for the constructor itself, plus one per static
	// field/block initializer, in source order.
	require.Len(t, closures, 4)

	// closures[0] is the constructor. Field a's initializer defines "a",
	// the empty static block defines nothing, field b's defines "b".
	atomsOf := func(idx uint32) []string {
		fn, ok := prog.Toplevel.Constants[idx].(*bytecode.Funcode)
		require.True(t, ok, "FCLOSURE operand must name a Funcode constant")
		return fn.Atoms
	}
	assert.Equal(t, []string{"a"}, atomsOf(closures[1]))
	assert.Empty(t, atomsOf(closures[2]))
	assert.Equal(t, []string{"b"}, atomsOf(closures[3]))
}
