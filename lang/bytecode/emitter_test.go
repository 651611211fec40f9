package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAtomReturnsStableIndexForRepeatedNames(t *testing.T) {
	e := NewEmitter()
	e.EmitWithAtom(GET_FIELD, "x")
	e.EmitWithAtom(GET_FIELD, "y")
	e.EmitWithAtom(GET_FIELD, "x")

	fn := e.Build(0, nil)
	require.Equal(t, []string{"x", "y"}, fn.Atoms)

	insns, err := Decode(fn.Code)
	require.NoError(t, err)
	require.Len(t, insns, 3)
	assert.Equal(t, insns[0].Arg, insns[2].Arg, "repeated atom name must resolve to the same index")
	assert.NotEqual(t, insns[0].Arg, insns[1].Arg)
}

func TestInternConstantNeverDedupsFuncodeIdentity(t *testing.T) {
	e := NewEmitter()
	a := &Funcode{Name: "a"}
	b := &Funcode{Name: "a"} // same name, distinct identity
	idxA := e.EmitWithConstant(FCLOSURE, a)
	idxB := e.EmitWithConstant(FCLOSURE, b)
	assert.NotEqual(t, idxA, idxB, "two distinct Funcode values must never share a constant-pool slot")

	fn := e.Build(0, nil)
	assert.Len(t, fn.Children, 2)
}

func TestInternConstantDedupsEqualScalarValues(t *testing.T) {
	e := NewEmitter()
	idx1 := e.EmitWithConstant(PUSH_CONST, "hello")
	idx2 := e.EmitWithConstant(PUSH_CONST, "hello")
	assert.Equal(t, idx1, idx2)
}

func TestPatchJumpComputesRelativeDisplacement(t *testing.T) {
	e := NewEmitter()
	site := e.EmitJump(GOTO)
	target := e.Offset()
	e.EmitOp(NOP)
	e.PatchJump(site, target)

	insns, err := Decode(e.Build(0, nil).Code)
	require.NoError(t, err)
	require.Len(t, insns, 2)
	jump := insns[0]
	resolved := int64(jump.Addr) + 5 + int64(int32(jump.Arg))
	assert.Equal(t, int64(target), resolved)
}
