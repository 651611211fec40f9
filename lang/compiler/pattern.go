package compiler

import (
	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
)

// bindKind controls how bindPattern resolves each leaf identifier of a
// pattern (spec §4.7): a fresh function-scope slot (parameters, `var`
// declarators), a fresh block-scope slot (`let`/`const`/`using`/
// `await using`, and for-in/for-of declarators), or a plain assignment
// to an already-existing binding or member target (destructuring
// assignment, catch-clause rebinding is always a fresh declare so it is
// not included here).
type bindKind int

const (
	bindDeclareFunctionScope bindKind = iota
	bindDeclareBlockScope
	bindAssign
)

// bindPattern consumes the value currently on top of the stack and binds
// it according to p, recursing into nested array/object patterns.
func (d *driver) bindPattern(p ast.Pattern, kind bindKind) {
	switch n := p.(type) {
	case *ast.Identifier:
		d.bindIdentifier(n.Name, kind)
	case *ast.MemberExpr:
		if kind != bindAssign {
			d.errorf(n.Start, CompilerErrorKind, "member expression is not a valid declaration target")
			d.emit.EmitOp(bytecode.DROP)
			return
		}
		d.emitMemberAssignFromStack(n)
	case *ast.AssignmentPattern:
		d.bindAssignmentPattern(n, kind)
	case *ast.ArrayPattern:
		d.bindArrayPattern(n, kind)
	case *ast.ObjectPattern:
		d.bindObjectPattern(n, kind)
	case *ast.RestElement:
		d.bindPattern(n.Arg, kind)
	default:
		d.errorf(0, CompilerErrorKind, "unsupported pattern node %T", p)
		d.emit.EmitOp(bytecode.DROP)
	}
}

func (d *driver) bindIdentifier(name string, kind bindKind) {
	switch kind {
	case bindDeclareFunctionScope:
		slot, ok := d.findLocal(name)
		if !ok {
			slot = d.declareLocal(name)
		}
		d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
	case bindDeclareBlockScope:
		slot := d.declareLocal(name)
		d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
	case bindAssign:
		d.emitNameStore(name)
	}
}

// emitMemberAssignFromStack stores the value on top of the stack into the
// member target n, consuming it: the object (and, when computed, the key)
// is evaluated and slid under the value before the store.
func (d *driver) emitMemberAssignFromStack(n *ast.MemberExpr) {
	d.compileExpr(n.Object)
	d.emit.EmitOp(bytecode.SWAP)
	if n.Computed {
		d.compileExpr(n.Property)
		d.emit.EmitOp(bytecode.TO_PROPKEY)
		d.emit.EmitOp(bytecode.SWAP)
	}
	d.emitMemberSetAfterDup(n)
}

// bindAssignmentPattern applies a pattern default: the default
// initializer runs only when the incoming value is exactly `undefined`,
// never for `null` (spec §4.7).
func (d *driver) bindAssignmentPattern(n *ast.AssignmentPattern, kind bindKind) {
	d.emit.EmitOp(bytecode.DUP)
	d.emit.EmitOp(bytecode.UNDEFINED)
	d.emit.EmitOp(bytecode.STRICT_EQ)
	notUndefined := d.emit.EmitJump(bytecode.IF_FALSE)
	d.emit.EmitOp(bytecode.DROP)
	d.compileExpr(n.Right)
	skipDefault := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(notUndefined, d.emit.Offset())
	d.emit.PatchJump(skipDefault, d.emit.Offset())
	d.bindPattern(n.Left, kind)
}

// bindArrayPattern lowers `[a, , b = 1, ...rest]`. Without a rest element
// each position is read directly off the source value by index; with one,
// the source is iterated through the iterator protocol so that holes and
// the rest collection observe side effects exactly as many times as the
// spec requires (spec §4.7).
func (d *driver) bindArrayPattern(n *ast.ArrayPattern, kind bindKind) {
	src := d.declareScratch()
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(src))

	if n.Rest == nil {
		for i, el := range n.Elements {
			if el == nil {
				continue
			}
			d.emit.EmitU32(bytecode.GET_LOCAL, uint32(src))
			d.emit.EmitI32(bytecode.PUSH_I32, int32(i))
			d.emit.EmitOp(bytecode.GET_ARRAY_EL)
			d.bindPattern(el, kind)
		}
		return
	}

	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(src))
	d.emit.EmitOp(bytecode.FOR_OF_START)
	for _, el := range n.Elements {
		d.emit.EmitOp(bytecode.FOR_OF_NEXT) // pushes value, then done
		doneSkip := d.emit.EmitJump(bytecode.IF_TRUE)
		if el == nil {
			d.emit.EmitOp(bytecode.DROP)
		} else {
			d.bindPattern(el, kind)
		}
		afterHole := d.emit.EmitJump(bytecode.GOTO)
		d.emit.PatchJump(doneSkip, d.emit.Offset())
		d.emit.EmitOp(bytecode.DROP)      // the spent FOR_OF_NEXT iteration result
		d.emit.EmitOp(bytecode.UNDEFINED) // exhausted: remaining targets bind undefined
		if el != nil {
			d.bindPattern(el, kind)
		} else {
			d.emit.EmitOp(bytecode.DROP)
		}
		d.emit.PatchJump(afterHole, d.emit.Offset())
	}

	acc := d.declareScratch()
	d.emit.EmitOp(bytecode.ARRAY_NEW)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(acc))
	loopStart := d.emit.Offset()
	d.emit.EmitOp(bytecode.FOR_OF_NEXT)
	exhausted := d.emit.EmitJump(bytecode.IF_TRUE)
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(acc))
	d.emit.EmitOp(bytecode.SWAP)
	d.emit.EmitOp(bytecode.APPEND)
	d.emit.EmitOp(bytecode.DROP) // APPEND leaves the accumulator on the stack
	backEdge := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(backEdge, loopStart)
	d.emit.PatchJump(exhausted, d.emit.Offset())
	d.emit.EmitOp(bytecode.DROP) // the spent FOR_OF_NEXT iteration result
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(acc))
	restPat, ok := n.Rest.(ast.Pattern)
	if !ok {
		d.errorf(0, CompilerErrorKind, "invalid rest target")
		d.emit.EmitOp(bytecode.DROP)
		return
	}
	d.bindPattern(restPat, kind)
}

// bindObjectPattern lowers `{a, b: c, ...rest}` (spec §4.7): each
// property is read directly off the source object by key (computed keys
// are evaluated once, in source order), and a rest element collects every
// own enumerable property not already destructured.
func (d *driver) bindObjectPattern(n *ast.ObjectPattern, kind bindKind) {
	src := d.declareScratch()
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(src))

	var takenAtoms []string
	var takenKeySlots []int // scratch locals holding computed keys, for the rest exclusion list
	for _, prop := range n.Props {
		d.emit.EmitU32(bytecode.GET_LOCAL, uint32(src))
		if prop.Computed {
			d.compileExpr(prop.Key)
			d.emit.EmitOp(bytecode.TO_PROPKEY)
			if n.Rest != nil {
				keySlot := d.declareScratch()
				d.emit.EmitOp(bytecode.DUP)
				d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(keySlot))
				takenKeySlots = append(takenKeySlots, keySlot)
			}
			d.emit.EmitOp(bytecode.GET_ARRAY_EL)
		} else {
			name := propKeyName(prop.Key)
			takenAtoms = append(takenAtoms, name)
			d.emit.EmitWithAtom(bytecode.GET_FIELD, name)
		}
		d.bindPattern(prop.Value, kind)
	}

	if n.Rest != nil {
		// The rest object is whatever own enumerable properties of src
		// remain once the already-destructured keys are excluded. The
		// excluded-key list is built first (as a plain array of atom
		// values followed by the saved computed keys), then
		// OBJECT_NEW(src, excluded) builds the filtered
		// copy — the two-operand form of OBJECT_NEW reserved for object
		// rest patterns (spec §4.7).
		d.emit.EmitU32(bytecode.GET_LOCAL, uint32(src))
		for _, name := range takenAtoms {
			d.emit.EmitWithAtom(bytecode.PUSH_ATOM_VALUE, name)
		}
		for _, slot := range takenKeySlots {
			d.emit.EmitU32(bytecode.GET_LOCAL, uint32(slot))
		}
		d.emit.EmitU32(bytecode.ARRAY_FROM, uint32(len(takenAtoms)+len(takenKeySlots)))
		d.emit.EmitOp(bytecode.OBJECT_NEW)
		restPat, ok := n.Rest.(ast.Pattern)
		if !ok {
			d.errorf(0, CompilerErrorKind, "invalid rest target")
			d.emit.EmitOp(bytecode.DROP)
			return
		}
		d.bindPattern(restPat, kind)
	}
}

func propKeyName(key ast.Expr) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name
	case *ast.Literal:
		if s, ok := k.Value.(string); ok {
			return s
		}
		return k.Raw
	default:
		return ""
	}
}
