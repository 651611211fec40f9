package compiler

import (
	"github.com/mna/ecmac/lang/bytecode"
	"github.com/mna/ecmac/lang/token"
)

// using.go implements `using`/`await using` resource management (spec
// §4.8), modeled as a per-scope disposal stack: each scope that declares
// at least one using-binding gets one local slot holding a stack-machine
// array of disposable values, pushed to at declaration time and unwound
// in reverse (innermost-first) order when control leaves the scope by
// fallthrough, break, continue, or return. A throw, or any other
// exception propagating out of the scope, runs no disposal code. Mixing a sync `using` and
// an `await using` binding in the same scope is a compile-time error
// (spec §4.8, §4.10): the first declaration fixes the scope's disposal
// kind, and a later declaration of the other kind is flagged here.

// ensureUsingStack lazily allocates the current scope's disposal stack
// local and initializes it to an empty array, returning its slot. pos is
// the declaration's source position, used to report a sync/async mixing
// error.
func (d *driver) ensureUsingStack(isAsync bool, pos token.Pos) int {
	s := d.curScope()
	if s.usingSlot < 0 {
		s.usingSlot = d.declareScratch()
		d.emit.EmitOp(bytecode.ARRAY_NEW)
		d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(s.usingSlot))
	}
	if isAsync {
		if s.usingSync {
			d.errorf(pos, SyntaxError, "cannot mix 'using' and 'await using' declarations in the same scope")
		}
		s.usingAsync = true
	} else {
		if s.usingAsync {
			d.errorf(pos, SyntaxError, "cannot mix 'using' and 'await using' declarations in the same scope")
		}
		s.usingSync = true
	}
	return s.usingSlot
}

// emitUsingPush records value (already on top of the stack, consumed) as
// a resource to be disposed when the current scope exits.
func (d *driver) emitUsingPush(isAsync bool, pos token.Pos) {
	slot := d.ensureUsingStack(isAsync, pos)
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(slot))
	d.emit.EmitOp(bytecode.SWAP)
	d.emit.EmitOp(bytecode.APPEND)
	d.emit.EmitOp(bytecode.DROP) // APPEND leaves the array on the stack
}

// emitScopeDisposal, called from exitScope's callers wherever control can
// leave s (normal fallthrough, break/continue unwind, or a non-local
// return), pops and disposes every resource s registered, innermost
// (most-recently-pushed) first. Disposal of an `await using` binding
// suspends on AWAIT; since ensureUsingStack rejects mixing sync and async
// bindings in the same scope, the scope-level usingAsync flag alone
// determines whether `dispose` or `disposeAsync` is called for every
// entry.
func (d *driver) emitScopeDisposal(s *scope) {
	if s.usingSlot < 0 {
		return
	}
	// for (let i = stack.length - 1; i >= 0; i--) dispose(stack[i])
	idx := d.declareScratch()
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(s.usingSlot))
	d.emit.EmitWithAtom(bytecode.GET_FIELD, "length")
	d.emit.EmitI32(bytecode.PUSH_I32, 1)
	d.emit.EmitOp(bytecode.SUB)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(idx))

	loopStart := d.emit.Offset()
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(idx))
	d.emit.EmitI32(bytecode.PUSH_I32, 0)
	d.emit.EmitOp(bytecode.LT)
	doneSite := d.emit.EmitJump(bytecode.IF_TRUE)

	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(s.usingSlot))
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(idx))
	d.emit.EmitOp(bytecode.GET_ARRAY_EL)
	d.emit.EmitOp(bytecode.DUP)
	d.emit.EmitOp(bytecode.IS_UNDEFINED_OR_NULL)
	skipDispose := d.emit.EmitJump(bytecode.IF_TRUE)
	d.emit.EmitOp(bytecode.DUP)
	if s.usingAsync {
		d.emit.EmitWithAtom(bytecode.GET_FIELD, "disposeAsync")
	} else {
		d.emit.EmitWithAtom(bytecode.GET_FIELD, "dispose")
	}
	d.emit.EmitOp(bytecode.SWAP)
	d.emit.EmitU32(bytecode.ARRAY_FROM, 0)
	d.emit.EmitOp(bytecode.APPLY)
	if s.usingAsync {
		d.emit.EmitOp(bytecode.AWAIT)
	}
	d.emit.EmitOp(bytecode.DROP)
	afterDispose := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(skipDispose, d.emit.Offset())
	d.emit.EmitOp(bytecode.DROP)
	d.emit.PatchJump(afterDispose, d.emit.Offset())

	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(idx))
	d.emit.EmitI32(bytecode.PUSH_I32, 1)
	d.emit.EmitOp(bytecode.SUB)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(idx))
	back := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(back, loopStart)
	d.emit.PatchJump(doneSite, d.emit.Offset())
}
