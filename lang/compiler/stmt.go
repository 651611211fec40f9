package compiler

import (
	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
)

// compileStmt lowers one statement, leaving the stack exactly as it found
// it (spec §4.3).
func (d *driver) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		d.compileBlockStmt(n)
	case *ast.VariableDeclaration:
		d.compileVarDecl(n)
	case *ast.ExprStmt:
		d.compileExpr(n.Expr)
		d.emit.EmitOp(bytecode.DROP)
	case *ast.EmptyStmt:
		// nothing to emit
	case *ast.IfStmt:
		d.compileIfStmt(n)
	case *ast.WhileStmt:
		d.compileWhileStmt(n, "")
	case *ast.DoWhileStmt:
		d.compileDoWhileStmt(n, "")
	case *ast.ForStmt:
		d.compileForStmt(n, "")
	case *ast.ForInStmt:
		d.compileForInOfStmt(n.LeftDecl, n.Left, n.Right, n.Body, false, false, "")
	case *ast.ForOfStmt:
		d.compileForInOfStmt(n.LeftDecl, n.Left, n.Right, n.Body, true, n.Await, "")
	case *ast.SwitchStmt:
		d.compileSwitchStmt(n)
	case *ast.TryStmt:
		d.compileTryStmt(n)
	case *ast.ThrowStmt:
		d.compileExpr(n.Arg)
		d.emit.EmitOp(bytecode.THROW)
	case *ast.ReturnStmt:
		d.compileReturnStmt(n)
	case *ast.BreakStmt:
		d.compileBreakStmt(n)
	case *ast.ContinueStmt:
		d.compileContinueStmt(n)
	case *ast.LabeledStmt:
		d.compileLabeledStmt(n)
	case *ast.FuncDeclStmt:
		d.compileFuncDeclOccurrence(n)
	case *ast.ClassDeclStmt:
		d.compileClass(n.Class)
		slot, ok := d.findLocal(n.Class.Name.Name)
		if !ok {
			slot = d.declareLocal(n.Class.Name.Name)
		}
		d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
	default:
		d.errorf(0, CompilerErrorKind, "unsupported statement node %T", s)
	}
}

// compileBlockStmt lowers `{ ... }`. A function declaration directly
// inside a block is block-scoped and created as soon as the block is
// entered (spec §4.3, Annex B.3.2), so the block's direct-child function
// declarations are all bound and closed over before any other statement
// in the block runs; compileNestedFuncDecl also performs the sloppy-mode
// Annex B.3.3.3 copy-through to the enclosing function's var binding of
// the same name, when eligible.
func (d *driver) compileBlockStmt(n *ast.BlockStmt) {
	d.enterScope()
	for _, s := range n.Body {
		if fd, ok := s.(*ast.FuncDeclStmt); ok {
			d.compileNestedFuncDecl(fd)
		}
	}
	for _, s := range n.Body {
		if _, ok := s.(*ast.FuncDeclStmt); ok {
			continue
		}
		d.compileStmt(s)
	}
	d.emitScopeDisposal(d.curScope())
	d.exitScope()
}

// compileFuncDeclOccurrence handles a FuncDeclStmt wherever compileStmt
// encounters it textually. Direct children of a function/program body
// were already fully initialized by the hoisting pass (spec §4.9) and
// are a no-op here. Direct children of a block never reach this point:
// compileBlockStmt binds them on block entry and skips them afterwards.
// Any other declaration (e.g. in a switch case or under a label) runs its
// real binding and closure-creation exactly when control reaches it.
func (d *driver) compileFuncDeclOccurrence(n *ast.FuncDeclStmt) {
	if d.hoist != nil && d.hoist.isTopFunc(n) {
		return
	}
	d.compileNestedFuncDecl(n)
}

// compileNestedFuncDecl binds a block-nested function declaration in the
// current (block) scope and, in sloppy mode, also copies the closure
// into the enclosing function-scope var binding of the same name if one
// was hoisted for it (Annex B.3.3.3).
func (d *driver) compileNestedFuncDecl(n *ast.FuncDeclStmt) {
	name := ""
	if n.Fn.Name != nil {
		name = n.Fn.Name.Name
	}
	slot := d.declareLocal(name)
	d.emitFuncLitValue(n.Fn, name, funcPlain)
	d.emit.EmitOp(bytecode.DUP)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
	if !d.strict {
		if varSlot, ok := d.findVarScopeLocal(name); ok && varSlot != slot {
			d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(varSlot))
			return
		}
	}
	d.emit.EmitOp(bytecode.DROP)
}

// findVarScopeLocal looks up name starting from the function's outermost
// (var) scope only, used by Annex B copy-through.
func (d *driver) findVarScopeLocal(name string) (int, bool) {
	if len(d.scopes) == 0 {
		return 0, false
	}
	root := d.scopes[0]
	slot, ok := root.locals[name]
	return slot, ok
}

func (d *driver) compileIfStmt(n *ast.IfStmt) {
	d.compileExpr(n.Test)
	elseSite := d.emit.EmitJump(bytecode.IF_FALSE)
	d.compileIfBranch(n.Cons)
	if n.Alt == nil {
		d.emit.PatchJump(elseSite, d.emit.Offset())
		return
	}
	endSite := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(elseSite, d.emit.Offset())
	d.compileIfBranch(n.Alt)
	d.emit.PatchJump(endSite, d.emit.Offset())
}

// compileIfBranch handles the sloppy-mode Annex B.3.2 grammar extension
// that allows a bare FunctionDeclaration as an if/else arm; it is a
// SyntaxError in strict mode (spec §4.3).
func (d *driver) compileIfBranch(s ast.Stmt) {
	fd, ok := s.(*ast.FuncDeclStmt)
	if !ok {
		d.compileStmt(s)
		return
	}
	if d.strict {
		d.errorf(fd.Fn.Start, SyntaxError, "function declarations cannot appear as the sole statement of an if branch in strict mode")
	}
	d.enterScope()
	d.compileNestedFuncDecl(fd)
	d.emitScopeDisposal(d.curScope())
	d.exitScope()
}

func (d *driver) compileWhileStmt(n *ast.WhileStmt, label string) {
	head := d.emit.Offset()
	d.compileExpr(n.Test)
	endSite := d.emit.EmitJump(bytecode.IF_FALSE)
	lc := d.pushLoop(label, true, false)
	d.compileStmt(n.Body)
	back := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(back, head)
	d.emit.PatchJump(endSite, d.emit.Offset())
	d.finishLoop(lc, d.emit.Offset(), head)
}

func (d *driver) compileDoWhileStmt(n *ast.DoWhileStmt, label string) {
	bodyStart := d.emit.Offset()
	lc := d.pushLoop(label, true, false)
	d.compileStmt(n.Body)
	testOffset := d.emit.Offset()
	d.compileExpr(n.Test)
	back := d.emit.EmitJump(bytecode.IF_TRUE)
	d.emit.PatchJump(back, bodyStart)
	d.finishLoop(lc, d.emit.Offset(), testOffset)
}

func (d *driver) compileForStmt(n *ast.ForStmt, label string) {
	d.enterScope()
	switch {
	case n.InitDecl != nil:
		d.compileVarDecl(n.InitDecl)
	case n.Init != nil:
		d.compileExpr(n.Init)
		d.emit.EmitOp(bytecode.DROP)
	}

	head := d.emit.Offset()
	var endSite uint32
	hasTest := n.Test != nil
	if hasTest {
		d.compileExpr(n.Test)
		endSite = d.emit.EmitJump(bytecode.IF_FALSE)
	}
	lc := d.pushLoop(label, true, false)
	d.compileStmt(n.Body)
	contTarget := d.emit.Offset()
	if n.Update != nil {
		d.compileExpr(n.Update)
		d.emit.EmitOp(bytecode.DROP)
	}
	back := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(back, head)
	if hasTest {
		d.emit.PatchJump(endSite, d.emit.Offset())
	}
	d.finishLoop(lc, d.emit.Offset(), contTarget)

	d.emitScopeDisposal(d.curScope())
	d.exitScope()
}

// finishLoop patches every break/continue site recorded against lc and
// pops it off the loop stack.
func (d *driver) finishLoop(lc *loopCtx, breakTarget, continueTarget uint32) {
	for _, site := range lc.breakSites {
		d.emit.PatchJump(site, breakTarget)
	}
	for _, site := range lc.continueSites {
		d.emit.PatchJump(site, continueTarget)
	}
	d.popLoop()
}

// compileForInOfStmt lowers for-in, for-of, and for-await-of (spec §4.3):
// the iterable/object is evaluated once, its iteration protocol driven by
// a START/NEXT opcode pair, and the loop variable re-bound fresh each
// pass through NEXT. Abrupt exit (break/return/uncaught throw) from a
// for-of/for-await-of body closes the live iterator; for-in has no such
// obligation.
func (d *driver) compileForInOfStmt(leftDecl *ast.VariableDeclaration, left ast.Expr, right ast.Expr, body ast.Stmt, isOf, isAwait bool, label string) {
	d.enterScope()
	d.compileExpr(right)
	switch {
	case isOf && isAwait:
		d.emit.EmitOp(bytecode.FOR_AWAIT_OF_START)
	case isOf:
		d.emit.EmitOp(bytecode.FOR_OF_START)
	default:
		d.emit.EmitOp(bytecode.FOR_IN_START)
	}

	head := d.emit.Offset()
	switch {
	case isOf && isAwait:
		d.emit.EmitOp(bytecode.FOR_AWAIT_OF_NEXT)
		d.emit.EmitOp(bytecode.AWAIT)
	case isOf:
		d.emit.EmitOp(bytecode.FOR_OF_NEXT)
	default:
		d.emit.EmitOp(bytecode.FOR_IN_NEXT)
	}
	doneSite := d.emit.EmitJump(bytecode.IF_TRUE)

	d.enterScope()
	switch {
	case leftDecl != nil && leftDecl.Kind == ast.DeclVar:
		d.bindPattern(leftDecl.Declarators[0].ID, bindDeclareFunctionScope)
	case leftDecl != nil:
		d.bindPattern(leftDecl.Declarators[0].ID, bindDeclareBlockScope)
	default:
		d.bindPattern(left.(ast.Pattern), bindAssign)
	}

	lc := d.pushLoop(label, true, isOf)
	d.compileStmt(body)
	d.emitScopeDisposal(d.curScope())
	d.exitScope()

	back := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(back, head)
	d.emit.PatchJump(doneSite, d.emit.Offset())
	d.finishLoop(lc, d.emit.Offset(), head)

	if !isOf {
		d.emit.EmitOp(bytecode.FOR_IN_END)
	}
	d.exitScope()
}

// compileSwitchStmt lowers a switch statement: the discriminant is
// evaluated once into a scratch local, each case's test is compared with
// strict equality in source order, and a final unconditional jump
// dispatches to the default case (or past the switch) when nothing
// matched. Cases fall through into each other exactly like their source
// statement lists, and share one lexical scope for let/const (spec
// §4.3).
func (d *driver) compileSwitchStmt(n *ast.SwitchStmt) {
	d.enterScope()
	disc := d.declareScratch()
	d.compileExpr(n.Disc)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(disc))

	lc := d.pushLoop("", false, false)

	testSites := make([]uint32, len(n.Cases))
	defaultIdx := -1
	for i, c := range n.Cases {
		if c.Test == nil {
			defaultIdx = i
			continue
		}
		d.emit.EmitU32(bytecode.GET_LOCAL, uint32(disc))
		d.compileExpr(c.Test)
		d.emit.EmitOp(bytecode.STRICT_EQ)
		testSites[i] = d.emit.EmitJump(bytecode.IF_TRUE)
	}
	fallToDefault := d.emit.EmitJump(bytecode.GOTO)

	bodyOffsets := make([]uint32, len(n.Cases))
	for i, c := range n.Cases {
		bodyOffsets[i] = d.emit.Offset()
		for _, s := range c.Body {
			d.compileStmt(s)
		}
	}
	end := d.emit.Offset()

	for i, c := range n.Cases {
		if c.Test != nil {
			d.emit.PatchJump(testSites[i], bodyOffsets[i])
		}
	}
	if defaultIdx >= 0 {
		d.emit.PatchJump(fallToDefault, bodyOffsets[defaultIdx])
	} else {
		d.emit.PatchJump(fallToDefault, end)
	}

	d.finishLoop(lc, end, end)
	d.emitScopeDisposal(d.curScope())
	d.exitScope()
}

// compileTryStmt lowers try/catch/finally (spec §4.3). The finally body
// is duplicated onto both the normal-completion path and the
// exceptional/catch path rather than implemented as a true subroutine,
// since this project's flat jump model has no call-and-return-to-offset
// primitive; a finally that itself needs to run after a break/continue/
// return originating inside the try body is not additionally threaded
// through those unwind paths (see DESIGN.md).
func (d *driver) compileTryStmt(n *ast.TryStmt) {
	catchSite := d.emit.EmitJump(bytecode.CATCH)
	d.compileStmt(n.Block)
	d.emit.EmitOp(bytecode.NIP_CATCH)
	if n.Finally != nil {
		d.compileFinallyInline(n.Finally)
	}
	endSite := d.emit.EmitJump(bytecode.GOTO)

	d.emit.PatchJump(catchSite, d.emit.Offset())
	if n.Catch != nil {
		d.enterScope()
		if n.Catch.Param != nil {
			d.bindPattern(n.Catch.Param, bindDeclareBlockScope)
		} else {
			d.emit.EmitOp(bytecode.DROP)
		}
		for _, s := range n.Catch.Body.Body {
			d.compileStmt(s)
		}
		d.emitScopeDisposal(d.curScope())
		d.exitScope()
		if n.Finally != nil {
			d.compileFinallyInline(n.Finally)
		}
	} else {
		exc := d.declareScratch()
		d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(exc))
		if n.Finally != nil {
			d.compileFinallyInline(n.Finally)
		}
		d.emit.EmitU32(bytecode.GET_LOCAL, uint32(exc))
		d.emit.EmitOp(bytecode.THROW)
	}

	d.emit.PatchJump(endSite, d.emit.Offset())
}

func (d *driver) compileFinallyInline(fin *ast.BlockStmt) {
	d.enterScope()
	for _, s := range fin.Body {
		d.compileStmt(s)
	}
	d.emitScopeDisposal(d.curScope())
	d.exitScope()
}

func (d *driver) compileReturnStmt(n *ast.ReturnStmt) {
	scratch := d.declareScratch()
	if n.Arg != nil {
		d.compileExpr(n.Arg)
	} else {
		d.emit.EmitOp(bytecode.UNDEFINED)
	}
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(scratch))
	for i := len(d.scopes) - 1; i >= 0; i-- {
		d.emitScopeDisposal(d.scopes[i])
	}
	for i := len(d.loops) - 1; i >= 0; i-- {
		if d.loops[i].hasIterator {
			d.emit.EmitOp(bytecode.ITERATOR_CLOSE)
		}
	}
	d.emit.EmitU32(bytecode.GET_LOCAL, uint32(scratch))
	if d.isAsync {
		d.emit.EmitOp(bytecode.RETURN_ASYNC)
	} else {
		d.emit.EmitOp(bytecode.RETURN)
	}
}

func (d *driver) compileBreakStmt(n *ast.BreakStmt) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name
	}
	idx, ok := d.findLoop(label, false)
	if !ok {
		d.errorf(n.Start, SyntaxError, "illegal break statement")
		return
	}
	lc := d.loops[idx]
	d.emitUnwind(idx, lc.scopeDepth, true)
	site := d.emit.EmitJump(bytecode.GOTO)
	lc.breakSites = append(lc.breakSites, site)
}

func (d *driver) compileContinueStmt(n *ast.ContinueStmt) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name
	}
	idx, ok := d.findLoop(label, true)
	if !ok {
		d.errorf(n.Start, SyntaxError, "illegal continue statement")
		return
	}
	lc := d.loops[idx]
	d.emitUnwind(idx, lc.continueScopeDepth, false)
	site := d.emit.EmitJump(bytecode.GOTO)
	lc.continueSites = append(lc.continueSites, site)
}

func (d *driver) compileLabeledStmt(n *ast.LabeledStmt) {
	label := n.Label.Name
	switch {
	case ast.IsLoop(n.Body):
		d.compileLoopStmtLabeled(n.Body, label)
	case isLabeledStmt(n.Body):
		d.compileStmt(n.Body)
	default:
		lc := d.pushLoop(label, false, false)
		d.compileStmt(n.Body)
		for _, site := range lc.breakSites {
			d.emit.PatchJump(site, d.emit.Offset())
		}
		d.popLoop()
	}
}

func isLabeledStmt(s ast.Stmt) bool {
	_, ok := s.(*ast.LabeledStmt)
	return ok
}

func (d *driver) compileLoopStmtLabeled(s ast.Stmt, label string) {
	switch n := s.(type) {
	case *ast.WhileStmt:
		d.compileWhileStmt(n, label)
	case *ast.DoWhileStmt:
		d.compileDoWhileStmt(n, label)
	case *ast.ForStmt:
		d.compileForStmt(n, label)
	case *ast.ForInStmt:
		d.compileForInOfStmt(n.LeftDecl, n.Left, n.Right, n.Body, false, false, label)
	case *ast.ForOfStmt:
		d.compileForInOfStmt(n.LeftDecl, n.Left, n.Right, n.Body, true, n.Await, label)
	}
}

// compileVarDecl lowers a var/let/const/using/await-using declaration
// (spec §4.3, §4.7, §4.8). `var` targets were already allocated a slot by
// the hoisting pass; let/const/using/await-using always create a fresh
// binding in the current block scope.
func (d *driver) compileVarDecl(n *ast.VariableDeclaration) {
	switch n.Kind {
	case ast.DeclVar:
		for _, decl := range n.Declarators {
			if decl.Init == nil {
				continue
			}
			d.compileExpr(decl.Init)
			d.bindPattern(decl.ID, bindDeclareFunctionScope)
		}
	case ast.DeclLet, ast.DeclConst:
		for _, decl := range n.Declarators {
			if decl.Init != nil {
				d.compileExpr(decl.Init)
			} else {
				d.emit.EmitOp(bytecode.UNDEFINED)
			}
			d.bindPattern(decl.ID, bindDeclareBlockScope)
		}
	case ast.DeclUsing, ast.DeclAwaitUsing:
		for _, decl := range n.Declarators {
			d.compileExpr(decl.Init)
			d.emit.EmitOp(bytecode.DUP)
			id, ok := decl.ID.(*ast.Identifier)
			if !ok {
				d.errorf(0, SyntaxError, "using declarations must bind a simple identifier")
				d.emit.EmitOp(bytecode.DROP)
				d.emit.EmitOp(bytecode.DROP)
				continue
			}
			slot := d.declareLocal(id.Name)
			d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
			d.emitUsingPush(n.Kind == ast.DeclAwaitUsing, n.Start)
		}
	}
}
