// Package compiler lowers a parsed ECMAScript program (lang/ast) into the
// bytecode artifact consumed by a companion virtual machine (lang/bytecode).
// It resolves scope, closure capture, and loop/label targets in a single
// pass over the tree rather than in a separate resolve phase, grounded on
// the teacher's lang/compiler package but restructured around this
// project's flat, relative-jump bytecode model instead of the teacher's
// CFG/block linearization.
package compiler

import (
	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
	"github.com/mna/ecmac/lang/token"
	"golang.org/x/exp/slices"
)

// funcKind distinguishes how a driver's Funcode should be finished off:
// a plain function/method, a derived/base constructor, or an arrow
// (which shares its enclosing `this`/`arguments`/`super` and cannot be
// called with `new`).
type funcKind int

const (
	funcPlain funcKind = iota
	funcConstructor
	funcArrow
	funcStaticBlock
	funcFieldInit
)

// driver holds everything needed to lower one function (or the program
// top level, or a class static block / field initializer, which all get
// their own Funcode) into bytecode.
type driver struct {
	parent *driver
	file   *token.File
	errs   *CompileErrors

	emit *bytecode.Emitter

	scopes     []*scope
	maxLocal   int
	localNames []bytecode.LocalName

	loops []*loopCtx

	capture    *captureResolver
	fnCaptures []bytecode.Capture

	hoist *hoistInfo

	strict        bool
	kind          funcKind
	isAsync       bool
	isGenerator   bool
	hasSuperCall  bool // derived constructor
	className     string

	// hasHomeObject is true for class methods/constructors and
	// object-literal methods/accessors, whose SPECIAL_OBJECT(home) the VM
	// resolves against this frame; inMethodHome walks up through arrow
	// frames to find it (spec §4.5, §4.6).
	hasHomeObject bool

	// selfName is the binding name of a named function expression, used
	// to detect and register the self-reference capture (Funcode.
	// SelfCaptureIdx); empty for declarations (already bound normally)
	// and anonymous expressions.
	selfName       string
	selfCaptureIdx int

	// classes is a stack of in-progress class compilations; nothing in
	// this package pushes to or reads from it (private names are emitted
	// directly as atoms).
	classes []*classCtx

	// classFieldInit, when set, is this constructor's private-method and
	// instance-field initialization prelude (spec §4.6 "Constructor
	// body"). compileBody runs it immediately for a base-class
	// constructor; for a derived one (hasSuperCall) it is deferred and
	// fired by compileCallExpr right after the bare super(...) call is
	// compiled, since `this` is not usable any earlier.
	classFieldInit func()

	scratchCount int
}

func newDriver(parent *driver, file *token.File, errs *CompileErrors) *driver {
	return &driver{
		parent:         parent,
		file:           file,
		errs:           errs,
		emit:           bytecode.NewEmitter(),
		selfCaptureIdx: -1,
	}
}

func (d *driver) errorf(pos token.Pos, kind ErrorKind, format string, args ...interface{}) {
	d.errs.add(kind, d.file.Position(pos), format, args...)
}

// CompileProgram lowers an entire parsed program into its top-level
// Funcode plus every transitively reachable nested function.
func CompileProgram(file *token.File, prog *ast.Program) (*bytecode.Program, error) {
	errs := &CompileErrors{}
	d := newDriver(nil, file, errs)
	d.strict = prog.Strict
	d.capture = newCaptureResolver(d, nil)

	fn := d.compileBody("<toplevel>", prog.Start, prog.Body, nil, funcPlain)

	if err := errs.Err(); err != nil {
		errs.Sort()
		return nil, err
	}
	return &bytecode.Program{Filename: file.Name(), Toplevel: fn}, nil
}

// compileBody lowers one function/program/static-block body: it declares
// hoisted vars and function bindings, emits the hoisted function closures
// in source order, then lowers every statement, and finally finishes the
// Funcode with a trailing implicit return.
//
// params is nil for the program top level and static blocks/field
// initializers, which take no parameters.
func (d *driver) compileBody(name string, start token.Pos, body []ast.Stmt, params []ast.Pattern, kind funcKind) *bytecode.Funcode {
	d.kind = kind
	d.enterScope()

	declaredArgs, hasRest := d.compileParams(params)

	d.hoist = analyzeHoisting(body, d.strict)
	for _, v := range d.hoist.vars {
		if _, ok := d.findLocal(v); !ok {
			d.declareLocal(v)
		}
	}
	for _, fd := range d.hoist.topFuncs {
		if fd.Fn.Name != nil {
			d.declareLocal(fd.Fn.Name.Name)
		}
	}
	for _, fd := range d.hoist.topFuncs {
		d.emitHoistedFunction(fd)
	}
	for _, fd := range d.hoist.annexBCands {
		d.emitAnnexBFunctionInit(fd)
	}

	if d.classFieldInit != nil && !d.hasSuperCall {
		d.classFieldInit()
		d.classFieldInit = nil
	}

	if d.isGenerator {
		d.emit.EmitOp(bytecode.INITIAL_YIELD)
	}

	for _, s := range body {
		d.compileStmt(s)
	}

	d.emitScopeDisposal(d.curScope())
	d.emit.EmitOp(bytecode.UNDEFINED)
	if d.isAsync {
		d.emit.EmitOp(bytecode.RETURN_ASYNC)
	} else {
		d.emit.EmitOp(bytecode.RETURN)
	}

	d.exitScope()

	// d.localNames accumulates in per-scope exit order, not slot order;
	// sort it so disassembly and debugging see a stable, slot-ascending
	// table regardless of how scopes nested.
	slices.SortFunc(d.localNames, func(a, b bytecode.LocalName) int { return a.Slot - b.Slot })

	fn := d.emit.Build(d.maxLocal, d.localNames)
	fn.Name = name
	fn.Pos = d.file.Position(start)
	fn.Strict = d.strict
	fn.IsArrow = kind == funcArrow
	fn.IsAsync = d.isAsync
	fn.IsGenerator = d.isGenerator
	fn.IsConstructor = kind == funcConstructor
	fn.DeclaredArgs = declaredArgs
	fn.HasRestParam = hasRest
	fn.NumParams = len(params)
	fn.Captures = d.fnCaptures
	fn.SelfCaptureIdx = d.selfCaptureIdx
	return fn
}

// compileParams binds each parameter pattern to a fresh local in
// declaration order, lowering default values and the rest element (spec
// §4.7 parameter destructuring); it returns Function.length (the count of
// parameters, destructuring ones included, before the first default or
// rest) and whether a rest parameter is present.
func (d *driver) compileParams(params []ast.Pattern) (declaredArgs int, hasRest bool) {
	seenDefault := false
	for i, p := range params {
		if rest, ok := p.(*ast.RestElement); ok {
			hasRest = true
			d.emit.EmitU32(bytecode.REST, uint32(i))
			d.bindPattern(rest.Arg, bindDeclareFunctionScope)
			continue
		}
		if !seenDefault {
			if _, isDefault := p.(*ast.AssignmentPattern); isDefault {
				seenDefault = true
			} else {
				declaredArgs++
			}
		}
		d.emit.EmitU32(bytecode.GET_ARG, uint32(i))
		d.bindPattern(p, bindDeclareFunctionScope)
	}
	if !hasRest && !seenDefault {
		declaredArgs = len(params)
	}
	return declaredArgs, hasRest
}

// emitHoistedFunction declares slot storage (already allocated by
// compileBody) and stores a freshly-closed function value into it, for a
// function declared directly at this body's top level. Per spec §4.9
// these run before any other statement executes, in source order.
func (d *driver) emitHoistedFunction(fd *ast.FuncDeclStmt) {
	slot, _ := d.findLocal(fd.Fn.Name.Name)
	d.emitFuncLitValue(fd.Fn, fd.Fn.Name.Name, funcPlain)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
}

// emitAnnexBFunctionInit performs the Annex B.3.3.3 "legacy" var-hoist: it
// assigns undefined at function entry (the var binding itself was already
// handled via hoist.vars) so that referencing the name before its nested
// block executes observes undefined rather than a TDZ-style error. The
// real assignment is made by compileNestedFuncDecl, when control enters
// the block that declares the function.
func (d *driver) emitAnnexBFunctionInit(fd *ast.FuncDeclStmt) {
	slot, _ := d.findLocal(fd.Fn.Name.Name)
	d.emit.EmitOp(bytecode.UNDEFINED)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
}

// emitFuncLitValue lowers fn into its own Funcode (recursively, with a
// fresh child driver) and pushes a closure value built from it onto the
// stack via FCLOSURE. name overrides fn.Name (e.g. synthesized names for
// object-literal methods).
func (d *driver) emitFuncLitValue(fn *ast.FuncLit, name string, kind funcKind) *bytecode.Funcode {
	return d.emitFuncLitValueHome(fn, name, kind, false)
}

// emitFuncLitValueHome is emitFuncLitValue plus the isMethod flag that
// marks the child as owning a [[HomeObject]] (spec §4.5, §4.6): a class
// method/constructor or an object-literal method/accessor, as opposed to
// a plain function declaration/expression, which has no `super` binding.
func (d *driver) emitFuncLitValueHome(fn *ast.FuncLit, name string, kind funcKind, isMethod bool) *bytecode.Funcode {
	child := newDriver(d, d.file, d.errs)
	child.strict = d.strict || hasUseStrictDirective(fn.Body.Body)
	child.isAsync = fn.Async
	child.isGenerator = fn.Generator
	child.hasHomeObject = isMethod || kind == funcConstructor
	child.capture = newCaptureResolver(child, d.capture)
	if name != "" && kind != funcConstructor {
		child.selfName = name
	}
	bcfn := child.compileBody(name, fn.Start, fn.Body.Body, fn.Params, kind)
	d.emitCapturePushes(bcfn)
	d.emit.EmitWithConstant(bytecode.FCLOSURE, bcfn)
	return bcfn
}

// emitCapturePushes pushes, in order, the value each of fn's captured
// bindings is sourced from — a parent local (CaptureLocal) or a slot in
// the parent's own closure array (CaptureVarRef) — immediately before the
// FCLOSURE that will consume them to build fn's closure-variable array
// (spec §4.5: "preceded by push instructions loading each captured
// binding in order"). The self-reference entry (Slot -1) has no source
// in the parent; UNDEFINED is pushed in its place.
func (d *driver) emitCapturePushes(fn *bytecode.Funcode) {
	for _, c := range fn.Captures {
		if c.Slot < 0 {
			d.emit.EmitOp(bytecode.UNDEFINED)
			continue
		}
		switch c.Kind {
		case bytecode.CaptureLocal:
			d.emit.EmitU32(bytecode.GET_LOCAL, uint32(c.Slot))
		case bytecode.CaptureVarRef:
			d.emit.EmitU32(bytecode.GET_VAR_REF, uint32(c.Slot))
		}
	}
}

// inMethodHome reports whether a SPECIAL_OBJECT(home) reference compiled
// right now would resolve: true for the current function itself if it
// owns a home object, or — recursing through enclosing arrows, which
// share their defining scope's `super` binding — for the nearest
// non-arrow ancestor.
func (d *driver) inMethodHome() bool {
	if d.hasHomeObject {
		return true
	}
	if d.kind == funcArrow && d.parent != nil {
		return d.parent.inMethodHome()
	}
	return false
}

// emitArrowValue lowers an arrow function: it never owns `this`,
// `arguments`, or `super`, and is never itself a generator. Inside it,
// `arguments` and `super` compile to SPECIAL_OBJECT, which the VM
// resolves against the nearest non-arrow frame, and `this` is handled by
// emitThisLoad (spec §4.5).
func (d *driver) emitArrowValue(fn *ast.ArrowFuncExpr) *bytecode.Funcode {
	child := newDriver(d, d.file, d.errs)
	child.strict = d.strict
	child.isAsync = fn.Async
	child.capture = newCaptureResolver(child, d.capture)

	var body []ast.Stmt
	if fn.Body != nil {
		body = fn.Body.Body
	} else {
		body = []ast.Stmt{&ast.ReturnStmt{Arg: fn.ExprBody}}
	}
	bcfn := child.compileBody("", fn.Start, body, fn.Params, funcArrow)
	d.emitCapturePushes(bcfn)
	d.emit.EmitWithConstant(bytecode.FCLOSURE, bcfn)
	return bcfn
}

func hasUseStrictDirective(body []ast.Stmt) bool {
	for _, s := range body {
		es, ok := s.(*ast.ExprStmt)
		if !ok {
			break
		}
		lit, ok := es.Expr.(*ast.Literal)
		if !ok || lit.Kind != ast.LitString {
			break
		}
		if lit.Raw == `"use strict"` || lit.Raw == `'use strict'` {
			return true
		}
	}
	return false
}
