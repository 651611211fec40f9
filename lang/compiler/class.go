package compiler

import (
	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
	"github.com/mna/ecmac/lang/token"
)

// classCtx tracks per-class compile-time-only state while compileClass
// lowers one class body (spec §4.6): duplicate private-name detection,
// with getter/setter pairs sharing one private name coalesced rather than
// flagged as a collision.
type classCtx struct {
	fields  map[string]bool
	getters map[string]bool
	setters map[string]bool
}

func newClassCtx() *classCtx {
	return &classCtx{
		fields:  make(map[string]bool),
		getters: make(map[string]bool),
		setters: make(map[string]bool),
	}
}

// registerPrivateName records one private-named element and reports
// (via d.errorf) a second declaration of the same name unless the two
// are a getter/setter pair.
func (d *driver) registerPrivateName(cc *classCtx, name string, kind ast.MethodKind, pos token.Pos) {
	var dup bool
	switch kind {
	case ast.MethodGetter:
		dup = cc.fields[name] || cc.getters[name]
		cc.getters[name] = true
	case ast.MethodSetter:
		dup = cc.fields[name] || cc.setters[name]
		cc.setters[name] = true
	default:
		dup = cc.fields[name] || cc.getters[name] || cc.setters[name]
		cc.fields[name] = true
	}
	if dup {
		d.errorf(pos, SyntaxError, "private name #%s is declared more than once", name)
	}
}

// privateName extracts the bare name (without '#') of a private class
// element key, matching the atom convention already used for private
// field/method access in expr.go (GET_PRIVATE_FIELD et al.) rather than a
// separate per-class symbol table.
func privateName(key ast.Expr) string {
	pi, _ := key.(*ast.PrivateIdentifier)
	if pi == nil {
		return ""
	}
	return pi.Name
}

// classSelfName is the name under which compileClass binds the
// constructor value, in the class's own enclosing scope, while the class
// body is being compiled — it exists purely so that computed public
// field initializers, compiled inside the constructor, can fetch their
// once-evaluated key back off the constructor object (see
// emitClassConstructor) the same way a named function expression resolves
// its own self-reference.
const classSelfName = "$class$"

// compileClass lowers a class declaration/expression (spec §4.6). Source
// order is partitioned into the constructor, public/private instance and
// static methods, instance/static fields, and static blocks; public
// methods and static members install directly onto the
// prototype/constructor once, at class-definition time, while private
// instance methods and every instance field initializer are woven into
// the constructor body (emitClassConstructor) since they must run once
// per instance instead. A computed *public* field key is evaluated
// exactly once, here, and cached on the constructor under a synthesized
// private name, $fieldkey$N, numbered from 0 across the class's computed
// public fields (instance fields first, then static), so that per-instance initialization
// never re-evaluates the key expression.
func (d *driver) compileClass(cls *ast.ClassLit) {
	d.enterScope()
	defer d.exitScope()

	if cls.SuperClass != nil {
		d.compileExpr(cls.SuperClass)
	} else {
		d.emit.EmitOp(bytecode.UNDEFINED)
	}

	cc := newClassCtx()
	d.classes = append(d.classes, cc)
	defer func() { d.classes = d.classes[:len(d.classes)-1] }()

	var ctor *ast.MethodDef
	var instanceMethods, staticMethods []*ast.MethodDef
	var privateInstanceMethods, privateStaticMethods []*ast.MethodDef
	var instanceFields, staticFields []*ast.PropertyDef

	for _, el := range cls.Elements {
		switch e := el.(type) {
		case *ast.MethodDef:
			if e.Private {
				d.registerPrivateName(cc, privateName(e.Key), e.Kind, e.Start)
			}
			switch {
			case e.Kind == ast.MethodConstructor:
				ctor = e
			case e.Private && e.Static:
				privateStaticMethods = append(privateStaticMethods, e)
			case e.Private:
				privateInstanceMethods = append(privateInstanceMethods, e)
			case e.Static:
				staticMethods = append(staticMethods, e)
			default:
				instanceMethods = append(instanceMethods, e)
			}
		case *ast.PropertyDef:
			if e.Private {
				d.registerPrivateName(cc, privateName(e.Key), ast.MethodNormal, e.Start)
			}
			if e.Static {
				staticFields = append(staticFields, e)
			} else {
				instanceFields = append(instanceFields, e)
			}
		}
	}

	// Computed public field keys get a hidden per-field private name on
	// the constructor ($fieldkey$0, $fieldkey$1, ...); collisions across
	// classes don't matter since each is only ever read back from its own
	// class's own constructor.
	computedKeySym := map[*ast.PropertyDef]string{}
	n := 0
	for _, f := range instanceFields {
		if f.Computed && !f.Private {
			computedKeySym[f] = "$fieldkey$" + itoa(n)
			n++
		}
	}
	for _, f := range staticFields {
		if f.Computed && !f.Private {
			computedKeySym[f] = "$fieldkey$" + itoa(n)
			n++
		}
	}

	classSelfSlot := d.declareLocal(classSelfName)

	ctorFn := d.emitClassConstructor(cls, ctor, privateInstanceMethods, instanceFields, computedKeySym)
	className := ""
	if cls.Name != nil {
		className = cls.Name.Name
	}
	d.emitCapturePushes(ctorFn)
	d.emit.EmitWithConstant(bytecode.FCLOSURE, ctorFn)
	d.emit.EmitWithAtom(bytecode.DEFINE_CLASS, className)
	// Stack is now [prototype, constructor] (constructor on top).
	protoOnTop := false
	ensureTop := func(wantProto bool) {
		if protoOnTop != wantProto {
			d.emit.EmitOp(bytecode.SWAP)
			protoOnTop = wantProto
		}
	}

	ensureTop(false)
	d.emit.EmitOp(bytecode.DUP)
	d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(classSelfSlot))

	for _, m := range instanceMethods {
		ensureTop(true)
		d.emitClassMethodInstall(m)
	}
	for _, m := range staticMethods {
		ensureTop(false)
		d.emitClassMethodInstall(m)
	}
	for _, m := range privateStaticMethods {
		ensureTop(false)
		d.emitMethodFuncValue(m)
		d.emit.EmitWithAtom(bytecode.DEFINE_PRIVATE_FIELD, privateName(m.Key))
	}

	// Evaluate each computed public field key exactly once, while the
	// constructor is on top, caching it under its synthesized name.
	allFields := append(append([]*ast.PropertyDef{}, instanceFields...), staticFields...)
	for _, f := range allFields {
		sym, ok := computedKeySym[f]
		if !ok {
			continue
		}
		ensureTop(false)
		d.emit.EmitOp(bytecode.DUP)
		d.compileExpr(f.Key)
		d.emit.EmitOp(bytecode.TO_PROPKEY)
		d.emit.EmitWithAtom(bytecode.DEFINE_PRIVATE_FIELD, sym)
		d.emit.EmitOp(bytecode.DROP)
	}

	// Static fields and static blocks run in source order, each as a
	// zero-argument call with the constructor as `this` (spec §4.6).
	for _, el := range cls.Elements {
		switch e := el.(type) {
		case *ast.PropertyDef:
			if !e.Static {
				continue
			}
			ensureTop(false)
			d.emitStaticFieldInit(e, computedKeySym[e])
		case *ast.StaticBlockDef:
			ensureTop(false)
			d.emitStaticBlockInit(e)
		}
	}

	ensureTop(true)
	d.emit.EmitOp(bytecode.DROP) // drop the prototype; the constructor value remains
}

// emitClassMethodInstall pushes m's closure and installs it onto
// whichever object (prototype or constructor) is currently on top of the
// stack, following the same [target, (key,) value] -> DEFINE_METHOD(
// _COMPUTED) -> [target] contract already used for object-literal methods
// (expr.go's compileObjectExpr).
func (d *driver) emitClassMethodInstall(m *ast.MethodDef) {
	if m.Computed {
		d.compileExpr(m.Key)
		d.emit.EmitOp(bytecode.TO_PROPKEY)
		d.emitMethodFuncValue(m)
		d.emit.EmitOp(bytecode.DEFINE_METHOD_COMPUTED)
		return
	}
	name := propKeyName(m.Key)
	d.emitMethodFuncValue(m)
	d.emit.EmitWithAtom(bytecode.DEFINE_METHOD, name)
}

// emitMethodFuncValue lowers one class/object method, getter, or setter,
// marking it as home-object-owning so `super` resolves inside it (spec
// §4.5, §4.6).
func (d *driver) emitMethodFuncValue(m *ast.MethodDef) *bytecode.Funcode {
	fn := d.emitFuncLitValueHome(m.Fn, "", funcPlain, true)
	switch m.Kind {
	case ast.MethodGetter:
		fn.MethodKind = bytecode.MethodGetter
	case ast.MethodSetter:
		fn.MethodKind = bytecode.MethodSetter
	}
	return fn
}

// emitStaticFieldInit runs a static field's initializer once, at
// class-definition time, with the constructor (already on top of the
// stack) as `this` (spec §4.6).
func (d *driver) emitStaticFieldInit(f *ast.PropertyDef, computedSym string) {
	child := newDriver(d, d.file, d.errs)
	child.strict = true
	child.kind = funcFieldInit
	child.hasHomeObject = true
	child.capture = newCaptureResolver(child, d.capture)
	child.enterScope()
	emitFieldBody(child, f, computedSym)
	child.emit.EmitOp(bytecode.RETURN)
	child.exitScope()
	fn := child.emit.Build(child.maxLocal, child.localNames)
	fn.Name = "<static field initializer>"
	fn.Pos = d.file.Position(f.Start)
	fn.Strict = true
	fn.Captures = child.fnCaptures
	fn.SelfCaptureIdx = -1
	d.emit.EmitOp(bytecode.DUP) // keep the running constructor value; APPLY below consumes its own copy
	d.emitCapturePushes(fn)
	d.emit.EmitWithConstant(bytecode.FCLOSURE, fn)
	d.emit.EmitOp(bytecode.SWAP)
	d.emit.EmitU32(bytecode.ARRAY_FROM, 0)
	d.emit.EmitOp(bytecode.APPLY)
	d.emit.EmitOp(bytecode.DROP)
}

// emitFieldBody lowers one field initializer's `PUSH_THIS; ...; DEFINE_*`
// sequence into child, the driver currently building the field's own
// zero-arg Funcode (an instance constructor prelude or a static-field
// init function). Shared by emitClassConstructor's prelude and
// emitStaticFieldInit. A computed public key was already evaluated once
// at class-definition time and cached on the constructor under
// computedSym; child resolves the constructor via the classSelfName
// capture the way a named function expression resolves its own name.
func emitFieldBody(child *driver, f *ast.PropertyDef, computedSym string) {
	child.emit.EmitOp(bytecode.PUSH_THIS)
	switch {
	case f.Private:
		if f.Value != nil {
			child.compileExpr(f.Value)
		} else {
			child.emit.EmitOp(bytecode.UNDEFINED)
		}
		child.emit.EmitWithAtom(bytecode.DEFINE_PRIVATE_FIELD, privateName(f.Key))
	case f.Computed:
		if slot, ok := child.capture.resolve(classSelfName); ok {
			child.emit.EmitU32(bytecode.GET_VAR_REF, uint32(slot))
		} else if slot, ok := child.findLocal(classSelfName); ok {
			child.emit.EmitU32(bytecode.GET_LOCAL, uint32(slot))
		} else {
			child.emit.EmitOp(bytecode.UNDEFINED)
		}
		child.emit.EmitWithAtom(bytecode.GET_PRIVATE_FIELD, computedSym)
		child.emit.EmitOp(bytecode.TO_PROPKEY)
		if f.Value != nil {
			child.compileExpr(f.Value)
		} else {
			child.emit.EmitOp(bytecode.UNDEFINED)
		}
		child.emit.EmitOp(bytecode.DEFINE_PROP_COMPUTED)
	default:
		if f.Value != nil {
			child.compileExpr(f.Value)
		} else {
			child.emit.EmitOp(bytecode.UNDEFINED)
		}
		child.emit.EmitWithAtom(bytecode.DEFINE_PROP, propKeyName(f.Key))
	}
	child.emit.EmitOp(bytecode.DROP)
}

// emitStaticBlockInit lowers a `static { ... }` element as a zero-arg
// call with the constructor as `this` (spec §4.6); static blocks see the
// enclosing scope's bindings exactly like any other nested function, so
// it is compiled through the ordinary compileBody path.
func (d *driver) emitStaticBlockInit(sb *ast.StaticBlockDef) {
	child := newDriver(d, d.file, d.errs)
	child.strict = true
	child.hasHomeObject = true
	child.capture = newCaptureResolver(child, d.capture)
	fn := child.compileBody("", sb.Start, sb.Body.Body, nil, funcStaticBlock)
	d.emit.EmitOp(bytecode.DUP) // keep the running constructor value; APPLY below consumes its own copy
	d.emitCapturePushes(fn)
	d.emit.EmitWithConstant(bytecode.FCLOSURE, fn)
	d.emit.EmitOp(bytecode.SWAP)
	d.emit.EmitU32(bytecode.ARRAY_FROM, 0)
	d.emit.EmitOp(bytecode.APPLY)
	d.emit.EmitOp(bytecode.DROP)
}

// emitClassConstructor builds the constructor's Funcode: the author's
// own constructor if the class declared one, or a synthesized default
// otherwise (spec §4.6 "Constructor body"). Private instance methods and
// every instance field initializer are compiled as a prelude
// (classFieldInit) that compileBody/compileCallExpr fires at the right
// point — immediately for a base class, right after the first bare
// super(...) call for a derived one, since `this` only becomes usable at
// that point.
func (d *driver) emitClassConstructor(cls *ast.ClassLit, ctor *ast.MethodDef, privateInstanceMethods []*ast.MethodDef, instanceFields []*ast.PropertyDef, computedKeySym map[*ast.PropertyDef]string) *bytecode.Funcode {
	derived := cls.SuperClass != nil

	var params []ast.Pattern
	var body []ast.Stmt
	start := cls.Start
	switch {
	case ctor != nil:
		params = ctor.Fn.Params
		body = ctor.Fn.Body.Body
		start = ctor.Fn.Start
	case derived:
		restArg := &ast.Identifier{Name: "args"}
		params = []ast.Pattern{&ast.RestElement{Arg: restArg}}
		body = []ast.Stmt{&ast.ExprStmt{Expr: &ast.CallExpr{
			Callee: &ast.SuperExpr{},
			Args:   []ast.Expr{&ast.SpreadElement{Arg: restArg}},
		}}}
	}

	child := newDriver(d, d.file, d.errs)
	child.strict = true
	child.hasHomeObject = true
	child.hasSuperCall = derived
	child.capture = newCaptureResolver(child, d.capture)
	child.classFieldInit = func() {
		for _, m := range privateInstanceMethods {
			child.emit.EmitOp(bytecode.PUSH_THIS)
			child.emitMethodFuncValue(m)
			child.emit.EmitWithAtom(bytecode.DEFINE_PRIVATE_FIELD, privateName(m.Key))
			child.emit.EmitOp(bytecode.DROP)
		}
		for _, f := range instanceFields {
			emitFieldBody(child, f, computedKeySym[f])
		}
	}

	name := ""
	if cls.Name != nil {
		name = cls.Name.Name
	}
	return child.compileBody(name, start, body, params, funcConstructor)
}
