package compiler

import (
	"math"
	"strconv"

	"github.com/mna/ecmac/lang/ast"
	"github.com/mna/ecmac/lang/bytecode"
)

// compileExpr lowers e, leaving exactly one value on the stack (spec
// §4.4).
func (d *driver) compileExpr(e ast.Expr) {
	e = ast.Unwrap(e)
	switch n := e.(type) {
	case *ast.Literal:
		d.compileLiteral(n)
	case *ast.ThisExpr:
		d.emitThisLoad()
	case *ast.Identifier:
		d.emitNameLoad(n.Name)
	case *ast.ArrayExpr:
		d.compileArrayExpr(n)
	case *ast.ObjectExpr:
		d.compileObjectExpr(n)
	case *ast.FuncExpr:
		name := ""
		if n.Fn.Name != nil {
			name = n.Fn.Name.Name
		}
		d.emitFuncLitValue(n.Fn, name, funcPlain)
	case *ast.ArrowFuncExpr:
		d.emitArrowValue(n)
	case *ast.ClassExpr:
		d.compileClass(n.Class)
	case *ast.UnaryExpr:
		d.compileUnaryExpr(n)
	case *ast.UpdateExpr:
		d.compileUpdateExpr(n)
	case *ast.BinaryExpr:
		d.compileBinaryExpr(n)
	case *ast.LogicalExpr:
		d.compileLogicalExpr(n)
	case *ast.AssignExpr:
		d.compileAssignExpr(n)
	case *ast.ConditionalExpr:
		d.compileConditionalExpr(n)
	case *ast.CallExpr:
		d.compileCallExpr(n)
	case *ast.NewExpr:
		d.compileNewExpr(n)
	case *ast.MemberExpr:
		d.compileMemberRead(n)
	case *ast.SequenceExpr:
		for i, ex := range n.Exprs {
			if i > 0 {
				d.emit.EmitOp(bytecode.DROP)
			}
			d.compileExpr(ex)
		}
	case *ast.TemplateLiteral:
		d.compileTemplateLiteral(n)
	case *ast.TaggedTemplateExpr:
		d.compileTaggedTemplate(n)
	case *ast.AwaitExpr:
		d.compileExpr(n.Arg)
		d.emit.EmitOp(bytecode.AWAIT)
	case *ast.YieldExpr:
		d.compileYieldExpr(n)
	case *ast.SuperExpr:
		d.errorf(0, SyntaxError, "'super' keyword is only valid in member/call position")
		d.emit.EmitOp(bytecode.UNDEFINED)
	case *ast.SpreadElement:
		d.errorf(0, SyntaxError, "unexpected spread element")
		d.emit.EmitOp(bytecode.UNDEFINED)
	default:
		d.errorf(0, CompilerErrorKind, "unsupported expression node %T", e)
		d.emit.EmitOp(bytecode.UNDEFINED)
	}
}

func (d *driver) compileLiteral(n *ast.Literal) {
	switch n.Kind {
	case ast.LitNull:
		d.emit.EmitOp(bytecode.NULL)
	case ast.LitBool:
		if b, _ := n.Value.(bool); b {
			d.emit.EmitOp(bytecode.PUSH_TRUE)
		} else {
			d.emit.EmitOp(bytecode.PUSH_FALSE)
		}
	case ast.LitNumber:
		f, _ := n.Value.(float64)
		if i := int32(f); float64(i) == f && !math.Signbit(f) {
			d.emit.EmitI32(bytecode.PUSH_I32, i)
		} else {
			d.emit.EmitWithConstant(bytecode.PUSH_CONST, f)
		}
	case ast.LitBigInt:
		if i, err := strconv.ParseInt(n.Value.(string), 10, 32); err == nil {
			d.emit.EmitI32(bytecode.PUSH_BIGINT_I32, int32(i))
		} else {
			d.emit.EmitWithConstant(bytecode.PUSH_CONST, n.Value)
		}
	case ast.LitString:
		d.emit.EmitWithConstant(bytecode.PUSH_CONST, n.Value)
	case ast.LitRegExp:
		d.emit.EmitWithConstant(bytecode.PUSH_CONST, &bytecode.RegExpDescriptor{Pattern: n.Pattern, Flags: n.Flags})
	}
}

// emitThisLoad resolves `this`. Outside an arrow it is PUSH_THIS. In an
// arrow it is first looked up through the capture chain; no function
// declares a local named `this`, so that lookup finds nothing and
// PUSH_THIS is emitted as well (spec §4.5).
func (d *driver) emitThisLoad() {
	if d.kind != funcArrow {
		d.emit.EmitOp(bytecode.PUSH_THIS)
		return
	}
	if slot, ok := d.capture.resolve("this"); ok {
		d.emit.EmitU32(bytecode.GET_VAR_REF, uint32(slot))
		return
	}
	d.emit.EmitOp(bytecode.PUSH_THIS)
}

// emitNameLoad resolves an identifier reference in precedence order:
// self-reference, local (which already covers a source-declared
// parameter/var literally named `arguments`, shadowing the synthesized
// one), the synthesized `arguments` object, captured, then an unresolved
// global lookup (spec §4.2, §4.4).
func (d *driver) emitNameLoad(name string) {
	if name == d.selfName && d.selfName != "" {
		if d.selfCaptureIdx < 0 {
			d.selfCaptureIdx = len(d.fnCaptures)
			d.fnCaptures = append(d.fnCaptures, bytecode.Capture{Kind: bytecode.CaptureVarRef, Slot: -1, Name: name})
		}
		d.emit.EmitU32(bytecode.GET_VAR_REF, uint32(d.selfCaptureIdx))
		return
	}
	if slot, ok := d.findLocal(name); ok {
		d.emit.EmitU32(bytecode.GET_LOCAL, uint32(slot))
		return
	}
	if name == "arguments" && d.parent != nil {
		d.emit.EmitU32(bytecode.SPECIAL_OBJECT, uint32(bytecode.SpecialObjectArguments))
		return
	}
	if slot, ok := d.capture.resolve(name); ok {
		d.emit.EmitU32(bytecode.GET_VAR_REF, uint32(slot))
		return
	}
	d.emit.EmitWithAtom(bytecode.GET_VAR, name)
}

// emitNameStore is the store counterpart of emitNameLoad, consuming the
// top-of-stack value.
func (d *driver) emitNameStore(name string) {
	if slot, ok := d.findLocal(name); ok {
		d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
		return
	}
	if slot, ok := d.capture.resolve(name); ok {
		d.emit.EmitU32(bytecode.PUT_VAR_REF, uint32(slot))
		return
	}
	d.emit.EmitWithAtom(bytecode.PUT_VAR, name)
}

func (d *driver) compileArrayExpr(n *ast.ArrayExpr) {
	d.emit.EmitOp(bytecode.ARRAY_NEW)
	idx := 0
	for _, el := range n.Elements {
		switch v := el.(type) {
		case nil:
			idx++
		case *ast.SpreadElement:
			d.compileExpr(v.Arg)
			d.emit.EmitOp(bytecode.APPEND)
		default:
			d.compileExpr(v)
			d.emit.EmitU32(bytecode.DEFINE_ARRAY_EL, uint32(idx))
			idx++
		}
	}
}

func (d *driver) compileObjectExpr(n *ast.ObjectExpr) {
	d.emit.EmitOp(bytecode.OBJECT_NEW)
	for _, p := range n.Props {
		if p.Kind == ast.PropSpread {
			d.compileExpr(p.Spread)
			d.emit.EmitOp(bytecode.APPEND)
			continue
		}
		switch p.Kind {
		case ast.PropMethod, ast.PropGet, ast.PropSet:
			fn, _ := p.Value.(*ast.FuncExpr)
			var lit *ast.FuncLit
			if fn != nil {
				lit = fn.Fn
			}
			if p.Computed {
				d.compileExpr(p.Key)
				d.emit.EmitOp(bytecode.TO_PROPKEY)
				d.emitFuncLitValueHome(lit, "", funcPlain, true)
				d.emit.EmitOp(bytecode.DEFINE_METHOD_COMPUTED)
			} else {
				name := propKeyName(p.Key)
				d.emitFuncLitValueHome(lit, name, funcPlain, true)
				d.emit.EmitWithAtom(bytecode.DEFINE_METHOD, name)
			}
		default:
			if p.Computed {
				d.compileExpr(p.Key)
				d.emit.EmitOp(bytecode.TO_PROPKEY)
				d.compileExpr(p.Value)
				d.emit.EmitOp(bytecode.DEFINE_PROP_COMPUTED)
			} else {
				d.compileExpr(p.Value)
				d.emit.EmitWithAtom(bytecode.DEFINE_PROP, propKeyName(p.Key))
			}
		}
	}
}

func (d *driver) compileUnaryExpr(n *ast.UnaryExpr) {
	if n.Op == ast.UnaryDelete {
		d.compileDelete(n.Arg)
		return
	}
	if n.Op == ast.UnaryTypeof {
		if id, ok := ast.Unwrap(n.Arg).(*ast.Identifier); ok {
			if _, ok := d.findLocal(id.Name); !ok {
				if _, ok := d.capture.resolve(id.Name); !ok {
					// unresolved identifier: typeof must not throw a
					// ReferenceError the way a plain GET_VAR read would,
					// so read it as a property of globalThis instead.
					d.emit.EmitWithAtom(bytecode.GET_VAR, "globalThis")
					d.emit.EmitWithAtom(bytecode.GET_FIELD, id.Name)
					d.emit.EmitOp(bytecode.TYPEOF)
					return
				}
			}
		}
	}
	d.compileExpr(n.Arg)
	switch n.Op {
	case ast.UnaryPlus:
		d.emit.EmitOp(bytecode.PLUS)
	case ast.UnaryMinus:
		d.emit.EmitOp(bytecode.NEG)
	case ast.UnaryNot:
		d.emit.EmitOp(bytecode.LOGICAL_NOT)
	case ast.UnaryBitNot:
		d.emit.EmitOp(bytecode.NOT)
	case ast.UnaryTypeof:
		d.emit.EmitOp(bytecode.TYPEOF)
	case ast.UnaryVoid:
		d.emit.EmitOp(bytecode.DROP)
		d.emit.EmitOp(bytecode.UNDEFINED)
	}
}

// compileDelete lowers `delete expr`. Deleting a local or captured name
// is a no-op returning false — a bound identifier is never a
// configurable binding; only an unresolved (implicit-global) name is
// actually deleted, through DELETE_VAR (spec §9
// Open Question: captured/local bindings are treated as non-deletable
// rather than modeling sloppy-mode global-object semantics precisely).
func (d *driver) compileDelete(arg ast.Expr) {
	switch a := ast.Unwrap(arg).(type) {
	case *ast.MemberExpr:
		if a.Private {
			d.errorf(a.Start, SyntaxError, "private fields cannot be deleted")
			d.emit.EmitOp(bytecode.PUSH_FALSE)
			return
		}
		d.compileExpr(a.Object)
		if a.Computed {
			d.compileExpr(a.Property)
			d.emit.EmitOp(bytecode.TO_PROPKEY)
			d.emit.EmitOp(bytecode.DELETE)
		} else {
			name := propKeyName(a.Property)
			d.emit.EmitWithAtom(bytecode.PUSH_ATOM_VALUE, name)
			d.emit.EmitOp(bytecode.DELETE)
		}
	case *ast.Identifier:
		if _, ok := d.findLocal(a.Name); ok {
			d.emit.EmitOp(bytecode.PUSH_FALSE)
			return
		}
		if a.Name == "arguments" && d.parent != nil {
			d.emit.EmitOp(bytecode.PUSH_FALSE)
			return
		}
		if _, ok := d.capture.resolve(a.Name); ok {
			d.emit.EmitOp(bytecode.PUSH_FALSE)
			return
		}
		d.emit.EmitWithAtom(bytecode.DELETE_VAR, a.Name)
	default:
		d.compileExpr(arg)
		d.emit.EmitOp(bytecode.DROP)
		d.emit.EmitOp(bytecode.PUSH_TRUE)
	}
}

func (d *driver) compileUpdateExpr(n *ast.UpdateExpr) {
	op := bytecode.INC
	if !n.Increment {
		op = bytecode.DEC
	}
	if id, ok := ast.Unwrap(n.Arg).(*ast.Identifier); ok {
		if slot, ok := d.findLocal(id.Name); ok {
			if n.Prefix {
				d.emit.EmitU32(bytecode.GET_LOCAL, uint32(slot))
				d.emit.EmitOp(op)
				d.emit.EmitU32(bytecode.SET_LOCAL, uint32(slot))
			} else {
				d.emit.EmitU32(bytecode.GET_LOCAL, uint32(slot))
				postOp := bytecode.POST_INC
				if !n.Increment {
					postOp = bytecode.POST_DEC
				}
				d.emit.EmitOp(postOp) // [old] -> [old, new]
				d.emit.EmitU32(bytecode.PUT_LOCAL, uint32(slot))
			}
			return
		}
	}
	// General case: member expression or captured/global identifier.
	// Read, DUP the pre-value for postfix, apply op, store back.
	d.compileMemberOrNameForUpdate(n)
}

func (d *driver) compileMemberOrNameForUpdate(n *ast.UpdateExpr) {
	me, isMember := ast.Unwrap(n.Arg).(*ast.MemberExpr)
	incOp := bytecode.INC
	if !n.Increment {
		incOp = bytecode.DEC
	}
	if isMember {
		d.compileExpr(me.Object)
		if me.Computed {
			d.compileExpr(me.Property)
			d.emit.EmitOp(bytecode.TO_PROPKEY)
		}
		d.emit.EmitOp(bytecode.DUP2)
		d.emitMemberGetDup(me)
		if !n.Prefix {
			d.emit.EmitOp(bytecode.DUP)
		}
		d.emit.EmitOp(incOp)
		if n.Prefix {
			d.emit.EmitOp(bytecode.DUP)
		}
		d.emitMemberSetAfterDup(me)
		return
	}
	id := ast.Unwrap(n.Arg).(*ast.Identifier)
	d.emitNameLoad(id.Name)
	if !n.Prefix {
		d.emit.EmitOp(bytecode.DUP)
	}
	d.emit.EmitOp(incOp)
	if n.Prefix {
		d.emit.EmitOp(bytecode.DUP)
	}
	d.emitNameStore(id.Name)
}

// emitMemberGetDup reads me.Object[me.Property] given the stack already
// holds [object, (key)] twice (from the DUP2 above), consuming one copy.
func (d *driver) emitMemberGetDup(me *ast.MemberExpr) {
	if me.Private {
		d.emit.EmitWithAtom(bytecode.GET_PRIVATE_FIELD, me.Property.(*ast.PrivateIdentifier).Name)
		return
	}
	if me.Computed {
		d.emit.EmitOp(bytecode.GET_ARRAY_EL)
	} else {
		d.emit.EmitWithAtom(bytecode.GET_FIELD, propKeyName(me.Property))
	}
}

func (d *driver) emitMemberSetAfterDup(me *ast.MemberExpr) {
	if me.Private {
		d.emit.EmitWithAtom(bytecode.PUT_PRIVATE_FIELD, me.Property.(*ast.PrivateIdentifier).Name)
		return
	}
	if me.Computed {
		d.emit.EmitOp(bytecode.PUT_ARRAY_EL)
	} else {
		d.emit.EmitWithAtom(bytecode.PUT_FIELD, propKeyName(me.Property))
	}
}

var binOpcodes = map[ast.BinOp]bytecode.Opcode{
	ast.BinAdd: bytecode.ADD, ast.BinSub: bytecode.SUB, ast.BinMul: bytecode.MUL,
	ast.BinDiv: bytecode.DIV, ast.BinMod: bytecode.MOD, ast.BinExp: bytecode.EXP,
	ast.BinShl: bytecode.SHL, ast.BinSar: bytecode.SAR, ast.BinShr: bytecode.SHR,
	ast.BinBitAnd: bytecode.AND, ast.BinBitOr: bytecode.OR, ast.BinBitXor: bytecode.XOR,
	ast.BinEq: bytecode.EQ, ast.BinNeq: bytecode.NEQ,
	ast.BinStrictEq: bytecode.STRICT_EQ, ast.BinStrictNeq: bytecode.STRICT_NEQ,
	ast.BinLt: bytecode.LT, ast.BinLte: bytecode.LTE, ast.BinGt: bytecode.GT, ast.BinGte: bytecode.GTE,
	ast.BinIn: bytecode.IN, ast.BinInstanceof: bytecode.INSTANCEOF,
}

func (d *driver) compileBinaryExpr(n *ast.BinaryExpr) {
	if n.Op == ast.BinIn {
		if priv, ok := n.Left.(*ast.PrivateIdentifier); ok {
			d.compileExpr(n.Right)
			d.emit.EmitWithAtom(bytecode.PRIVATE_IN, priv.Name)
			return
		}
	}
	d.compileExpr(n.Left)
	d.compileExpr(n.Right)
	op, ok := binOpcodes[n.Op]
	if !ok {
		d.errorf(0, CompilerErrorKind, "unsupported binary operator %v", n.Op)
		op = bytecode.ADD
	}
	d.emit.EmitOp(op)
}

func (d *driver) compileLogicalExpr(n *ast.LogicalExpr) {
	d.compileExpr(n.Left)
	d.emit.EmitOp(bytecode.DUP)
	var site uint32
	switch n.Op {
	case ast.LogicalAnd:
		site = d.emit.EmitJump(bytecode.IF_FALSE)
	case ast.LogicalOr:
		site = d.emit.EmitJump(bytecode.IF_TRUE)
	case ast.LogicalNullish:
		d.emit.EmitOp(bytecode.IS_UNDEFINED_OR_NULL)
		site = d.emit.EmitJump(bytecode.IF_FALSE)
	}
	d.emit.EmitOp(bytecode.DROP)
	d.compileExpr(n.Right)
	d.emit.PatchJump(site, d.emit.Offset())
}

func (d *driver) compileConditionalExpr(n *ast.ConditionalExpr) {
	d.compileExpr(n.Test)
	elseSite := d.emit.EmitJump(bytecode.IF_FALSE)
	d.compileExpr(n.Cons)
	endSite := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(elseSite, d.emit.Offset())
	d.compileExpr(n.Alt)
	d.emit.PatchJump(endSite, d.emit.Offset())
}

func (d *driver) compileAssignExpr(n *ast.AssignExpr) {
	if n.Op == ast.AssignEq {
		d.compileExpr(n.Right)
		d.emit.EmitOp(bytecode.DUP)
		d.bindPattern(n.Left.(ast.Pattern), bindAssign)
		return
	}
	if n.Op.IsLogical() {
		d.compileLogicalAssign(n)
		return
	}
	// compound assignment: a op= b  ==>  a = a op b
	me, isMember := ast.Unwrap(n.Left).(*ast.MemberExpr)
	op := compoundOpcodes[n.Op]
	if isMember {
		d.compileExpr(me.Object)
		if me.Computed {
			d.compileExpr(me.Property)
			d.emit.EmitOp(bytecode.TO_PROPKEY)
		}
		d.emit.EmitOp(bytecode.DUP2)
		d.emitMemberGetDup(me)
		d.compileExpr(n.Right)
		d.emit.EmitOp(op)
		d.emit.EmitOp(bytecode.DUP)
		d.emit.EmitOp(bytecode.ROT3L)
		d.emitMemberSetAfterDup(me)
		return
	}
	id := ast.Unwrap(n.Left).(*ast.Identifier)
	d.emitNameLoad(id.Name)
	d.compileExpr(n.Right)
	d.emit.EmitOp(op)
	d.emit.EmitOp(bytecode.DUP)
	d.emitNameStore(id.Name)
}

var compoundOpcodes = map[ast.AssignOp]bytecode.Opcode{
	ast.AssignAdd: bytecode.ADD, ast.AssignSub: bytecode.SUB, ast.AssignMul: bytecode.MUL,
	ast.AssignDiv: bytecode.DIV, ast.AssignMod: bytecode.MOD, ast.AssignExp: bytecode.EXP,
	ast.AssignShl: bytecode.SHL, ast.AssignSar: bytecode.SAR, ast.AssignShr: bytecode.SHR,
	ast.AssignBitAnd: bytecode.AND, ast.AssignBitOr: bytecode.OR, ast.AssignBitXor: bytecode.XOR,
}

// compileLogicalAssign lowers `a ??= b`/`a ||= b`/`a &&= b`: the
// right-hand side is evaluated (and the store performed) only when the
// short-circuit test passes, so it cannot be rewritten as a compound
// arithmetic op (spec §4.4).
func (d *driver) compileLogicalAssign(n *ast.AssignExpr) {
	me, isMember := ast.Unwrap(n.Left).(*ast.MemberExpr)
	var skip uint32
	if isMember {
		d.compileExpr(me.Object)
		if me.Computed {
			d.compileExpr(me.Property)
			d.emit.EmitOp(bytecode.TO_PROPKEY)
		}
		d.emit.EmitOp(bytecode.DUP2)
		d.emitMemberGetDup(me)
	} else {
		id := ast.Unwrap(n.Left).(*ast.Identifier)
		d.emitNameLoad(id.Name)
	}
	d.emit.EmitOp(bytecode.DUP)
	switch n.Op {
	case ast.AssignAnd:
		skip = d.emit.EmitJump(bytecode.IF_FALSE)
	case ast.AssignOr:
		skip = d.emit.EmitJump(bytecode.IF_TRUE)
	case ast.AssignNullish:
		d.emit.EmitOp(bytecode.IS_UNDEFINED_OR_NULL)
		skip = d.emit.EmitJump(bytecode.IF_FALSE)
	}
	d.emit.EmitOp(bytecode.DROP)
	d.compileExpr(n.Right)
	d.emit.EmitOp(bytecode.DUP)
	if isMember {
		d.emit.EmitOp(bytecode.ROT3L)
		d.emitMemberSetAfterDup(me)
	} else {
		id := ast.Unwrap(n.Left).(*ast.Identifier)
		d.emitNameStore(id.Name)
	}
	after := d.emit.EmitJump(bytecode.GOTO)
	d.emit.PatchJump(skip, d.emit.Offset())
	if isMember {
		d.emit.EmitOp(bytecode.NIP)
	}
	d.emit.PatchJump(after, d.emit.Offset())
}

func (d *driver) compileCallExpr(n *ast.CallExpr) {
	if me, ok := ast.Unwrap(n.Callee).(*ast.MemberExpr); ok {
		if _, isSuper := me.Object.(*ast.SuperExpr); isSuper {
			d.emitThisLoad()
			d.emitSuperPropertyRef(me)
			d.emit.EmitOp(bytecode.SWAP)
			d.compileArgs(n.Args)
			d.emit.EmitOp(bytecode.APPLY)
			return
		}
		d.compileExpr(me.Object)
		d.emit.EmitOp(bytecode.DUP)
		d.emitMemberReadDup(me)
		d.emit.EmitOp(bytecode.SWAP)
		d.compileArgs(n.Args)
		d.emit.EmitOp(bytecode.APPLY)
		return
	}
	if _, isSuper := ast.Unwrap(n.Callee).(*ast.SuperExpr); isSuper {
		d.emitThisLoad()
		d.compileArgs(n.Args)
		d.emit.EmitOp(bytecode.CALL_CONSTRUCTOR)
		// A derived constructor's private-method/field-initialization
		// prelude cannot run until `this` exists, which happens only once
		// super() returns (spec §4.6); fire it here, once, right after the
		// first bare super(...) call this driver compiles.
		if d.classFieldInit != nil {
			d.classFieldInit()
			d.classFieldInit = nil
		}
		return
	}
	d.compileExpr(n.Callee)
	d.emit.EmitOp(bytecode.UNDEFINED) // this-value for a plain function call
	d.compileArgs(n.Args)
	d.emit.EmitOp(bytecode.APPLY)
}

// compileArgs pushes the call arguments as a single array, which APPLY or
// CALL_CONSTRUCTOR then consumes. Without a spread the arguments are
// pushed and collected with ARRAY_FROM n; a spread anywhere in the list
// switches to ARRAY_NEW followed by APPEND (spread) or PUSH_ARRAY (plain
// argument) per entry. No fixed-arity CALL is ever emitted (spec §4.4).
func (d *driver) compileArgs(args []ast.Expr) {
	hasSpread := false
	for _, a := range args {
		if _, ok := a.(*ast.SpreadElement); ok {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		for _, a := range args {
			d.compileExpr(a)
		}
		d.emit.EmitU32(bytecode.ARRAY_FROM, uint32(len(args)))
		return
	}
	d.emit.EmitOp(bytecode.ARRAY_NEW)
	for _, a := range args {
		if sp, ok := a.(*ast.SpreadElement); ok {
			d.compileExpr(sp.Arg)
			d.emit.EmitOp(bytecode.APPEND)
		} else {
			d.compileExpr(a)
			d.emit.EmitOp(bytecode.PUSH_ARRAY)
		}
	}
}

func (d *driver) compileNewExpr(n *ast.NewExpr) {
	d.compileExpr(n.Callee)
	d.compileArgs(n.Args)
	d.emit.EmitOp(bytecode.CALL_CONSTRUCTOR)
}

func (d *driver) compileMemberRead(n *ast.MemberExpr) {
	if _, isSuper := n.Object.(*ast.SuperExpr); isSuper {
		d.emitSuperPropertyRef(n)
		return
	}
	d.compileExpr(n.Object)
	d.emitMemberReadDup(n)
}

func (d *driver) emitMemberReadDup(n *ast.MemberExpr) {
	if n.Private {
		d.emit.EmitWithAtom(bytecode.GET_PRIVATE_FIELD, n.Property.(*ast.PrivateIdentifier).Name)
		return
	}
	if n.Computed {
		d.compileExpr(n.Property)
		d.emit.EmitOp(bytecode.TO_PROPKEY)
		d.emit.EmitOp(bytecode.GET_ARRAY_EL)
		return
	}
	d.emit.EmitWithAtom(bytecode.GET_FIELD, propKeyName(n.Property))
}

// emitSuperPropertyRef reads a property of the [[HomeObject]].prototype
// chain rather than of `this` directly (spec §4.5/§4.6 super property
// access). SPECIAL_OBJECT(home) is resolved dynamically by the VM against
// the currently executing method's frame, walking up through any
// intervening arrow frames exactly like `arguments` does, so an arrow
// nested inside a method can still use `super` without the compiler
// threading a capture for it.
func (d *driver) emitSuperPropertyRef(n *ast.MemberExpr) {
	if !d.inMethodHome() {
		d.errorf(n.Start, SyntaxError, "'super' used outside of a method")
		d.emit.EmitOp(bytecode.UNDEFINED)
		return
	}
	d.emit.EmitU32(bytecode.SPECIAL_OBJECT, uint32(bytecode.SpecialObjectHome))
	if n.Computed {
		d.compileExpr(n.Property)
		d.emit.EmitOp(bytecode.TO_PROPKEY)
		d.emit.EmitOp(bytecode.GET_ARRAY_EL)
	} else {
		d.emit.EmitWithAtom(bytecode.GET_FIELD, propKeyName(n.Property))
	}
}

func (d *driver) compileTemplateLiteral(n *ast.TemplateLiteral) {
	first := true
	for i, q := range n.Quasis {
		cooked := ""
		if q.Cooked != nil {
			cooked = *q.Cooked
		} else {
			d.errorf(n.Start, SyntaxError, "invalid escape sequence in template literal")
		}
		if first {
			d.emit.EmitWithConstant(bytecode.PUSH_CONST, cooked)
			first = false
		} else if cooked != "" {
			d.emit.EmitWithConstant(bytecode.PUSH_CONST, cooked)
			d.emit.EmitOp(bytecode.ADD)
		}
		if i < len(n.Exprs) {
			d.compileExpr(n.Exprs[i])
			d.emit.EmitOp(bytecode.ADD)
		}
	}
}

// compileTaggedTemplate builds one frozen template object per call site,
// cached as a single constant-pool entry so repeated evaluations of the
// same tagged-template expression (e.g. inside a loop) observe the exact
// same object identity (spec §4.4).
func (d *driver) compileTaggedTemplate(n *ast.TaggedTemplateExpr) {
	tmpl := &bytecode.TemplateObject{}
	for _, q := range n.Quasi.Quasis {
		tmpl.Cooked = append(tmpl.Cooked, q.Cooked)
		tmpl.Raw = append(tmpl.Raw, q.Raw)
	}
	if me, ok := ast.Unwrap(n.Tag).(*ast.MemberExpr); ok {
		d.compileExpr(me.Object)
		d.emit.EmitOp(bytecode.DUP)
		d.emitMemberReadDup(me)
		d.emit.EmitOp(bytecode.SWAP)
	} else {
		d.compileExpr(n.Tag)
		d.emit.EmitOp(bytecode.UNDEFINED)
	}
	d.emit.EmitWithConstant(bytecode.PUSH_CONST, tmpl)
	for _, ex := range n.Quasi.Exprs {
		d.compileExpr(ex)
	}
	d.emit.EmitU32(bytecode.ARRAY_FROM, uint32(len(n.Quasi.Exprs)+1))
	d.emit.EmitOp(bytecode.APPLY)
}

func (d *driver) compileYieldExpr(n *ast.YieldExpr) {
	if n.Arg != nil {
		d.compileExpr(n.Arg)
	} else {
		d.emit.EmitOp(bytecode.UNDEFINED)
	}
	if n.Delegate {
		if d.isAsync {
			d.emit.EmitOp(bytecode.ASYNC_YIELD_STAR)
		} else {
			d.emit.EmitOp(bytecode.YIELD_STAR)
		}
		return
	}
	d.emit.EmitOp(bytecode.YIELD)
}
