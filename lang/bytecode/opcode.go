// Package bytecode defines the wire-level contract between this compiler
// and its companion virtual machine (spec §6): the Opcode set, the
// Funcode/Program artifact, the append-only Emitter that builds them, and
// an instruction decoder/disassembler (Decode, Disassemble) used as a
// VM-independent test harness, grounded on the teacher's
// lang/compiler/{opcode,compiled,asm}.go.
package bytecode

import "fmt"

// Opcode is a single VM instruction. Whether it carries a trailing 4-byte
// little-endian immediate is determined per-opcode by HasImmediate, not
// by its position in this list (spec §6).
type Opcode uint8

const ( //nolint:revive
	NOP Opcode = iota

	// stack shuffling
	DUP
	DUP2
	DROP
	SWAP
	SWAP2
	NIP
	NIP_CATCH
	ROT3L
	ROT3R

	// constants and simple pushes
	PUSH_I32 // immediate i32

	PUSH_BIGINT_I32
	PUSH_CONST
	PUSH_ATOM_VALUE
	PUSH_TRUE
	PUSH_FALSE
	NULL
	UNDEFINED
	PUSH_THIS
	SPECIAL_OBJECT

	// control flow
	GOTO
	IF_TRUE
	IF_FALSE
	CATCH
	THROW
	RETURN
	RETURN_ASYNC

	// calls
	CALL
	CALL_CONSTRUCTOR
	APPLY
	FCLOSURE

	// parameters and locals
	REST
	GET_ARG
	PUT_ARG
	GET_LOCAL
	PUT_LOCAL
	SET_LOCAL

	// variables (globals / unresolved names)
	GET_VAR
	PUT_VAR
	SET_VAR
	DELETE_VAR

	// closure (captured) variables
	GET_VAR_REF
	PUT_VAR_REF
	SET_VAR_REF

	// property/element access
	GET_FIELD
	PUT_FIELD
	GET_ARRAY_EL
	PUT_ARRAY_EL
	DEFINE_PROP          // non-computed: key is an atom immediate
	DEFINE_PROP_COMPUTED // computed: key already on the stack (after TO_PROPKEY)
	DEFINE_METHOD
	DEFINE_METHOD_COMPUTED
	DEFINE_CLASS
	DEFINE_PRIVATE_FIELD
	GET_PRIVATE_FIELD
	PUT_PRIVATE_FIELD
	PRIVATE_IN

	// arrays
	ARRAY_NEW
	ARRAY_FROM
	PUSH_ARRAY
	DEFINE_ARRAY_EL
	APPEND

	// objects
	OBJECT_NEW

	// inc/dec
	INC
	DEC
	POST_INC
	POST_DEC

	// unary
	PLUS
	NEG
	NOT
	LOGICAL_NOT
	IS_UNDEFINED_OR_NULL
	TYPEOF
	TO_PROPKEY
	DELETE

	// binary arithmetic/bitwise
	ADD
	SUB
	MUL
	DIV
	MOD
	EXP
	SHL
	SAR
	SHR
	AND
	OR
	XOR

	// comparisons
	EQ
	NEQ
	STRICT_EQ
	STRICT_NEQ
	LT
	LTE
	GT
	GTE

	// logical (rarely emitted directly; short-circuiting is built from
	// IF_TRUE/IF_FALSE, kept for completeness of the contract)
	LOGICAL_AND
	LOGICAL_OR
	NULLISH_COALESCE

	IN
	INSTANCEOF

	// iteration
	FOR_IN_START
	FOR_IN_NEXT
	FOR_IN_END
	FOR_OF_START
	FOR_OF_NEXT
	FOR_AWAIT_OF_START
	FOR_AWAIT_OF_NEXT
	ITERATOR_CLOSE

	// generators/async
	INITIAL_YIELD
	YIELD
	YIELD_STAR
	ASYNC_YIELD_STAR
	AWAIT

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	NOP:                    "nop",
	DUP:                    "dup",
	DUP2:                   "dup2",
	DROP:                   "drop",
	SWAP:                   "swap",
	SWAP2:                  "swap2",
	NIP:                    "nip",
	NIP_CATCH:              "nip_catch",
	ROT3L:                  "rot3l",
	ROT3R:                  "rot3r",
	PUSH_I32:               "push_i32",
	PUSH_BIGINT_I32:        "push_bigint_i32",
	PUSH_CONST:             "push_const",
	PUSH_ATOM_VALUE:        "push_atom_value",
	PUSH_TRUE:              "push_true",
	PUSH_FALSE:             "push_false",
	NULL:                   "null",
	UNDEFINED:              "undefined",
	PUSH_THIS:              "push_this",
	SPECIAL_OBJECT:         "special_object",
	GOTO:                   "goto",
	IF_TRUE:                "if_true",
	IF_FALSE:               "if_false",
	CATCH:                  "catch",
	THROW:                  "throw",
	RETURN:                 "return",
	RETURN_ASYNC:           "return_async",
	CALL:                   "call",
	CALL_CONSTRUCTOR:       "call_constructor",
	APPLY:                  "apply",
	FCLOSURE:               "fclosure",
	REST:                   "rest",
	GET_ARG:                "get_arg",
	PUT_ARG:                "put_arg",
	GET_LOCAL:              "get_local",
	PUT_LOCAL:              "put_local",
	SET_LOCAL:              "set_local",
	GET_VAR:                "get_var",
	PUT_VAR:                "put_var",
	SET_VAR:                "set_var",
	DELETE_VAR:             "delete_var",
	GET_VAR_REF:            "get_var_ref",
	PUT_VAR_REF:            "put_var_ref",
	SET_VAR_REF:            "set_var_ref",
	GET_FIELD:              "get_field",
	PUT_FIELD:              "put_field",
	GET_ARRAY_EL:           "get_array_el",
	PUT_ARRAY_EL:           "put_array_el",
	DEFINE_PROP:            "define_prop",
	DEFINE_PROP_COMPUTED:   "define_prop_computed",
	DEFINE_METHOD:          "define_method",
	DEFINE_METHOD_COMPUTED: "define_method_computed",
	DEFINE_CLASS:           "define_class",
	DEFINE_PRIVATE_FIELD:   "define_private_field",
	GET_PRIVATE_FIELD:      "get_private_field",
	PUT_PRIVATE_FIELD:      "put_private_field",
	PRIVATE_IN:             "private_in",
	ARRAY_NEW:              "array_new",
	ARRAY_FROM:             "array_from",
	PUSH_ARRAY:             "push_array",
	DEFINE_ARRAY_EL:        "define_array_el",
	APPEND:                 "append",
	OBJECT_NEW:             "object_new",
	INC:                    "inc",
	DEC:                    "dec",
	POST_INC:               "post_inc",
	POST_DEC:               "post_dec",
	PLUS:                   "plus",
	NEG:                    "neg",
	NOT:                    "not",
	LOGICAL_NOT:            "logical_not",
	IS_UNDEFINED_OR_NULL:   "is_undefined_or_null",
	TYPEOF:                 "typeof",
	TO_PROPKEY:             "to_propkey",
	DELETE:                 "delete",
	ADD:                    "add",
	SUB:                    "sub",
	MUL:                    "mul",
	DIV:                    "div",
	MOD:                    "mod",
	EXP:                    "exp",
	SHL:                    "shl",
	SAR:                    "sar",
	SHR:                    "shr",
	AND:                    "and",
	OR:                     "or",
	XOR:                    "xor",
	EQ:                     "eq",
	NEQ:                    "neq",
	STRICT_EQ:              "strict_eq",
	STRICT_NEQ:             "strict_neq",
	LT:                     "lt",
	LTE:                    "lte",
	GT:                     "gt",
	GTE:                    "gte",
	LOGICAL_AND:            "logical_and",
	LOGICAL_OR:             "logical_or",
	NULLISH_COALESCE:       "nullish_coalesce",
	IN:                     "in",
	INSTANCEOF:             "instanceof",
	FOR_IN_START:           "for_in_start",
	FOR_IN_NEXT:            "for_in_next",
	FOR_IN_END:             "for_in_end",
	FOR_OF_START:           "for_of_start",
	FOR_OF_NEXT:            "for_of_next",
	FOR_AWAIT_OF_START:     "for_await_of_start",
	FOR_AWAIT_OF_NEXT:      "for_await_of_next",
	ITERATOR_CLOSE:         "iterator_close",
	INITIAL_YIELD:          "initial_yield",
	YIELD:                  "yield",
	YIELD_STAR:             "yield_star",
	ASYNC_YIELD_STAR:       "async_yield_star",
	AWAIT:                  "await",
}

var reverseOpcodeNames = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// LookupOpcode resolves an opcode by its lowercase textual name (the
// inverse of Opcode.String).
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := reverseOpcodeNames[name]
	return op, ok
}

// opsWithImmediate is the set of opcodes that carry a trailing 4-byte
// immediate operand (spec §6); every other opcode is exactly one byte.
// This is an explicit membership list, not a range test, since an
// opcode's operand shape is a property of what it does (push a
// constant/atom index, a jump displacement, a slot number, an element
// count) and not of where it happens to sit in the enum.
var opsWithImmediate = map[Opcode]bool{
	PUSH_I32: true, PUSH_BIGINT_I32: true, PUSH_CONST: true, PUSH_ATOM_VALUE: true,
	SPECIAL_OBJECT: true,

	GOTO: true, IF_TRUE: true, IF_FALSE: true, CATCH: true,

	CALL: true, FCLOSURE: true,

	REST: true, GET_ARG: true, PUT_ARG: true,
	GET_LOCAL: true, PUT_LOCAL: true, SET_LOCAL: true,

	GET_VAR: true, PUT_VAR: true, SET_VAR: true, DELETE_VAR: true,
	GET_VAR_REF: true, PUT_VAR_REF: true, SET_VAR_REF: true,

	GET_FIELD: true, PUT_FIELD: true,
	DEFINE_PROP: true, DEFINE_METHOD: true, DEFINE_CLASS: true,
	DEFINE_PRIVATE_FIELD: true, GET_PRIVATE_FIELD: true, PUT_PRIVATE_FIELD: true,
	PRIVATE_IN: true,

	DEFINE_ARRAY_EL: true, ARRAY_FROM: true,
}

// HasImmediate reports whether op is encoded with a trailing 4-byte
// immediate operand.
func HasImmediate(op Opcode) bool { return opsWithImmediate[op] }

// jumpOpcodes is the set of opcodes whose immediate is a signed 32-bit
// relative displacement from the byte following the immediate, rather
// than a plain index/count (spec §4.1, §6).
var jumpOpcodes = map[Opcode]bool{
	GOTO: true, IF_TRUE: true, IF_FALSE: true, CATCH: true,
}

// IsJump reports whether op's immediate is a relative jump displacement.
func IsJump(op Opcode) bool { return jumpOpcodes[op] }
