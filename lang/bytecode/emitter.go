package bytecode

import (
	"encoding/binary"

	"github.com/dolthub/swiss"
)

// Emitter appends instructions to a growing byte buffer, interns atoms
// and constants, and resolves forward jumps via patch sites (spec §4.1).
// One Emitter is created per function/program being compiled.
type Emitter struct {
	code []byte

	atoms     []string
	atomIndex *swiss.Map[string, uint32]

	constants     []interface{}
	constantIndex *swiss.Map[interface{}, uint32]
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		atomIndex:     swiss.NewMap[string, uint32](8),
		constantIndex: swiss.NewMap[interface{}, uint32](8),
	}
}

// Offset returns the current end-of-buffer byte offset, i.e. the address
// the next emitted instruction will be placed at.
func (e *Emitter) Offset() uint32 { return uint32(len(e.code)) }

// EmitOp appends a bare opcode with no operand.
func (e *Emitter) EmitOp(op Opcode) {
	e.code = append(e.code, byte(op))
}

// EmitU8 appends op followed by a single byte operand.
func (e *Emitter) EmitU8(op Opcode, v uint8) {
	e.code = append(e.code, byte(op), v)
}

// EmitU16 appends op followed by a little-endian 2-byte operand.
func (e *Emitter) EmitU16(op Opcode, v uint16) {
	e.code = append(e.code, byte(op), byte(v), byte(v>>8))
}

// EmitI32 appends op followed by a little-endian 4-byte signed operand.
func (e *Emitter) EmitI32(op Opcode, v int32) {
	e.EmitU32(op, uint32(v))
}

// EmitU32 appends op followed by a little-endian 4-byte unsigned operand.
func (e *Emitter) EmitU32(op Opcode, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	e.code = append(e.code, byte(op))
	e.code = append(e.code, buf[:]...)
}

// internAtom interns name in the atom table, returning its stable index.
func (e *Emitter) internAtom(name string) uint32 {
	if idx, ok := e.atomIndex.Get(name); ok {
		return idx
	}
	idx := uint32(len(e.atoms))
	e.atoms = append(e.atoms, name)
	e.atomIndex.Put(name, idx)
	return idx
}

// EmitWithAtom looks up or interns name and emits op with its atom index.
func (e *Emitter) EmitWithAtom(op Opcode, name string) {
	e.EmitU32(op, e.internAtom(name))
}

// internConstant appends value to the constant pool if not already
// present, returning its stable index. Constant identity (not deep
// equality) matters for non-comparable values such as *Funcode or a
// template object; those are always appended fresh and never looked up
// in constantIndex, since two syntactically-equal nested functions are
// still distinct artifacts.
func (e *Emitter) internConstant(value interface{}) uint32 {
	switch value.(type) {
	case *Funcode, *TemplateObject, *RegExpDescriptor:
		idx := uint32(len(e.constants))
		e.constants = append(e.constants, value)
		return idx
	}
	if idx, ok := e.constantIndex.Get(value); ok {
		return idx
	}
	idx := uint32(len(e.constants))
	e.constants = append(e.constants, value)
	e.constantIndex.Put(value, idx)
	return idx
}

// EmitWithConstant interns value in the constant pool and emits op with
// its index.
func (e *Emitter) EmitWithConstant(op Opcode, value interface{}) uint32 {
	idx := e.internConstant(value)
	e.EmitU32(op, idx)
	return idx
}

// ConstantIndex returns the stable index of value in the constant pool,
// interning it if necessary, without emitting anything. As with
// EmitWithConstant, a *Funcode, *TemplateObject or *RegExpDescriptor
// value gets a new entry on every call.
func (e *Emitter) ConstantIndex(value interface{}) uint32 { return e.internConstant(value) }

// EmitJump appends op with a 4-byte placeholder displacement and returns
// the byte offset of that placeholder (the patch site).
func (e *Emitter) EmitJump(op Opcode) uint32 {
	site := uint32(len(e.code)) + 1
	e.EmitU32(op, 0)
	return site
}

// PatchJump writes target as a signed 32-bit relative displacement at
// site, where the displacement is target - (site + 4) (spec §4.1).
func (e *Emitter) PatchJump(site, target uint32) {
	disp := int32(target) - int32(site+4)
	binary.LittleEndian.PutUint32(e.code[site:site+4], uint32(disp))
}

// TemplateObject is the frozen { cooked, raw } pair built once per
// tagged-template call site (spec §4.4).
type TemplateObject struct {
	Cooked []*string // nil entry = invalid escape
	Raw    []string
}

// RegExpDescriptor is a compiled regex literal stored in the constant
// pool (spec §4.4).
type RegExpDescriptor struct {
	Pattern string
	Flags   string
}

// Build finalizes the Emitter's state into a Funcode. localCount is the
// function's peak concurrent local-slot usage (tracked by the scope
// stack, spec §4.2); localNames lists the user-visible slots.
func (e *Emitter) Build(localCount int, localNames []LocalName) *Funcode {
	fn := &Funcode{
		Code:       e.code,
		Constants:  e.constants,
		Atoms:      e.atoms,
		LocalCount: localCount,
		LocalNames: localNames,
	}
	for _, c := range e.constants {
		if child, ok := c.(*Funcode); ok {
			fn.Children = append(fn.Children, child)
		}
	}
	return fn
}
