package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Insn is one decoded instruction, used by Disassemble and by tests that
// want to assert on a function's instruction stream without hand-parsing
// raw bytes.
type Insn struct {
	Addr uint32
	Op   Opcode
	Arg  uint32 // valid only if HasImmediate(Op)
}

// Decode walks code, a Funcode's instruction stream, and returns every
// instruction in address order. Every opcode is exactly 1 byte, followed
// by a 4-byte little-endian immediate iff HasImmediate(op) (spec §6).
func Decode(code []byte) ([]Insn, error) {
	var out []Insn
	addr := uint32(0)
	for int(addr) < len(code) {
		op := Opcode(code[addr])
		insn := Insn{Addr: addr, Op: op}
		addr++
		if HasImmediate(op) {
			if int(addr)+4 > len(code) {
				return out, fmt.Errorf("truncated immediate for %s at %d", op, insn.Addr)
			}
			insn.Arg = binary.LittleEndian.Uint32(code[addr : addr+4])
			addr += 4
		}
		out = append(out, insn)
	}
	return out, nil
}

// Disassemble renders fn as human-readable assembly text, grounded on the
// teacher's Dasm (lang/compiler/asm.go), adapted to this opcode set's
// fixed-width encoding.
func Disassemble(fn *Funcode) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "function %s locals=%d params=%d\n", fn.Name, fn.LocalCount, fn.NumParams)
	if len(fn.Atoms) > 0 {
		fmt.Fprintf(&buf, "\tatoms:\n")
		for i, a := range fn.Atoms {
			fmt.Fprintf(&buf, "\t\t%03d %s\n", i, a)
		}
	}
	if len(fn.Constants) > 0 {
		fmt.Fprintf(&buf, "\tconstants:\n")
		for i, c := range fn.Constants {
			switch v := c.(type) {
			case *Funcode:
				fmt.Fprintf(&buf, "\t\t%03d <function %s>\n", i, v.Name)
			default:
				fmt.Fprintf(&buf, "\t\t%03d %v\n", i, c)
			}
		}
	}
	insns, err := Decode(fn.Code)
	if err != nil {
		return buf.String(), err
	}
	fmt.Fprintf(&buf, "\tcode:\n")
	for _, insn := range insns {
		if HasImmediate(insn.Op) {
			if IsJump(insn.Op) {
				target := int64(insn.Addr) + 5 + int64(int32(insn.Arg))
				fmt.Fprintf(&buf, "\t\t%04d %s -> %d\n", insn.Addr, insn.Op, target)
			} else {
				fmt.Fprintf(&buf, "\t\t%04d %s %d\n", insn.Addr, insn.Op, insn.Arg)
			}
		} else {
			fmt.Fprintf(&buf, "\t\t%04d %s\n", insn.Addr, insn.Op)
		}
	}
	return buf.String(), nil
}
