package compiler

import "github.com/mna/ecmac/lang/bytecode"

// captureResolver walks the enclosing-function chain to resolve a free
// name into a capture binding, grounded on the teacher's resolver `use`
// free-variable algorithm but adapted to this project's closure model
// (spec §3, §4.2): a capture is sourced either directly from a parent's
// local slot (CaptureLocal) or from a slot in the parent's own closure
// array (CaptureVarRef), chaining outward one function at a time so that
// a deeply-nested reference registers one capture entry per intervening
// function, not per access.
type captureResolver struct {
	owner  *driver
	parent *captureResolver // nil for the program's top-level function

	captured map[string]int // name -> slot already registered on owner.fn
	order    []string
}

func newCaptureResolver(owner *driver, parent *captureResolver) *captureResolver {
	return &captureResolver{
		owner:    owner,
		parent:   parent,
		captured: make(map[string]int),
	}
}

// resolve returns the capture slot for name on owner's closure, creating
// and registering capture entries up the chain as needed. ok is false if
// name is not bound in any enclosing function (it resolves as a global).
func (cr *captureResolver) resolve(name string) (slot int, ok bool) {
	if slot, ok := cr.captured[name]; ok {
		return slot, true
	}
	if cr.parent == nil {
		return 0, false
	}

	var cap bytecode.Capture
	if pslot, pok := cr.parent.owner.findLocal(name); pok {
		cap = bytecode.Capture{Kind: bytecode.CaptureLocal, Slot: pslot, Name: name}
	} else if pslot, pok := cr.parent.captured[name]; pok {
		cap = bytecode.Capture{Kind: bytecode.CaptureVarRef, Slot: pslot, Name: name}
	} else if pslot, pok := cr.parent.resolve(name); pok {
		cap = bytecode.Capture{Kind: bytecode.CaptureVarRef, Slot: pslot, Name: name}
	} else {
		return 0, false
	}

	slot = len(cr.order)
	cr.order = append(cr.order, name)
	cr.captured[name] = slot
	cr.owner.fnCaptures = append(cr.owner.fnCaptures, cap)
	return slot, true
}
