package compiler

import "github.com/mna/ecmac/lang/bytecode"

func localNameOf(slot int, name string) bytecode.LocalName {
	return bytecode.LocalName{Slot: slot, Name: name}
}

// scope is one lexical block's local-slot allocation frame (spec §3, §4.2),
// grounded on the teacher's resolver block/bindings model but driven live
// during lowering instead of in a separate resolve pass.
//
// Slots are shared across sibling scopes: a child scope's next counter
// starts wherever its parent's stood when the child was entered, and on
// exit the parent's counter is left untouched (only the function-wide
// maxLocal records the child's peak). That is what lets two
// non-overlapping `{ let a }` blocks reuse the same physical slot.
type scope struct {
	parent *scope

	locals map[string]int
	order  []string // declaration order, for LocalNames

	next int // next free slot at this level

	// usingSlot holds the local slot backing this scope's using-stack, or
	// -1 if the scope has declared no `using`/`await using` binding.
	usingSlot  int
	usingSync  bool // true once any sync using binding has been pushed
	usingAsync bool // true once any await-using binding has been pushed
}

func newScope(parent *scope) *scope {
	next := 0
	if parent != nil {
		next = parent.next
	}
	return &scope{
		parent:    parent,
		locals:    make(map[string]int),
		next:      next,
		usingSlot: -1,
	}
}

func (s *scope) declare(name string) (slot int, fresh bool) {
	if slot, ok := s.locals[name]; ok {
		return slot, false
	}
	slot = s.next
	s.next++
	s.locals[name] = slot
	s.order = append(s.order, name)
	return slot, true
}

func (s *scope) find(name string) (slot int, ok bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.locals[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// enterScope pushes a fresh scope onto d's scope stack.
func (d *driver) enterScope() *scope {
	var parent *scope
	if len(d.scopes) > 0 {
		parent = d.scopes[len(d.scopes)-1]
	}
	s := newScope(parent)
	d.scopes = append(d.scopes, s)
	return s
}

// exitScope pops the innermost scope, recording its peak slot usage
// against the function's overall LocalCount, and folding its LocalNames
// into d.localNames. The parent scope's own next-slot counter is left
// untouched: s's bindings are now dead, so a sibling block entered after
// s exits starts back at the same slot s did, reusing it rather than
// growing past it.
func (d *driver) exitScope() {
	s := d.scopes[len(d.scopes)-1]
	d.scopes = d.scopes[:len(d.scopes)-1]

	if s.next > d.maxLocal {
		d.maxLocal = s.next
	}
	for _, name := range s.order {
		if len(name) == 0 || name[0] == '$' {
			continue // scratch local, not user-visible
		}
		d.localNames = append(d.localNames, localNameOf(s.locals[name], name))
	}
}

func (d *driver) curScope() *scope { return d.scopes[len(d.scopes)-1] }

// declareLocal allocates (or reuses) a slot for name in the current scope.
func (d *driver) declareLocal(name string) int {
	slot, _ := d.curScope().declare(name)
	if slot+1 > d.maxLocal {
		d.maxLocal = slot + 1
	}
	return slot
}

// declareScratch allocates a uniquely-named compiler-internal local that
// will never collide with a user binding and is excluded from LocalNames.
func (d *driver) declareScratch() int {
	d.scratchCount++
	name := "$" + itoa(d.scratchCount)
	return d.declareLocal(name)
}

// findLocal searches only the current function's scope chain (never
// crossing into an enclosing function); that boundary is what makes
// capture resolution necessary at all.
func (d *driver) findLocal(name string) (int, bool) {
	if len(d.scopes) == 0 {
		return 0, false
	}
	return d.curScope().find(name)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
