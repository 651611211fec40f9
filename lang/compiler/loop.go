package compiler

import "github.com/mna/ecmac/lang/bytecode"

// loopCtx is one entry of a function's loop/label stack (spec §3, §4.3),
// grounded on the teacher's fcomp.loops / loop{break_,continue_} model.
// Break and continue don't jump directly: they record a patch site here
// and the enclosing statement patches every site once it knows its own
// exit/head offsets.
type loopCtx struct {
	label string // "" for an unlabeled loop/switch

	// isLoop is false for a labeled non-loop statement, which break can
	// target but continue cannot.
	isLoop bool

	// hasIterator is true for for-of/for-await-of, whose abrupt exit must
	// close the live iterator before unwinding further.
	hasIterator bool

	// scopeDepth is len(d.scopes) as observed when this context was
	// pushed, i.e. the scope depth a break must unwind back down to.
	scopeDepth int
	// continueScopeDepth is the scope depth a continue unwinds back down
	// to. pushLoop sets it equal to scopeDepth and no loop changes it; a
	// `for` loop's own scope is entered before pushLoop, so it lies below
	// that depth and survives a continue.
	continueScopeDepth int

	breakSites    []uint32
	continueSites []uint32

	// continueTarget and haveContinueTarget are not set or read anywhere:
	// each loop passes its continue target to finishLoop, which patches
	// continueSites directly.
	continueTarget uint32
	haveContinueTarget bool
}

func (d *driver) pushLoop(label string, isLoop, hasIterator bool) *loopCtx {
	lc := &loopCtx{
		label:              label,
		isLoop:             isLoop,
		hasIterator:        hasIterator,
		scopeDepth:         len(d.scopes),
		continueScopeDepth: len(d.scopes),
	}
	d.loops = append(d.loops, lc)
	return lc
}

func (d *driver) popLoop() *loopCtx {
	lc := d.loops[len(d.loops)-1]
	d.loops = d.loops[:len(d.loops)-1]
	return lc
}

// findLoop resolves a break/continue target: with a label, the nearest
// loopCtx (walking outward) carrying that label; without one, the
// innermost loopCtx regardless of label. continueOK restricts the search
// to loop statements (continue cannot target a labeled non-loop).
func (d *driver) findLoop(label string, continueOK bool) (idx int, ok bool) {
	for i := len(d.loops) - 1; i >= 0; i-- {
		lc := d.loops[i]
		if continueOK && !lc.isLoop {
			continue
		}
		if label == "" {
			if !continueOK || lc.isLoop {
				return i, true
			}
			continue
		}
		if lc.label == label {
			return i, true
		}
	}
	return 0, false
}

// emitUnwind emits scope disposal (using-stack teardown) and iterator
// closes needed to jump from the current position out to the loopCtx at
// targetIdx, per spec §4.3/§4.8: using-disposal for every scope between
// the current one and toScopeDepth, then ITERATOR_CLOSE for every
// for-of/for-await-of context crossed. includeTarget controls whether the
// target loop's own iterator (if any) is also closed — true for break
// (which leaves the loop entirely), false for continue (which re-enters
// it).
func (d *driver) emitUnwind(targetIdx int, toScopeDepth int, includeTarget bool) {
	for i := len(d.scopes) - 1; i >= toScopeDepth; i-- {
		d.emitScopeDisposal(d.scopes[i])
	}
	first := targetIdx
	if !includeTarget {
		first = targetIdx + 1
	}
	for i := len(d.loops) - 1; i >= first; i-- {
		if d.loops[i].hasIterator {
			d.emit.EmitOp(bytecode.ITERATOR_CLOSE)
		}
	}
}
