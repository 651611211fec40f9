package bytecode

import "github.com/mna/ecmac/lang/token"

// SpecialObjectKind selects which VM-synthesized object SPECIAL_OBJECT
// pushes (spec §4.4, §4.5). The VM resolves these dynamically against
// the current call frame, walking up through arrow frames to the
// nearest non-arrow frame the way `this` does, so the compiler never
// needs to thread them through the capture chain itself.
type SpecialObjectKind uint8

const (
	// SpecialObjectArguments pushes the current (or, from inside an
	// arrow, the nearest enclosing non-arrow function's) arguments object.
	SpecialObjectArguments SpecialObjectKind = iota
	// SpecialObjectHome pushes the [[HomeObject]] of the currently
	// executing method, used to resolve `super` property lookups.
	SpecialObjectHome
)

// CaptureKind tags how a captured binding is sourced from the enclosing
// function (spec §3 Capture binding).
type CaptureKind int

const (
	// CaptureLocal sources the capture directly from a local slot of the
	// immediately enclosing function.
	CaptureLocal CaptureKind = iota
	// CaptureVarRef sources the capture from a slot in the enclosing
	// function's own closure array (a further-out capture, chained).
	CaptureVarRef
)

// MethodKind tags how DEFINE_METHOD/DEFINE_METHOD_COMPUTED should install
// a method value onto its target object (spec §4.6): as an ordinary data
// method, or as one half of an accessor pair.
type MethodKind uint8

const (
	MethodNormal MethodKind = iota
	MethodGetter
	MethodSetter
)

// Capture is one entry of a Funcode's closure metadata.
type Capture struct {
	Kind CaptureKind
	Slot int // parent local slot (CaptureLocal) or parent closure slot (CaptureVarRef); -1 for the self-reference entry (SelfCaptureIdx)
	Name string
}

// LocalName associates a local slot with its source name, for debugging,
// `arguments` support, and reflection. Scratch locals (whose name starts
// with '$') are omitted from this table.
type LocalName struct {
	Slot int
	Name string
}

// Funcode is the compiled artifact of one function, method, arrow,
// static block, field initializer, or program body (spec §3 Bytecode
// artifact).
type Funcode struct {
	Name string
	Pos  token.Position

	Code []byte // instruction stream

	Constants []interface{} // string | float64 (number) | *big.Int-as-string | *Funcode | *RegExpDescriptor | *TemplateObject
	Atoms     []string      // interned identifier strings

	LocalCount int // peak concurrent local slot usage
	LocalNames []LocalName

	Captures        []Capture
	SelfCaptureIdx  int // index into Captures pointing at this function's own name, or -1

	Strict          bool
	IsArrow         bool
	IsAsync         bool
	IsGenerator     bool
	IsConstructor   bool
	DeclaredArgs    int // ES Function.length: params before the first default/rest
	HasRestParam    bool
	NumParams       int

	// MethodKind is MethodNormal for everything except a class/object
	// accessor, in which case DEFINE_METHOD/DEFINE_METHOD_COMPUTED reads it
	// to decide whether to install a data method or half of an accessor
	// pair (spec §4.6).
	MethodKind MethodKind

	// Children holds nested function artifacts reachable from this one's
	// constant pool, purely for convenience traversal (tests, tooling); the
	// authoritative reference is always through Constants.
	Children []*Funcode
}

// Program is the top-level compiled artifact for one compiled source
// unit: its own Funcode plus every transitively reachable child.
type Program struct {
	Filename string
	Toplevel *Funcode
}
