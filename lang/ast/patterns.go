package ast

import "github.com/mna/ecmac/lang/token"

// ArrayPattern is a `[a, , ...rest]` destructuring target. Elements may
// contain nil entries for elisions (holes); Rest, if non-nil, is always
// the conceptual last element.
type ArrayPattern struct {
	Elements []Pattern // may contain nil for holes
	Rest     Pattern   // nil if no rest element
	Start    token.Pos
	End      token.Pos
}

func (n *ArrayPattern) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *ArrayPattern) Walk(v Visitor) {
	for _, e := range n.Elements {
		if e != nil {
			Walk(v, e)
		}
	}
	if n.Rest != nil {
		Walk(v, n.Rest)
	}
}
func (n *ArrayPattern) patternNode() {}

// ArrayPattern also satisfies Expr: the parser produces the same node
// for `[a, b]` whether it turns out to be an array literal or a
// destructuring-assignment target, disambiguated by context (spec §4.7).
func (n *ArrayPattern) exprNode() {}

// ObjectPatternProp is one `key: value` (or shorthand `key`) entry of an
// ObjectPattern.
type ObjectPatternProp struct {
	Key      Expr // Identifier for a plain name, any Expr if Computed
	Computed bool
	Value    Pattern // target, may itself carry a default via AssignmentPattern
	Shorthand bool
}

// ObjectPattern is a `{a, b: c, ...rest}` destructuring target.
type ObjectPattern struct {
	Props []*ObjectPatternProp
	Rest  Pattern // nil if no rest element; only an Identifier is legal here
	Start token.Pos
	End   token.Pos
}

func (n *ObjectPattern) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *ObjectPattern) Walk(v Visitor) {
	for _, p := range n.Props {
		Walk(v, p.Key)
		Walk(v, p.Value)
	}
	if n.Rest != nil {
		Walk(v, n.Rest)
	}
}
func (n *ObjectPattern) patternNode() {}

// ObjectPattern also satisfies Expr, for the same reason as ArrayPattern.
func (n *ObjectPattern) exprNode() {}

// AssignmentPattern wraps a pattern with a default value, e.g. the `= 1`
// in `function f(x = 1)` or `const {a = 1} = o`.
type AssignmentPattern struct {
	Left  Pattern
	Right Expr
}

func (n *AssignmentPattern) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *AssignmentPattern) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *AssignmentPattern) patternNode() {}

// RestElement is the `...rest` tail of an array pattern, object pattern,
// or parameter list.
type RestElement struct {
	Arg   Pattern
	Start token.Pos
}

func (n *RestElement) Span() (start, end token.Pos) {
	_, end = n.Arg.Span()
	return n.Start, end
}
func (n *RestElement) Walk(v Visitor) { Walk(v, n.Arg) }
func (n *RestElement) patternNode()   {}

// MemberExpr (declared fully in exprs.go) also implements Pattern, since
// `obj.prop = ...` and `[a.b] = arr` are valid assignment (not
// declaration) targets; see IsAssignable.

// IsAssignable reports whether e is a valid simple assignment target
// (identifier or member expression, recursively through parens).
func IsAssignable(e Expr) bool {
	switch Unwrap(e).(type) {
	case *Identifier:
		return true
	case *MemberExpr:
		return true
	default:
		return false
	}
}

// Unwrap strips any enclosing ParenExpr.
func Unwrap(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}
