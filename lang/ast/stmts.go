package ast

import "github.com/mna/ecmac/lang/token"

// DeclKind enumerates the kinds of variable declarations, including the
// two resource-management forms added by `using`/`await using` (spec
// §4.8).
type DeclKind int

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
	DeclUsing
	DeclAwaitUsing
)

// VariableDeclarator is one `id = init` entry of a VariableDeclaration.
type VariableDeclarator struct {
	ID   Pattern
	Init Expr // may be nil, except for const/using/await-using
}

// VariableDeclaration is a var/let/const/using/await-using declaration,
// either as its own statement or as the Init clause of a for statement.
type VariableDeclaration struct {
	Kind        DeclKind
	Declarators []*VariableDeclarator
	Start       token.Pos
	End         token.Pos
}

func (n *VariableDeclaration) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *VariableDeclaration) Walk(v Visitor) {
	for _, d := range n.Declarators {
		Walk(v, d.ID)
		if d.Init != nil {
			Walk(v, d.Init)
		}
	}
}
func (n *VariableDeclaration) stmtNode() {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	Expr  Expr
	Start token.Pos
	End   token.Pos
}

func (n *ExprStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *ExprStmt) Walk(v Visitor)               { Walk(v, n.Expr) }
func (n *ExprStmt) stmtNode()                    {}

// EmptyStmt is a bare `;`.
type EmptyStmt struct{ Start token.Pos }

func (n *EmptyStmt) Span() (start, end token.Pos) { return n.Start, n.Start + 1 }
func (n *EmptyStmt) Walk(v Visitor)               {}
func (n *EmptyStmt) stmtNode()                    {}

// IfStmt is an if/else statement.
type IfStmt struct {
	Test  Expr
	Cons  Stmt
	Alt   Stmt // nil if no else
	Start token.Pos
}

func (n *IfStmt) Span() (start, end token.Pos) {
	if n.Alt != nil {
		_, end = n.Alt.Span()
	} else {
		_, end = n.Cons.Span()
	}
	return n.Start, end
}
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Test)
	Walk(v, n.Cons)
	if n.Alt != nil {
		Walk(v, n.Alt)
	}
}
func (n *IfStmt) stmtNode() {}

// WhileStmt is a while loop.
type WhileStmt struct {
	Test  Expr
	Body  Stmt
	Start token.Pos
}

func (n *WhileStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.Start, end
}
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Test)
	Walk(v, n.Body)
}
func (n *WhileStmt) stmtNode() {}

// DoWhileStmt is a do/while loop.
type DoWhileStmt struct {
	Body  Stmt
	Test  Expr
	Start token.Pos
	End   token.Pos
}

func (n *DoWhileStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *DoWhileStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	Walk(v, n.Test)
}
func (n *DoWhileStmt) stmtNode() {}

// ForStmt is a classic 3-clause for loop. Init may be nil, a
// *VariableDeclaration, or an ExprStmt-like expression (stored directly
// as Expr to avoid an extra wrapper).
type ForStmt struct {
	InitDecl *VariableDeclaration // nil if Init is used instead
	Init     Expr                 // nil if InitDecl is used, or if there is no init clause
	Test     Expr                 // nil if omitted
	Update   Expr                 // nil if omitted
	Body     Stmt
	Start    token.Pos
}

func (n *ForStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.Start, end
}
func (n *ForStmt) Walk(v Visitor) {
	if n.InitDecl != nil {
		Walk(v, n.InitDecl)
	} else if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Test != nil {
		Walk(v, n.Test)
	}
	if n.Update != nil {
		Walk(v, n.Update)
	}
	Walk(v, n.Body)
}
func (n *ForStmt) stmtNode() {}

// ForInStmt is `for (lhs in rhs) body`.
type ForInStmt struct {
	LeftDecl *VariableDeclaration // nil if Left is used instead (assignment-expression LHS)
	Left     Expr                 // identifier or member expression, nil if LeftDecl is used
	Right    Expr
	Body     Stmt
	Start    token.Pos
}

func (n *ForInStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.Start, end
}
func (n *ForInStmt) Walk(v Visitor) {
	if n.LeftDecl != nil {
		Walk(v, n.LeftDecl)
	} else {
		Walk(v, n.Left)
	}
	Walk(v, n.Right)
	Walk(v, n.Body)
}
func (n *ForInStmt) stmtNode() {}

// ForOfStmt is `for [await] (lhs of rhs) body`.
type ForOfStmt struct {
	Await    bool
	LeftDecl *VariableDeclaration
	Left     Expr
	Right    Expr
	Body     Stmt
	Start    token.Pos
}

func (n *ForOfStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.Start, end
}
func (n *ForOfStmt) Walk(v Visitor) {
	if n.LeftDecl != nil {
		Walk(v, n.LeftDecl)
	} else {
		Walk(v, n.Left)
	}
	Walk(v, n.Right)
	Walk(v, n.Body)
}
func (n *ForOfStmt) stmtNode() {}

// SwitchCase is one `case expr:` or `default:` clause.
type SwitchCase struct {
	Test Expr // nil for default
	Body []Stmt
}

// SwitchStmt is a switch statement. All cases share one lexical scope for
// let/const (spec §4.3).
type SwitchStmt struct {
	Disc  Expr
	Cases []*SwitchCase
	Start token.Pos
	End   token.Pos
}

func (n *SwitchStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *SwitchStmt) Walk(v Visitor) {
	Walk(v, n.Disc)
	for _, c := range n.Cases {
		if c.Test != nil {
			Walk(v, c.Test)
		}
		for _, s := range c.Body {
			Walk(v, s)
		}
	}
}
func (n *SwitchStmt) stmtNode() {}

// CatchClause is the `catch (param) { body }` part of a try statement.
type CatchClause struct {
	Param Pattern // nil for a parameter-less catch
	Body  *BlockStmt
}

// TryStmt is a try/catch/finally statement.
type TryStmt struct {
	Block   *BlockStmt
	Catch   *CatchClause // nil if no catch
	Finally *BlockStmt   // nil if no finally
	Start   token.Pos
	End     token.Pos
}

func (n *TryStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *TryStmt) Walk(v Visitor) {
	Walk(v, n.Block)
	if n.Catch != nil {
		if n.Catch.Param != nil {
			Walk(v, n.Catch.Param)
		}
		Walk(v, n.Catch.Body)
	}
	if n.Finally != nil {
		Walk(v, n.Finally)
	}
}
func (n *TryStmt) stmtNode() {}

// ThrowStmt is `throw expr`.
type ThrowStmt struct {
	Arg   Expr
	Start token.Pos
}

func (n *ThrowStmt) Span() (start, end token.Pos) {
	_, end = n.Arg.Span()
	return n.Start, end
}
func (n *ThrowStmt) Walk(v Visitor) { Walk(v, n.Arg) }
func (n *ThrowStmt) stmtNode()      {}

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	Arg   Expr // nil for bare return
	Start token.Pos
	End   token.Pos
}

func (n *ReturnStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Arg != nil {
		Walk(v, n.Arg)
	}
}
func (n *ReturnStmt) stmtNode() {}

// BreakStmt is `break [label]`.
type BreakStmt struct {
	Label *Identifier // nil for unlabeled
	Start token.Pos
	End   token.Pos
}

func (n *BreakStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *BreakStmt) Walk(v Visitor) {
	if n.Label != nil {
		Walk(v, n.Label)
	}
}
func (n *BreakStmt) stmtNode() {}

// ContinueStmt is `continue [label]`.
type ContinueStmt struct {
	Label *Identifier
	Start token.Pos
	End   token.Pos
}

func (n *ContinueStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *ContinueStmt) Walk(v Visitor) {
	if n.Label != nil {
		Walk(v, n.Label)
	}
}
func (n *ContinueStmt) stmtNode() {}

// LabeledStmt is `label: stmt`.
type LabeledStmt struct {
	Label *Identifier
	Body  Stmt
}

func (n *LabeledStmt) Span() (start, end token.Pos) {
	start, _ = n.Label.Span()
	_, end = n.Body.Span()
	return start, end
}
func (n *LabeledStmt) Walk(v Visitor) {
	Walk(v, n.Label)
	Walk(v, n.Body)
}
func (n *LabeledStmt) stmtNode() {}

// IsLoop reports whether s is a loop statement (for label-association
// purposes, spec §4.3 Labeled statements).
func IsLoop(s Stmt) bool {
	switch s.(type) {
	case *ForStmt, *ForInStmt, *ForOfStmt, *WhileStmt, *DoWhileStmt:
		return true
	default:
		return false
	}
}
