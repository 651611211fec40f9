// Package ast defines the AST node types consumed by the compiler. The
// lexer and parser that produce this tree are external collaborators (see
// spec §1); this package only declares the shapes the compiler walks.
//
// Every node is a tagged sum: a small Go interface implemented by exactly
// one concrete struct per ECMAScript production, dispatched with
// exhaustive type switches in the compiler rather than a class hierarchy.
package ast

import "github.com/mna/ecmac/lang/token"

// Node is implemented by every AST node.
type Node interface {
	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)

	// Walk visits the node's direct children, in source order, calling
	// Walk(v, child) for each one that implements Node.
	Walk(v Visitor)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Pattern is implemented by every node that can appear as a destructuring
// or binding target: identifiers, array/object patterns, and (in
// assignment, not declaration, position) member expressions.
type Pattern interface {
	Node
	patternNode()
}

// ClassElement is implemented by the members of a class body.
type ClassElement interface {
	Node
	classElementNode()
}

// Program is the root of a compilation unit.
type Program struct {
	Body   []Stmt
	Strict bool // true if the source carries a top-level "use strict" directive
	Start  token.Pos
	End    token.Pos
}

func (n *Program) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Program) Walk(v Visitor) {
	for _, s := range n.Body {
		Walk(v, s)
	}
}

// BlockStmt is a brace-delimited sequence of statements.
type BlockStmt struct {
	Body  []Stmt
	Start token.Pos
	End   token.Pos
}

func (n *BlockStmt) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *BlockStmt) Walk(v Visitor) {
	for _, s := range n.Body {
		Walk(v, s)
	}
}
func (n *BlockStmt) stmtNode() {}

// Identifier is both an expression (a name reference) and a pattern (a
// simple binding target); the same node type serves both ESTree
// productions since they are structurally identical.
type Identifier struct {
	Name  string
	Start token.Pos
}

func (n *Identifier) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Name))
}
func (n *Identifier) Walk(v Visitor) {}
func (n *Identifier) exprNode()      {}
func (n *Identifier) patternNode()   {}

// PrivateIdentifier is a `#name` reference, valid only as the right-hand
// side of a member/in expression or as a class element name.
type PrivateIdentifier struct {
	Name  string // without the leading '#'
	Start token.Pos
}

func (n *PrivateIdentifier) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Name)) + 1
}
func (n *PrivateIdentifier) Walk(v Visitor) {}
func (n *PrivateIdentifier) exprNode()      {}
