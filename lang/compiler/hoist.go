package compiler

import "github.com/mna/ecmac/lang/ast"

// hoistInfo is the result of scanning one function (or program) body for
// everything that must be bound at function-entry time rather than where
// it textually appears (spec §4.9): `var` names (recursing through
// blocks, ifs, loops, try/catch/switch but never into nested functions),
// top-level function declarations, and sloppy-mode Annex B.3.3.3
// candidates (a function declaration nested in a block, at any depth, whose name
// does not collide with a parameter or a lexical binding at the function
// top level).
type hoistInfo struct {
	vars        []string   // var-declared names, declaration order, deduped
	varSet      map[string]bool
	topFuncs    []*ast.FuncDeclStmt // direct children of the function body
	topSet      map[*ast.FuncDeclStmt]bool
	annexBCands []*ast.FuncDeclStmt // nested-block function decls eligible for Annex B
}

func analyzeHoisting(body []ast.Stmt, strict bool) *hoistInfo {
	h := &hoistInfo{varSet: make(map[string]bool), topSet: make(map[*ast.FuncDeclStmt]bool)}
	for _, s := range body {
		if fd, ok := s.(*ast.FuncDeclStmt); ok {
			h.topFuncs = append(h.topFuncs, fd)
			h.topSet[fd] = true
			continue
		}
		h.collectVars(s)
	}
	if !strict {
		topLevelNames := make(map[string]bool, len(h.topFuncs))
		for _, fd := range h.topFuncs {
			if fd.Fn.Name != nil {
				topLevelNames[fd.Fn.Name.Name] = true
			}
		}
		for _, s := range body {
			h.collectAnnexB(s, topLevelNames)
		}
	}
	return h
}

// isTopFunc reports whether fd is a direct child of the function body
// (already fully initialized by the hoisting pass before any statement
// runs), as opposed to a function declared one or more blocks deeper.
func (h *hoistInfo) isTopFunc(fd *ast.FuncDeclStmt) bool { return h.topSet[fd] }

func (h *hoistInfo) addVar(name string) {
	if h.varSet[name] {
		return
	}
	h.varSet[name] = true
	h.vars = append(h.vars, name)
}

// collectVars walks s recursing through every compound statement except
// function bodies, recording every `var`-declared name it finds.
func (h *hoistInfo) collectVars(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VariableDeclaration:
		if n.Kind == ast.DeclVar {
			for _, decl := range n.Declarators {
				h.collectPatternVars(decl.ID)
			}
		}
	case *ast.BlockStmt:
		for _, c := range n.Body {
			h.collectVars(c)
		}
	case *ast.IfStmt:
		h.collectVars(n.Cons)
		if n.Alt != nil {
			h.collectVars(n.Alt)
		}
	case *ast.WhileStmt:
		h.collectVars(n.Body)
	case *ast.DoWhileStmt:
		h.collectVars(n.Body)
	case *ast.ForStmt:
		if n.InitDecl != nil && n.InitDecl.Kind == ast.DeclVar {
			for _, decl := range n.InitDecl.Declarators {
				h.collectPatternVars(decl.ID)
			}
		}
		h.collectVars(n.Body)
	case *ast.ForInStmt:
		if n.LeftDecl != nil && n.LeftDecl.Kind == ast.DeclVar {
			for _, decl := range n.LeftDecl.Declarators {
				h.collectPatternVars(decl.ID)
			}
		}
		h.collectVars(n.Body)
	case *ast.ForOfStmt:
		if n.LeftDecl != nil && n.LeftDecl.Kind == ast.DeclVar {
			for _, decl := range n.LeftDecl.Declarators {
				h.collectPatternVars(decl.ID)
			}
		}
		h.collectVars(n.Body)
	case *ast.TryStmt:
		h.collectVars(n.Block)
		if n.Catch != nil {
			h.collectVars(n.Catch.Body)
		}
		if n.Finally != nil {
			h.collectVars(n.Finally)
		}
	case *ast.SwitchStmt:
		for _, c := range n.Cases {
			for _, cs := range c.Body {
				h.collectVars(cs)
			}
		}
	case *ast.LabeledStmt:
		h.collectVars(n.Body)
	case *ast.FuncDeclStmt:
		// A block-nested function declaration introduces a var-scoped
		// binding of its own name in sloppy mode (Annex B.3.3); that part
		// is handled by collectAnnexB, not here, since whether it applies
		// depends on top-level collisions this pass hasn't finished
		// gathering yet.
	}
}

func (h *hoistInfo) collectPatternVars(p ast.Pattern) {
	switch n := p.(type) {
	case *ast.Identifier:
		h.addVar(n.Name)
	case *ast.ArrayPattern:
		for _, el := range n.Elements {
			if el != nil {
				h.collectPatternVars(el)
			}
		}
		if n.Rest != nil {
			h.collectPatternVars(n.Rest)
		}
	case *ast.ObjectPattern:
		for _, prop := range n.Props {
			h.collectPatternVars(prop.Value)
		}
		if n.Rest != nil {
			h.collectPatternVars(n.Rest)
		}
	case *ast.AssignmentPattern:
		h.collectPatternVars(n.Left)
	case *ast.RestElement:
		h.collectPatternVars(n.Arg)
	}
}

// collectAnnexB finds function declarations that are direct children of
// a block nested at any depth and, if their name doesn't collide with a top-level
// lexical/function name, registers them as var-hoist candidates and
// records the var binding itself.
func (h *hoistInfo) collectAnnexB(s ast.Stmt, topLevelNames map[string]bool) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		for _, c := range n.Body {
			if fd, ok := c.(*ast.FuncDeclStmt); ok && fd.Fn.Name != nil {
				if !topLevelNames[fd.Fn.Name.Name] {
					h.annexBCands = append(h.annexBCands, fd)
					h.addVar(fd.Fn.Name.Name)
				}
				continue
			}
			h.collectAnnexB(c, topLevelNames)
		}
	case *ast.IfStmt:
		h.collectAnnexB(n.Cons, topLevelNames)
		if n.Alt != nil {
			h.collectAnnexB(n.Alt, topLevelNames)
		}
	case *ast.WhileStmt:
		h.collectAnnexB(n.Body, topLevelNames)
	case *ast.DoWhileStmt:
		h.collectAnnexB(n.Body, topLevelNames)
	case *ast.ForStmt:
		h.collectAnnexB(n.Body, topLevelNames)
	case *ast.ForInStmt:
		h.collectAnnexB(n.Body, topLevelNames)
	case *ast.ForOfStmt:
		h.collectAnnexB(n.Body, topLevelNames)
	case *ast.TryStmt:
		h.collectAnnexB(n.Block, topLevelNames)
		if n.Catch != nil {
			h.collectAnnexB(n.Catch.Body, topLevelNames)
		}
		if n.Finally != nil {
			h.collectAnnexB(n.Finally, topLevelNames)
		}
	case *ast.SwitchStmt:
		for _, c := range n.Cases {
			for _, cs := range c.Body {
				h.collectAnnexB(cs, topLevelNames)
			}
		}
	case *ast.LabeledStmt:
		h.collectAnnexB(n.Body, topLevelNames)
	}
}
