// Package lowering holds the IR-to-IR passes that run after parsing and
// linking but before code generation: parent-wiring, by-reference
// surrogate synthesis, and return-value hoisting.
package lowering

import "github.com/tdenniston/bish/ir"

// WireParents walks m in pre-order, setting every reachable node's parent
// to its immediate contextual enclosing node: a function's children
// point at the function, a block's children point at the block, and
// each top-level Function points at the module. After this pass every
// non-root node has a non-nil parent.
func WireParents(m *ir.Module) {
	w := &parentWirer{}
	w.visitModule(m)
}

type parentWirer struct{}

func (w *parentWirer) setParent(n ir.Node, parent ir.Node) {
	if n == nil {
		return
	}
	n.SetParent(parent)
}

func (w *parentWirer) visitModule(m *ir.Module) {
	for _, fn := range m.Functions {
		w.setParent(fn, m)
		w.visitFunction(fn)
	}
	for _, g := range m.GlobalVariables {
		w.setParent(g, m)
		w.visitNode(g)
	}
}

func (w *parentWirer) visitFunction(fn *ir.Function) {
	for _, a := range fn.Args {
		w.setParent(a, fn)
	}
	if fn.Body != nil {
		w.setParent(fn.Body, fn)
		w.visitBlock(fn.Body)
	}
}

func (w *parentWirer) visitBlock(b *ir.Block) {
	for _, stmt := range b.Statements {
		w.setParent(stmt, b)
		w.visitNode(stmt)
	}
}

// visitNode wires the parent pointers of n's own children to n.
func (w *parentWirer) visitNode(n ir.Node) {
	switch t := n.(type) {
	case *ir.Block:
		w.visitBlock(t)
	case *ir.IfStatement:
		w.setParent(t.Condition, t)
		w.visitNode(t.Condition)
		w.setParent(t.Then, t)
		w.visitBlock(t.Then)
		for _, ei := range t.ElseIfs {
			w.setParent(ei.Condition, t)
			w.visitNode(ei.Condition)
			w.setParent(ei.Body, t)
			w.visitBlock(ei.Body)
		}
		if t.Else != nil {
			w.setParent(t.Else, t)
			w.visitBlock(t.Else)
		}
	case *ir.ForLoop:
		w.setParent(t.Var, t)
		w.setParent(t.Lower, t)
		w.visitNode(t.Lower)
		if t.Upper != nil {
			w.setParent(t.Upper, t)
			w.visitNode(t.Upper)
		}
		w.setParent(t.Body, t)
		w.visitBlock(t.Body)
	case *ir.Assignment:
		w.setParent(t.Target, t)
		w.visitNode(t.Target)
		for _, v := range t.Values {
			w.setParent(v, t)
			w.visitNode(v)
		}
	case *ir.ReturnStatement:
		if t.Value != nil {
			w.setParent(t.Value, t)
			w.visitNode(t.Value)
		}
	case *ir.Location:
		if t.Index != nil {
			w.setParent(t.Index, t)
			w.visitNode(t.Index)
		}
	case *ir.BinOp:
		w.setParent(t.Left, t)
		w.visitNode(t.Left)
		w.setParent(t.Right, t)
		w.visitNode(t.Right)
	case *ir.UnaryOp:
		w.setParent(t.Operand, t)
		w.visitNode(t.Operand)
	case *ir.IORedirection:
		w.setParent(t.Left, t)
		w.visitNode(t.Left)
		w.setParent(t.Right, t)
		w.visitNode(t.Right)
	case *ir.FunctionCall:
		for _, a := range t.Args {
			w.setParent(a, t)
			w.visitNode(a)
		}
	case *ir.ExternCall:
		for _, item := range t.Body.Items {
			if item.Variable != nil {
				w.setParent(item.Variable, t)
			}
		}
	case *ir.StringLit:
		for _, item := range t.Value.Items {
			if item.Variable != nil {
				w.setParent(item.Variable, t)
			}
		}
	}
}
