package lowering

import (
	"fmt"

	"github.com/tdenniston/bish/ir"
)

// ApplyReturnValues runs after ApplyByReference, once more. It gives every
// value-returning function a global retval variable and two rewrites:
//
//  1. `return expr` becomes `retval = expr` followed by a bare `return`,
//     except when expr is itself an ExternCall, which is left untouched
//     (the generator has a separate emission rule for that case).
//  2. Every FunctionCall that targets a value-returning function and
//     appears in expression position (not as a bare statement) is hoisted
//     out as its own statement immediately followed by a temp assignment
//     from the retval, with the call's former position replaced by a
//     reference to the temp. Calls already running inside an
//     IORedirection are skipped: that subshell doesn't share the retval
//     global with its parent, so the generator wraps those in `$( ... )`
//     instead.
//
// Only function bodies (main's included) are rewritten. Calls in the
// module's global initialisers are not hoisted: they stay in place, the
// generator captures their output with `$( ... )`, and the retval global
// is then set only inside that subshell, not in the calling shell.
func ApplyReturnValues(m *ir.Module) {
	p := &retvalPass{}
	p.markIORedirectionBlacklist(m)

	for _, fn := range m.Functions {
		if fn.Body == nil || !hasReturnWithValue(fn.Body) {
			continue
		}
		p.counter++
		retval := &ir.Variable{
			Name:   ir.NewName(fmt.Sprintf("global_retval_%d", p.counter)),
			Global: true,
		}
		fn.RetVal = retval
		rewriteReturnsInBlock(fn.Body, retval)
	}

	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		p.hoistCallsInBlock(fn.Body)
	}
}

type retvalPass struct {
	counter int
}

// markIORedirectionBlacklist marks every FunctionCall that sits inside an
// IORedirection's subshelled pipeline as Wrapped, so the later hoisting
// pass leaves it exactly where it is.
func (p *retvalPass) markIORedirectionBlacklist(m *ir.Module) {
	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		walk(fn.Body, func(n ir.Node) {
			red, ok := n.(*ir.IORedirection)
			if !ok {
				return
			}
			walk(red.Left, markWrapped)
			walk(red.Right, markWrapped)
		})
	}
}

func markWrapped(n ir.Node) {
	if call, ok := n.(*ir.FunctionCall); ok {
		call.Wrapped = true
	}
}

func hasReturnWithValue(body *ir.Block) bool {
	found := false
	walk(body, func(n ir.Node) {
		if rs, ok := n.(*ir.ReturnStatement); ok && rs.Value != nil {
			found = true
		}
	})
	return found
}

// rewriteReturnsInBlock replaces every value-carrying `return expr` inside
// b (and any nested block) with `retval = expr; return;`, recursing into
// if/for bodies along the way.
func rewriteReturnsInBlock(b *ir.Block, retval *ir.Variable) {
	out := make([]ir.Node, 0, len(b.Statements))
	for _, stmt := range b.Statements {
		switch t := stmt.(type) {
		case *ir.ReturnStatement:
			if t.Value != nil {
				if _, isExtern := t.Value.(*ir.ExternCall); !isExtern {
					assign := &ir.Assignment{
						Target: &ir.Location{Variable: retval},
						Values: []ir.Node{t.Value},
					}
					out = append(out, assign, &ir.ReturnStatement{})
					continue
				}
			}
			out = append(out, t)
		case *ir.IfStatement:
			rewriteReturnsInBlock(t.Then, retval)
			for i := range t.ElseIfs {
				rewriteReturnsInBlock(t.ElseIfs[i].Body, retval)
			}
			if t.Else != nil {
				rewriteReturnsInBlock(t.Else, retval)
			}
			out = append(out, t)
		case *ir.ForLoop:
			rewriteReturnsInBlock(t.Body, retval)
			out = append(out, t)
		case *ir.Block:
			rewriteReturnsInBlock(t, retval)
			out = append(out, t)
		default:
			out = append(out, stmt)
		}
	}
	b.Statements = out
}

// hoistCallsInBlock walks b's statements, rewriting each one's expression
// tree so that every qualifying call becomes a standalone statement
// followed by a temp assignment, then recurses into nested blocks.
func (p *retvalPass) hoistCallsInBlock(b *ir.Block) {
	out := make([]ir.Node, 0, len(b.Statements))
	for _, stmt := range b.Statements {
		var pre []ir.Node
		rewritten := p.hoistCallsInStatement(stmt, &pre)
		out = append(out, pre...)
		out = append(out, rewritten)
		p.recurseNestedBlocks(rewritten)
	}
	b.Statements = out
}

func (p *retvalPass) recurseNestedBlocks(n ir.Node) {
	switch t := n.(type) {
	case *ir.IfStatement:
		p.hoistCallsInBlock(t.Then)
		for i := range t.ElseIfs {
			p.hoistCallsInBlock(t.ElseIfs[i].Body)
		}
		if t.Else != nil {
			p.hoistCallsInBlock(t.Else)
		}
	case *ir.ForLoop:
		p.hoistCallsInBlock(t.Body)
	case *ir.Block:
		p.hoistCallsInBlock(t)
	}
}

// hoistCallsInStatement rewrites the expression fields of a single
// statement, appending any hoisted call/temp-assignment pairs to *pre.
func (p *retvalPass) hoistCallsInStatement(n ir.Node, pre *[]ir.Node) ir.Node {
	switch t := n.(type) {
	case *ir.Assignment:
		for i, v := range t.Values {
			t.Values[i] = p.rewriteExpr(v, pre)
		}
		if t.Target.Index != nil {
			t.Target.Index = p.rewriteExpr(t.Target.Index, pre)
		}
		return t
	case *ir.ReturnStatement:
		if t.Value != nil {
			t.Value = p.rewriteExpr(t.Value, pre)
		}
		return t
	case *ir.IfStatement:
		t.Condition = p.rewriteExpr(t.Condition, pre)
		for i := range t.ElseIfs {
			t.ElseIfs[i].Condition = p.rewriteExpr(t.ElseIfs[i].Condition, pre)
		}
		return t
	case *ir.ForLoop:
		t.Lower = p.rewriteExpr(t.Lower, pre)
		if t.Upper != nil {
			t.Upper = p.rewriteExpr(t.Upper, pre)
		}
		return t
	case *ir.FunctionCall:
		// A bare call statement is already standalone: its result, if any,
		// is discarded, so there is nothing to hoist it out of.
		return t
	default:
		return t
	}
}

// rewriteExpr recurses into n's expression children, replacing any
// qualifying FunctionCall it finds with a reference to a freshly assigned
// temp, and appending the hoisted call and temp assignment to *pre.
func (p *retvalPass) rewriteExpr(n ir.Node, pre *[]ir.Node) ir.Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *ir.FunctionCall:
		if t.Target == nil || t.Target.RetVal == nil || t.Wrapped {
			return t
		}
		p.counter++
		tmp := &ir.Variable{Name: ir.NewName(fmt.Sprintf("tmp_retval_%d", p.counter))}
		tmp.SetType(t.Target.RetVal.Type())
		*pre = append(*pre, t, &ir.Assignment{
			Target: &ir.Location{Variable: tmp},
			Values: []ir.Node{&ir.Location{Variable: t.Target.RetVal}},
		})
		return &ir.Location{Variable: tmp}
	case *ir.BinOp:
		t.Left = p.rewriteExpr(t.Left, pre)
		t.Right = p.rewriteExpr(t.Right, pre)
		return t
	case *ir.UnaryOp:
		t.Operand = p.rewriteExpr(t.Operand, pre)
		return t
	case *ir.Location:
		if t.Index != nil {
			t.Index = p.rewriteExpr(t.Index, pre)
		}
		return t
	default:
		return t
	}
}
