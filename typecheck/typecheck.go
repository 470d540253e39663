// Package typecheck implements Bish's single type-inference/checking pass:
// it runs after import linking and parent-wiring, and before the
// by-reference and return-value lowering passes (both of which need every
// parameter and return type resolved).
package typecheck

import (
	"sort"

	"github.com/tdenniston/bish/bisherr"
	"github.com/tdenniston/bish/ir"
)

// Check runs the pass over m, returning the first conflict found. Bish
// stops at the first type error rather than collecting a diagnostic list,
// matching the rest of the compiler's fail-fast error handling.
//
// Every non-main function is checked in declaration order first, so a
// later call site in main sees its callee's return type already
// resolved. main's own body is checked merged back together with the
// globals the parser hoisted out of it, replayed in original source
// order (by debug line), so a for-loop over a global array sees that
// global's type already inferred from its own earlier assignment.
func Check(m *ir.Module) error {
	c := &checker{}
	c.bindCallSiteParamTypes(m)

	for _, fn := range m.Functions {
		if fn == m.Main || fn.Body == nil {
			continue
		}
		if err := c.checkBlockStmts(fn.Body, fn); err != nil {
			return err
		}
	}

	if m.Main != nil && m.Main.Body != nil {
		for _, stmt := range mergeMainStatements(m) {
			if err := c.checkStmt(stmt, m.Main); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeMainStatements reconstructs the original source order of main's
// top-level statements by merging the extracted globals back in among
// main's remaining body statements, sorted by debug line. It does not
// mutate the module: GlobalVariables and Main.Body.Statements stay the
// two separate lists the rest of the compiler expects.
func mergeMainStatements(m *ir.Module) []ir.Node {
	merged := make([]ir.Node, 0, len(m.GlobalVariables)+len(m.Main.Body.Statements))
	for _, g := range m.GlobalVariables {
		merged = append(merged, g)
	}
	merged = append(merged, m.Main.Body.Statements...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Debug().Line < merged[j].Debug().Line
	})
	return merged
}

type checker struct{}

// bindCallSiteParamTypes makes a shallow pass over every call site before
// the main structured walk, binding each still-Undef formal parameter's
// type from its actual argument wherever the actual's type can be read
// without a full check (a literal, or an already-typed variable). This
// lets `def add(x, y) { return x + y; }` infer x and y's types from a
// call appearing later in the source, without requiring the checker to
// run as a general fixed-point over the whole module.
func (c *checker) bindCallSiteParamTypes(m *ir.Module) {
	bind := func(n ir.Node) {
		call, ok := n.(*ir.FunctionCall)
		if !ok || call.Target == nil || call.Target.IsDummy() {
			return
		}
		for i, argAssign := range call.Args {
			if i >= len(call.Target.Args) {
				continue
			}
			param := call.Target.Args[i]
			if !param.Type().IsUndef() {
				continue
			}
			if actual := quickType(argAssign.Values[0]); !actual.IsUndef() {
				param.SetType(actual)
			}
		}
	}
	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		walkNodes(fn.Body, bind)
	}
	for _, g := range m.GlobalVariables {
		walkNodes(g, bind)
	}
}

// quickType infers a node's type without needing any surrounding context:
// literals type themselves, and an already-typed variable reference
// carries its variable's type. Anything else is left Undef for the main
// pass to resolve properly.
func quickType(n ir.Node) ir.Type {
	switch t := n.(type) {
	case *ir.IntegerLit:
		return ir.IntegerType
	case *ir.FractionalLit:
		return ir.FractionalType
	case *ir.StringLit:
		return ir.StringType
	case *ir.BooleanLit:
		return ir.BooleanType
	case *ir.Location:
		if t.Index != nil && t.Variable.Type().IsArray() {
			return *t.Variable.Type().Elem
		}
		return t.Variable.Type()
	default:
		return ir.UndefType
	}
}

func walkNodes(n ir.Node, f func(ir.Node)) {
	if n == nil {
		return
	}
	f(n)
	ir.WalkChildren(n, func(c ir.Node) { walkNodes(c, f) })
}

func (c *checker) checkBlockStmts(b *ir.Block, fn *ir.Function) error {
	for _, stmt := range b.Statements {
		if err := c.checkStmt(stmt, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkStmt(n ir.Node, fn *ir.Function) error {
	switch t := n.(type) {
	case *ir.Assignment:
		return c.checkAssignment(t)
	case *ir.IfStatement:
		return c.checkIf(t, fn)
	case *ir.ForLoop:
		return c.checkForLoop(t, fn)
	case *ir.ReturnStatement:
		return c.checkReturn(t, fn)
	case *ir.FunctionCall:
		return c.checkFunctionCall(t)
	case *ir.Block:
		return c.checkBlockStmts(t, fn)
	default:
		// ExternCall (statement form), LoopControlStatement, ImportStatement:
		// nothing to type-check.
		return nil
	}
}

func (c *checker) checkIf(s *ir.IfStatement, fn *ir.Function) error {
	if err := c.checkExpr(s.Condition); err != nil {
		return err
	}
	if err := c.checkBlockStmts(s.Then, fn); err != nil {
		return err
	}
	for _, ei := range s.ElseIfs {
		if err := c.checkExpr(ei.Condition); err != nil {
			return err
		}
		if err := c.checkBlockStmts(ei.Body, fn); err != nil {
			return err
		}
	}
	if s.Else != nil {
		return c.checkBlockStmts(s.Else, fn)
	}
	return nil
}

func (c *checker) checkForLoop(f *ir.ForLoop, fn *ir.Function) error {
	if err := c.checkExpr(f.Lower); err != nil {
		return err
	}
	if f.Upper != nil {
		if err := c.checkExpr(f.Upper); err != nil {
			return err
		}
		if !f.Lower.Type().Equal(f.Upper.Type()) {
			return bisherr.Type(f, "for-loop bounds must match: %s vs %s", f.Lower.Type(), f.Upper.Type())
		}
		f.Var.SetType(f.Lower.Type())
	} else {
		lowerType := f.Lower.Type()
		if !lowerType.IsArray() {
			return bisherr.Type(f, "cannot iterate over non-array type %s", lowerType)
		}
		f.Var.SetType(*lowerType.Elem)
	}
	return c.checkBlockStmts(f.Body, fn)
}

func (c *checker) checkReturn(r *ir.ReturnStatement, fn *ir.Function) error {
	if r.Value == nil {
		return nil
	}
	if err := c.checkExpr(r.Value); err != nil {
		return err
	}
	vt := r.Value.Type()
	if fn.RetType.IsUndef() {
		fn.RetType = vt
	} else if !vt.IsUndef() && !fn.RetType.Equal(vt) {
		return bisherr.Type(r, "function %s returns conflicting types: %s vs %s", fn.Name, fn.RetType, vt)
	}
	return nil
}

func (c *checker) checkAssignment(a *ir.Assignment) error {
	for _, v := range a.Values {
		if err := c.checkExpr(v); err != nil {
			return err
		}
	}
	if a.Target.Index != nil {
		if err := c.checkExpr(a.Target.Index); err != nil {
			return err
		}
	}

	var rhsType ir.Type
	if len(a.Values) > 1 {
		rhsType = ir.ArrayOf(a.Values[0].Type())
	} else {
		rhsType = a.Values[0].Type()
	}

	v := a.Target.Variable
	if a.Target.Index != nil {
		if v.Type().IsUndef() {
			v.SetType(ir.ArrayOf(rhsType))
		} else if v.Type().IsArray() && !v.Type().Elem.Equal(rhsType) {
			return bisherr.Type(a, "cannot assign %s into an element of %s (%s)", rhsType, v.Name, v.Type())
		}
	} else if v.Type().IsUndef() {
		v.SetType(rhsType)
	} else if !v.Type().Equal(rhsType) {
		return bisherr.Type(a, "cannot assign %s to %s (declared %s)", rhsType, v.Name, v.Type())
	}

	a.Target.SetType(locationType(a.Target))
	return nil
}

func (c *checker) checkExpr(n ir.Node) error {
	switch t := n.(type) {
	case *ir.IntegerLit:
		t.SetType(ir.IntegerType)
	case *ir.FractionalLit:
		t.SetType(ir.FractionalType)
	case *ir.BooleanLit:
		t.SetType(ir.BooleanType)
	case *ir.StringLit:
		for _, item := range t.Value.Items {
			if item.Variable != nil && item.Variable.Type().IsUndef() {
				return bisherr.Type(t, "use of undefined variable %q in string interpolation", item.Variable.Name)
			}
		}
		t.SetType(ir.StringType)
	case *ir.Location:
		if t.Index != nil {
			if err := c.checkExpr(t.Index); err != nil {
				return err
			}
		}
		t.SetType(locationType(t))
	case *ir.BinOp:
		return c.checkBinOp(t)
	case *ir.UnaryOp:
		if err := c.checkExpr(t.Operand); err != nil {
			return err
		}
		t.SetType(t.Operand.Type())
	case *ir.FunctionCall:
		return c.checkFunctionCall(t)
	case *ir.ExternCall:
		t.SetType(ir.UndefType)
	case *ir.IORedirection:
		t.SetType(ir.UndefType)
	}
	return nil
}

func (c *checker) checkBinOp(b *ir.BinOp) error {
	if err := c.checkExpr(b.Left); err != nil {
		return err
	}
	if err := c.checkExpr(b.Right); err != nil {
		return err
	}

	lt, rt := b.Left.Type(), b.Right.Type()
	switch {
	case lt.IsUndef() && !rt.IsUndef():
		propagateType(b.Left, rt)
		lt = rt
	case rt.IsUndef() && !lt.IsUndef():
		propagateType(b.Right, lt)
		rt = lt
	case !lt.Equal(rt):
		return bisherr.Type(b, "operand type mismatch: %s vs %s", lt, rt)
	}

	if b.IsComparison() || b.IsLogical() {
		b.SetType(ir.BooleanType)
	} else {
		b.SetType(lt)
	}
	return nil
}

// propagateType back-fills an operand's type once the other side of a
// BinOp has resolved it, including the underlying variable when the
// operand is a bare (non-indexed) variable reference.
func propagateType(n ir.Node, t ir.Type) {
	n.SetType(t)
	if loc, ok := n.(*ir.Location); ok && loc.Index == nil {
		loc.Variable.SetType(t)
	}
}

func (c *checker) checkFunctionCall(call *ir.FunctionCall) error {
	for _, argAssign := range call.Args {
		if err := c.checkAssignment(argAssign); err != nil {
			return err
		}
	}
	if call.Target == nil || call.Target.IsDummy() {
		if isLenBuiltin(call) {
			call.SetType(ir.IntegerType)
			return nil
		}
		call.SetType(ir.UndefType)
		return nil
	}
	for i, argAssign := range call.Args {
		if i >= len(call.Target.Args) {
			continue
		}
		param := call.Target.Args[i]
		actual := argAssign.Target.Variable.Type()
		if param.Type().IsUndef() {
			param.SetType(actual)
		} else if !actual.IsUndef() && !param.Type().Equal(actual) {
			return bisherr.Type(call, "%s argument %d: expected %s, got %s", call.Target.Name, i+1, param.Type(), actual)
		}
	}
	call.SetType(call.Target.RetType)
	return nil
}

// isLenBuiltin recognises the `len` builtin (spec supplement: Builtins.h)
// at an otherwise-unresolved call site: a single-argument call to a name
// no module ever defines, reserved as `len`, lowered directly to a Bash
// `${#x}`/`${#x[@]}` expansion by the code generator rather than a real
// function call.
func isLenBuiltin(call *ir.FunctionCall) bool {
	return call.Target != nil && call.Target.Name.Bare == "len" && len(call.Target.Name.Qualifiers) == 0 && len(call.Args) == 1
}

func locationType(l *ir.Location) ir.Type {
	if l.Index != nil && l.Variable.Type().IsArray() {
		return *l.Variable.Type().Elem
	}
	return l.Variable.Type()
}
