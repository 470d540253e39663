// Package bash implements Bish's Bash backend (spec §4.9): a visitor that
// renders a fully-lowered Module (import-linked, parent-wired, type
// checked, by-reference and return-value lowered) to a single Bash
// script. Grounded on the teacher's inspector.Factory/registry style for
// how the backend plugs into codegen.Registry, and on the
// j-alexander3375-Lotus example's CodeGenerator (a struct of small
// emission methods dispatching by type switch) for the visitor shape
// itself — the generator does not implement ir.Visitor; it walks the
// tree with its own type switches.
package bash

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tdenniston/bish/bisherr"
	"github.com/tdenniston/bish/codegen"
	"github.com/tdenniston/bish/ir"
)

// Generator renders Bash. Four boolean context stacks (spec §4.9) track
// how the node currently being emitted should be wrapped or quoted; each
// emission method pushes a scoped value before recursing into children
// and resets it on the way out, so a nested context never leaks back out
// to its caller.
type Generator struct {
	buf *codegen.LineOrientedBuffer

	blockBraces      boolStack
	functioncallWrap boolStack
	quoteVariable    boolStack
	comparisonWrap   boolStack

	indent int

	// currentFn is the function whose body is currently being emitted, so
	// genReturn can tell a bare `return;` inside a value-returning
	// function (which must echo its retval) apart from one inside a
	// genuinely void function. Bish functions never nest, so a single
	// field (not a stack) is enough.
	currentFn *ir.Function
}

// New builds a bash.Generator backed by buf; matches codegen.Factory.
func New(buf *codegen.LineOrientedBuffer) codegen.Generator {
	return &Generator{buf: buf}
}

// Register adds the "bash" backend to r.
func Register(r *codegen.Registry) {
	r.Register("bash", New)
}

func (g *Generator) writeIndent() {
	g.buf.WriteString(strings.Repeat("  ", g.indent))
}

// Generate implements codegen.Generator.
func (g *Generator) Generate(m *ir.Module, opts codegen.Options) (string, error) {
	g.quoteVariable.push(true)
	g.functioncallWrap.push(false)
	g.comparisonWrap.push(false)
	g.blockBraces.push(true)

	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		if opts.Library && fn == m.Main {
			continue
		}
		if err := g.genFunction(fn); err != nil {
			return "", err
		}
	}

	g.buf.WriteString(`args=( $0 "$@" );`)
	g.buf.NewLine()

	for _, assign := range m.GlobalVariables {
		if err := g.genAssignment(assign); err != nil {
			return "", err
		}
	}

	if !opts.Library && m.Main != nil {
		g.buf.WriteString(m.Main.Name.Render("_") + ";")
		g.buf.NewLine()
	}

	return g.buf.String(), nil
}

// genFunction emits `function <name> () { ... }`. Reference-surrogate
// formals read their surrogate global instead of a positional parameter;
// since those formals are omitted from call sites' argument lists (see
// genCallText), the remaining formals' positional indices are counted
// among themselves, not among all of fn.Args.
func (g *Generator) genFunction(fn *ir.Function) error {
	g.currentFn = fn
	defer func() { g.currentFn = nil }()

	g.buf.WriteString("function " + fn.Name.Render("_") + " ()")
	g.buf.NewLine()
	g.buf.WriteString("{")
	g.buf.NewLine()
	g.indent++

	posIdx := 0
	for _, arg := range fn.Args {
		g.writeIndent()
		name := arg.Name.Render("_")
		if arg.RefSurrogate != nil {
			g.buf.WriteString(fmt.Sprintf("local %s=( ${%s[@]} );", name, arg.RefSurrogate.Name.Render("_")))
		} else {
			posIdx++
			g.buf.WriteString(fmt.Sprintf("local %s=\"$%d\";", name, posIdx))
		}
		g.buf.NewLine()
	}

	if fn.Body == nil || len(fn.Body.Statements) == 0 {
		g.writeIndent()
		g.buf.WriteString(":;")
		g.buf.NewLine()
	} else {
		for _, stmt := range fn.Body.Statements {
			if err := g.genStatement(stmt); err != nil {
				return err
			}
		}
	}

	g.indent--
	g.writeIndent()
	g.buf.WriteString("}")
	g.buf.NewLine()
	return nil
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (g *Generator) genStatement(n ir.Node) error {
	switch t := n.(type) {
	case *ir.ImportStatement:
		return nil
	case *ir.Assignment:
		return g.genAssignment(t)
	case *ir.IfStatement:
		return g.genIf(t)
	case *ir.ForLoop:
		return g.genForLoop(t)
	case *ir.ReturnStatement:
		return g.genReturn(t)
	case *ir.LoopControlStatement:
		g.writeIndent()
		if t.Kind == ir.CtrlBreak {
			g.buf.WriteString("break;")
		} else {
			g.buf.WriteString("continue;")
		}
		g.buf.NewLine()
		return nil
	case *ir.FunctionCall:
		g.writeIndent()
		g.functioncallWrap.disable()
		text := g.genCallText(t)
		g.functioncallWrap.reset()
		g.buf.WriteString(text + ";")
		g.buf.NewLine()
		return nil
	case *ir.ExternCall:
		g.writeIndent()
		g.functioncallWrap.disable()
		text := g.genExternCall(t)
		g.functioncallWrap.reset()
		g.buf.WriteString(text + ";")
		g.buf.NewLine()
		return nil
	case *ir.Block:
		return g.genBlock(t)
	default:
		return bisherr.Internal("codegen/bash: unexpected statement node %T", n)
	}
}

func (g *Generator) genBlock(b *ir.Block) error {
	brace := g.blockBraces.top()
	if brace {
		g.writeIndent()
		g.buf.WriteString("{")
		g.buf.NewLine()
		g.indent++
	}
	for _, stmt := range b.Statements {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	if brace {
		g.indent--
		g.writeIndent()
		g.buf.WriteString("}")
		g.buf.NewLine()
	}
	return nil
}

// genAssignment emits a scalar assignment, an array-element assignment,
// or an array initialiser, `local`-prefixed unless the target is global.
func (g *Generator) genAssignment(a *ir.Assignment) error {
	g.writeIndent()
	v := a.Target.Variable
	prefix := ""
	if !v.Global {
		prefix = "local "
	}
	name := v.Name.Render("_")

	g.functioncallWrap.enable()
	defer g.functioncallWrap.reset()

	switch {
	case a.Target.Index != nil:
		g.quoteVariable.disable()
		idx := g.genExpr(a.Target.Index)
		g.quoteVariable.reset()
		val := g.genExpr(a.Values[0])
		g.buf.WriteString(fmt.Sprintf("%s%s[%s]=%s;", prefix, name, idx, val))
	case a.IsArrayInit():
		vals := make([]string, len(a.Values))
		for i, v := range a.Values {
			vals[i] = g.genExpr(v)
		}
		g.buf.WriteString(fmt.Sprintf("%s%s=( %s );", prefix, name, strings.Join(vals, " ")))
	default:
		val := g.genExpr(a.Values[0])
		g.buf.WriteString(fmt.Sprintf("%s%s=%s;", prefix, name, val))
	}
	g.buf.NewLine()
	return nil
}

// genIf emits `if [[ cond ]]; then ... [elif ...; then ...] [else ...] fi`.
func (g *Generator) genIf(s *ir.IfStatement) error {
	g.writeIndent()
	g.buf.WriteString(fmt.Sprintf("if [[ %s ]]; then", g.genCondition(s.Condition)))
	g.buf.NewLine()
	g.indent++
	for _, stmt := range s.Then.Statements {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	g.indent--

	for _, ei := range s.ElseIfs {
		g.writeIndent()
		g.buf.WriteString(fmt.Sprintf("elif [[ %s ]]; then", g.genCondition(ei.Condition)))
		g.buf.NewLine()
		g.indent++
		for _, stmt := range ei.Body.Statements {
			if err := g.genStatement(stmt); err != nil {
				return err
			}
		}
		g.indent--
	}

	if s.Else != nil {
		g.writeIndent()
		g.buf.WriteString("else")
		g.buf.NewLine()
		g.indent++
		for _, stmt := range s.Else.Statements {
			if err := g.genStatement(stmt); err != nil {
				return err
			}
		}
		g.indent--
	}

	g.writeIndent()
	g.buf.WriteString("fi;")
	g.buf.NewLine()
	return nil
}

// genCondition renders the inside of an `[[ ... ]]` test: comparison_wrap
// is disabled (the brackets are themselves the comparator) and
// functioncall_wrap is enabled; a condition that is not itself a boolean
// BinOp gets ` -eq 1` appended to treat its computed 0/1 as a truth value.
func (g *Generator) genCondition(cond ir.Node) string {
	g.comparisonWrap.disable()
	g.functioncallWrap.enable()
	text := g.genExpr(cond)
	g.functioncallWrap.reset()
	g.comparisonWrap.reset()
	return asPredicate(cond, text)
}

// genForLoop emits an integer-range loop via `seq`, or an array iteration.
func (g *Generator) genForLoop(f *ir.ForLoop) error {
	g.writeIndent()
	name := f.Var.Name.Render("_")

	g.quoteVariable.disable()
	lower := g.genExpr(f.Lower)
	if f.Upper != nil {
		upper := g.genExpr(f.Upper)
		g.quoteVariable.reset()
		g.buf.WriteString(fmt.Sprintf("for %s in $(seq %s %s); do", name, lower, upper))
	} else {
		g.quoteVariable.reset()
		g.buf.WriteString(fmt.Sprintf("for %s in %s; do", name, lower))
	}
	g.buf.NewLine()
	g.indent++
	for _, stmt := range f.Body.Statements {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	g.indent--
	g.writeIndent()
	g.buf.WriteString("done;")
	g.buf.NewLine()
	return nil
}

// genReturn emits `return;` for a value-less return in a genuinely void
// function. A return-with-value survives lowering only when its value is
// an ExternCall (the return-value pass deliberately leaves those alone);
// every other value-carrying return should already have become a retval
// assignment followed by a bare return by the time codegen runs — and per
// spec §4.9, that bare return itself must echo the function's retval
// global and exit, the same "echo <value>; exit" protocol as the
// ExternCall case, since a caller may be capturing this function's stdout
// directly (e.g. inside an IORedirection pipe that skipped the retval
// hoist entirely).
func (g *Generator) genReturn(r *ir.ReturnStatement) error {
	g.writeIndent()
	if r.Value == nil {
		if g.currentFn != nil && g.currentFn.RetVal != nil {
			name := g.currentFn.RetVal.Name.Render("_")
			g.buf.WriteString(fmt.Sprintf("echo \"$%s\"; exit;", name))
		} else {
			g.buf.WriteString("return;")
		}
		g.buf.NewLine()
		return nil
	}
	extern, ok := r.Value.(*ir.ExternCall)
	bisherr.Assert(ok, "codegen/bash: return-value lowering left a non-extern value-carrying return in place")

	g.functioncallWrap.disable()
	text := g.genExternCall(extern)
	g.functioncallWrap.reset()
	g.buf.WriteString(fmt.Sprintf("echo %s; exit;", text))
	g.buf.NewLine()
	return nil
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (g *Generator) genExpr(n ir.Node) string {
	switch t := n.(type) {
	case *ir.IntegerLit:
		return strconv.FormatInt(t.Value, 10)
	case *ir.FractionalLit:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case *ir.BooleanLit:
		if t.Value {
			return "1"
		}
		return "0"
	case *ir.StringLit:
		return g.genStringLit(t)
	case *ir.Location:
		return g.genLocationRead(t)
	case *ir.BinOp:
		return g.genBinOp(t)
	case *ir.UnaryOp:
		return g.genUnaryOp(t)
	case *ir.FunctionCall:
		return g.genFunctionCallExpr(t)
	case *ir.ExternCall:
		return g.genExternCall(t)
	case *ir.IORedirection:
		return g.genIORedirection(t)
	default:
		return ""
	}
}

// readVariable renders a scalar or array variable read, quoted unless
// the current quote_variable scope is off.
func (g *Generator) readVariable(v *ir.Variable) string {
	name := v.Name.Render("_")
	var expr string
	if v.Type().IsArray() {
		expr = "${" + name + "[@]}"
	} else {
		expr = "$" + name
	}
	if g.quoteVariable.top() {
		return "\"" + expr + "\""
	}
	return expr
}

// genLocationRead handles both scalar variable reads and indexed array
// element reads; the index itself is always generated unquoted, since
// Bash array subscripts are an arithmetic context.
func (g *Generator) genLocationRead(l *ir.Location) string {
	if l.Index == nil {
		return g.readVariable(l.Variable)
	}
	g.quoteVariable.disable()
	idx := g.genExpr(l.Index)
	g.quoteVariable.reset()
	expr := "${" + l.Variable.Name.Render("_") + "[" + idx + "]}"
	if g.quoteVariable.top() {
		return "\"" + expr + "\""
	}
	return expr
}

// genStringLit renders a `"..."` literal; interpolated variables are
// substituted unquoted since they already sit inside the surrounding
// quotes.
func (g *Generator) genStringLit(s *ir.StringLit) string {
	var b strings.Builder
	b.WriteString("\"")
	g.quoteVariable.disable()
	for _, item := range s.Value.Items {
		if item.Variable != nil {
			b.WriteString(g.readVariable(item.Variable))
		} else {
			b.WriteString(item.Literal)
		}
	}
	g.quoteVariable.reset()
	b.WriteString("\"")
	return b.String()
}

// genExternCall renders an `@( ... )` extern block's interpolated body
// verbatim, substituting variable items and passing Raw sub-expression
// text through untouched.
func (g *Generator) genExternCall(e *ir.ExternCall) string {
	var b strings.Builder
	for _, item := range e.Body.Items {
		switch {
		case item.Variable != nil:
			b.WriteString(g.readVariable(item.Variable))
		case item.Raw != "":
			b.WriteString(item.Raw)
		default:
			b.WriteString(item.Literal)
		}
	}
	body := b.String()
	if g.functioncallWrap.top() {
		return "$(" + body + ")"
	}
	return body
}

func (g *Generator) genIORedirection(r *ir.IORedirection) string {
	g.functioncallWrap.disable()
	left := g.genExpr(r.Left)
	right := g.genExpr(r.Right)
	g.functioncallWrap.reset()
	return fmt.Sprintf("$(%s | %s)", left, right)
}

// genFunctionCallExpr renders a call in expression position, wrapping it
// in `$( ... )` to capture its stdout when functioncall_wrap is on.
func (g *Generator) genFunctionCallExpr(c *ir.FunctionCall) string {
	if text, ok := g.genLenBuiltin(c); ok {
		return text
	}
	text := g.genCallText(c)
	if g.functioncallWrap.top() {
		return "$(" + text + ")"
	}
	return text
}

// genLenBuiltin lowers a call to the reserved `len` builtin (spec
// supplement: Builtins.h) directly to a Bash length expansion instead of
// a real function call: `${#x}` for a scalar, `${#x[@]}` for an array.
func (g *Generator) genLenBuiltin(c *ir.FunctionCall) (string, bool) {
	if c.Target == nil || !c.Target.IsDummy() || c.Target.Name.Bare != "len" || len(c.Target.Name.Qualifiers) != 0 || len(c.Args) != 1 {
		return "", false
	}
	arg := c.Args[0].Target.Variable
	name := arg.Name.Render("_")
	if arg.Type().IsArray() {
		return fmt.Sprintf("${#%s[@]}", name), true
	}
	return fmt.Sprintf("${#%s}", name), true
}

// genCallText renders the call itself, omitting reference-surrogate
// arguments (they communicate through their global, not a positional
// parameter).
func (g *Generator) genCallText(c *ir.FunctionCall) string {
	parts := []string{c.Target.Name.Render("_")}
	for i, argAssign := range c.Args {
		if i < len(c.Target.Args) && c.Target.Args[i].RefSurrogate != nil {
			continue
		}
		parts = append(parts, g.genExpr(&ir.Location{Variable: argAssign.Target.Variable}))
	}
	return strings.Join(parts, " ")
}

// genBinOp dispatches arithmetic/modulo to a `$(( ... ))` expansion,
// comparisons and logical composition to their own predicate rendering.
func (g *Generator) genBinOp(b *ir.BinOp) string {
	if b.IsLogical() {
		return g.genLogical(b)
	}
	if b.IsComparison() {
		return g.genComparison(b)
	}
	g.quoteVariable.disable()
	left := g.genExpr(b.Left)
	right := g.genExpr(b.Right)
	g.quoteVariable.reset()
	return fmt.Sprintf("$(( %s %s %s ))", left, arithOp(b.Op), right)
}

func arithOp(op ir.BinOpKind) string {
	switch op {
	case ir.OpAdd:
		return "+"
	case ir.OpSub:
		return "-"
	case ir.OpMul:
		return "*"
	case ir.OpDiv:
		return "/"
	case ir.OpMod:
		return "%"
	default:
		return "?"
	}
}

// genComparison renders a `[[ ]]`-style test predicate: string-typed
// operands use the lexical forms (`==`, `<`, ...), everything else uses
// the numeric test flags. When comparison_wrap is enabled the predicate
// is lifted to an integer 0/1 via a `$([[ ]] && echo 1 || echo 0)`
// subshell so it can be composed like any other value.
func (g *Generator) genComparison(b *ir.BinOp) string {
	isString := b.Left.Type().Equal(ir.StringType) || b.Right.Type().Equal(ir.StringType)
	left := g.genExpr(b.Left)
	right := g.genExpr(b.Right)

	var pred string
	if isString {
		switch b.Op {
		case ir.OpEq:
			pred = fmt.Sprintf("%s == %s", left, right)
		case ir.OpNeq:
			pred = fmt.Sprintf("%s != %s", left, right)
		case ir.OpLt:
			pred = fmt.Sprintf("%s < %s", left, right)
		case ir.OpGt:
			pred = fmt.Sprintf("%s > %s", left, right)
		case ir.OpLte:
			pred = fmt.Sprintf("! ( %s > %s )", left, right)
		case ir.OpGte:
			pred = fmt.Sprintf("! ( %s < %s )", left, right)
		}
	} else {
		switch b.Op {
		case ir.OpEq:
			pred = fmt.Sprintf("%s -eq %s", left, right)
		case ir.OpNeq:
			pred = fmt.Sprintf("%s -ne %s", left, right)
		case ir.OpLt:
			pred = fmt.Sprintf("%s -lt %s", left, right)
		case ir.OpLte:
			pred = fmt.Sprintf("%s -le %s", left, right)
		case ir.OpGt:
			pred = fmt.Sprintf("%s -gt %s", left, right)
		case ir.OpGte:
			pred = fmt.Sprintf("%s -ge %s", left, right)
		}
	}

	if g.comparisonWrap.top() {
		return fmt.Sprintf("$([[ %s ]] && echo 1 || echo 0)", pred)
	}
	return pred
}

// genLogical composes two operands with `&&`/`||`, lifting each operand
// to a bare test predicate first, then lifts the WHOLE expression to an
// integer 0/1 exactly once — never each sub-comparison individually.
func (g *Generator) genLogical(b *ir.BinOp) string {
	g.comparisonWrap.disable()
	left := asPredicate(b.Left, g.genExpr(b.Left))
	right := asPredicate(b.Right, g.genExpr(b.Right))
	g.comparisonWrap.reset()

	op := "&&"
	if b.Op == ir.OpOr {
		op = "||"
	}
	pred := fmt.Sprintf("%s %s %s", left, op, right)

	if g.comparisonWrap.top() {
		return fmt.Sprintf("$([[ %s ]] && echo 1 || echo 0)", pred)
	}
	return pred
}

// genUnaryOp renders `Negate` as Bash arithmetic negation and `Not` as a
// boolean-lift of the inverted test.
func (g *Generator) genUnaryOp(u *ir.UnaryOp) string {
	if u.Op == ir.OpNegate {
		g.quoteVariable.disable()
		operand := g.genExpr(u.Operand)
		g.quoteVariable.reset()
		return fmt.Sprintf("$(( -%s ))", operand)
	}

	g.comparisonWrap.disable()
	operand := asPredicate(u.Operand, g.genExpr(u.Operand))
	g.comparisonWrap.reset()
	return fmt.Sprintf("$(! [[ %s ]] && echo 1 || echo 0)", operand)
}

// asPredicate returns text unchanged when n is already a comparison or
// logical BinOp (and so already a valid `[[ ]]` test), otherwise appends
// ` -eq 1` to treat text's computed 0/1 integer as a truth value.
func asPredicate(n ir.Node, text string) string {
	if b, ok := n.(*ir.BinOp); ok && (b.IsComparison() || b.IsLogical()) {
		return text
	}
	return text + " -eq 1"
}
