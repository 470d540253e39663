// Package parser implements Bish's recursive-descent parser: it turns a
// lexer.Lexer's token stream directly into a fully-scoped ir.Module,
// threading a symtab.ParseScope through every call so references resolve
// (or are declared) the moment they're parsed.
package parser

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tdenniston/bish/bisherr"
	"github.com/tdenniston/bish/ir"
	"github.com/tdenniston/bish/lexer"
	"github.com/tdenniston/bish/symtab"
	"github.com/tdenniston/bish/token"
)

// Parser holds a single current token; lookahead beyond it is obtained,
// where the grammar needs it, by parsing further and inspecting the new
// current token rather than by buffering a second token. This matters
// for externcall bodies: the lexer's raw character cursor must sit
// exactly after the `@(` before scanning begins, which only holds if no
// token has been spuriously pre-lexed past it.
type Parser struct {
	lex   *lexer.Lexer
	cur   token.Token
	scope *symtab.ParseScope

	module     *ir.Module
	blockStack []*ir.Block
}

// Parse parses src (associated with path for diagnostics) into a Module.
func Parse(path, src string) (*ir.Module, error) {
	p, err := newParser(path, src)
	if err != nil {
		return nil, err
	}
	return p.parseModule()
}

func namespaceFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newParser(path, src string) (*Parser, error) {
	// The grammar treats a module as a single block; rather than special
	// case the top level, the source is textually wrapped in a synthetic
	// outer `{ ... }` so parseBlock alone can parse it.
	lx := lexer.New(path, "{"+src+"}")
	scope := symtab.NewParseScope()

	argsVar := &ir.Variable{Name: ir.NewName("args")}
	argsVar.SetType(ir.ArrayOf(ir.StringType))
	scope.Define("args", argsVar)

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	p := &Parser{
		lex:   lx,
		scope: scope,
		module: &ir.Module{
			Path:        absPath,
			NamespaceID: namespaceFromPath(path),
		},
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		var lerr *lexer.Error
		if errors.As(err, &lerr) {
			return bisherr.Lex(lerr.Pos, "%s", lerr.Msg)
		}
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) expect(t token.Type) (token.Token, error) {
	if p.cur.Type != t {
		return token.Token{}, bisherr.Parse(p.cur.Pos, "expected %s, got %s (%q)", t, p.cur.Type, p.cur.Literal)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return tok, nil
}

func (p *Parser) currentBlock() *ir.Block {
	return p.blockStack[len(p.blockStack)-1]
}

func debugAt(path string, pos token.Position) ir.DebugInfo {
	return ir.DebugInfo{Path: path, Line: pos.Line}
}

func (p *Parser) setDebug(n ir.Node, pos token.Position) {
	ir.SetDebug(n, debugAt(p.module.Path, pos))
}

// ---------------------------------------------------------------------
// Module / block
// ---------------------------------------------------------------------

func (p *Parser) parseModule() (*ir.Module, error) {
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.EOS {
		return nil, bisherr.Parse(p.cur.Pos, "unexpected trailing input after module body")
	}

	main := &ir.Function{Name: ir.NewName("main"), Body: body}
	p.setDebug(main, token.Position{Line: 1})
	p.module.Main = main
	p.module.Functions = append(p.module.Functions, main)

	extractGlobals(p.module, body)
	return p.module, nil
}

// extractGlobals walks body's direct statements; the first Assignment to
// each distinct Variable is moved into Module.GlobalVariables and marked
// Global, and dropped from body. Subsequent reassignments of the same
// variable remain in body.
func extractGlobals(m *ir.Module, body *ir.Block) {
	seen := make(map[*ir.Variable]bool)
	kept := body.Statements[:0:0]
	for _, stmt := range body.Statements {
		if assign, ok := stmt.(*ir.Assignment); ok {
			v := assign.Target.Variable
			if !seen[v] {
				seen[v] = true
				v.Global = true
				m.GlobalVariables = append(m.GlobalVariables, assign)
				continue
			}
		}
		kept = append(kept, stmt)
	}
	body.Statements = kept
}

// parseBlock parses `'{' { stmt } '}'`, pushing a fresh variable scope
// and statement-list for its duration. `def` inside a block registers a
// function on the Module rather than appending a statement.
func (p *Parser) parseBlock() (*ir.Block, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	block := &ir.Block{}
	p.scope.PushBlock()
	p.blockStack = append(p.blockStack, block)

	for p.cur.Type != token.RBrace {
		if p.cur.Type == token.EOS {
			p.scope.PopBlock()
			p.blockStack = p.blockStack[:len(p.blockStack)-1]
			return nil, bisherr.Parse(p.cur.Pos, "unexpected end of source, expected '}'")
		}
		if p.cur.Type == token.Def {
			if err := p.parseDef(); err != nil {
				p.scope.PopBlock()
				p.blockStack = p.blockStack[:len(p.blockStack)-1]
				return nil, err
			}
			continue
		}
		stmt, err := p.parseStmt()
		if err != nil {
			p.scope.PopBlock()
			p.blockStack = p.blockStack[:len(p.blockStack)-1]
			return nil, err
		}
		block.Append(stmt)
	}

	p.blockStack = p.blockStack[:len(p.blockStack)-1]
	p.scope.PopBlock()
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return block, nil
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) parseStmt() (ir.Node, error) {
	switch p.cur.Type {
	case token.Import:
		return p.parseImport()
	case token.Return:
		return p.parseReturn()
	case token.Break:
		return p.parseLoopControl(ir.CtrlBreak)
	case token.Continue:
		return p.parseLoopControl(ir.CtrlContinue)
	case token.If:
		return p.parseIf()
	case token.For:
		return p.parseFor()
	case token.LBrace:
		return p.parseBlock()
	case token.At:
		call, err := p.parseExternCall()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return call, nil
	default:
		return p.parseAssignOrCallStmt()
	}
}

func (p *Parser) parseImport() (ir.Node, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Type != token.Symbol {
		return nil, bisherr.Parse(p.cur.Pos, "expected module name after import, got %s", p.cur.Type)
	}
	name := p.cur.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	imp := &ir.ImportStatement{Name: name}
	p.setDebug(imp, pos)
	p.module.Imports = append(p.module.Imports, imp)
	return imp, nil
}

func (p *Parser) parseReturn() (ir.Node, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	var value ir.Node
	if p.cur.Type != token.Semicolon {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		value = v
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	ret := &ir.ReturnStatement{Value: value}
	p.setDebug(ret, pos)
	return ret, nil
}

func (p *Parser) parseLoopControl(kind ir.LoopControlKind) (ir.Node, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	n := &ir.LoopControlStatement{Kind: kind}
	p.setDebug(n, pos)
	return n, nil
}

func (p *Parser) parseIf() (ir.Node, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ir.IfStatement{Condition: cond, Then: then}
	p.setDebug(stmt, pos)

	for p.cur.Type == token.Else {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type == token.If {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(token.LParen); err != nil {
				return nil, err
			}
			c, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.ElseIfs = append(stmt.ElseIfs, ir.PredicatedBlock{Condition: c, Body: b})
			continue
		}
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = b
		break
	}
	return stmt, nil
}

func (p *Parser) parseFor() (ir.Node, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if p.cur.Type != token.Symbol {
		return nil, bisherr.Parse(p.cur.Pos, "expected loop variable name, got %s", p.cur.Type)
	}
	varName := p.cur.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}
	lower, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	var upper ir.Node
	if p.cur.Type == token.DoubleDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		u, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		upper = u
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	p.scope.PushBlock()
	v := &ir.Variable{Name: ir.NewName(varName)}
	p.scope.Define(varName, v)
	body, err := p.parseBlock()
	if err != nil {
		p.scope.PopBlock()
		return nil, err
	}
	p.scope.PopBlock()

	loop := &ir.ForLoop{Var: v, Lower: lower, Upper: upper, Body: body}
	p.setDebug(loop, pos)
	return loop, nil
}

// parseDef parses `'def' qname '(' [varlist] ')' block` and registers the
// resulting Function on the Module directly; it is not itself a
// statement, so the enclosing parseBlock loop does not append anything
// for it.
func (p *Parser) parseDef() error {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return err
	}
	qn, err := p.parseQName()
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}

	p.scope.PushBlock()
	var args []*ir.Variable
	if p.cur.Type != token.RParen {
		for {
			if p.cur.Type != token.Symbol {
				p.scope.PopBlock()
				return bisherr.Parse(p.cur.Pos, "expected parameter name, got %s", p.cur.Type)
			}
			name := p.cur.Literal
			if err := p.advance(); err != nil {
				return err
			}
			v := &ir.Variable{Name: ir.NewName(name)}
			p.scope.Define(name, v)
			args = append(args, v)
			if p.cur.Type == token.Comma {
				if err := p.advance(); err != nil {
					return err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		p.scope.PopBlock()
		return err
	}

	fn := p.scope.LookupOrNewFunction(qn)
	if !fn.IsDummy() {
		p.scope.PopBlock()
		return bisherr.Parse(pos, "function %s redefined", qn)
	}

	body, err := p.parseBlock()
	if err != nil {
		p.scope.PopBlock()
		return err
	}
	p.scope.PopBlock()

	fn.Args = args
	fn.Body = body
	p.setDebug(fn, pos)
	p.scope.DefineFunction(fn)
	p.module.Functions = append(p.module.Functions, fn)
	return nil
}

// parseAssignOrCallStmt handles the two statement forms that both begin
// with a qname: `location '=' ...` and a bare `funcall ';'`.
func (p *Parser) parseAssignOrCallStmt() (ir.Node, error) {
	pos := p.cur.Pos
	qn, err := p.parseQName()
	if err != nil {
		return nil, err
	}

	if p.cur.Type == token.LParen {
		call, err := p.parseFuncallRest(qn, pos)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return call, nil
	}

	loc, err := p.buildLocation(qn, pos)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Equals); err != nil {
		return nil, err
	}

	var values []ir.Node
	if p.cur.Type == token.LBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.cur.Type == token.Comma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
	} else {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		values = []ir.Node{v}
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}

	assign := &ir.Assignment{Target: loc, Values: values}
	p.setDebug(assign, pos)
	return assign, nil
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (p *Parser) parseExpr() (ir.Node, error) {
	left, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.Pipe {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseLogical()
		if err != nil {
			return nil, err
		}
		red := &ir.IORedirection{Kind: ir.RedirPipe, Left: left, Right: right}
		p.setDebug(red, pos)
		left = red
	}
	return left, nil
}

func (p *Parser) parseLogical() (ir.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.And || p.cur.Type == token.Or {
		op := ir.OpAnd
		if p.cur.Type == token.Or {
			op = ir.OpOr
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		n := &ir.BinOp{Op: op, Left: left, Right: right}
		p.setDebug(n, pos)
		left = n
	}
	return left, nil
}

func (p *Parser) parseEquality() (ir.Node, error) {
	left, err := p.parseRelative()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == token.DoubleEquals || p.cur.Type == token.NotEquals {
		op := ir.OpEq
		if p.cur.Type == token.NotEquals {
			op = ir.OpNeq
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelative()
		if err != nil {
			return nil, err
		}
		n := &ir.BinOp{Op: op, Left: left, Right: right}
		p.setDebug(n, pos)
		return n, nil
	}
	return left, nil
}

func (p *Parser) parseRelative() (ir.Node, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case token.LAngle, token.LAngleEquals, token.RAngle, token.RAngleEquals:
		var op ir.BinOpKind
		switch p.cur.Type {
		case token.LAngle:
			op = ir.OpLt
		case token.LAngleEquals:
			op = ir.OpLte
		case token.RAngle:
			op = ir.OpGt
		case token.RAngleEquals:
			op = ir.OpGte
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		n := &ir.BinOp{Op: op, Left: left, Right: right}
		p.setDebug(n, pos)
		return n, nil
	}
	return left, nil
}

func (p *Parser) parseArith() (ir.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.Plus || p.cur.Type == token.Minus {
		op := ir.OpAdd
		if p.cur.Type == token.Minus {
			op = ir.OpSub
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		n := &ir.BinOp{Op: op, Left: left, Right: right}
		p.setDebug(n, pos)
		left = n
	}
	return left, nil
}

func (p *Parser) parseTerm() (ir.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.Star || p.cur.Type == token.Slash || p.cur.Type == token.Percent {
		var op ir.BinOpKind
		switch p.cur.Type {
		case token.Star:
			op = ir.OpMul
		case token.Slash:
			op = ir.OpDiv
		case token.Percent:
			op = ir.OpMod
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ir.BinOp{Op: op, Left: left, Right: right}
		p.setDebug(n, pos)
		left = n
	}
	return left, nil
}

func (p *Parser) parseUnary() (ir.Node, error) {
	if p.cur.Type == token.Minus || p.cur.Type == token.Not {
		op := ir.OpNegate
		if p.cur.Type == token.Not {
			op = ir.OpNot
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ir.UnaryOp{Op: op, Operand: operand}
		p.setDebug(n, pos)
		return n, nil
	}
	return p.parseFactor()
}

func (p *Parser) parseFactor() (ir.Node, error) {
	switch p.cur.Type {
	case token.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case token.At:
		return p.parseExternCall()
	case token.Symbol:
		return p.parseLocationOrFuncall()
	default:
		return p.parseAtomLiteral()
	}
}

// parseAtom implements the grammar's restricted `atom` production (used
// by for-loop bounds), which excludes parenthesised expressions,
// funcalls and externcalls.
func (p *Parser) parseAtom() (ir.Node, error) {
	if p.cur.Type == token.Symbol {
		pos := p.cur.Pos
		qn, err := p.parseQName()
		if err != nil {
			return nil, err
		}
		return p.buildLocation(qn, pos)
	}
	return p.parseAtomLiteral()
}

func (p *Parser) parseAtomLiteral() (ir.Node, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case token.Int:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, perr := strconv.ParseInt(lit, 10, 64)
		if perr != nil {
			return nil, bisherr.Parse(pos, "invalid integer literal %q", lit)
		}
		n := &ir.IntegerLit{Value: val}
		p.setDebug(n, pos)
		return n, nil
	case token.Fractional:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, perr := strconv.ParseFloat(lit, 64)
		if perr != nil {
			return nil, bisherr.Parse(pos, "invalid fractional literal %q", lit)
		}
		n := &ir.FractionalLit{Value: val}
		p.setDebug(n, pos)
		return n, nil
	case token.Quote:
		raw := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		interp, err := p.parseInterpolatedLiteral(raw, pos)
		if err != nil {
			return nil, err
		}
		n := &ir.StringLit{Value: interp}
		p.setDebug(n, pos)
		return n, nil
	case token.True, token.False:
		val := p.cur.Type == token.True
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ir.BooleanLit{Value: val}
		p.setDebug(n, pos)
		return n, nil
	default:
		return nil, bisherr.Parse(pos, "unexpected token %s, expected an expression", p.cur.Type)
	}
}

// parseLocationOrFuncall parses a qname and then, depending on what
// follows, either a call's argument list or a location's optional index.
func (p *Parser) parseLocationOrFuncall() (ir.Node, error) {
	pos := p.cur.Pos
	qn, err := p.parseQName()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == token.LParen {
		return p.parseFuncallRest(qn, pos)
	}
	return p.buildLocation(qn, pos)
}

func (p *Parser) buildLocation(qn ir.Name, pos token.Position) (*ir.Location, error) {
	// Bish variables are never namespace-qualified (only functions are,
	// post import-linking); a qname's qualifier, if present here, is
	// simply ignored for scope resolution.
	v := p.scope.LookupOrNewVar(qn.Bare)
	loc := &ir.Location{Variable: v}
	p.setDebug(loc, pos)
	if p.cur.Type == token.LBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		loc.Index = idx
	}
	return loc, nil
}

// parseFuncallRest parses the `'(' [exprlist] ')'` tail of a funcall and
// performs call-site argument lowering: every argument expression is
// hoisted into a freshly named local Assignment appended to the current
// block, so downstream passes never see a raw expression in argument
// position.
func (p *Parser) parseFuncallRest(qn ir.Name, pos token.Position) (*ir.FunctionCall, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var argExprs []ir.Node
	if p.cur.Type != token.RParen {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			argExprs = append(argExprs, e)
			if p.cur.Type == token.Comma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	fn := p.scope.LookupOrNewFunction(qn)
	call := &ir.FunctionCall{Target: fn}
	p.setDebug(call, pos)

	for _, e := range argExprs {
		name := p.scope.FreshName()
		v := &ir.Variable{Name: ir.NewName(name)}
		p.scope.Define(name, v)
		loc := &ir.Location{Variable: v}
		p.setDebug(loc, pos)
		assign := &ir.Assignment{Target: loc, Values: []ir.Node{e}}
		p.setDebug(assign, pos)
		p.currentBlock().Append(assign)
		call.Args = append(call.Args, assign)
	}
	return call, nil
}

// parseQName parses `[ SYM '.' ] SYM`.
func (p *Parser) parseQName() (ir.Name, error) {
	if p.cur.Type != token.Symbol {
		return ir.Name{}, bisherr.Parse(p.cur.Pos, "expected identifier, got %s", p.cur.Type)
	}
	first := p.cur.Literal
	if err := p.advance(); err != nil {
		return ir.Name{}, err
	}
	if p.cur.Type == token.Dot {
		if err := p.advance(); err != nil {
			return ir.Name{}, err
		}
		if p.cur.Type != token.Symbol {
			return ir.Name{}, bisherr.Parse(p.cur.Pos, "expected identifier after '.', got %s", p.cur.Type)
		}
		second := p.cur.Literal
		if err := p.advance(); err != nil {
			return ir.Name{}, err
		}
		return ir.NewName(second).WithQualifier(first), nil
	}
	return ir.NewName(first), nil
}

// ---------------------------------------------------------------------
// Extern calls
// ---------------------------------------------------------------------

// parseExternCall parses `'@' '(' interp ')'`. Crucially it never calls
// p.expect(token.LParen) (which would tokenize one token past the '('
// using ordinary lexing rules, corrupting the raw cursor for the shell
// body that follows): the '(' is lexed as the current token, which leaves
// the lexer's raw rune cursor immediately after it, and scanExternCallBody
// reads the shell body from that cursor at the character level.
func (p *Parser) parseExternCall() (ir.Node, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil { // consume '@'
		return nil, err
	}
	if p.cur.Type != token.LParen {
		return nil, bisherr.Parse(p.cur.Pos, "expected '(' after '@', got %s", p.cur.Type)
	}
	body, err := p.scanExternCallBody(pos)
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil { // resume token lexing after ')'
		return nil, err
	}
	call := &ir.ExternCall{Body: body}
	p.setDebug(call, pos)
	return call, nil
}

func isIdentStartRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPartRune(r rune) bool {
	return isIdentStartRune(r) || (r >= '0' && r <= '9')
}

// scanExternCallBody reads raw shell text up to (not including) the
// paren that matches the '(' already consumed, tracking nesting depth so
// parens written by the embedded shell code don't terminate early. A
// bare `$identifier` becomes a Variable interpolation item; a `$(`
// command substitution is copied through verbatim as a Raw item, its own
// internal parens also counted toward the nesting depth.
func (p *Parser) scanExternCallBody(pos token.Position) (ir.InterpolatedString, error) {
	var items []ir.InterpolatedStringItem
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			items = append(items, ir.InterpolatedStringItem{Literal: lit.String()})
			lit.Reset()
		}
	}
	depth := 0
	for {
		r, ok := p.lex.PeekRune()
		if !ok {
			return ir.InterpolatedString{}, bisherr.Parse(pos, "unterminated extern call")
		}
		if r == ')' && depth == 0 {
			p.lex.AdvanceRune()
			break
		}
		if r == '(' {
			depth++
			lit.WriteRune(r)
			p.lex.AdvanceRune()
			continue
		}
		if r == ')' {
			depth--
			lit.WriteRune(r)
			p.lex.AdvanceRune()
			continue
		}
		if r == '\\' {
			p.lex.AdvanceRune()
			if nr, ok := p.lex.PeekRune(); ok {
				lit.WriteRune(nr)
				p.lex.AdvanceRune()
			}
			continue
		}
		if r == '$' {
			p.lex.AdvanceRune()
			nr, ok := p.lex.PeekRune()
			if ok && nr == '(' {
				p.lex.AdvanceRune()
				var sub strings.Builder
				sub.WriteString("$(")
				subDepth := 1
				for {
					r2, ok2 := p.lex.PeekRune()
					if !ok2 {
						return ir.InterpolatedString{}, bisherr.Parse(pos, "unterminated $(...) in extern call")
					}
					if r2 == '(' {
						subDepth++
					}
					if r2 == ')' {
						subDepth--
						if subDepth == 0 {
							sub.WriteRune(r2)
							p.lex.AdvanceRune()
							break
						}
					}
					sub.WriteRune(r2)
					p.lex.AdvanceRune()
				}
				flush()
				items = append(items, ir.InterpolatedStringItem{Raw: sub.String()})
				continue
			}
			if ok && isIdentStartRune(nr) {
				var name strings.Builder
				for {
					r2, ok2 := p.lex.PeekRune()
					if !ok2 || !isIdentPartRune(r2) {
						break
					}
					name.WriteRune(r2)
					p.lex.AdvanceRune()
				}
				v := p.scope.LookupOrNewVar(name.String())
				flush()
				items = append(items, ir.InterpolatedStringItem{Variable: v})
				continue
			}
			lit.WriteRune('$')
			if ok {
				lit.WriteRune(nr)
				p.lex.AdvanceRune()
			}
			continue
		}
		lit.WriteRune(r)
		p.lex.AdvanceRune()
	}
	flush()
	return ir.InterpolatedString{Items: items}, nil
}

// parseInterpolatedLiteral splits a Quote token's already-captured raw
// body into literal/variable/raw-subshell items. Unlike extern-call
// bodies, this operates over a Go string already removed from the
// lexer, since the whole quoted literal was scanned as one token.
func (p *Parser) parseInterpolatedLiteral(raw string, pos token.Position) (ir.InterpolatedString, error) {
	runes := []rune(raw)
	var items []ir.InterpolatedStringItem
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			items = append(items, ir.InterpolatedStringItem{Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			lit.WriteRune(runes[i+1])
			i += 2
			continue
		}
		if r == '$' && i+1 < len(runes) {
			if runes[i+1] == '(' {
				depth := 1
				j := i + 2
				var sub strings.Builder
				sub.WriteString("$(")
				for j < len(runes) && depth > 0 {
					switch runes[j] {
					case '(':
						depth++
					case ')':
						depth--
						if depth == 0 {
							sub.WriteRune(')')
							j++
						}
					}
					if depth == 0 {
						break
					}
					sub.WriteRune(runes[j])
					j++
				}
				if depth != 0 {
					return ir.InterpolatedString{}, bisherr.Parse(pos, "unterminated $(...) in interpolated string")
				}
				flush()
				items = append(items, ir.InterpolatedStringItem{Raw: sub.String()})
				i = j
				continue
			}
			if isIdentStartRune(runes[i+1]) {
				j := i + 1
				for j < len(runes) && isIdentPartRune(runes[j]) {
					j++
				}
				name := string(runes[i+1 : j])
				v, err := p.scope.GetDefinedVariable(name)
				if err != nil {
					return ir.InterpolatedString{}, bisherr.Parse(pos, "%v", err)
				}
				flush()
				items = append(items, ir.InterpolatedStringItem{Variable: v})
				i = j
				continue
			}
		}
		lit.WriteRune(r)
		i++
	}
	flush()
	return ir.InterpolatedString{Items: items}, nil
}
