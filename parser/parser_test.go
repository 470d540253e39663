package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdenniston/bish/ir"
	"github.com/tdenniston/bish/parser"
)

func TestGlobalVariableExtraction(t *testing.T) {
	m, err := parser.Parse("mod.bish", `a = 1; b = 2; c = a + b;`)
	require.NoError(t, err)

	require.Len(t, m.GlobalVariables, 3)
	assert.Equal(t, "a", m.GlobalVariables[0].Target.Variable.Name.Bare)
	assert.Equal(t, "b", m.GlobalVariables[1].Target.Variable.Name.Bare)
	assert.Equal(t, "c", m.GlobalVariables[2].Target.Variable.Name.Bare)
	assert.Empty(t, m.Main.Body.Statements)
}

func TestReassignmentStaysInMain(t *testing.T) {
	m, err := parser.Parse("mod.bish", `a = 1; a = 2;`)
	require.NoError(t, err)

	require.Len(t, m.GlobalVariables, 1)
	require.Len(t, m.Main.Body.Statements, 1)
	second, ok := m.Main.Body.Statements[0].(*ir.Assignment)
	require.True(t, ok)
	assert.Same(t, m.GlobalVariables[0].Target.Variable, second.Target.Variable)
}

func TestFunctionDefinitionAndCallLifting(t *testing.T) {
	m, err := parser.Parse("mod.bish", `def add(x, y) { return x + y; } a = add(2, 3);`)
	require.NoError(t, err)

	var add *ir.Function
	for _, fn := range m.Functions {
		if fn.Name.Bare == "add" {
			add = fn
		}
	}
	require.NotNil(t, add)
	require.Len(t, add.Args, 2)

	var call *ir.FunctionCall
	for _, g := range m.GlobalVariables {
		if fc, ok := g.Values[0].(*ir.FunctionCall); ok {
			call = fc
		}
	}
	require.NotNil(t, call)
	assert.Same(t, add, call.Target)
	require.Len(t, call.Args, 2)
	for _, argAssign := range call.Args {
		assert.NotNil(t, argAssign.Target.Variable)
	}
}

func TestArrayLiteralAndForLoop(t *testing.T) {
	m, err := parser.Parse("mod.bish", `a = [1, 2, 3]; for (x in a) { b = x + 1; }`)
	require.NoError(t, err)

	require.Len(t, m.GlobalVariables, 1)
	assert.True(t, m.GlobalVariables[0].IsArrayInit())
	require.Len(t, m.GlobalVariables[0].Values, 3)

	require.Len(t, m.Main.Body.Statements, 1)
	loop, ok := m.Main.Body.Statements[0].(*ir.ForLoop)
	require.True(t, ok)
	assert.Equal(t, "x", loop.Var.Name.Bare)
	assert.Nil(t, loop.Upper)
}

func TestIfWithLogicalCondition(t *testing.T) {
	m, err := parser.Parse("mod.bish", `if (1 < 2 and 2 < 3) { a = 1; }`)
	require.NoError(t, err)

	require.Len(t, m.Main.Body.Statements, 1)
	ifStmt, ok := m.Main.Body.Statements[0].(*ir.IfStatement)
	require.True(t, ok)
	cond, ok := ifStmt.Condition.(*ir.BinOp)
	require.True(t, ok)
	assert.Equal(t, ir.OpAnd, cond.Op)
	assert.True(t, cond.IsLogical())
}

func TestExternCallPipeline(t *testing.T) {
	m, err := parser.Parse("mod.bish", `a = @(ls $dir | wc -l);`)
	require.NoError(t, err)

	require.Len(t, m.GlobalVariables, 1)
	call, ok := m.GlobalVariables[0].Values[0].(*ir.ExternCall)
	require.True(t, ok)

	var sawVar, sawPipe bool
	for _, item := range call.Body.Items {
		if item.Variable != nil && item.Variable.Name.Bare == "dir" {
			sawVar = true
		}
		if containsPipe(item.Literal) {
			sawPipe = true
		}
	}
	assert.True(t, sawVar, "extern call body must interpolate $dir as a Variable item")
	assert.True(t, sawPipe, "extern call body must retain the shell pipe verbatim")
}

func containsPipe(s string) bool {
	for _, r := range s {
		if r == '|' {
			return true
		}
	}
	return false
}

func TestImportAndQualifiedCall(t *testing.T) {
	m, err := parser.Parse("main.bish", `import lib; x = lib.greet("x");`)
	require.NoError(t, err)

	require.Len(t, m.Imports, 1)
	assert.Equal(t, "lib", m.Imports[0].Name)

	call, ok := m.GlobalVariables[len(m.GlobalVariables)-1].Values[0].(*ir.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "greet", call.Target.Name.Bare)
	assert.True(t, call.Target.Name.HasQualifier("lib"))
	assert.True(t, call.Target.IsDummy(), "unresolved before import linking runs")
}

func TestUndefinedVariableInStringInterpolationErrors(t *testing.T) {
	_, err := parser.Parse("mod.bish", `a = "$never_declared";`)
	require.Error(t, err)
}

func TestFunctionRedefinitionErrors(t *testing.T) {
	_, err := parser.Parse("mod.bish", `def f() { return 1; } def f() { return 2; }`)
	require.Error(t, err)
}

func TestUnterminatedBlockErrors(t *testing.T) {
	_, err := parser.Parse("mod.bish", `if (1 < 2) { a = 1;`)
	require.Error(t, err)
}

func TestArgsBuiltinIsPreinstalled(t *testing.T) {
	m, err := parser.Parse("mod.bish", `a = args[0];`)
	require.NoError(t, err)
	require.Len(t, m.GlobalVariables, 1)
	assign := m.GlobalVariables[0]
	loc, ok := assign.Values[0].(*ir.Location)
	require.True(t, ok)
	assert.Equal(t, "args", loc.Variable.Name.Bare)
	assert.NotNil(t, loc.Index)
}
