package lowering_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdenniston/bish/ir"
	"github.com/tdenniston/bish/lowering"
)

// buildAddAndCall mirrors what the parser produces for:
//
//	def add(x, y) { return x + y; } a = add(2, 3);
func buildAddAndCall() (m *ir.Module, add *ir.Function, call *ir.FunctionCall, aAssign *ir.Assignment) {
	x := &ir.Variable{Name: ir.NewName("x")}
	y := &ir.Variable{Name: ir.NewName("y")}
	ret := &ir.ReturnStatement{Value: &ir.BinOp{Op: ir.OpAdd, Left: &ir.Location{Variable: x}, Right: &ir.Location{Variable: y}}}
	add = &ir.Function{Name: ir.NewName("add"), Args: []*ir.Variable{x, y}, Body: &ir.Block{Statements: []ir.Node{ret}}}

	arg1 := &ir.Variable{Name: ir.NewName("_1")}
	arg2 := &ir.Variable{Name: ir.NewName("_2")}
	argAssign1 := &ir.Assignment{Target: &ir.Location{Variable: arg1}, Values: []ir.Node{&ir.IntegerLit{Value: 2}}}
	argAssign2 := &ir.Assignment{Target: &ir.Location{Variable: arg2}, Values: []ir.Node{&ir.IntegerLit{Value: 3}}}
	call = &ir.FunctionCall{Target: add, Args: []*ir.Assignment{argAssign1, argAssign2}}

	a := &ir.Variable{Name: ir.NewName("a")}
	aAssign = &ir.Assignment{Target: &ir.Location{Variable: a}, Values: []ir.Node{call}}

	main := &ir.Function{Name: ir.NewName("main"), Body: &ir.Block{
		Statements: []ir.Node{argAssign1, argAssign2, aAssign},
	}}
	m = &ir.Module{Functions: []*ir.Function{add, main}, Main: main}
	return m, add, call, aAssign
}

func TestReturnValuesRewritesReturnExprToAssignment(t *testing.T) {
	m, add, _, _ := buildAddAndCall()
	lowering.ApplyReturnValues(m)

	require.NotNil(t, add.RetVal)
	assert.True(t, add.RetVal.Global)
	require.Len(t, add.Body.Statements, 2)

	assign, ok := add.Body.Statements[0].(*ir.Assignment)
	require.True(t, ok)
	assert.Same(t, add.RetVal, assign.Target.Variable)

	bareReturn, ok := add.Body.Statements[1].(*ir.ReturnStatement)
	require.True(t, ok)
	assert.Nil(t, bareReturn.Value)
}

func TestReturnValuesHoistsCallOutOfExpressionPosition(t *testing.T) {
	m, add, call, aAssign := buildAddAndCall()
	lowering.ApplyReturnValues(m)

	main := m.Main
	// argAssign1, argAssign2, call, tmp = retval, a = tmp
	require.Len(t, main.Body.Statements, 5)

	assert.Same(t, call, main.Body.Statements[2], "the call itself must become a standalone statement")

	tmpAssign, ok := main.Body.Statements[3].(*ir.Assignment)
	require.True(t, ok)
	tmpRead, ok := tmpAssign.Values[0].(*ir.Location)
	require.True(t, ok)
	assert.Same(t, add.RetVal, tmpRead.Variable)

	finalAssign, ok := main.Body.Statements[4].(*ir.Assignment)
	require.True(t, ok)
	assert.Same(t, aAssign, finalAssign)
	tmpRef, ok := finalAssign.Values[0].(*ir.Location)
	require.True(t, ok)
	assert.Same(t, tmpAssign.Target.Variable, tmpRef.Variable,
		"the original assignment's RHS must now reference the hoisted temp")
}

func TestReturnValuesSkipsCallsAlreadyWrapped(t *testing.T) {
	m, _, call, _ := buildAddAndCall()
	call.Wrapped = true
	lowering.ApplyReturnValues(m)

	main := m.Main
	require.Len(t, main.Body.Statements, 3, "a wrapped call must not be hoisted out of its assignment")
}

func TestReturnValuesLeavesExternCallReturnsAlone(t *testing.T) {
	extern := &ir.ExternCall{Body: ir.InterpolatedString{Items: []ir.InterpolatedStringItem{{Literal: "echo hi"}}}}
	ret := &ir.ReturnStatement{Value: extern}
	fn := &ir.Function{Name: ir.NewName("greet"), Body: &ir.Block{Statements: []ir.Node{ret}}}
	m := &ir.Module{Functions: []*ir.Function{fn}}

	lowering.ApplyReturnValues(m)

	require.NotNil(t, fn.RetVal, "a function with any value-returning return still gets a retval global")
	require.Len(t, fn.Body.Statements, 1)
	stillReturn, ok := fn.Body.Statements[0].(*ir.ReturnStatement)
	require.True(t, ok)
	assert.Same(t, extern, stillReturn.Value, "an ExternCall return must be left untouched by the rewrite")
}

func TestFunctionsWithoutReturnValueGetNoRetval(t *testing.T) {
	fn := &ir.Function{Name: ir.NewName("noop"), Body: &ir.Block{Statements: []ir.Node{&ir.ReturnStatement{}}}}
	m := &ir.Module{Functions: []*ir.Function{fn}}

	lowering.ApplyReturnValues(m)

	assert.Nil(t, fn.RetVal)
}
