package lowering_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdenniston/bish/ir"
	"github.com/tdenniston/bish/lowering"
)

// buildArrayParamCall builds: def grow(xs) { ... } a = [1]; grow(a);
// with xs's Type already set to Array(Integer), as type-checking would
// have left it, and returns the module plus the call site.
func buildArrayParamCall() (*ir.Module, *ir.FunctionCall) {
	xs := &ir.Variable{Name: ir.NewName("xs")}
	xs.SetType(ir.ArrayOf(ir.IntegerType))
	grow := &ir.Function{Name: ir.NewName("grow"), Args: []*ir.Variable{xs}, Body: &ir.Block{}}

	argLocal := &ir.Variable{Name: ir.NewName("_1")}
	argLocal.SetType(ir.ArrayOf(ir.IntegerType))
	argAssign := &ir.Assignment{
		Target: &ir.Location{Variable: argLocal},
		Values: []ir.Node{&ir.Location{Variable: argLocal}},
	}
	call := &ir.FunctionCall{Target: grow, Args: []*ir.Assignment{argAssign}}

	main := &ir.Function{Name: ir.NewName("main"), Body: &ir.Block{Statements: []ir.Node{argAssign, call}}}
	m := &ir.Module{Functions: []*ir.Function{grow, main}, Main: main}
	return m, call
}

func TestByReferenceSynthesizesSurrogateForArrayParam(t *testing.T) {
	m, call := buildArrayParamCall()
	lowering.ApplyByReference(m)

	grow := m.Functions[0]
	require.NotNil(t, grow.Args[0].RefSurrogate)
	assert.True(t, grow.Args[0].RefSurrogate.Global)
	assert.True(t, grow.Args[0].RefSurrogate.Type().IsArray())

	assert.Same(t, grow.Args[0].RefSurrogate, call.Args[0].Target.Variable,
		"call site's argument assignment must target the surrogate, not the original local")
}

func TestByReferenceLeavesScalarParamsAlone(t *testing.T) {
	x := &ir.Variable{Name: ir.NewName("x")}
	x.SetType(ir.IntegerType)
	fn := &ir.Function{Name: ir.NewName("inc"), Args: []*ir.Variable{x}, Body: &ir.Block{}}
	m := &ir.Module{Functions: []*ir.Function{fn}}

	lowering.ApplyByReference(m)

	assert.Nil(t, fn.Args[0].RefSurrogate)
}

func TestByReferenceSurrogateNamesAreUnique(t *testing.T) {
	a := &ir.Variable{Name: ir.NewName("a")}
	a.SetType(ir.ArrayOf(ir.IntegerType))
	b := &ir.Variable{Name: ir.NewName("b")}
	b.SetType(ir.ArrayOf(ir.StringType))
	fn := &ir.Function{Name: ir.NewName("zip"), Args: []*ir.Variable{a, b}, Body: &ir.Block{}}
	m := &ir.Module{Functions: []*ir.Function{fn}}

	lowering.ApplyByReference(m)

	require.NotNil(t, fn.Args[0].RefSurrogate)
	require.NotNil(t, fn.Args[1].RefSurrogate)
	assert.NotEqual(t, fn.Args[0].RefSurrogate.Name.Bare, fn.Args[1].RefSurrogate.Name.Bare)
}
