package callgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdenniston/bish/callgraph"
	"github.com/tdenniston/bish/ir"
)

// buildChain wires main -> a -> b -> c, with main also calling c directly,
// so naive traversal without dedup would count c twice.
func buildChain() *ir.Module {
	c := &ir.Function{Name: ir.NewName("c"), Body: &ir.Block{}}
	b := &ir.Function{Name: ir.NewName("b"), Body: &ir.Block{
		Statements: []ir.Node{&ir.FunctionCall{Target: c}},
	}}
	a := &ir.Function{Name: ir.NewName("a"), Body: &ir.Block{
		Statements: []ir.Node{&ir.FunctionCall{Target: b}},
	}}
	main := &ir.Function{Name: ir.NewName("main"), Body: &ir.Block{
		Statements: []ir.Node{
			&ir.FunctionCall{Target: a},
			&ir.FunctionCall{Target: c},
		},
	}}
	return &ir.Module{Functions: []*ir.Function{c, b, a, main}, Main: main}
}

func TestBuildRecordsDirectEdges(t *testing.T) {
	m := buildChain()
	g := callgraph.Build(m)

	calls := g.Calls(ir.NewName("main"))
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Bare)
	assert.Equal(t, "c", calls[1].Bare)

	callers := g.Callers(ir.NewName("c"))
	require.Len(t, callers, 2)
}

func TestTransitiveCallsDeduplicatesAcrossPaths(t *testing.T) {
	m := buildChain()
	g := callgraph.Build(m)

	reachable := g.TransitiveCalls(ir.NewName("main"))
	names := map[string]bool{}
	for _, n := range reachable {
		names[n.Bare] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
	assert.True(t, names["c"])
	assert.Len(t, reachable, 3, "c is reachable via two paths but must appear once")
}

func TestTransitiveCallsOfLeafIsEmpty(t *testing.T) {
	m := buildChain()
	g := callgraph.Build(m)

	assert.Empty(t, g.TransitiveCalls(ir.NewName("c")))
}
