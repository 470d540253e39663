package lowering

import (
	"fmt"

	"github.com/tdenniston/bish/ir"
)

// ApplyByReference runs after type-checking, once every formal parameter's
// Type is known. Bash passes everything by value, but Bish arrays must be
// pass-by-reference, so for every Array(_) formal we synthesise a global
// "reference surrogate" variable and rewire the parameter and its call
// sites to go through it: the caller's argument assignment writes the
// surrogate instead of a local, and the callee's parameter reads the same
// surrogate instead of a positional parameter.
func ApplyByReference(m *ir.Module) {
	counter := 0
	for _, fn := range m.Functions {
		for _, arg := range fn.Args {
			if !arg.Type().IsArray() {
				continue
			}
			counter++
			surrogate := &ir.Variable{
				Name:   ir.NewName(fmt.Sprintf("global_ref_%d", counter)),
				Global: true,
			}
			surrogate.SetType(arg.Type())
			arg.RefSurrogate = surrogate
		}
	}

	rewire := func(n ir.Node) {
		call, ok := n.(*ir.FunctionCall)
		if !ok || call.Target == nil {
			return
		}
		for i, argAssign := range call.Args {
			if i >= len(call.Target.Args) {
				continue
			}
			surrogate := call.Target.Args[i].RefSurrogate
			if surrogate == nil {
				continue
			}
			argAssign.Target.Variable = surrogate
		}
	}
	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		walk(fn.Body, rewire)
	}
	for _, g := range m.GlobalVariables {
		walk(g, rewire)
	}
}

// walk visits n and every node reachable from it, in no particular order
// beyond what ir.WalkChildren enumerates.
func walk(n ir.Node, visit func(ir.Node)) {
	if n == nil {
		return
	}
	visit(n)
	ir.WalkChildren(n, func(c ir.Node) { walk(c, visit) })
}
