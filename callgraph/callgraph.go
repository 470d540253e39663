// Package callgraph builds and queries the per-module call graph: which
// functions call which, used by the import linker to decide which
// functions a `import` statement transitively pulls in.
package callgraph

import "github.com/tdenniston/bish/ir"

// Graph holds the direct call edges for a module: for each function, the
// multiset of functions it calls and the multiset of functions that call
// it. Edges are keyed by the rendered qualified name (ir.Name embeds a
// slice and so cannot be a map key itself) so they survive across
// dummy-to-real function rewrites during import linking.
type Graph struct {
	calls   map[string][]ir.Name
	callers map[string][]ir.Name
}

// Build walks every function body in m and records a `(caller -> target)`
// edge for every FunctionCall found, keyed by the enclosing function's and
// the call target's qualified names.
func Build(m *ir.Module) *Graph {
	g := &Graph{calls: map[string][]ir.Name{}, callers: map[string][]ir.Name{}}
	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		visitCalls(fn.Body, func(call *ir.FunctionCall) {
			if call.Target == nil {
				return
			}
			g.calls[fn.Name.String()] = append(g.calls[fn.Name.String()], call.Target.Name)
			g.callers[call.Target.Name.String()] = append(g.callers[call.Target.Name.String()], fn.Name)
		})
	}
	return g
}

// visitCalls finds every FunctionCall reachable from n and invokes f on it.
func visitCalls(n ir.Node, f func(*ir.FunctionCall)) {
	if n == nil {
		return
	}
	if call, ok := n.(*ir.FunctionCall); ok {
		f(call)
	}
	ir.WalkChildren(n, func(c ir.Node) { visitCalls(c, f) })
}

// Calls returns the direct callees of fn, in call order (duplicates kept,
// matching the multiset semantics a function calling the same callee
// twice implies).
func (g *Graph) Calls(fn ir.Name) []ir.Name { return g.calls[fn.String()] }

// Callers returns the direct callers of fn.
func (g *Graph) Callers(fn ir.Name) []ir.Name { return g.callers[fn.String()] }

// TransitiveCalls performs a BFS over the calls edges starting at root,
// returning every function reachable from it (root excluded), each
// appearing once regardless of how many paths reach it.
func (g *Graph) TransitiveCalls(root ir.Name) []ir.Name {
	visited := map[string]bool{root.String(): true}
	queue := append([]ir.Name{}, g.calls[root.String()]...)
	var out []ir.Name
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		key := cur.String()
		if visited[key] {
			continue
		}
		visited[key] = true
		out = append(out, cur)
		queue = append(queue, g.calls[key]...)
	}
	return out
}
