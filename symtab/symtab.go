// Package symtab implements the parser's lexical scoping: a stack of
// per-block variable scopes plus a flat, process-wide function table.
package symtab

import (
	"fmt"

	"github.com/tdenniston/bish/ir"
)

// blockScope is one entry on the variable-scope stack: a flat map from
// bare name to the Variable it resolves to in this block.
type blockScope struct {
	vars map[string]*ir.Variable
}

// ParseScope is the symbol table threaded through the parser. A new
// ParseScope is created per Module being parsed; its function table is
// flat and lives for the whole parse, while its variable scopes are
// pushed/popped as blocks are entered and left.
type ParseScope struct {
	blocks    []*blockScope
	functions map[string]*ir.Function
	counter   int
}

// NewParseScope returns an empty scope with its outermost block already
// pushed, ready to have built-ins installed into it.
func NewParseScope() *ParseScope {
	s := &ParseScope{functions: make(map[string]*ir.Function)}
	s.PushBlock()
	return s
}

// PushBlock opens a new innermost variable scope.
func (s *ParseScope) PushBlock() {
	s.blocks = append(s.blocks, &blockScope{vars: make(map[string]*ir.Variable)})
}

// PopBlock closes the innermost variable scope.
func (s *ParseScope) PopBlock() {
	s.blocks = s.blocks[:len(s.blocks)-1]
}

// Define installs v directly into the innermost scope under name,
// bypassing lookup. Used for built-ins (args) and formal parameters.
func (s *ParseScope) Define(name string, v *ir.Variable) {
	s.blocks[len(s.blocks)-1].vars[name] = v
}

// LookupOrNewVar resolves name in any enclosing scope, innermost first;
// if absent everywhere, it creates a fresh Variable, installs it in the
// innermost scope, and returns it. This is deliberately permissive at
// reference time: a name used before any earlier definition is treated
// as a new local, mirroring Bish's implicit-declaration-on-first-use
// grammar. GetDefinedVariable, by contrast, never creates an entry.
func (s *ParseScope) LookupOrNewVar(name string) *ir.Variable {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if v, ok := s.blocks[i].vars[name]; ok {
			return v
		}
	}
	v := &ir.Variable{Name: ir.NewName(name)}
	s.blocks[len(s.blocks)-1].vars[name] = v
	return v
}

// GetDefinedVariable resolves name to the Variable an enclosing scope
// holds for it, searching every live scope innermost-first. It never
// creates an entry: a name that no live scope holds yields an error
// (never a panic). The parser uses it for `$name` in string literals.
func (s *ParseScope) GetDefinedVariable(name string) (*ir.Variable, error) {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if v, ok := s.blocks[i].vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("undefined variable %q", name)
}

// LookupOrNewFunction resolves name against the flat function table; if
// absent, it installs a dummy (bodyless) Function so forward references
// and the later real definition reconcile to the same node.
func (s *ParseScope) LookupOrNewFunction(name ir.Name) *ir.Function {
	key := name.String()
	if fn, ok := s.functions[key]; ok {
		return fn
	}
	fn := &ir.Function{Name: name}
	s.functions[key] = fn
	return fn
}

// DefineFunction installs fn under its own Name, overwriting any dummy
// previously created by LookupOrNewFunction for the same name.
func (s *ParseScope) DefineFunction(fn *ir.Function) {
	s.functions[fn.Name.String()] = fn
}

// Functions returns every function known to the scope, in no particular
// order; callers that need determinism should sort by ir.Name.Less.
func (s *ParseScope) Functions() []*ir.Function {
	out := make([]*ir.Function, 0, len(s.functions))
	for _, fn := range s.functions {
		out = append(out, fn)
	}
	return out
}

// FreshName produces the next local name "_<n>" from the scope's
// counter. It does not check for collisions; FreshNameAvoiding adds a
// "_<n>_<k>" suffix when one is needed.
func (s *ParseScope) FreshName() string {
	s.counter++
	return fmt.Sprintf("_%d", s.counter)
}

// FreshNameAvoiding is FreshName but retries with a "_<n>_<k>" suffix
// until taken returns false, used when the plain form might collide
// with a name already reserved outside this ParseScope (e.g. a global
// reference surrogate name reserved by an earlier lowering pass).
func (s *ParseScope) FreshNameAvoiding(taken func(string) bool) string {
	name := s.FreshName()
	if !taken(name) {
		return name
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s_%d", name, k)
		if !taken(candidate) {
			return candidate
		}
	}
}
