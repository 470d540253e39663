// Package linker implements Bish's import linker (spec §4.5): it pulls
// the functions a module needs from each of its imports into the
// module's own function table, namespacing them and rewriting call-site
// pointers so the rest of the pipeline never has to think about
// cross-module structure again.
package linker

import (
	"context"
	"path/filepath"

	"github.com/viant/afs"
	"golang.org/x/mod/module"

	"github.com/tdenniston/bish/bisherr"
	"github.com/tdenniston/bish/callgraph"
	"github.com/tdenniston/bish/ir"
)

// Parse is the parser entry point the linker calls to compile an
// imported file; injected as a function value (rather than importing
// the parser package directly) so the linker stays agnostic of how
// source text becomes a Module, matching how afs.Service decouples it
// from how that source text was fetched.
type Parse func(path, src string) (*ir.Module, error)

// Linker resolves a module's imports against the filesystem.
type Linker struct {
	fs         afs.Service
	parse      Parse
	stdlibPath string
	imported   map[string]bool // namespace ids already pulled in, across the whole Link call
}

// New builds a Linker. stdlibPath is the resolved standard-library
// directory (see compiler.Config.StdlibPath); imports whose resolved
// path matches it get the stdlib special-casing described in spec §4.5.
func New(parse Parse, stdlibPath string) *Linker {
	return &Linker{fs: afs.New(), parse: parse, stdlibPath: stdlibPath, imported: map[string]bool{}}
}

// Link resolves every ImportStatement reachable in m, recursively
// parsing and linking each referenced module, then pulling in the
// functions m actually calls (transitively, via the referenced module's
// own call graph) under a namespace-prefixed name.
func (l *Linker) Link(ctx context.Context, m *ir.Module) error {
	for _, imp := range m.Imports {
		if err := l.linkImport(ctx, m, imp); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linker) linkImport(ctx context.Context, m *ir.Module, imp *ir.ImportStatement) error {
	if err := module.CheckImportPath(imp.Name); err != nil {
		return bisherr.Link(err, "import %q is not a valid module name", imp.Name)
	}

	resolvedPath := filepath.Join(filepath.Dir(m.Path), imp.Name+".bish")
	isStdlib := l.stdlibPath != "" && (resolvedPath == l.stdlibPath || filepath.Dir(resolvedPath) == l.stdlibPath)

	content, err := l.fs.DownloadWithURL(ctx, resolvedPath)
	if err != nil {
		return bisherr.Link(err, "cannot read import %q at %s", imp.Name, resolvedPath)
	}

	m2, err := l.parse(resolvedPath, string(content))
	if err != nil {
		return bisherr.Link(err, "failed to parse import %q", imp.Name)
	}
	if err := l.Link(ctx, m2); err != nil {
		return err
	}
	imp.Resolved = m2

	if l.imported[m2.NamespaceID] {
		return nil
	}
	l.imported[m2.NamespaceID] = true

	needed := findCallsToModule(m, imp.Name, isStdlib)
	if len(needed) == 0 {
		return nil
	}

	g := callgraph.Build(m2)
	linked := map[string]*ir.Function{}
	var pullIn func(name ir.Name)
	pullIn = func(name ir.Name) {
		fn := m2.FindFunction(name)
		if fn == nil || fn.IsDummy() {
			return
		}
		key := fn.Name.String()
		if linked[key] != nil {
			return
		}
		namespaced := &ir.Function{Name: fn.Name.WithQualifier(m2.NamespaceID), Args: fn.Args, Body: fn.Body, RetType: fn.RetType, RetVal: fn.RetVal}
		linked[key] = namespaced
		m.Functions = append(m.Functions, namespaced)
		for _, callee := range g.TransitiveCalls(name) {
			pullIn(callee)
		}
	}
	for _, name := range needed {
		pullIn(name)
	}

	rewriteCallSites(m, linked, imp.Name, isStdlib)
	return nil
}

// findCallsToModule returns the set of distinct bare function names (as
// seen by m2, i.e. unqualified) that m's dummy call sites refer to under
// importName's qualifier. When isStdlib is true, an entirely unqualified
// call target is matched too, per the stdlib special case.
func findCallsToModule(m *ir.Module, importName string, isStdlib bool) []ir.Name {
	seen := map[string]bool{}
	var names []ir.Name
	visitCalls(m, func(call *ir.FunctionCall) {
		if call.Target == nil || !call.Target.IsDummy() {
			return
		}
		qualifies := call.Target.Name.HasQualifier(importName)
		if !qualifies && isStdlib && len(call.Target.Name.Qualifiers) == 0 {
			qualifies = true
		}
		if !qualifies {
			return
		}
		bare := call.Target.Name.Bare
		if seen[bare] {
			return
		}
		seen[bare] = true
		names = append(names, ir.NewName(bare))
	})
	return names
}

// rewriteCallSites replaces every dummy call-site pointer in m whose
// bare target name matches a function just linked in, with the real,
// namespaced Function. The match is scoped to call sites that qualify
// for importName exactly as findCallsToModule scoped the original
// lookup, so a same-named function pulled in from a different import
// can never cross-wire a call site meant for this one.
func rewriteCallSites(m *ir.Module, linked map[string]*ir.Function, importName string, isStdlib bool) {
	visitCalls(m, func(call *ir.FunctionCall) {
		if call.Target == nil || !call.Target.IsDummy() {
			return
		}
		qualifies := call.Target.Name.HasQualifier(importName)
		if !qualifies && isStdlib && len(call.Target.Name.Qualifiers) == 0 {
			qualifies = true
		}
		if !qualifies {
			return
		}
		if real, ok := linked[call.Target.Name.Bare]; ok {
			call.Target = real
		}
	})
}

func visitCalls(m *ir.Module, f func(*ir.FunctionCall)) {
	visit := func(n ir.Node) {
		if call, ok := n.(*ir.FunctionCall); ok {
			f(call)
		}
	}
	for _, fn := range m.Functions {
		if fn.Body == nil {
			continue
		}
		walk(fn.Body, visit)
	}
	for _, g := range m.GlobalVariables {
		walk(g, visit)
	}
}

func walk(n ir.Node, visit func(ir.Node)) {
	if n == nil {
		return
	}
	visit(n)
	ir.WalkChildren(n, func(c ir.Node) { walk(c, visit) })
}
