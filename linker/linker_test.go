package linker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdenniston/bish/ir"
	"github.com/tdenniston/bish/linker"
	"github.com/tdenniston/bish/parser"
)

func TestLinkResolvesQualifiedImportCall(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.bish"), []byte(`def greet(s) { return s; }`), 0o644))

	mainPath := filepath.Join(dir, "main.bish")
	m, err := parser.Parse(mainPath, `import lib; x = lib.greet("hi");`)
	require.NoError(t, err)

	l := linker.New(parser.Parse, "")
	require.NoError(t, l.Link(context.Background(), m))

	call, ok := m.GlobalVariables[len(m.GlobalVariables)-1].Values[0].(*ir.FunctionCall)
	require.True(t, ok)
	require.False(t, call.Target.IsDummy(), "call site must be rewritten to the real, linked function")
	assert.True(t, call.Target.Name.HasQualifier("lib"))
	assert.Equal(t, "greet", call.Target.Name.Bare)
}

func TestLinkPullsInTransitiveCallees(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.bish"), []byte(
		`def helper(s) { return s; } def greet(s) { return helper(s); }`,
	), 0o644))

	mainPath := filepath.Join(dir, "main.bish")
	m, err := parser.Parse(mainPath, `import lib; x = lib.greet("hi");`)
	require.NoError(t, err)

	l := linker.New(parser.Parse, "")
	require.NoError(t, l.Link(context.Background(), m))

	var sawGreet, sawHelper bool
	for _, fn := range m.Functions {
		if fn.Name.Bare == "greet" && fn.Name.HasQualifier("lib") {
			sawGreet = true
		}
		if fn.Name.Bare == "helper" && fn.Name.HasQualifier("lib") {
			sawHelper = true
		}
	}
	assert.True(t, sawGreet)
	assert.True(t, sawHelper, "helper must be pulled in transitively even though main never calls it directly")
}

func TestLinkIsIdempotentAcrossReimports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.bish"), []byte(`def greet(s) { return s; }`), 0o644))

	mainPath := filepath.Join(dir, "main.bish")
	m, err := parser.Parse(mainPath, `import lib; import lib; x = lib.greet("hi");`)
	require.NoError(t, err)

	l := linker.New(parser.Parse, "")
	require.NoError(t, l.Link(context.Background(), m))

	count := 0
	for _, fn := range m.Functions {
		if fn.Name.Bare == "greet" && fn.Name.HasQualifier("lib") {
			count++
		}
	}
	assert.Equal(t, 1, count, "re-importing the same module must not duplicate its functions")
}

func TestLinkDoesNotCrossWireSameNamedFunctionsAcrossImports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bish"), []byte(`def foo() { return "a"; }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bish"), []byte(`def foo() { return "b"; }`), 0o644))

	mainPath := filepath.Join(dir, "main.bish")
	m, err := parser.Parse(mainPath, `import a; import b; x = a.foo(); y = b.foo();`)
	require.NoError(t, err)

	l := linker.New(parser.Parse, "")
	require.NoError(t, l.Link(context.Background(), m))

	callA, ok := m.GlobalVariables[len(m.GlobalVariables)-2].Values[0].(*ir.FunctionCall)
	require.True(t, ok)
	callB, ok := m.GlobalVariables[len(m.GlobalVariables)-1].Values[0].(*ir.FunctionCall)
	require.True(t, ok)

	require.False(t, callA.Target.IsDummy())
	require.False(t, callB.Target.IsDummy())
	assert.True(t, callA.Target.Name.HasQualifier("a"), "a.foo() must stay wired to a's foo")
	assert.True(t, callB.Target.Name.HasQualifier("b"), "b.foo() must not be cross-wired to a's foo")
	assert.NotSame(t, callA.Target, callB.Target)
}

func TestLinkLeavesUnmatchedDummyUnresolved(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.bish"), []byte(`def greet(s) { return s; }`), 0o644))

	mainPath := filepath.Join(dir, "main.bish")
	m, err := parser.Parse(mainPath, `import lib; x = lib.nope("hi");`)
	require.NoError(t, err)

	l := linker.New(parser.Parse, "")
	require.NoError(t, l.Link(context.Background(), m))

	call, ok := m.GlobalVariables[len(m.GlobalVariables)-1].Values[0].(*ir.FunctionCall)
	require.True(t, ok)
	assert.True(t, call.Target.IsDummy(), "a call to a function lib never defines must stay an unresolved dummy")
}
