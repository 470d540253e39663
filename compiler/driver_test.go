package compiler_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdenniston/bish/compiler"
)

const greetSource = `
def greet(name) {
	return "hello " + name;
}

msg = greet("world");
print(msg);
`

func TestCompileScriptPrependsShebangAndBanner(t *testing.T) {
	cfg := compiler.NewConfig()
	d := compiler.NewDriver(cfg)

	out, err := d.CompileScript(context.Background(), "greet.bish", greetSource)
	require.NoError(t, err)

	lines := strings.SplitN(out, "\n", 2)
	assert.Equal(t, "#!/usr/bin/env bash", lines[0])
	assert.Contains(t, out, "greet.bish")
	assert.Contains(t, out, "function greet")
	assert.Contains(t, out, "main;")
}

func TestCompileInLibraryModeOmitsMainCall(t *testing.T) {
	cfg := compiler.NewConfig(compiler.WithLibrary(true))
	d := compiler.NewDriver(cfg)

	out, err := d.Compile(context.Background(), "greet.bish", greetSource)
	require.NoError(t, err)

	assert.NotContains(t, out, "main;")
	assert.Contains(t, out, "function greet")
}

func TestCompileWithUnknownBackendErrors(t *testing.T) {
	cfg := compiler.NewConfig(compiler.WithBackend("nope"))
	d := compiler.NewDriver(cfg)

	_, err := d.Compile(context.Background(), "greet.bish", greetSource)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestDriverBackendsListsBash(t *testing.T) {
	d := compiler.NewDriver(compiler.NewConfig())
	assert.Contains(t, d.Backends(), "bash")
}
