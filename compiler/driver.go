package compiler

import (
	"context"
	"fmt"

	"github.com/tdenniston/bish/codegen"
	"github.com/tdenniston/bish/codegen/bash"
	"github.com/tdenniston/bish/linker"
	"github.com/tdenniston/bish/lowering"
	"github.com/tdenniston/bish/parser"
	"github.com/tdenniston/bish/typecheck"
)

// Driver runs Bish's full pipeline — parse, link, wire parents, type-check,
// lower, generate — behind one call, the way cmd/bish and any embedder
// drive a compile.
type Driver struct {
	cfg      *Config
	registry *codegen.Registry
}

// NewDriver builds a Driver with cfg and every known backend registered.
func NewDriver(cfg *Config) *Driver {
	r := codegen.NewRegistry()
	bash.Register(r)
	return &Driver{cfg: cfg, registry: r}
}

// Backends returns the names of every backend registered with d, sorted,
// for the `-list-backends` flag.
func (d *Driver) Backends() []string {
	return d.registry.Names()
}

// Compile parses src (path is used for import resolution and diagnostics),
// links its imports, type-checks it, lowers it, and renders it through the
// configured backend. The returned string is the generator's raw output —
// Compile does not add the shebang/banner; CompileScript does.
func (d *Driver) Compile(ctx context.Context, path, src string) (string, error) {
	m, err := parser.Parse(path, src)
	if err != nil {
		return "", err
	}

	stdlib := ResolveStdlibPath(d.cfg, path)
	l := linker.New(parser.Parse, stdlib)
	if err := l.Link(ctx, m); err != nil {
		return "", err
	}

	lowering.WireParents(m)

	if err := typecheck.Check(m); err != nil {
		return "", err
	}

	lowering.ApplyByReference(m)
	lowering.ApplyReturnValues(m)

	gen, ok := d.registry.Get(d.cfg.Backend)
	if !ok {
		return "", fmt.Errorf("bish: unknown backend %q (known: %v)", d.cfg.Backend, d.registry.Names())
	}

	buf := codegen.NewLineOrientedBuffer()
	out, err := gen(buf).Generate(m, codegen.Options{Library: d.cfg.Library})
	if err != nil {
		return "", err
	}
	return out, nil
}

// CompileScript runs Compile and wraps its output the way the driver (not
// the core generator) is responsible for per spec §6: a #!/usr/bin/env bash
// shebang and a banner comment identifying the compiled source.
func (d *Driver) CompileScript(ctx context.Context, path, src string) (string, error) {
	body, err := d.Compile(ctx, path, src)
	if err != nil {
		return "", err
	}
	banner := fmt.Sprintf("#!/usr/bin/env bash\n# generated by bishc from %s; do not edit by hand\n", path)
	return banner + body, nil
}
