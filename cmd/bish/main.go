// Command bish compiles a .bish source file to Bash (spec §6): by default
// it prints the generated script to standard output; with -r it instead
// runs it through the target shell without printing it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/tdenniston/bish/compiler"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bish", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		runFlag    = fs.Bool("r", false, "compile and pipe the generated script to the target shell")
		library    = fs.Bool("l", false, "compile as a library: omit the synthetic call to main")
		backend    = fs.String("u", "bash", "name of the backend to compile to")
		listUnits  = fs.Bool("list-backends", false, "list registered backends and exit")
		stdlibPath = fs.String("stdlib", "", "override the standard-library path (else BISH_STDLIB, else auto-detected)")
	)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bish [flags] <source.bish | -> [-- args...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	opts := []compiler.Option{
		compiler.WithLibrary(*library),
		compiler.WithBackend(*backend),
	}
	if *stdlibPath != "" {
		opts = append(opts, compiler.WithStdlibPath(*stdlibPath))
	}
	d := compiler.NewDriver(compiler.NewConfig(opts...))

	if *listUnits {
		for _, name := range d.Backends() {
			fmt.Println(name)
		}
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	path := rest[0]
	passthroughArgs := rest[1:]

	src, err := readSource(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bish:", err)
		return 1
	}

	script, err := d.CompileScript(context.Background(), path, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bish:", err)
		return 1
	}

	if !*runFlag {
		fmt.Println(script)
		return 0
	}
	return runScript(script, passthroughArgs)
}

// readSource reads path, or standard input when path is "-".
func readSource(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// runScript pipes the compiled script into a fresh bash process, returning
// its exit status as the driver's own (spec §6: "-r" returns the spawned
// shell's exit status).
func runScript(script string, args []string) int {
	cmd := exec.Command("bash", append([]string{"-s", "--"}, args...)...)
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintln(os.Stderr, "bish:", err)
		return 1
	}
	return 0
}
