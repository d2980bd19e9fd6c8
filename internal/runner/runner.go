// Package runner executes compiled WASM-GC bytes with wazero, giving `zena
// run` something a compile-to-bytes pipeline never needed before: since
// Build stops at emitted bytes (spec.md 4.6) rather than an interpreter
// value, running a program means handing those bytes to a real engine.
package runner

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/elematic/zena-sub002/internal/module"
)

// Result carries what a Run call observed: anything the module wrote to its
// WASI stdout, plus whether an exported `main` was found and called.
type Result struct {
	Stdout  string
	RanMain bool
}

// Run instantiates code (the bytes codegen.Generate produced) and, if it
// exports a function named "main", calls it with no arguments.
//
// Only module.TargetWASI is runnable today: module.TargetHost programs
// import their console surface from a `console` namespace this runner
// never registers a matching wazero HostModuleBuilder for (see
// internal/codegen/hostimports.go and DESIGN.md) — instantiation would fail
// on the first unsatisfied import. Build a wasi-target binary to run it.
func Run(ctx context.Context, code []byte, target module.Target) (Result, error) {
	if target != module.TargetWASI {
		return Result{}, fmt.Errorf("runner: target %q has no host import namespace to execute against; build with target wasi", target)
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return Result{}, fmt.Errorf("runner: instantiating wasi: %w", err)
	}

	compiled, err := r.CompileModule(ctx, code)
	if err != nil {
		return Result{}, fmt.Errorf("runner: compiling module: %w", err)
	}

	var stdout bytes.Buffer
	cfg := wazero.NewModuleConfig().WithStdout(&stdout).WithName("zena")

	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("runner: instantiating module: %w", err)
	}
	defer mod.Close(ctx)

	result := Result{Stdout: stdout.String()}

	main := mod.ExportedFunction("main")
	if main == nil {
		return result, nil
	}
	if _, err := main.Call(ctx); err != nil {
		return result, fmt.Errorf("runner: calling main: %w", err)
	}
	result.RanMain = true
	result.Stdout = stdout.String()
	return result, nil
}
