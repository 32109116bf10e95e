// Command tracevm is the process entry point (spec.md §1's "external
// collaborator" wiring files to the engine, and spec.md §6's CLI
// contract): it reads a source file, assembles and resolves it, then runs
// it through the tracing engine.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"tracevm/internal/asm"
	"tracevm/internal/diag"
	"tracevm/internal/program"
	"tracevm/internal/vm"
)

func main() {
	app := &cli.App{
		Name:      "tracevm",
		Usage:     "run a tracevm bytecode program",
		ArgsUsage: "<source-file> <t|f>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: tracevm <source-file> <t|f>", 2)
	}

	path := c.Args().Get(0)
	tracingArg := c.Args().Get(1)
	if tracingArg == "" {
		return cli.Exit("tracing flag must be 't' or 'f'", 2)
	}

	var tracingEnabled bool
	switch tracingArg[0] {
	case 't':
		tracingEnabled = true
	case 'f':
		tracingEnabled = false
	default:
		return cli.Exit(fmt.Sprintf("invalid tracing flag %q: first character must be 't' or 'f'", tracingArg), 2)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	insts, err := asm.Parse(string(src))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	prog, err := program.Load(insts)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log, err := zap.NewProduction()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer log.Sync()

	engine, err := vm.NewEngine(prog, tracingEnabled, diag.NewZapSink(log))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer engine.Close()

	if err := engine.Run(context.Background()); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	final := engine.FinalStack()
	strs := make([]string, len(final))
	for i, cell := range final {
		strs[i] = fmt.Sprintf("%d", cell.AsInt())
	}
	fmt.Printf("[%s]\n", strings.Join(strs, ", "))
	return nil
}
