// Command zena is the compiler's CLI front-end: build, check, run, test,
// repl and version subcommands over a flag.FlagSet, with colorized output
// via github.com/fatih/color.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/elematic/zena-sub002/internal/config"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/module"
	"github.com/elematic/zena-sub002/internal/pipeline"
	"github.com/elematic/zena-sub002/internal/runner"
	"github.com/elematic/zena-sub002/internal/stdlib"
)

var (
	// Version info - set by ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	// Color output
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		targetFlag  = flag.String("target", "", "Compile target: host or wasi (overrides zena.yaml)")
		outputFlag  = flag.String("o", "", "Output path for build (overrides zena.yaml)")
		debugFlag   = flag.Bool("debug", false, "Emit debug info")
		noDCEFlag   = flag.Bool("no-dce", false, "Disable dead-code elimination")
		jsonFlag    = flag.Bool("json", false, "Emit diagnostics as JSON")
	)

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	command := flag.Arg(0)

	switch command {
	case "build":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: zena build <file.zena>")
			os.Exit(1)
		}
		buildFile(flag.Arg(1), buildFlags{target: *targetFlag, output: *outputFlag, debug: *debugFlag, noDCE: *noDCEFlag, json: *jsonFlag})

	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: zena check <file.zena>")
			os.Exit(1)
		}
		checkFile(flag.Arg(1), *jsonFlag)

	case "run":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: zena run <file.zena>")
			os.Exit(1)
		}
		runFile(flag.Arg(1), buildFlags{target: *targetFlag, debug: *debugFlag, noDCE: *noDCEFlag, json: *jsonFlag})

	case "test":
		path := "."
		if flag.NArg() >= 2 {
			path = flag.Arg(1)
		}
		runTests(path)

	case "repl":
		runREPL()

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command '%s'\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("zena %s\n", bold(Version))
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if BuildTime != "unknown" {
		fmt.Printf("Built:  %s\n", BuildTime)
	}
	fmt.Println("\nA statically typed language compiling to WASM-GC")
}

func printHelp() {
	fmt.Println(bold("zena - a statically typed language compiling to WASM-GC"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  zena <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <file>     Compile to a .wasm file\n", cyan("build"))
	fmt.Printf("  %s <file>     Type-check a file without emitting code\n", cyan("check"))
	fmt.Printf("  %s <file>     Compile and execute with the wasi runtime\n", cyan("run"))
	fmt.Printf("  %s [path]     Run tests\n", cyan("test"))
	fmt.Printf("  %s            Start the interactive REPL\n", cyan("repl"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version        Print version information")
	fmt.Println("  --help           Show this help message")
	fmt.Println("  --target <t>     Compile target: host or wasi")
	fmt.Println("  -o <path>        Output path for build")
	fmt.Println("  --debug          Emit debug info")
	fmt.Println("  --no-dce         Disable dead-code elimination")
	fmt.Println("  --json           Emit diagnostics as JSON")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s          # Start REPL\n", cyan("zena repl"))
	fmt.Printf("  %s   # Compile to out.wasm\n", cyan("zena build hello.zena"))
	fmt.Printf("  %s       # Type-check only\n", cyan("zena check src/main.zena"))
	fmt.Printf("  %s  # Compile and run under wasi\n", cyan("zena run main.zena --target wasi"))
}

type buildFlags struct {
	target string
	output string
	debug  bool
	noDCE  bool
	json   bool
}

// resolveOptions merges a zena.yaml manifest found next to entry with any
// flags the command line overrode, the way the teacher's flag-then-default
// layering worked for -seed/-virtual-time.
func resolveOptions(entry string, f buildFlags) (*config.Config, pipeline.Options) {
	cfg, err := config.LoadFromDir(filepath.Dir(entry))
	if err != nil {
		cfg = config.Default()
	}
	cfg.Entry = entry

	if f.target != "" {
		cfg.Target = config.Target(f.target)
	}
	if f.output != "" {
		cfg.Output = f.output
	}
	if f.debug {
		cfg.Debug = true
	}
	if f.noDCE {
		cfg.DCE = false
	}

	target := module.TargetHost
	if cfg.Target == config.TargetWASI {
		target = module.TargetWASI
	}

	return cfg, pipeline.Options{
		Target:      target,
		Debug:       cfg.Debug,
		DCE:         cfg.DCE,
		SearchPaths: cfg.SearchPaths,
	}
}

func newHost(entry string, opts pipeline.Options) module.Host {
	h := module.NewFileHost(opts.SearchPaths, opts.Target)
	stdlib.Register(h)
	return h
}

func buildFile(filename string, f buildFlags) {
	if !strings.HasSuffix(filename, ".zena") {
		fmt.Fprintf(os.Stderr, "%s: file must have .zena extension\n", yellow("Warning"))
	}

	cfg, opts := resolveOptions(filename, f)
	host := newHost(filename, opts)

	fmt.Printf("%s Building %s\n", cyan("→"), filename)

	result, err := pipeline.Build(host, filename, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if printDiagnostics(result.Diagnostics, f.json) {
		os.Exit(1)
	}

	if err := os.WriteFile(cfg.Output, result.Bytes, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: writing %s: %v\n", red("Error"), cfg.Output, err)
		os.Exit(1)
	}

	fmt.Printf("%s Wrote %s (%d bytes, load %dms, typecheck %dms, codegen %dms)\n",
		green("✓"), cfg.Output, len(result.Bytes),
		result.PhaseTimings["load"], result.PhaseTimings["typecheck"], result.PhaseTimings["codegen"])
}

func checkFile(filename string, asJSON bool) {
	_, opts := resolveOptions(filename, buildFlags{})
	host := newHost(filename, opts)

	fmt.Printf("%s Checking %s\n", cyan("→"), filename)

	diags, err := pipeline.Check(host, filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if printDiagnostics(diags, asJSON) {
		os.Exit(1)
	}

	fmt.Printf("%s No errors found!\n", green("✓"))
}

func runFile(filename string, f buildFlags) {
	f.target = "wasi"
	_, opts := resolveOptions(filename, f)
	host := newHost(filename, opts)

	fmt.Printf("%s Building %s\n", cyan("→"), filename)
	result, err := pipeline.Build(host, filename, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	if printDiagnostics(result.Diagnostics, f.json) {
		os.Exit(1)
	}

	fmt.Printf("%s Running %s\n", green("✓"), filename)
	res, err := runner.Run(context.Background(), result.Bytes, opts.Target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Runtime error"), err)
		os.Exit(1)
	}

	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if !res.RanMain {
		fmt.Printf("%s %s exports no `main`; nothing was called\n", yellow("Warning"), filename)
	}
}

func runTests(path string) {
	fmt.Printf("%s Running tests in %s\n", cyan("→"), path)

	failures := 0
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, "_test.zena") {
			return nil
		}

		_, opts := resolveOptions(p, buildFlags{})
		host := newHost(p, opts)
		diags, err := pipeline.Check(host, p)
		if err != nil || hasError(diags) {
			failures++
			fmt.Printf("  %s %s\n", red("✗"), p)
			printDiagnostics(diags, false)
			return nil
		}
		fmt.Printf("  %s %s\n", green("✓"), p)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if failures > 0 {
		fmt.Printf("\n%s %d file(s) failed to check\n", red("✗"), failures)
		os.Exit(1)
	}
	fmt.Printf("\n%s All tests passed!\n", green("✓"))
}

// replCommands lists the REPL's `:`-commands for liner's tab completion.
var replCommands = []string{":help", ":h", ":quit", ":q"}

func runREPL() {
	fmt.Printf("%s v%s - compiles each line as a throwaway program\n", bold("zena"), Version)
	fmt.Println("Type :help for help, :quit to exit")
	fmt.Println("Use ↑/↓ arrows to navigate history")
	fmt.Println()

	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)
	line.SetCompleter(func(in string) (c []string) {
		if !strings.HasPrefix(in, ":") {
			return nil
		}
		for _, cmd := range replCommands {
			if strings.HasPrefix(cmd, in) {
				c = append(c, cmd)
			}
		}
		return c
	})

	historyFile := filepath.Join(os.TempDir(), ".zena_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f) // history is optional, ignore a bad/missing file
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt(">>> ")
		if err == io.EOF {
			fmt.Println("\nGoodbye!")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if strings.HasPrefix(input, ":") {
			handleREPLCommand(input)
			continue
		}

		bytes, err := pipeline.Compile(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			continue
		}
		fmt.Printf("%s %d bytes of WASM-GC\n", cyan("compiled"), len(bytes))
	}
}

func handleREPLCommand(cmd string) {
	switch strings.Fields(cmd)[0] {
	case ":help", ":h":
		fmt.Println("REPL Commands:")
		fmt.Println("  :help, :h        Show this help")
		fmt.Println("  :quit, :q        Exit the REPL")

	case ":quit", ":q":
		fmt.Println("Goodbye!")
		os.Exit(0)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type :help for help")
	}
}

// printDiagnostics renders diags the way a terminal wants them (or as JSON
// lines with --json) and reports whether any were severity-error.
func printDiagnostics(diags []*errors.Diagnostic, asJSON bool) bool {
	failed := false
	for _, d := range diags {
		if d.Severity == errors.SeverityError {
			failed = true
		}
		if asJSON {
			data, _ := d.ToJSON()
			fmt.Println(string(data))
			continue
		}

		label := yellow(string(d.Severity))
		if d.Severity == errors.SeverityError {
			label = red(string(d.Severity))
		}
		fmt.Printf("  %s %s\n", label, d.Error())
	}
	return failed
}

func hasError(diags []*errors.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == errors.SeverityError {
			return true
		}
	}
	return false
}
