// cmd/bfjit/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"bfjit/internal/compiler"
	"bfjit/internal/jit"
	"bfjit/internal/repl"
	"bfjit/internal/vm"
)

const VERSION = "1.0.0"

// Command aliases mapping
var commandAliases = map[string]string{
	"r": "run",
	"j": "jit",
	"d": "dump",
	"i": "repl",
}

func main() {
	args := os.Args[1:]

	// Flags may appear anywhere on the line; strip them out of the
	// positional arguments first.
	verbose := false
	optLevel := 3
	var rest []string
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-verbose", "--verbose":
			verbose = true
		case "-O", "--opt":
			i++
			if i >= len(args) {
				fatal("missing value for -O")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 0 || n > 3 {
				fatal("optimization level must be 0-3")
			}
			optLevel = n
		case "-O0", "-O1", "-O2", "-O3":
			optLevel = int(arg[2] - '0')
		default:
			rest = append(rest, arg)
		}
	}

	if len(rest) == 0 {
		// An interactive terminal gets the REPL; piped stdin is a program.
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			repl.Start()
			return
		}
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal(fmt.Sprintf("could not read stdin: %v", err))
		}
		interpret(source, verbose)
		return
	}

	cmd := rest[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "help", "--help", "-h":
		showUsage()

	case "version", "--version", "-v":
		fmt.Printf("bfjit v%s\n", VERSION)

	case "repl":
		repl.Start()

	case "run":
		interpret(readSource(rest, 1), verbose)

	case "jit":
		source := readSource(rest, 1)
		start := time.Now()
		if err := jit.Run(source, jit.Options{OptLevel: optLevel}); err != nil {
			fatal(err.Error())
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "jit -O%d completed in %s\n", optLevel, time.Since(start))
		}

	case "dump":
		program, err := compiler.Compile(readSource(rest, 1))
		if err != nil {
			fatal(err.Error())
		}
		fmt.Print(program)

	default:
		// A bare path runs the interpreter path.
		interpret(readFile(cmd), verbose)
	}
}

func interpret(source []byte, verbose bool) {
	program, err := compiler.Compile(source)
	if err != nil {
		fatal(err.Error())
	}
	if verbose {
		fmt.Fprint(os.Stderr, program)
	}

	start := time.Now()
	machine := vm.New(program, vm.Options{})
	if _, err := machine.Run(); err != nil {
		fatal(err.Error())
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "\n%s instructions executed in %s (%s compiled ops)\n",
			humanize.Comma(int64(machine.Steps())),
			time.Since(start),
			humanize.Comma(int64(len(program))))
	}
}

func readSource(rest []string, idx int) []byte {
	if len(rest) <= idx {
		fatal("no source file provided")
	}
	return readFile(rest[idx])
}

func readFile(path string) []byte {
	source, err := os.ReadFile(path)
	if err != nil {
		fatal(fmt.Sprintf("could not read file: %v", err))
	}
	return source
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	os.Exit(1)
}

func showUsage() {
	fmt.Printf(`bfjit v%s - optimizing Brainfuck interpreter and JIT compiler

Usage:
  bfjit <file.bf>            interpret a program (same as run)
  bfjit run <file.bf>        interpret via the optimized IR         (alias: r)
  bfjit jit <file.bf>        compile natively via LLVM and execute  (alias: j)
  bfjit dump <file.bf>       print the optimized IR without running (alias: d)
  bfjit repl                 interactive prompt                     (alias: i)
  bfjit version              print version

Flags:
  -O <0-3>                   JIT optimization level (default 3)
  -verbose                   print the IR and run statistics to stderr

With no arguments, bfjit starts the REPL on a terminal or interprets a
program piped on stdin.
`, VERSION)
}
