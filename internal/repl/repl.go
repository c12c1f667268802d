// internal/repl/repl.go
package repl

import (
	"bufio"
	"fmt"
	"os"

	"bfjit/internal/compiler"
	"bfjit/internal/vm"
)

// Start runs the interactive loop. Each line is compiled and evaluated
// against a fresh tape; output is buffered and echoed once the line
// finishes.
func Start() {
	fmt.Println("bfjit REPL | type 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" {
			break
		}

		program, err := compiler.Compile([]byte(line))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		machine := vm.New(program, vm.Options{BufferOutput: true})
		out, err := machine.Run()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
