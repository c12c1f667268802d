package vm

import (
	"io"
	"os"
	"strings"

	"bfjit/internal/bytecode"
	"bfjit/internal/errors"
)

// TapeSize is the number of cells available to a program.
const TapeSize = 30000

// Options configure one evaluation.
type Options struct {
	// Input, when non-nil, is consumed front to back by the , instruction;
	// exhaustion reads as EOF. When nil, input comes from Stdin.
	Input []byte

	// BufferOutput collects output in memory and returns it from Run instead
	// of streaming each byte as it is produced.
	BufferOutput bool

	// Stdin and Stdout default to the process streams. Overridable for tests.
	Stdin  io.Reader
	Stdout io.Writer
}

// VM executes an optimized program against a dense byte tape. The tape lives
// for exactly one Run; pointer positions outside it are the program's
// problem, not checked on the hot path.
type VM struct {
	program bytecode.Program
	tape    []byte

	input    []byte
	hasInput bool
	buffered bool
	stdin    io.Reader
	stdout   io.Writer
	out      strings.Builder

	steps uint64
}

// New creates a VM for one run of program.
func New(program bytecode.Program, opts Options) *VM {
	vm := &VM{
		program:  program,
		tape:     make([]byte, TapeSize),
		input:    opts.Input,
		hasInput: opts.Input != nil,
		buffered: opts.BufferOutput,
		stdin:    opts.Stdin,
		stdout:   opts.Stdout,
	}
	if vm.stdin == nil {
		vm.stdin = os.Stdin
	}
	if vm.stdout == nil {
		vm.stdout = os.Stdout
	}
	return vm
}

// Steps returns the number of instructions executed so far.
func (vm *VM) Steps() uint64 {
	return vm.steps
}

// Run executes the program to completion and returns the buffered output,
// empty when streaming.
func (vm *VM) Run() (string, error) {
	tape := vm.tape
	size := len(vm.program)
	p := 0

	for pc := 0; pc < size; pc++ {
		in := &vm.program[pc]
		switch in.Op {
		case bytecode.OpMove:
			p += in.Arg

		case bytecode.OpAdd:
			p += in.Offset
			tape[p] += byte(in.Arg)

		case bytecode.OpSub:
			p += in.Offset
			tape[p] -= byte(in.Arg)

		case bytecode.OpOpen:
			p += in.Offset
			if tape[p] == 0 {
				pc = in.Arg
			}

		case bytecode.OpClose:
			p += in.Offset
			if tape[p] != 0 {
				pc = in.Arg - 1
			}

		case bytecode.OpOut:
			p += in.Offset
			if err := vm.writeByte(tape[p]); err != nil {
				return vm.out.String(), err
			}

		case bytecode.OpIn:
			p += in.Offset
			b, ok, err := vm.readByte()
			if err != nil {
				return vm.out.String(), err
			}
			// EOF and NUL both leave the cell untouched.
			if ok && b != 0 {
				tape[p] = b
			}

		case bytecode.OpClear:
			p += in.Offset
			tape[p] = 0

		case bytecode.OpCopy:
			p += in.Offset
			if v := tape[p]; v != 0 {
				for _, m := range in.Mults {
					tape[p+m.Offset] += v * byte(m.Mult)
				}
				tape[p] = 0
			}

		case bytecode.OpScanR:
			p += in.Offset
			for tape[p] != 0 {
				p++
			}

		case bytecode.OpScanL:
			p += in.Offset
			for tape[p] != 0 {
				p--
			}
		}
		vm.steps++
	}

	return vm.out.String(), nil
}

func (vm *VM) writeByte(b byte) error {
	if vm.buffered {
		vm.out.WriteByte(b)
		return nil
	}
	// Unbuffered single-byte writes double as the per-byte flush.
	if _, err := vm.stdout.Write([]byte{b}); err != nil {
		return errors.NewIOError("stdout write failed: " + err.Error())
	}
	return nil
}

func (vm *VM) readByte() (byte, bool, error) {
	if vm.hasInput {
		if len(vm.input) == 0 {
			return 0, false, nil
		}
		b := vm.input[0]
		vm.input = vm.input[1:]
		return b, true, nil
	}
	var buf [1]byte
	n, err := vm.stdin.Read(buf[:])
	if n == 1 {
		return buf[0], true, nil
	}
	if err != nil && err != io.EOF {
		return 0, false, errors.NewIOError("stdin read failed: " + err.Error())
	}
	return 0, false, nil
}
