package compiler

import (
	"bfjit/internal/bytecode"
	"bfjit/internal/errors"
	"bfjit/internal/lexer"
)

// Compile sanitizes src and lowers it into the optimized program in a single
// pass. Runs of + - < > are coalesced; pointer motion is deferred and folded
// into the offset of the next single-cell consumer; recognizable loop shapes
// collapse to one instruction each. The only failure mode is an unmatched
// bracket.
func Compile(src []byte) (bytecode.Program, error) {
	code := lexer.Sanitize(src)

	var (
		opcodes   bytecode.Program
		openStack []int
		drift     int // pending pointer drift from unconsumed < > runs
	)

	for pc := 0; pc < len(code); {
		switch c := code[pc]; c {
		case '+', '-':
			n := lexer.RepeatCount(code, pc)
			op := bytecode.OpAdd
			if c == '-' {
				op = bytecode.OpSub
			}
			opcodes = append(opcodes, bytecode.Instruction{Op: op, Offset: drift, Arg: n})
			drift = 0
			pc += n

		case '>', '<':
			n := lexer.RepeatCount(code, pc)
			if c == '>' {
				drift += n
			} else {
				drift -= n
			}
			pc += n

		case '.':
			opcodes = append(opcodes, bytecode.Instruction{Op: bytecode.OpOut, Offset: drift})
			drift = 0
			pc++

		case ',':
			opcodes = append(opcodes, bytecode.Instruction{Op: bytecode.OpIn, Offset: drift})
			drift = 0
			pc++

		case '[':
			if in, n, ok := matchLoop(code, pc, drift); ok {
				opcodes = append(opcodes, in)
				drift = 0
				pc += n
				continue
			}
			// A loop tests the current cell and its body may never run, so
			// pending drift cannot be folded past the bracket; it has to be
			// materialized before the zero-test.
			if drift != 0 {
				opcodes = append(opcodes, bytecode.Instruction{Op: bytecode.OpMove, Arg: drift})
				drift = 0
			}
			openStack = append(openStack, len(opcodes))
			// Jump target is patched when the matching ] arrives.
			opcodes = append(opcodes, bytecode.Instruction{Op: bytecode.OpOpen})
			pc++

		case ']':
			if len(openStack) == 0 {
				return nil, errors.NewParseError("unmatched ']'", pc)
			}
			open := openStack[len(openStack)-1]
			openStack = openStack[:len(openStack)-1]
			opcodes[open].Arg = len(opcodes)
			opcodes = append(opcodes, bytecode.Instruction{Op: bytecode.OpClose, Offset: drift, Arg: open})
			drift = 0
			pc++
		}
	}

	if len(openStack) > 0 {
		return nil, errors.NewParseError("unmatched '['", len(code))
	}
	return opcodes, nil
}
