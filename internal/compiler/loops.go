package compiler

import "bfjit/internal/bytecode"

// Loop-shape recognizers. Each inspects code starting at an opening bracket
// and, on a match, returns the single replacement instruction plus the number
// of source bytes consumed. The pending pointer drift is folded into the
// instruction's offset so the caller can reset it.

// matchClearLoop recognizes [-] and [+], which zero the current cell.
func matchClearLoop(code []byte, i, drift int) (bytecode.Instruction, int, bool) {
	if i+3 <= len(code) && (code[i+1] == '-' || code[i+1] == '+') && code[i+2] == ']' {
		return bytecode.Instruction{Op: bytecode.OpClear, Offset: drift}, 3, true
	}
	return bytecode.Instruction{}, 0, false
}

// matchScanLoop recognizes [>] and [<], which seek to the next zero cell.
func matchScanLoop(code []byte, i, drift int) (bytecode.Instruction, int, bool) {
	if i+3 <= len(code) && code[i+2] == ']' {
		switch code[i+1] {
		case '>':
			return bytecode.Instruction{Op: bytecode.OpScanR, Offset: drift}, 3, true
		case '<':
			return bytecode.Instruction{Op: bytecode.OpScanL, Offset: drift}, 3, true
		}
	}
	return bytecode.Instruction{}, 0, false
}

// matchCopyLoop recognizes the copy/multiply shape: a single decrement of the
// anchor cell, runs of right-moves and increments recording a multiplier per
// visited offset, and left-moves returning the pointer exactly to the anchor.
// Anything else inside the brackets (I/O, nested loops, further decrements)
// disqualifies the loop.
func matchCopyLoop(code []byte, i, drift int) (bytecode.Instruction, int, bool) {
	size := len(code)
	// Shortest admissible form is [->+<].
	if i+6 > size || code[i+1] != '-' {
		return bytecode.Instruction{}, 0, false
	}

	var mults []bytecode.CellMult
	mult := 0
	depth := 0
	j := i + 2

	// Walk the body until the pointer turns back left, accumulating the
	// increment count at each offset reached from the anchor.
scan:
	for j < size {
		switch code[j] {
		case '>':
			if mult > 0 {
				mults = append(mults, bytecode.CellMult{Offset: depth, Mult: mult})
				mult = 0
			}
			depth++
		case '<':
			if mult > 0 {
				mults = append(mults, bytecode.CellMult{Offset: depth, Mult: mult})
				mult = 0
			}
			break scan
		case '+':
			// An increment before the first right-move would land on the
			// anchor itself.
			if depth == 0 {
				return bytecode.Instruction{}, 0, false
			}
			mult++
		default:
			return bytecode.Instruction{}, 0, false
		}
		j++
	}

	if len(mults) == 0 || depth == 0 || j >= size {
		return bytecode.Instruction{}, 0, false
	}

	// The rest must be left-moves bringing the drift back to zero, then ].
	for j < size && code[j] != ']' {
		if code[j] != '<' {
			return bytecode.Instruction{}, 0, false
		}
		depth--
		j++
	}
	if depth != 0 || j >= size {
		return bytecode.Instruction{}, 0, false
	}

	in := bytecode.Instruction{Op: bytecode.OpCopy, Offset: drift, Mults: mults}
	return in, j - i + 1, true
}

// matchLoop tries the recognizers in priority order.
func matchLoop(code []byte, i, drift int) (bytecode.Instruction, int, bool) {
	if in, n, ok := matchClearLoop(code, i, drift); ok {
		return in, n, ok
	}
	if in, n, ok := matchScanLoop(code, i, drift); ok {
		return in, n, ok
	}
	if in, n, ok := matchCopyLoop(code, i, drift); ok {
		return in, n, ok
	}
	return bytecode.Instruction{}, 0, false
}
