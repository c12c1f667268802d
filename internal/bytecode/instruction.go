package bytecode

import (
	"fmt"
	"strings"
)

// CellMult is one entry of a copy/multiply loop's transfer table: the cell at
// Offset from the anchor receives anchor*Mult on each drain.
type CellMult struct {
	Offset int
	Mult   int
}

// Instruction is one element of the optimized program. Offset is the data
// pointer delta applied before the operation executes; Arg is the
// opcode-specific payload (a count for add/sub, the matching bracket index
// for openjmp/closejmp, the pointer delta for move). Copy loops carry their
// transfer table in Mults instead, kept inline to avoid a map allocation per
// instruction.
type Instruction struct {
	Op     OpCode
	Offset int
	Arg    int
	Mults  []CellMult
}

func (in Instruction) String() string {
	if in.Op == OpCopy {
		parts := make([]string, len(in.Mults))
		for i, m := range in.Mults {
			parts[i] = fmt.Sprintf("%d:%d", m.Offset, m.Mult)
		}
		return fmt.Sprintf("%s %d {%s}", in.Op, in.Offset, strings.Join(parts, " "))
	}
	return fmt.Sprintf("%s %d %d", in.Op, in.Offset, in.Arg)
}

// Program is the optimized instruction sequence. Built once by the compiler,
// then read-only for whichever back-end runs it.
type Program []Instruction

// String returns a line-per-instruction disassembly with indices, for the
// dump command and verbose mode.
func (p Program) String() string {
	var sb strings.Builder
	for i, in := range p {
		fmt.Fprintf(&sb, "%04d  %s\n", i, in)
	}
	return sb.String()
}
