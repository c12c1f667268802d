package bytecode

import "testing"

func TestOpCodeNames(t *testing.T) {
	tests := []struct {
		op       OpCode
		expected string
	}{
		{OpAdd, "add"},
		{OpSub, "sub"},
		{OpOpen, "openjmp"},
		{OpClose, "closejmp"},
		{OpIn, "in"},
		{OpOut, "out"},
		{OpMove, "move"},
		{OpClear, "clear"},
		{OpCopy, "copy"},
		{OpScanR, "scanr"},
		{OpScanL, "scanl"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.expected {
			t.Errorf("OpCode(%d).String() = %q, want %q", tt.op, got, tt.expected)
		}
	}
}

func TestInstructionString(t *testing.T) {
	in := Instruction{Op: OpAdd, Offset: 3, Arg: 2}
	if got := in.String(); got != "add 3 2" {
		t.Errorf("String() = %q, want %q", got, "add 3 2")
	}

	cp := Instruction{Op: OpCopy, Offset: 1, Mults: []CellMult{{Offset: 1, Mult: 2}, {Offset: 2, Mult: 3}}}
	if got := cp.String(); got != "copy 1 {1:2 2:3}" {
		t.Errorf("String() = %q, want %q", got, "copy 1 {1:2 2:3}")
	}
}

func TestProgramDisassembly(t *testing.T) {
	p := Program{
		{Op: OpAdd, Arg: 1},
		{Op: OpOut},
	}
	want := "0000  add 0 1\n0001  out 0 0\n"
	if got := p.String(); got != want {
		t.Errorf("Program.String() = %q, want %q", got, want)
	}
}
