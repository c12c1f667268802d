package vm

import (
	"bytes"
	"strings"
	"testing"

	"bfjit/internal/compiler"
	"bfjit/internal/lexer"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

// reference is a straight, unoptimized interpreter over the sanitized
// source. It is the oracle for the optimizer-equivalence property: whatever
// the optimized pipeline produces must match this byte for byte.
func reference(src string, input []byte) string {
	code := lexer.Sanitize([]byte(src))
	tape := make([]byte, TapeSize)
	var out strings.Builder
	p := 0

	for pc := 0; pc < len(code); pc++ {
		switch code[pc] {
		case '+':
			tape[p]++
		case '-':
			tape[p]--
		case '>':
			p++
		case '<':
			p--
		case '.':
			out.WriteByte(tape[p])
		case ',':
			if len(input) > 0 {
				b := input[0]
				input = input[1:]
				if b != 0 {
					tape[p] = b
				}
			}
		case '[':
			if tape[p] == 0 {
				depth := 1
				for depth > 0 {
					pc++
					switch code[pc] {
					case '[':
						depth++
					case ']':
						depth--
					}
				}
			}
		case ']':
			if tape[p] != 0 {
				depth := 1
				for depth > 0 {
					pc--
					switch code[pc] {
					case ']':
						depth++
					case '[':
						depth--
					}
				}
			}
		}
	}
	return out.String()
}

func run(t *testing.T, src string, input []byte) string {
	t.Helper()
	program, err := compiler.Compile([]byte(src))
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", src, err)
	}
	machine := New(program, Options{Input: input, BufferOutput: true})
	out, err := machine.Run()
	if err != nil {
		t.Fatalf("Run(%q) failed: %v", src, err)
	}
	return out
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		program  string
		input    []byte
		expected string
	}{
		{"hello world", helloWorld, nil, "Hello World!\n"},
		{"clear loop", "+++++[-]+.", nil, "\x01"},
		{"scan right over zero", "+>+>+>+>[>]+.", nil, "\x01"},
		{"scan right walks to first zero", "+>+>+><<<[>]++.", nil, "\x02"},
		{"scan left walks to first zero", ">+>+>+[<]++.", nil, "\x02"},
		{"copy multiply", "+++[->++>+++<<]>.>.", nil, "\x06\x09"},
		{"eof leaves cell unchanged", ",.", []byte{}, "\x00"},
		{"nul input leaves cell unchanged", ",.", []byte{0}, "\x00"},
		{"input byte stored", ",+.", []byte{'A'}, "B"},
		{"input consumed front to back", ",.,.", []byte("hi"), "hi"},
		{"wraparound up", strings.Repeat("+", 256) + ".", nil, "\x00"},
		{"wraparound down", "-.", nil, "\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, tt.program, tt.input)
			if got != tt.expected {
				t.Errorf("output %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOptimizerEquivalence(t *testing.T) {
	tests := []struct {
		name    string
		program string
		input   []byte
	}{
		{"hello world", helloWorld, nil},
		{"nested multiply", "++[>+++[>++<-]<-]>>.", nil},
		{"copy loop", "+++++[->>+++<<]>>.", nil},
		{"clear then rebuild", "++++++++[-]+++.", nil},
		{"scan loops", "+>+>+><<<[>]++.", nil},
		{"io round trip", ",+.,-.", []byte{10, 20}},
		{"deep nesting", "++++[>++++[>++++[>+<-]<-]<-]>>>.", nil},
		{"move materialized before loop", "+++[->+<]>[.-]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := reference(tt.program, tt.input)
			got := run(t, tt.program, tt.input)
			if got != want {
				t.Errorf("optimized output %q, reference output %q", got, want)
			}
		})
	}
}

func TestStreamingOutput(t *testing.T) {
	program, err := compiler.Compile([]byte("+++.-."))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	machine := New(program, Options{Stdout: &buf})
	out, err := machine.Run()
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("streaming run returned buffered output %q", out)
	}
	if got := buf.String(); got != "\x03\x02" {
		t.Errorf("streamed %q, want %q", got, "\x03\x02")
	}
}

func TestStreamingInput(t *testing.T) {
	program, err := compiler.Compile([]byte(",.,."))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	machine := New(program, Options{Stdin: strings.NewReader("ok"), Stdout: &buf})
	if _, err := machine.Run(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "ok" {
		t.Errorf("streamed %q, want %q", got, "ok")
	}
}

func TestStepsCounted(t *testing.T) {
	program, err := compiler.Compile([]byte("+++."))
	if err != nil {
		t.Fatal(err)
	}
	machine := New(program, Options{BufferOutput: true})
	if _, err := machine.Run(); err != nil {
		t.Fatal(err)
	}
	if machine.Steps() != uint64(len(program)) {
		t.Errorf("Steps() = %d, want %d", machine.Steps(), len(program))
	}
}
