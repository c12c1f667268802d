package jit

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	bferrors "bfjit/internal/errors"
)

// Options configure native compilation of a lowered module.
type Options struct {
	// OptLevel is the optimization level handed to the host toolchain, 0-3.
	OptLevel int

	// Stdin, Stdout and Stderr default to the process streams. Overridable
	// for tests.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run lowers src and executes it natively.
func Run(src []byte, opts Options) error {
	m, err := Lower(src)
	if err != nil {
		return err
	}
	return Execute(m, opts)
}

// Execute materializes the module to a scratch file, builds it at the
// requested optimization level with the host LLVM toolchain and runs the
// result wired to the configured streams. Every artifact is removed on
// return. clang is preferred; lli serves as a fallback when only the LLVM
// core tools are installed.
func Execute(m *ir.Module, opts Options) error {
	if opts.OptLevel < 0 || opts.OptLevel > 3 {
		return bferrors.NewJITError(fmt.Sprintf("optimization level %d out of range 0-3", opts.OptLevel))
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	// Unique scratch names so concurrent invocations never collide.
	id := uuid.NewString()
	llPath := filepath.Join(os.TempDir(), "bfjit-"+id+".ll")
	if err := os.WriteFile(llPath, []byte(m.String()), 0o600); err != nil {
		return errors.Wrap(err, "writing module")
	}
	defer os.Remove(llPath)

	if clang, err := exec.LookPath("clang"); err == nil {
		binPath := filepath.Join(os.TempDir(), "bfjit-"+id)
		build := exec.Command(clang, fmt.Sprintf("-O%d", opts.OptLevel), "-o", binPath, llPath)
		if out, err := build.CombinedOutput(); err != nil {
			return bferrors.NewJITError(fmt.Sprintf("clang failed: %v: %s", err, out))
		}
		defer os.Remove(binPath)
		return runWired(exec.Command(binPath), opts)
	}

	if lli, err := exec.LookPath("lli"); err == nil {
		return runWired(exec.Command(lli, llPath), opts)
	}

	return bferrors.NewJITError("no LLVM toolchain found in PATH (need clang or lli)")
}

func runWired(cmd *exec.Cmd, opts Options) error {
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	return errors.Wrap(cmd.Run(), "jit execution")
}
