package jit

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"bfjit/internal/errors"
	"bfjit/internal/lexer"
)

// EntryFunc is the name of the generated entry point.
const EntryFunc = "bf_jit_exec"

const memorySize = 30000

type loopBlocks struct {
	body *ir.Block
	post *ir.Block
}

// lowering carries the state threaded through one Lower call.
type lowering struct {
	fn       *ir.Func
	cur      *ir.Block
	tape     *ir.InstAlloca
	tapeType *types.ArrayType
	ptrAddr  *ir.InstAlloca
}

// Lower translates raw source into an LLVM module holding a single
// bf_jit_exec() -> i32 function: a stack-allocated 30,000-byte tape zeroed
// with one memset, an i32 data-pointer slot, and a naive straight-line
// lowering of the eight primitives. Coalescing, motion fusion and loop
// optimization are left entirely to the host optimizer, which does better on
// this form than on pre-chewed input.
func Lower(src []byte) (*ir.Module, error) {
	code := lexer.Sanitize(src)

	m := ir.NewModule()

	putchar := m.NewFunc("putchar", types.I32, ir.NewParam("", types.I32))
	getchar := m.NewFunc("getchar", types.I32)
	memset := m.NewFunc("llvm.memset.p0i8.i64", types.Void,
		ir.NewParam("", types.I8Ptr),
		ir.NewParam("", types.I8),
		ir.NewParam("", types.I64),
		ir.NewParam("", types.I1),
	)

	fn := m.NewFunc(EntryFunc, types.I32)
	entry := fn.NewBlock("entry")

	tapeType := types.NewArray(memorySize, types.I8)
	lo := &lowering{
		fn:       fn,
		cur:      entry,
		tapeType: tapeType,
		tape:     entry.NewAlloca(tapeType),
		ptrAddr:  entry.NewAlloca(types.I32),
	}

	zero64 := constant.NewInt(types.I64, 0)
	base := entry.NewGetElementPtr(lo.tapeType, lo.tape, zero64, zero64)
	entry.NewCall(memset, base,
		constant.NewInt(types.I8, 0),
		constant.NewInt(types.I64, memorySize),
		constant.False)
	entry.NewStore(constant.NewInt(types.I32, 0), lo.ptrAddr)

	one32 := constant.NewInt(types.I32, 1)
	one8 := constant.NewInt(types.I8, 1)
	zero8 := constant.NewInt(types.I8, 0)
	zero32 := constant.NewInt(types.I32, 0)

	var stack []loopBlocks

	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '>':
			p := lo.loadPtr()
			lo.cur.NewStore(lo.cur.NewAdd(p, one32), lo.ptrAddr)

		case '<':
			p := lo.loadPtr()
			lo.cur.NewStore(lo.cur.NewSub(p, one32), lo.ptrAddr)

		case '+':
			addr := lo.cellAddr(lo.cur)
			v := lo.cur.NewLoad(types.I8, addr)
			lo.cur.NewStore(lo.cur.NewAdd(v, one8), addr)

		case '-':
			addr := lo.cellAddr(lo.cur)
			v := lo.cur.NewLoad(types.I8, addr)
			lo.cur.NewStore(lo.cur.NewSub(v, one8), addr)

		case '.':
			v := lo.cur.NewLoad(types.I8, lo.cellAddr(lo.cur))
			lo.cur.NewCall(putchar, lo.cur.NewZExt(v, types.I32))

		case ',':
			// Store only a positive result: getchar reports EOF as -1, and
			// the language leaves the cell untouched on EOF or NUL.
			v := lo.cur.NewCall(getchar)
			cond := lo.cur.NewICmp(enum.IPredSGT, v, zero32)
			store := lo.fn.NewBlock("")
			done := lo.fn.NewBlock("")
			lo.cur.NewCondBr(cond, store, done)
			store.NewStore(store.NewTrunc(v, types.I8), lo.cellAddr(store))
			store.NewBr(done)
			lo.cur = done

		case '[':
			body := lo.fn.NewBlock("")
			post := lo.fn.NewBlock("")
			v := lo.cur.NewLoad(types.I8, lo.cellAddr(lo.cur))
			isZero := lo.cur.NewICmp(enum.IPredEQ, v, zero8)
			lo.cur.NewCondBr(isZero, post, body)
			stack = append(stack, loopBlocks{body: body, post: post})
			lo.cur = body

		case ']':
			if len(stack) == 0 {
				return nil, errors.NewParseError("unmatched ']'", i)
			}
			lb := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			v := lo.cur.NewLoad(types.I8, lo.cellAddr(lo.cur))
			nonZero := lo.cur.NewICmp(enum.IPredNE, v, zero8)
			lo.cur.NewCondBr(nonZero, lb.body, lb.post)
			lo.cur = lb.post
		}
	}

	if len(stack) > 0 {
		return nil, errors.NewParseError("unmatched '['", len(code))
	}

	lo.cur.NewRet(zero32)

	// The host toolchain links and runs a regular executable, so give it a
	// main that forwards to the generated entry point.
	mainFn := m.NewFunc("main", types.I32)
	mb := mainFn.NewBlock("")
	mb.NewRet(mb.NewCall(fn))

	return m, nil
}

func (lo *lowering) loadPtr() value.Value {
	return lo.cur.NewLoad(types.I32, lo.ptrAddr)
}

// cellAddr emits the address computation for the current cell into b.
func (lo *lowering) cellAddr(b *ir.Block) value.Value {
	p := b.NewLoad(types.I32, lo.ptrAddr)
	return b.NewGetElementPtr(lo.tapeType, lo.tape, constant.NewInt(types.I64, 0), p)
}
