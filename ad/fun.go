package ad

import "github.com/pkg/errors"

// Implementation of the frozen recorded program (spec section 4.3).
//
// Grounded on the teacher's tape.go record/counters shape, generalized
// from "one tape, used immediately" to a standalone, adoptable Fun
// that owns its tape after the recorder freezes it (spec: "Once
// constructed it is immutable except for lazy extensions of its
// internal Taylor/sparsity buffers").

// Fun is the frozen program of spec section 4.3: ADFun<B>. It owns a
// Tape[B], the independent/dependent address tables, the Taylor and
// adjoint (Partial) coefficient buffers, and cached sparsity
// patterns.
type Fun[B Base[B]] struct {
	tape    Tape[B]
	indAddr []int
	depAddr []int
	varies  []bool // varies[addr]: does this row's value depend on any independent?

	taylor   [][]B // taylor[addr] has len >= maxOrder+1 (rows only grow), or is nil if addr never computed
	maxOrder int    // -1 if no order stored yet

	partial      [][]B
	partialOrder int // p used to build the current partial shape, 0 if none

	compareChanges int

	forJacPx      *Pattern // cached m x q result of ForwardJacSparsity
	forJacAddr    *Pattern // cached nVar x q address-level pattern backing it
	revJacPattern *Pattern

	alloc Allocator[B]

	// vecCur is the VecAD element table as resolved so far during the
	// current Forward(0, ...) sweep (spec section 9): it starts from
	// the elements each VecAD was declared with and is updated in
	// tape order as Stxx ops are replayed, so a Ldv/Ldp op sees every
	// store that precedes it on the tape.
	vecCur []vecElem
	// ldCache[i] is the resolved backing-store slot for load/store op
	// i, computed once during Forward(0, ...) and reused at every
	// higher order (spec section 9, index resolution happens once).
	ldCache []int
	// loadElem[i] is the element reference a load op i resolved to at
	// order 0 (a snapshot of vecCur[ldCache[i]] taken at that moment),
	// reused at every higher order of the same sweep instead of
	// re-reading vecCur: a store between this load and the end of the
	// tape would otherwise mutate vecCur[ldCache[i]] out from under a
	// higher-order re-read, resolving the load to the wrong variable.
	loadElem []vecElem
	// cexpTaken[i] is the branch decision of the i-th CExp op
	// encountered in tape order, recomputed each time Forward(0, ...)
	// runs (a fresh point x can take a different branch) and held
	// fixed for every higher order of that same sweep.
	cexpTaken []bool
}

func newFun[B Base[B]](t Tape[B], depAddr []int) *Fun[B] {
	f := &Fun[B]{
		tape:     t,
		depAddr:  depAddr,
		maxOrder: -1,
		alloc:    DefaultAllocator[B]{},
	}
	f.indAddr = make([]int, t.nInd)
	for j := range f.indAddr {
		f.indAddr[j] = j + 1
	}
	if err := f.checkIndependentDrift(); err != nil {
		// Construction-time invariant: indAddr is built as j+1 just
		// above and Independent emits the OpInv ops first, so a tape
		// from Recorder passes; End does not check drift itself, and a
		// failure here panics.
		panic(err)
	}
	f.computeVaries()
	f.taylor = make([][]B, t.nVar)
	f.partial = make([][]B, t.nVar)
	return f
}

func (f *Fun[B]) checkIndependentDrift() error {
	for j, addr := range f.indAddr {
		if addr != j+1 {
			return errors.Wrapf(ErrIndependentDrift, "independent %d has taddr %d", j, addr)
		}
		if f.tape.ops[j] != OpInv {
			return errors.Wrapf(ErrIndependentDrift, "op at independent position %d is %v, not inv", j, f.tape.ops[j])
		}
	}
	return nil
}

// computeVaries propagates, in tape order, whether each result row's
// value can depend on any independent. OpInv rows always vary; any
// other op's result varies iff at least one of its variable-operand
// arguments varies.
func (f *Fun[B]) computeVaries() {
	f.varies = make([]bool, f.tape.nVar)
	for i, op := range f.tape.ops {
		a := f.tape.res[i]
		if a == 0 {
			continue
		}
		if op == OpInv {
			f.varies[a] = true
			continue
		}
		v := false
		for _, arg := range f.tape.argsOf(i) {
			if arg.Var && f.varies[arg.Idx] {
				v = true
				break
			}
		}
		for k := 1; k < op.nRes(); k++ {
			f.varies[a+k] = v
		}
		f.varies[a] = v
	}
}

// --- queries (spec section 4.3) ---

func (f *Fun[B]) Domain() int { return len(f.indAddr) }
func (f *Fun[B]) Range() int  { return len(f.depAddr) }
func (f *Fun[B]) Size() int   { return f.tape.nVar }
// Order reports the maximum Taylor order currently stored (spec
// section 4.3: "order() = max stored Taylor order"); -1 before any
// Forward call. Forward's postcondition is order() = max(order(), p);
// Reverse requires order() >= p-1 (spec section 7, OrderMissing).
func (f *Fun[B]) Order() int {
	return f.maxOrder
}

// Memory reports the number of B elements held in the Taylor and
// Partial buffers, a size-agnostic proxy for owned memory: Go's
// generic parameter B has no reflectable static size, so an exact
// byte count is not available without runtime type assertions on
// every possible B. Hosts that need bytes can multiply by
// unsafe.Sizeof on their own concrete B.
func (f *Fun[B]) Memory() int {
	n := 0
	for _, row := range f.taylor {
		n += len(row)
	}
	for _, row := range f.partial {
		n += len(row)
	}
	return n
}

// Parameter reports whether dependent i is detached from every
// independent (spec section 4.3).
func (f *Fun[B]) Parameter(i int) bool {
	return !f.varies[f.depAddr[i]]
}

// CompareChange is available only in debug builds per spec section
// 4.3; this implementation always tracks it (the counter is cheap)
// and leaves gating it behind a build tag to the host.
func (f *Fun[B]) CompareChange() int { return f.compareChanges }
