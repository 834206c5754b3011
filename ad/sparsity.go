package ad

import "github.com/pkg/errors"

// Implementation of the three sparsity sweeps (spec section 4.6).
//
// No teacher file addresses sparsity directly; grounded on the
// teacher's tape.go replay-in-order/replay-in-reverse loop shape,
// reused here for pattern propagation instead of value propagation.
// Per-op rules: binary ops union both operand rows into the result
// row (reversed for the reverse sweep); unary ops copy; paired ops
// (sin/cos, sinh/cosh) mirror their companion row. The Hessian sweep
// adds the quadratic self-coupling rule for non-linear ops.

// ForwardJacSparsity propagates an n x q input-coupling pattern Px
// forward through the tape, returning the resulting m x q pattern of
// which dependents each of the q input directions couples to. The
// result (and its address-level backing) is cached on f for reuse by
// ReverseHesSparsity.
func (f *Fun[B]) ForwardJacSparsity(px *Pattern) (*Pattern, error) {
	if px.Rows() != f.Domain() {
		return nil, errors.Wrap(ErrArityMismatch, "ForwardJacSparsity: Px rows must equal Domain()")
	}
	q := px.Cols()
	addrPattern := NewPattern(f.tape.nVar, q)
	for j, addr := range f.indAddr {
		addrPattern.OrRowFrom(addr, px, j)
	}
	for i, op := range f.tape.ops {
		a := f.tape.res[i]
		if a == 0 || op == OpInv {
			continue
		}
		for _, arg := range f.tape.argsOf(i) {
			if arg.Var {
				addrPattern.UnionInto(a, arg.Idx)
			}
		}
		for k := 1; k < op.nRes(); k++ {
			addrPattern.UnionInto(a+k, a)
		}
	}
	out := NewPattern(f.Range(), q)
	for i, addr := range f.depAddr {
		out.OrRowFrom(i, addrPattern, addr)
	}
	f.forJacPx = out
	f.forJacAddr = addrPattern
	return out, nil
}

// ReverseJacSparsity propagates a q x m output-selecting pattern Py
// backward through the tape, returning the q x n pattern of which
// independents each of the q directions is coupled to.
func (f *Fun[B]) ReverseJacSparsity(py *Pattern) (*Pattern, error) {
	if py.Cols() != f.Range() {
		return nil, errors.Wrap(ErrArityMismatch, "ReverseJacSparsity: Py cols must equal Range()")
	}
	q := py.Rows()
	addrSet := NewPattern(q, f.tape.nVar)
	for qi := 0; qi < q; qi++ {
		for i, addr := range f.depAddr {
			if py.Get(qi, i) {
				addrSet.Set(qi, addr)
			}
		}
	}
	for i := len(f.tape.ops) - 1; i >= 0; i-- {
		op := f.tape.ops[i]
		a := f.tape.res[i]
		if a == 0 {
			continue
		}
		args := f.tape.argsOf(i)
		for qi := 0; qi < q; qi++ {
			touched := addrSet.Get(qi, a)
			for k := 1; k < op.nRes() && !touched; k++ {
				touched = addrSet.Get(qi, a+k)
			}
			if !touched {
				continue
			}
			for _, arg := range args {
				if arg.Var {
					addrSet.Set(qi, arg.Idx)
				}
			}
		}
	}
	out := NewPattern(q, f.Domain())
	for qi := 0; qi < q; qi++ {
		for j, addr := range f.indAddr {
			if addrSet.Get(qi, addr) {
				out.Set(qi, j)
			}
		}
	}
	f.revJacPattern = out
	return out, nil
}

// ReverseHesSparsity computes the q x q pattern of possible nonzeros
// in the Hessian of the single weighted sum selected by t (a
// Range()-length selection, spec section 4.6's Py collapsed to the
// one-weighted-sum case: see DESIGN.md for why the q x m shape spec.md
// describes is realized here as a plain bool selection instead) with
// respect to the independents. ForwardJacSparsity must already have
// been run, since this sweep reuses its cached per-address direction
// pattern to resolve both the bilinear cross-coupling rule (mul/div:
// every direction reaching one operand pairs with every direction
// reaching the other) and the quadratic self-coupling rule (non-linear
// unary ops, and the divisor of div: every direction reaching the
// operand pairs with itself).
func (f *Fun[B]) ReverseHesSparsity(t []bool) (*Pattern, error) {
	if f.forJacAddr == nil {
		return nil, errors.New("ad: ReverseHesSparsity requires ForwardJacSparsity first")
	}
	if len(t) != f.Range() {
		return nil, errors.Wrap(ErrArityMismatch, "ReverseHesSparsity: len(t) must equal Range()")
	}
	q := f.forJacAddr.Cols()

	reach := make([]bool, f.tape.nVar)
	for i, addr := range f.depAddr {
		if t[i] {
			reach[addr] = true
		}
	}
	for i := len(f.tape.ops) - 1; i >= 0; i-- {
		a := f.tape.res[i]
		if a == 0 || !reach[a] {
			continue
		}
		for _, arg := range f.tape.argsOf(i) {
			if arg.Var {
				reach[arg.Idx] = true
			}
		}
	}

	h := NewPattern(q, q)
	for i, op := range f.tape.ops {
		a := f.tape.res[i]
		if a == 0 || !reach[a] {
			continue
		}
		args := f.tape.argsOf(i)
		switch op {
		case OpMul, OpDiv:
			if op == OpDiv && args[1].Var {
				idx := f.forJacAddr.Indices(args[1].Idx)
				for _, j := range idx {
					for _, k := range idx {
						h.Set(j, k)
					}
				}
			}
			if !args[0].Var || !args[1].Var {
				continue
			}
			for _, j := range f.forJacAddr.Indices(args[0].Idx) {
				for _, k := range f.forJacAddr.Indices(args[1].Idx) {
					h.Set(j, k)
					h.Set(k, j)
				}
			}
		case OpSqrt, OpExp, OpLog, OpSin, OpCos, OpSinh, OpCosh, OpAsin, OpAcos, OpAtan, OpPow:
			if !args[0].Var {
				continue
			}
			idx := f.forJacAddr.Indices(args[0].Idx)
			for _, j := range idx {
				for _, k := range idx {
					h.Set(j, k)
				}
			}
		}
	}
	return h, nil
}
