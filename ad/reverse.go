package ad

import "github.com/pkg/errors"

// Implementation of the reverse sweep (spec section 4.5).
//
// Grounded on the teacher's tape.go replay loop, generalized to walk
// the tape backward and propagate adjoint ("Partial") coefficients
// per the Reverse Identity Theorem. Several opcodes (div, sqrt, log,
// the transcendental pairs) have a self-referential recurrence: the
// op's own result Partial row is read and corrected in place while
// iterating its Taylor-coefficient columns in descending order, since
// tape order already guarantees nothing downstream reads that row
// again once this op's turn comes.

// Reverse computes the adjoint vector dw of spec section 4.5. Order
// p must be at least 1 and no greater than Order()+1; w has length
// Range().
func (f *Fun[B]) Reverse(p int, w []B) ([]B, error) {
	if p < 1 {
		return nil, errors.New("ad: Reverse requires p >= 1")
	}
	if err := checkLen("Reverse", len(w), f.Range()); err != nil {
		return nil, err
	}
	if f.Order() < p-1 {
		return nil, errors.Wrapf(ErrOrderMissing, "Reverse(%d): order() is %d", p, f.Order())
	}

	endSweep := beginSweep[B]()
	defer endSweep()

	f.partial = make([][]B, f.tape.nVar)
	for addr := 1; addr < f.tape.nVar; addr++ {
		f.partial[addr] = make([]B, p)
	}
	f.partialOrder = p

	for i, a := range f.depAddr {
		f.partial[a][p-1] = f.partial[a][p-1].Add(w[i])
	}

	two := one[B]().Add(one[B]())
	cexpSeen := len(f.cexpTaken)

	for i := len(f.tape.ops) - 1; i >= 0; i-- {
		op := f.tape.ops[i]
		a := f.tape.res[i]
		if a == 0 && op != OpCom && op != OpCExp {
			continue
		}
		switch op {
		case OpInv, OpEnd, OpPri:
		case OpPar:
		case OpAdd:
			args := f.tape.argsOf(i)
			for k := 0; k < p; k++ {
				py := f.partialAt(a, k)
				f.accumulate(args[0], k, py)
				f.accumulate(args[1], k, py)
			}
		case OpSub:
			args := f.tape.argsOf(i)
			for k := 0; k < p; k++ {
				py := f.partialAt(a, k)
				f.accumulate(args[0], k, py)
				f.accumulate(args[1], k, py.Neg())
			}
		case OpMul:
			args := f.tape.argsOf(i)
			for k := 0; k < p; k++ {
				py := f.partialAt(a, k)
				for j := 0; j <= k; j++ {
					f.accumulate(args[0], j, py.Mul(f.coeff(args[1], k-j)))
					f.accumulate(args[1], k-j, py.Mul(f.coeff(args[0], j)))
				}
			}
		case OpDiv:
			args := f.tape.argsOf(i)
			v0 := f.coeff(args[1], 0)
			for k := p - 1; k >= 0; k-- {
				py := f.partialAt(a, k).Div(v0)
				f.setPartial(a, k, py)
				f.accumulate(args[0], k, py)
				for j := 1; j <= k; j++ {
					f.accumulate(args[1], j, py.Mul(f.taylorAt(a, k-j)).Neg())
					f.subPartial(a, k-j, py.Mul(f.coeff(args[1], j)))
				}
				f.accumulate(args[1], 0, py.Mul(f.taylorAt(a, k)).Neg())
			}
		case OpNeg:
			args := f.tape.argsOf(i)
			for k := 0; k < p; k++ {
				f.accumulate(args[0], k, f.partialAt(a, k).Neg())
			}
		case OpAbs:
			args := f.tape.argsOf(i)
			u0 := f.coeff(args[0], 0)
			sign := one[B]()
			if u0.Less(zero[B]()) {
				sign = sign.Neg()
			}
			for k := 0; k < p; k++ {
				f.accumulate(args[0], k, sign.Mul(f.partialAt(a, k)))
			}
		case OpSqrt:
			args := f.tape.argsOf(i)
			y0 := f.taylorAt(a, 0)
			for k := p - 1; k >= 1; k-- {
				py := f.partialAt(a, k).Div(two.Mul(y0))
				f.setPartial(a, k, py)
				f.accumulate(args[0], k, py)
				for j := 1; j < k; j++ {
					f.subPartial(a, k-j, two.Mul(py).Mul(f.taylorAt(a, j)))
				}
				f.subPartial(a, 0, two.Mul(py).Mul(f.taylorAt(a, k)))
			}
			py0 := f.partialAt(a, 0).Div(two.Mul(y0))
			f.accumulate(args[0], 0, py0)
		case OpExp:
			args := f.tape.argsOf(i)
			for k := p - 1; k >= 1; k-- {
				py := f.partialAt(a, k)
				for j := 0; j < k; j++ {
					wj := one[B]().SetFloat64(float64(k-j) / float64(k))
					contrib := wj.Mul(py)
					f.accumulate(args[0], k-j, contrib.Mul(f.taylorAt(a, j)))
					f.subPartial(a, j, contrib.Mul(f.coeff(args[0], k-j)).Neg())
				}
			}
			f.accumulate(args[0], 0, f.partialAt(a, 0).Mul(f.taylorAt(a, 0)))
		case OpLog:
			args := f.tape.argsOf(i)
			u0 := f.coeff(args[0], 0)
			for k := p - 1; k >= 1; k-- {
				py := f.partialAt(a, k).Div(u0)
				f.setPartial(a, k, py)
				f.accumulate(args[0], k, py)
				for j := 1; j < k; j++ {
					wj := one[B]().SetFloat64(float64(j) / float64(k))
					f.subPartial(a, j, wj.Mul(py).Mul(f.coeff(args[0], k-j)))
					f.accumulate(args[0], k-j, wj.Mul(py).Mul(f.taylorAt(a, j)).Neg())
				}
				f.accumulate(args[0], 0, py.Mul(f.taylorAt(a, k)).Neg())
			}
			f.accumulate(args[0], 0, f.partialAt(a, 0).Div(u0))
		case OpSin, OpCos:
			args := f.tape.argsOf(i)
			sAddr, cAddr := a, a+1
			if op == OpCos {
				sAddr, cAddr = a+1, a
			}
			for k := p - 1; k >= 1; k-- {
				pys := f.partialAt(sAddr, k)
				pyc := f.partialAt(cAddr, k)
				for j := 0; j < k; j++ {
					wj := one[B]().SetFloat64(float64(k-j) / float64(k))
					f.accumulate(args[0], k-j, wj.Mul(pys.Mul(f.taylorAt(cAddr, j)).Sub(pyc.Mul(f.taylorAt(sAddr, j)))))
					f.subPartial(cAddr, j, wj.Mul(pys).Mul(f.coeff(args[0], k-j)).Neg())
					f.subPartial(sAddr, j, wj.Mul(pyc).Mul(f.coeff(args[0], k-j)))
				}
			}
			f.accumulate(args[0], 0, f.partialAt(sAddr, 0).Mul(f.taylorAt(cAddr, 0)).Sub(f.partialAt(cAddr, 0).Mul(f.taylorAt(sAddr, 0))))
		case OpSinh, OpCosh:
			args := f.tape.argsOf(i)
			sAddr, cAddr := a, a+1
			if op == OpCosh {
				sAddr, cAddr = a+1, a
			}
			for k := p - 1; k >= 1; k-- {
				pys := f.partialAt(sAddr, k)
				pyc := f.partialAt(cAddr, k)
				for j := 0; j < k; j++ {
					wj := one[B]().SetFloat64(float64(k-j) / float64(k))
					f.accumulate(args[0], k-j, wj.Mul(pys.Mul(f.taylorAt(cAddr, j)).Add(pyc.Mul(f.taylorAt(sAddr, j)))))
					f.subPartial(cAddr, j, wj.Mul(pys).Mul(f.coeff(args[0], k-j)).Neg())
					f.subPartial(sAddr, j, wj.Mul(pyc).Mul(f.coeff(args[0], k-j)).Neg())
				}
			}
			f.accumulate(args[0], 0, f.partialAt(sAddr, 0).Mul(f.taylorAt(cAddr, 0)).Add(f.partialAt(cAddr, 0).Mul(f.taylorAt(sAddr, 0))))
		case OpAsin, OpAcos, OpAtan:
			args := f.tape.argsOf(i)
			u, b := args[0], args[1]
			b0 := f.coeff(b, 0)
			sign := one[B]()
			if op == OpAcos {
				sign = sign.Neg()
			}
			for k := p - 1; k >= 1; k-- {
				py := f.partialAt(a, k).Div(b0)
				f.accumulate(u, k, sign.Mul(py))
				for j := 1; j < k; j++ {
					wj := one[B]().SetFloat64(float64(j) / float64(k))
					f.subPartial(a, j, wj.Mul(py).Mul(f.coeff(b, k-j)))
					f.accumulate(b, k-j, wj.Mul(py).Mul(f.taylorAt(a, j)).Neg())
				}
				f.accumulate(b, 0, py.Mul(f.taylorAt(a, k)).Neg())
			}
			f.accumulate(u, 0, sign.Mul(f.partialAt(a, 0)).Div(b0))
		case OpCom:
		case OpCExp:
			args := f.tape.argsOf(i)
			cexpSeen--
			taken := f.cexpTaken[cexpSeen]
			for k := 0; k < p; k++ {
				py := f.partialAt(a, k)
				if taken {
					f.accumulate(args[2], k, py)
				} else {
					f.accumulate(args[3], k, py)
				}
			}
		case OpLdp, OpLdv:
			args := f.tape.argsOf(i)
			elem := f.loadElem[i]
			if elem.Var {
				for k := 0; k < p; k++ {
					f.accumulate(elem, k, f.partialAt(a, k))
				}
			}
			_ = args
		case OpStpp, OpStpv, OpStvp, OpStvv:
		}
	}

	dw := make([]B, f.Domain()*p)
	for j, addr := range f.indAddr {
		for k := 0; k < p; k++ {
			dw[j*p+k] = f.partialAt(addr, p-1-k)
		}
	}
	return dw, nil
}

func (f *Fun[B]) partialAt(addr, k int) B {
	if addr == 0 || k < 0 || k >= len(f.partial[addr]) {
		return zero[B]()
	}
	return f.partial[addr][k]
}

func (f *Fun[B]) setPartial(addr, k int, v B) {
	if addr == 0 {
		return
	}
	f.partial[addr][k] = v
}

func (f *Fun[B]) subPartial(addr, k int, v B) {
	if addr == 0 || k < 0 || k >= len(f.partial[addr]) {
		return
	}
	f.partial[addr][k] = f.partial[addr][k].Sub(v)
}

// accumulate adds v into arg's Partial row at column k, if arg refers
// to a variable (parameters have no adjoint to collect).
func (f *Fun[B]) accumulate(arg Arg, k int, v B) {
	if !arg.Var || arg.Idx == 0 || k < 0 || k >= len(f.partial[arg.Idx]) {
		return
	}
	f.partial[arg.Idx][k] = f.partial[arg.Idx][k].Add(v)
}
