package ad

import "github.com/pkg/errors"

// Implementation of the forward sweep (spec section 4.4).
//
// Grounded on the teacher's tape.go replay loop (a single switch over
// op codes walking the tape in order) generalized from "evaluate
// order 0 only" to the full per-opcode Taylor-coefficient recurrence
// table at arbitrary order p, and from a flat value array to the
// Fun's per-address coefficient rows (taylor[addr][k]).

// Forward computes order-p Taylor coefficients for every tape
// variable (spec section 4.4). p must be at most one more than the
// highest order currently stored (Order()+1). up is the order-0 point when p==0,
// or the order-p directional input otherwise.
func (f *Fun[B]) Forward(p int, up []B) ([]B, error) {
	if err := checkLen("Forward", len(up), f.Domain()); err != nil {
		return nil, err
	}
	if p > f.maxOrder+1 {
		return nil, errors.Wrapf(ErrOrderGap, "Forward(%d): order() is %d", p, f.Order())
	}

	endSweep := beginSweep[B]()
	defer endSweep()

	f.growTo(p)
	if p == 0 {
		f.vecCur = append([]vecElem(nil), f.tape.vecInit...)
		f.ldCache = make([]int, len(f.tape.ops))
		f.loadElem = make([]vecElem, len(f.tape.ops))
	}

	for j, addr := range f.indAddr {
		f.taylor[addr][p] = up[j]
	}

	cexpSeen := 0
	for i, op := range f.tape.ops {
		a := f.tape.res[i]
		switch op {
		case OpInv, OpEnd:
			// independents are seeded above; End has no result.
		case OpPar:
			arg := f.tape.argsOf(i)[0]
			f.setOrder(a, p, f.paramCoeff(arg, p))
		case OpAdd:
			args := f.tape.argsOf(i)
			f.setOrder(a, p, f.coeff(args[0], p).Add(f.coeff(args[1], p)))
		case OpSub:
			args := f.tape.argsOf(i)
			f.setOrder(a, p, f.coeff(args[0], p).Sub(f.coeff(args[1], p)))
		case OpMul:
			args := f.tape.argsOf(i)
			sum := zero[B]()
			for k := 0; k <= p; k++ {
				sum = sum.Add(f.coeff(args[0], k).Mul(f.coeff(args[1], p-k)))
			}
			f.setOrder(a, p, sum)
		case OpDiv:
			args := f.tape.argsOf(i)
			v0 := f.coeff(args[1], 0)
			num := f.coeff(args[0], p)
			for k := 1; k <= p; k++ {
				num = num.Sub(f.coeff(args[1], k).Mul(f.taylorAt(a, p-k)))
			}
			f.setOrder(a, p, num.Div(v0))
		case OpNeg:
			args := f.tape.argsOf(i)
			f.setOrder(a, p, f.coeff(args[0], p).Neg())
		case OpAbs:
			args := f.tape.argsOf(i)
			u0 := f.coeff(args[0], 0)
			sign := one[B]()
			if u0.Less(zero[B]()) {
				sign = sign.Neg()
			}
			f.setOrder(a, p, sign.Mul(f.coeff(args[0], p)))
		case OpSqrt:
			args := f.tape.argsOf(i)
			if p == 0 {
				f.setOrder(a, 0, f.coeff(args[0], 0).Sqrt())
				continue
			}
			sum := f.coeff(args[0], p)
			for j := 1; j < p; j++ {
				sum = sum.Sub(f.taylorAt(a, j).Mul(f.taylorAt(a, p-j)))
			}
			y0 := f.taylorAt(a, 0)
			f.setOrder(a, p, sum.Div(y0.Add(y0)))
		case OpExp:
			args := f.tape.argsOf(i)
			if p == 0 {
				f.setOrder(a, 0, f.coeff(args[0], 0).Exp())
				continue
			}
			sum := zero[B]()
			for j := 0; j < p; j++ {
				wj := one[B]().SetFloat64(float64(p - j))
				sum = sum.Add(wj.Mul(f.coeff(args[0], p-j)).Mul(f.taylorAt(a, j)))
			}
			kInv := one[B]().SetFloat64(1 / float64(p))
			f.setOrder(a, p, sum.Mul(kInv))
		case OpLog:
			args := f.tape.argsOf(i)
			if p == 0 {
				f.setOrder(a, 0, f.coeff(args[0], 0).Log())
				continue
			}
			sum := f.coeff(args[0], p)
			for j := 1; j < p; j++ {
				wj := one[B]().SetFloat64(float64(j) / float64(p))
				sum = sum.Sub(wj.Mul(f.taylorAt(a, j)).Mul(f.coeff(args[0], p-j)))
			}
			f.setOrder(a, p, sum.Div(f.coeff(args[0], 0)))
		case OpSin, OpCos:
			args := f.tape.argsOf(i)
			sAddr, cAddr := a, a+1
			if op == OpCos {
				sAddr, cAddr = a+1, a // Cos called standalone: companion row holds sin.
			}
			if p == 0 {
				f.setOrder(sAddr, 0, f.coeff(args[0], 0).Sin())
				f.setOrder(cAddr, 0, f.coeff(args[0], 0).Cos())
				continue
			}
			sSum, cSum := zero[B](), zero[B]()
			for j := 0; j < p; j++ {
				wj := one[B]().SetFloat64(float64(p - j))
				du := wj.Mul(f.coeff(args[0], p-j))
				sSum = sSum.Add(du.Mul(f.taylorAt(cAddr, j)))
				cSum = cSum.Add(du.Mul(f.taylorAt(sAddr, j)))
			}
			kInv := one[B]().SetFloat64(1 / float64(p))
			f.setOrder(sAddr, p, sSum.Mul(kInv))
			f.setOrder(cAddr, p, cSum.Mul(kInv).Neg())
		case OpSinh, OpCosh:
			args := f.tape.argsOf(i)
			sAddr, cAddr := a, a+1
			if op == OpCosh {
				sAddr, cAddr = a+1, a // companion row holds sinh.
			}
			if p == 0 {
				f.setOrder(sAddr, 0, f.coeff(args[0], 0).Sinh())
				f.setOrder(cAddr, 0, f.coeff(args[0], 0).Cosh())
				continue
			}
			sSum, cSum := zero[B](), zero[B]()
			for j := 0; j < p; j++ {
				wj := one[B]().SetFloat64(float64(p - j))
				du := wj.Mul(f.coeff(args[0], p-j))
				sSum = sSum.Add(du.Mul(f.taylorAt(cAddr, j)))
				cSum = cSum.Add(du.Mul(f.taylorAt(sAddr, j)))
			}
			kInv := one[B]().SetFloat64(1 / float64(p))
			f.setOrder(sAddr, p, sSum.Mul(kInv))
			f.setOrder(cAddr, p, cSum.Mul(kInv))
		case OpAsin, OpAcos, OpAtan:
			args := f.tape.argsOf(i) // u, b
			u, b := args[0], args[1]
			if p == 0 {
				switch op {
				case OpAsin:
					f.setOrder(a, 0, f.coeff(u, 0).Asin())
				case OpAcos:
					f.setOrder(a, 0, f.coeff(u, 0).Acos())
				case OpAtan:
					f.setOrder(a, 0, f.coeff(u, 0).Atan())
				}
				continue
			}
			sum := f.coeff(u, p)
			if op == OpAcos {
				sum = sum.Neg()
			}
			for j := 1; j < p; j++ {
				wj := one[B]().SetFloat64(float64(j) / float64(p))
				sum = sum.Sub(wj.Mul(f.taylorAt(a, j)).Mul(f.coeff(b, p-j)))
			}
			f.setOrder(a, p, sum.Div(f.coeff(b, 0)))
		case OpCom:
			args := f.tape.argsOf(i)
			ex := f.tape.extra[i]
			if p == 0 {
				res := evalCompare(ex.cmp, f.coeff(args[0], 0), f.coeff(args[1], 0))
				if res != ex.cmpRes {
					f.compareChanges++
				}
			}
		case OpCExp:
			args := f.tape.argsOf(i)
			if p == 0 {
				taken := evalCompare(f.tape.extra[i].cmp, f.coeff(args[0], 0), f.coeff(args[1], 0))
				if cexpSeen == len(f.cexpTaken) {
					f.cexpTaken = append(f.cexpTaken, taken)
				} else {
					f.cexpTaken[cexpSeen] = taken
				}
			}
			taken := f.cexpTaken[cexpSeen]
			cexpSeen++
			if taken {
				f.setOrder(a, p, f.coeff(args[2], p))
			} else {
				f.setOrder(a, p, f.coeff(args[3], p))
			}
		case OpLdp, OpLdv:
			args := f.tape.argsOf(i)
			vecID := f.tape.extra[i].vec
			if p == 0 {
				idx := int(f.coeff(args[0], 0).Int64())
				f.ldCache[i] = f.tape.vecLo[vecID] + idx
				f.loadElem[i] = f.vecCur[f.ldCache[i]]
			}
			f.setOrder(a, p, f.paramCoeff(f.loadElem[i], p))
		case OpStpp, OpStpv, OpStvp, OpStvv:
			args := f.tape.argsOf(i)
			vecID := f.tape.extra[i].vec
			if p == 0 {
				idx := int(f.coeff(args[0], 0).Int64())
				slot := f.tape.vecLo[vecID] + idx
				f.ldCache[i] = slot
				f.vecCur[slot] = args[1]
			}
		case OpPri:
			// Print-during-replay is a host diagnostic, not exercised
			// by core correctness; nothing to compute.
		}
	}

	f.maxOrder = p
	dep := make([]B, len(f.depAddr))
	for i, a := range f.depAddr {
		dep[i] = f.taylorAt(a, p)
	}
	return dep, nil
}

// coeff reads arg's order-k coefficient: a variable row's stored
// Taylor coefficient, or a parameter's value at k==0 and zero
// otherwise.
func (f *Fun[B]) coeff(arg Arg, k int) B { return f.paramCoeff(arg, k) }

func (f *Fun[B]) paramCoeff(arg Arg, k int) B {
	if arg.Var {
		return f.taylorAt(arg.Idx, k)
	}
	if k == 0 {
		return f.tape.par[arg.Idx]
	}
	return zero[B]()
}

func (f *Fun[B]) taylorAt(addr, k int) B {
	if k < 0 || addr == 0 || k >= len(f.taylor[addr]) {
		return zero[B]()
	}
	return f.taylor[addr][k]
}

func (f *Fun[B]) setOrder(addr, k int, v B) {
	if addr == 0 {
		return
	}
	f.taylor[addr][k] = v
}

// growTo ensures every address's Taylor row has at least p+1 columns,
// copying existing coefficients (spec section 4.4: "the only
// allocation during forward calls").
func (f *Fun[B]) growTo(p int) {
	for addr := 1; addr < f.tape.nVar; addr++ {
		row := f.taylor[addr]
		if len(row) > p {
			continue
		}
		grown := f.alloc.GetMemory(p + 1)
		copy(grown, row)
		f.taylor[addr] = grown
	}
}

