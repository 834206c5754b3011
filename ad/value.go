package ad

// Implementation of AD[B], the recording scalar of spec section 3.1/4.2.
//
// Grounded on the teacher's ad/tape.go Float type: a value paired with
// a tape position, computed eagerly (every operation both records an
// op and returns the ordinary-arithmetic result immediately, rather
// than deferring evaluation to a later pass) exactly as the teacher's
// Float.Add/Mul/etc. do. Generalized from the teacher's single
// package-global tape to an explicit *Recorder[B] carried on the
// value (spec's concurrency model requires one recorder per logical
// thread, ad/parallel.go), and from float64 to a generic Base B.

// AD is one recorded (or passive) scalar. taddr == 0 means the value
// is a parameter: either it predates the current recording, or it was
// produced outside of any Independent call. rec == nil means the
// value is not associated with any recorder at all: a constant, for
// which IsParameter reports true.
type AD[B Base[B]] struct {
	rec   *Recorder[B]
	taddr int
	value B
}

// Value returns the current order-0 value of x, independent of
// whether x is a variable, a parameter, or a bare constant.
func (x AD[B]) Value() B { return x.value }

// IsVariable reports whether x refers to a row of the tape currently
// being recorded by its own recorder (spec section 3.1: "variable").
func (x AD[B]) IsVariable() bool {
	return x.rec != nil && x.rec.recording() && x.taddr != 0
}

// IsParameter reports whether x is not a variable (spec section 3.1:
// parameters include both constants and out-of-tape values).
func (x AD[B]) IsParameter() bool { return !x.IsVariable() }

// Constant wraps a bare Base value as a non-recorder-bound AD value.
func Constant[B Base[B]](v B) AD[B] { return AD[B]{value: v} }

// activeRec returns the recorder that should own a new op combining x
// and y, or nil if neither operand is currently a recording variable
// (in which case the op is pure passive arithmetic). It panics if x
// and y are both variables of two different recorders — a host bug,
// not a caller-recoverable condition (spec section 7 does not list
// cross-tape mixing as a typed error; this mirrors the teacher's
// "never expected to happen" panics).
func (x AD[B]) activeRec(y AD[B]) *Recorder[B] {
	xv, yv := x.IsVariable(), y.IsVariable()
	switch {
	case xv && yv:
		if x.rec != y.rec {
			panic("ad: mixed recorders in one operation")
		}
		return x.rec
	case xv:
		return x.rec
	case yv:
		return y.rec
	default:
		return nil
	}
}

func (x AD[B]) argOn(r *Recorder[B]) Arg {
	if x.rec == r && x.taddr != 0 {
		return r.varArg(x.taddr)
	}
	return r.parArg(x.value)
}

func (x AD[B]) unaryRec() *Recorder[B] {
	if x.IsVariable() {
		return x.rec
	}
	return nil
}

func wrap[B Base[B]](rec *Recorder[B], op OpCode, args []Arg, ex opExtra, val B) AD[B] {
	if rec == nil {
		return AD[B]{value: val}
	}
	addr := rec.emit(op, args, ex, val)
	return AD[B]{rec: rec, taddr: addr, value: val}
}

// --- binary arithmetic (spec section 4.1/4.2) ---

func (x AD[B]) Add(y AD[B]) AD[B] {
	val := x.value.Add(y.value)
	rec := x.activeRec(y)
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpAdd, []Arg{x.argOn(rec), y.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Sub(y AD[B]) AD[B] {
	val := x.value.Sub(y.value)
	rec := x.activeRec(y)
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpSub, []Arg{x.argOn(rec), y.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Mul(y AD[B]) AD[B] {
	val := x.value.Mul(y.value)
	rec := x.activeRec(y)
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpMul, []Arg{x.argOn(rec), y.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Div(y AD[B]) AD[B] {
	val := x.value.Div(y.value)
	rec := x.activeRec(y)
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpDiv, []Arg{x.argOn(rec), y.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Neg() AD[B] {
	val := x.value.Neg()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpNeg, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Abs() AD[B] {
	val := x.value.Abs()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpAbs, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Sqrt() AD[B] {
	val := x.value.Sqrt()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpSqrt, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Exp() AD[B] {
	val := x.value.Exp()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpExp, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Log() AD[B] {
	val := x.value.Log()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpLog, []Arg{x.argOn(rec)}, opExtra{}, val)
}

// Sin and Cos are paired ops: each records both
// sin(x) and cos(x) as a single op's two result rows, since the
// forward/reverse recurrence for either needs the other. The method
// called by the caller returns the primary row; the companion row
// lives at the immediately following tape address and is filled in
// by the forward sweep (ad/forward.go), not at recording time.
func (x AD[B]) Sin() AD[B] {
	val := x.value.Sin()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpSin, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Cos() AD[B] {
	val := x.value.Cos()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	// Cos always records its own OpCos op, even when x is already the
	// operand of a Sin op: the returned row holds cos(x) and the
	// companion row at the next address holds sin(x), which the
	// sweeps use. This keeps every transcendental call site uniform
	// instead of requiring callers to track companion reuse.
	return wrap(rec, OpCos, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Sinh() AD[B] {
	val := x.value.Sinh()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpSinh, []Arg{x.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Cosh() AD[B] {
	val := x.value.Cosh()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	return wrap(rec, OpCosh, []Arg{x.argOn(rec)}, opExtra{}, val)
}

// Asin, Acos and Atan each record an ordinary companion variable b
// before emitting their own single-result op (SPEC_FULL.md 3.4):
// Asin/Acos use b = sqrt(1 - u*u), Atan uses b = 1 + u*u.
func (x AD[B]) Asin() AD[B] {
	val := x.value.Asin()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	b := companionSqrtOneMinusSquare(x)
	return wrap(rec, OpAsin, []Arg{x.argOn(rec), b.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Acos() AD[B] {
	val := x.value.Acos()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	b := companionSqrtOneMinusSquare(x)
	return wrap(rec, OpAcos, []Arg{x.argOn(rec), b.argOn(rec)}, opExtra{}, val)
}

func (x AD[B]) Atan() AD[B] {
	val := x.value.Atan()
	rec := x.unaryRec()
	if rec == nil {
		return AD[B]{value: val}
	}
	one := AD[B]{value: one[B]()}
	b := one.Add(x.Mul(x))
	return wrap(rec, OpAtan, []Arg{x.argOn(rec), b.argOn(rec)}, opExtra{}, val)
}

func companionSqrtOneMinusSquare[B Base[B]](x AD[B]) AD[B] {
	one := AD[B]{value: one[B]()}
	return one.Sub(x.Mul(x)).Sqrt()
}

// Pow realizes u^v via decomposition (SPEC_FULL.md 3.3): exp(v*log(u)).
// OpPow is never itself emitted onto the tape; the three component
// ops (log, mul, exp) are.
func (x AD[B]) Pow(y AD[B]) AD[B] {
	if !x.IsVariable() && !y.IsVariable() {
		return AD[B]{value: powValue(x.value, y.value)}
	}
	return x.Log().Mul(y).Exp()
}

// PowInt raises x to an integer power using the base field's own
// PowInt when x is passive, or by decomposition into repeated Mul
// when x is a recording variable (keeping the tape free of a
// dedicated integer-power opcode).
func (x AD[B]) PowInt(n int) AD[B] {
	if !x.IsVariable() {
		return AD[B]{value: x.value.PowInt(n)}
	}
	if n == 0 {
		return AD[B]{value: one[B]()}
	}
	neg := n < 0
	if neg {
		n = -n
	}
	r := AD[B]{value: one[B]()}
	base := x
	for n > 0 {
		if n&1 == 1 {
			r = r.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	if neg {
		one := AD[B]{value: one[B]()}
		return one.Div(r)
	}
	return r
}

func powValue[B Base[B]](u, v B) B { return u.Log().Mul(v).Exp() }

// Int64, SetFloat64 and String close the Base[AD[B]] capability set
// (ad/base.go) so B = AD[B'] is itself a valid base field: a higher-
// order tape recording over a lower-order one, per spec section 4.1.
// Int64 and String pass through to the current value; SetFloat64
// produces a passive constant, matching Constant's treatment of a
// bare Base value as unassociated with any recorder.
func (x AD[B]) Int64() int64 { return x.value.Int64() }

func (x AD[B]) SetFloat64(v float64) AD[B] {
	var z B
	return AD[B]{value: z.SetFloat64(v)}
}

func (x AD[B]) String() string { return x.value.String() }

// compare evaluates the named relation between x and y and, if either
// operand is a recording variable, appends a ComOp recording the
// outcome (spec section 4.2: "when either operand is a variable, a
// ComOp is appended"). The boolean is returned immediately either
// way; replay later re-checks it against the Taylor order-0 values
// and counts a mismatch in Fun.compareChange (ad/fun.go).
func (x AD[B]) compare(op CompareOp, y AD[B]) bool {
	res := evalCompare(op, x.value, y.value)
	rec := x.activeRec(y)
	if rec != nil {
		rec.emit(OpCom, []Arg{x.argOn(rec), y.argOn(rec)}, opExtra{cmp: op, cmpRes: res}, zero[B]())
	}
	return res
}

func evalCompare[B Base[B]](op CompareOp, a, b B) bool {
	switch op {
	case CompareLt:
		return a.Less(b)
	case CompareLe:
		return a.Less(b) || a.Equal(b)
	case CompareEq:
		return a.Equal(b)
	case CompareGe:
		return !a.Less(b)
	case CompareGt:
		return !a.Less(b) && !a.Equal(b)
	case CompareNe:
		return !a.Equal(b)
	}
	return false
}

func (x AD[B]) Equal(y AD[B]) bool        { return x.compare(CompareEq, y) }
func (x AD[B]) NotEqual(y AD[B]) bool     { return x.compare(CompareNe, y) }
func (x AD[B]) Less(y AD[B]) bool         { return x.compare(CompareLt, y) }
func (x AD[B]) LessEqual(y AD[B]) bool    { return x.compare(CompareLe, y) }
func (x AD[B]) Greater(y AD[B]) bool      { return x.compare(CompareGt, y) }
func (x AD[B]) GreaterEqual(y AD[B]) bool { return x.compare(CompareGe, y) }

// CondExp records a conditional-expression op (spec section 3.1,
// CExp): the recorded tape always carries both branches forward, and
// which one is "live" is resolved at replay from the same comparison
// made at recording time, without introducing a host-language branch
// into the tape itself.
func CondExp[B Base[B]](op CompareOp, left, right, ifTrue, ifFalse AD[B]) AD[B] {
	res := evalCompare(op, left.value, right.value)
	val := ifFalse.value
	if res {
		val = ifTrue.value
	}
	var rec *Recorder[B]
	for _, v := range []AD[B]{left, right, ifTrue, ifFalse} {
		if v.IsVariable() {
			rec = v.rec
			break
		}
	}
	if rec == nil {
		return AD[B]{value: val}
	}
	args := []Arg{left.argOn(rec), right.argOn(rec), ifTrue.argOn(rec), ifFalse.argOn(rec)}
	return wrap(rec, OpCExp, args, opExtra{cmp: op, cmpRes: res}, val)
}
