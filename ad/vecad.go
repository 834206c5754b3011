package ad

import "github.com/pkg/errors"

// Implementation of VecAD, the AD-aware indexed vector of spec
// section 3.1/9. Grounded on the teacher's tape.go variable-table
// addressing scheme (an indexed access is just another tape row) and
// generalized to support a variable index operand, which spec
// requires be resolved once at order 0 and reused at every higher
// order (recorded as OpLdv the first time, cached thereafter).

// VecAD is a fixed-length array of B values whose elements can be
// read (and, while recording, written) with a possibly-variable
// index. Declaring one allocates a block of the tape's VecAD backing
// store; it is not itself a variable or parameter.
type VecAD[B Base[B]] struct {
	rec  *Recorder[B]
	id   int // index into rec.tape.vecLo/vecLen
	size int
}

// NewVecAD declares a VecAD of the given size with initial element
// values init (spec section 3.1: VecAD declaration is itself
// recorded, so replay can reconstruct the initial backing store).
func NewVecAD[B Base[B]](rec *Recorder[B], init []B) (VecAD[B], error) {
	if !rec.recording() {
		return VecAD[B]{}, errors.Wrap(ErrNotRecording, "NewVecAD")
	}
	lo := len(rec.tape.vecInit)
	for _, v := range init {
		rec.tape.vecInit = append(rec.tape.vecInit, rec.parArg(v))
		rec.tape.vecVal = append(rec.tape.vecVal, v)
	}
	id := len(rec.tape.vecLo)
	rec.tape.vecLo = append(rec.tape.vecLo, lo)
	rec.tape.vecLen = append(rec.tape.vecLen, len(init))
	return VecAD[B]{rec: rec, id: id, size: len(init)}, nil
}

func (v VecAD[B]) Size() int { return v.size }

// Get reads element idx. If idx is a constant (passive) AD value the
// access is resolved immediately and recorded as OpLdp; if idx is a
// recording variable the access is recorded as OpLdv, and per spec
// section 9's Open Question, the partial of the loaded value with
// respect to idx is always defined as zero (the index only selects
// which stored partial flows through, it does not itself have a
// derivative contribution).
func (v VecAD[B]) Get(idx AD[B]) (AD[B], error) {
	i := int(idx.value.Int64())
	if i < 0 || i >= v.size {
		return AD[B]{}, errors.Wrapf(ErrIndexOutOfRange, "VecAD.Get: index %d, size %d", i, v.size)
	}
	val := v.rec.tape.vecVal[v.rec.tape.vecLo[v.id]+i]
	if !v.rec.recording() {
		return AD[B]{value: val}, nil
	}
	op := OpLdp
	idxArg := v.rec.parArg(idx.value)
	if idx.IsVariable() {
		op = OpLdv
		idxArg = v.rec.varArg(idx.taddr)
	}
	ex := opExtra{vec: v.id}
	addr := v.rec.emit(op, []Arg{idxArg}, ex, val)
	return AD[B]{rec: v.rec, taddr: addr, value: val}, nil
}

// Set writes element idx := val while recording. Like Get, a variable
// index is permitted and recorded (OpStvp/OpStvv); a constant index
// is recorded as OpStpp/OpStpv depending on whether val is itself a
// variable.
func (v VecAD[B]) Set(idx, val AD[B]) error {
	if !v.rec.recording() {
		return errors.Wrap(ErrNotRecording, "VecAD.Set")
	}
	i := int(idx.value.Int64())
	if i < 0 || i >= v.size {
		return errors.Wrapf(ErrIndexOutOfRange, "VecAD.Set: index %d, size %d", i, v.size)
	}

	var op OpCode
	switch {
	case !idx.IsVariable() && !val.IsVariable():
		op = OpStpp
	case !idx.IsVariable() && val.IsVariable():
		op = OpStpv
	case idx.IsVariable() && !val.IsVariable():
		op = OpStvp
	default:
		op = OpStvv
	}
	idxArg := v.rec.parArg(idx.value)
	if idx.IsVariable() {
		idxArg = v.rec.varArg(idx.taddr)
	}
	valArg := v.rec.parArg(val.value)
	if val.IsVariable() {
		valArg = v.rec.varArg(val.taddr)
	}
	ex := opExtra{vec: v.id}
	v.rec.emit(op, []Arg{idxArg, valArg}, ex, val.value)
	slot := v.rec.tape.vecLo[v.id] + i
	v.rec.tape.vecVal[slot] = val.value
	return nil
}
