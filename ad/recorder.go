package ad

import "github.com/pkg/errors"

// Implementation of the recording runtime (spec section 4.2, 4.8).
//
// Grounded on the teacher's oneGlobalTape: a package-scope tape plus a
// state machine (Empty/Recording) guarding it. Generalized from the
// teacher's single untyped global to a per-goroutine-thread slot
// (ad/parallel.go) keyed by the host's thread_num(), and from the
// teacher's two-field record to the richer op/args/extra shape of
// tape.go.

type tapeState int

const (
	stateEmpty tapeState = iota
	stateRecording
)

// Recorder is the L1 recording runtime of spec section 4.2: it owns
// one in-progress Tape and appends an op each time an AD operation is
// invoked on one of its variables. A Recorder is not safe for
// concurrent use by multiple goroutines; ad/parallel.go hands each
// logical thread its own Recorder.
type Recorder[B Base[B]] struct {
	state tapeState
	tape  Tape[B]
}

// Independent starts a new recording: x becomes the vector of
// independent variables (spec section 4.2, "Independent"). It is an
// error to call Independent while already recording (spec section 7,
// ErrAlreadyRecording).
func (r *Recorder[B]) Independent(x []B) ([]AD[B], error) {
	if r.state == stateRecording {
		return nil, errors.Wrap(ErrAlreadyRecording, "Independent")
	}
	r.state = stateRecording
	r.tape = Tape[B]{
		nInd: len(x),
		nVar: 1, // address 0 is the parameter sentinel row
	}
	r.tape.ops = make([]OpCode, 0, len(x)+16)
	r.tape.args = make([]Arg, 0, len(x)+16)
	r.tape.argLo = make([]int, 0, len(x)+17)
	r.tape.res = make([]int, 0, len(x)+16)
	r.tape.extra = make([]opExtra, 0, len(x)+16)
	r.tape.argLo = append(r.tape.argLo, 0)

	vars := make([]AD[B], len(x))
	for j, xj := range x {
		addr := r.emit(OpInv, nil, opExtra{}, xj)
		vars[j] = AD[B]{rec: r, taddr: addr, value: xj}
	}
	return vars, nil
}

// recording reports whether r currently owns an in-progress tape.
func (r *Recorder[B]) recording() bool { return r.state == stateRecording }

// emit appends one operation occupying op.nRes() result rows and
// returns the tape address of its first result row, or 0 if it has
// none. val, the order-0 value of the result, is not stored on the
// tape.
func (r *Recorder[B]) emit(op OpCode, args []Arg, ex opExtra, val B) int {
	r.tape.ops = append(r.tape.ops, op)
	r.tape.args = append(r.tape.args, args...)
	r.tape.argLo = append(r.tape.argLo, len(r.tape.args))
	r.tape.extra = append(r.tape.extra, ex)

	addr := 0
	if op.nRes() > 0 {
		addr = r.tape.nVar
		r.tape.nVar += op.nRes()
	}
	r.tape.res = append(r.tape.res, addr)
	_ = val
	return addr
}

// parArg records c as a tape parameter and returns the Arg referring
// to it (spec section 3.1: "parameter op" operand).
func (r *Recorder[B]) parArg(c B) Arg {
	idx := len(r.tape.par)
	r.tape.par = append(r.tape.par, c)
	return Arg{Var: false, Idx: idx}
}

// varArg returns the Arg referring to an existing tape variable.
func (r *Recorder[B]) varArg(addr int) Arg { return Arg{Var: true, Idx: addr} }

// End freezes the current recording into a Fun (spec section 4.3:
// "ADFun construction"). dep is the vector of dependent AD values, in
// the order the caller wants them to become the function's range.
func (r *Recorder[B]) End(dep []AD[B]) (*Fun[B], error) {
	if r.state != stateRecording {
		return nil, errors.Wrap(ErrNotRecording, "End")
	}
	if len(dep) == 0 {
		return nil, errors.Wrap(ErrArityMismatch, "End: empty range (m == 0) is not a valid ADFun")
	}
	depAddr := make([]int, len(dep))
	for i, d := range dep {
		if d.rec != nil && d.rec != r {
			return nil, errors.Wrap(ErrStaleTapeReference, "End")
		}
		if d.taddr == 0 {
			// dependent is a constant parameter: append a trailing
			// ParOp so every dependent has a variable row (spec 4.2).
			arg := r.parArg(d.value)
			addr := r.emit(OpPar, []Arg{arg}, opExtra{}, d.value)
			depAddr[i] = addr
		} else {
			depAddr[i] = d.taddr
		}
	}
	r.emit(OpEnd, nil, opExtra{}, zero[B]())

	t := r.tape
	if err := t.checkTopology(); err != nil {
		return nil, err
	}
	f := newFun(t, depAddr)
	r.state = stateEmpty
	r.tape = Tape[B]{}
	return f, nil
}

// Abort discards the in-progress recording without constructing a
// Fun, returning the recorder to Empty.
func (r *Recorder[B]) Abort() {
	r.state = stateEmpty
	r.tape = Tape[B]{}
}
