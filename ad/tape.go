package ad

// Implementation of the AD tape data model (spec section 3.1).
//
// Grounded on the teacher's ad/tape.go: a dense record array plus
// dense argument/value arrays, one redirection per op instead of one
// allocation per op. Generalized from the teacher's single untyped
// "record{typ, op, p, v}" shape (which only needed an opcode and two
// offsets) to the richer (op, args, result address, extra) shape
// spec section 3.1 requires for a multi-order, multi-opcode tape.

// Arg references an operand: either a tape variable address (Var
// true, Idx in [1, nVar)) or an index into the parameter table (Var
// false, Idx into Tape.par). This is the encoding of "variable op" vs
// "parameter op" operands from spec section 3.1.
type Arg struct {
	Var bool
	Idx int
}

// opExtra carries the handful of op-specific scalars that do not fit
// the uniform (op, args, result-address) shape: the relation and
// recorded outcome of a comparison (OpCom/OpCExp), the VecAD
// identity of an element access (OpLdp/OpLdv/OpStpp/OpStpv/OpStvp/
// OpStvv), and the literal text of a print op (OpPri).
type opExtra struct {
	cmp    CompareOp
	cmpRes bool
	vec    int
	text   string
}

// vecElem is the content of one VecAD slot: a reference to a tape
// parameter or variable, exactly like an operand Arg (spec section 3.1).
type vecElem = Arg

// Tape is the append-only recorded program of spec section 3.1. It
// is owned exclusively, after freezing, by the Fun that adopts it
// (spec section 3.2); the Recorder below is the only writer.
type Tape[B Base[B]] struct {
	ops   []OpCode
	args  []Arg
	argLo []int // argLo[i]..argLo[i+1] is op i's argument slice; len == len(ops)+1
	res   []int // res[i] is the tape address of op i's first result, 0 if op i has no result
	par   []B
	text  []string
	extra []opExtra

	nInd int // number of independents (n)
	nVar int // 1 + total result rows; address 0 is the parameter sentinel

	// VecAD backing (spec section 3.1): vecLo/vecLen index into
	// vecInit/vecVal, one (lo,len) pair per declared VecAD. vecInit
	// holds the parameter reference each slot was declared with, the
	// state Forward(0, ...) replays the recorded stores from; vecVal
	// caches each slot's current eager order-0 value for immediate
	// reads while recording.
	vecLo   []int
	vecLen  []int
	vecInit []vecElem
	vecVal  []B
}

func (t *Tape[B]) argsOf(i int) []Arg { return t.args[t.argLo[i]:t.argLo[i+1]] }

func (t *Tape[B]) numOps() int { return len(t.ops) }

// checkTopology verifies invariant 2 of spec section 3.1: every
// variable-operand argument of op i refers to an address strictly
// less than op i's own result address.
func (t *Tape[B]) checkTopology() error {
	for i := range t.ops {
		a := t.res[i]
		if a == 0 {
			continue
		}
		for _, arg := range t.argsOf(i) {
			if arg.Var && arg.Idx >= a {
				return Error("ad: tape topology violated")
			}
		}
	}
	return nil
}
