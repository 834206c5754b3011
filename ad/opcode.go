package ad

// OpCode is the tagged enum over the fixed opcode set of spec section
// 3.1. Each opcode occupies a fixed number of result rows, given by
// nRes; its arguments are the slice of the tape's shared argument
// array delimited by argLo, and op-specific scalars live in opExtra
// (see tape.go).
type OpCode int

const (
	// OpInv is the independent-variable placeholder; the first
	// n_ind ops on every tape are OpInv, one per declared
	// independent (spec invariant 3).
	OpInv OpCode = iota
	// OpPar loads a tape parameter (par_vec entry) as a variable,
	// used for dependents that are parameters (trailing ParOp,
	// spec section 4.2).
	OpPar

	// Binary arithmetic.
	OpAdd
	OpSub
	OpMul
	OpDiv

	// Unary arithmetic.
	OpNeg
	OpAbs
	OpSqrt

	// Transcendentals. Sin/Cos and Sinh/Cosh are paired ops: each
	// emits two result rows (the named function and its
	// companion).
	OpExp
	OpLog
	OpSin
	OpCos
	OpSinh
	OpCosh
	// Asin/Acos/Atan take a precomputed companion b as their
	// second operand (SPEC_FULL.md 3.4); the companion is built
	// from ordinary Sub/Add/Mul/Sqrt ops by the recorder method.
	OpAsin
	OpAcos
	OpAtan
	// OpPow is never emitted onto a tape (Pow is realized via
	// Log/Mul/Exp decomposition, SPEC_FULL.md 3.3); the constant
	// exists so OpCode.String() can still name it in diagnostics.
	OpPow

	// Comparison and conditional expression.
	OpCom
	OpCExp

	// VecAD element access (spec section 3.1).
	OpLdp // load, parameter index
	OpLdv // load, variable index
	OpStpp
	OpStpv
	OpStvp
	OpStvv

	// Print-during-replay (spec section 3.1, text_vec).
	OpPri

	// OpEnd is the recording terminator.
	OpEnd
)

// nRes is the number of result (variable-table) rows an op of this
// code occupies.
func (op OpCode) nRes() int {
	switch op {
	case OpInv, OpPar,
		OpAdd, OpSub, OpMul, OpDiv,
		OpNeg, OpAbs, OpSqrt,
		OpExp, OpLog,
		OpAsin, OpAcos, OpAtan,
		OpCom, OpCExp,
		OpLdp, OpLdv:
		return 1
	case OpSin, OpCos, OpSinh, OpCosh:
		// primary result + companion row.
		return 2
	case OpStpp, OpStpv, OpStvp, OpStvv, OpPri, OpEnd:
		return 0
	}
	return 0
}

func (op OpCode) String() string {
	switch op {
	case OpInv:
		return "inv"
	case OpPar:
		return "par"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpNeg:
		return "neg"
	case OpAbs:
		return "abs"
	case OpSqrt:
		return "sqrt"
	case OpExp:
		return "exp"
	case OpLog:
		return "log"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	case OpSinh:
		return "sinh"
	case OpCosh:
		return "cosh"
	case OpAsin:
		return "asin"
	case OpAcos:
		return "acos"
	case OpAtan:
		return "atan"
	case OpPow:
		return "pow"
	case OpCom:
		return "com"
	case OpCExp:
		return "cexp"
	case OpLdp:
		return "ldp"
	case OpLdv:
		return "ldv"
	case OpStpp:
		return "stpp"
	case OpStpv:
		return "stpv"
	case OpStvp:
		return "stvp"
	case OpStvv:
		return "stvv"
	case OpPri:
		return "pri"
	case OpEnd:
		return "end"
	}
	return "?"
}

// CompareOp is the relation recorded by a ComOp/CExp (spec section 3.1).
type CompareOp int

const (
	CompareLt CompareOp = iota
	CompareLe
	CompareEq
	CompareGe
	CompareGt
	CompareNe
)
