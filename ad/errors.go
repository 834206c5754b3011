package ad

import "github.com/pkg/errors"

// Error is a sentinel failure kind surfaced by the public API (spec
// section 7), returned optionally wrapped with github.com/pkg/errors
// to carry the operation name and offending indices. Not every
// failure is one of these: Reverse with p < 1 and ReverseHesSparsity
// before ForwardJacSparsity return plain errors, and combining
// variables of two different recorders in one operation panics.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrNotRecording: an op was attempted while the recorder is Empty.
	ErrNotRecording = Error("ad: not recording")
	// ErrAlreadyRecording: Independent called while already Recording.
	ErrAlreadyRecording = Error("ad: already recording")
	// ErrStaleTapeReference: an AD value refers to a tape that is no
	// longer the active recording.
	ErrStaleTapeReference = Error("ad: stale tape reference")
	// ErrArityMismatch: a public vector-shaped argument has the wrong length.
	ErrArityMismatch = Error("ad: arity mismatch")
	// ErrOrderGap: forward(p) requested before order p-1 is stored.
	ErrOrderGap = Error("ad: forward order gap")
	// ErrOrderMissing: reverse(p) requested before order p-1 is stored.
	ErrOrderMissing = Error("ad: reverse order missing")
	// ErrIndexOutOfRange: a driver index is out of [0, domain) or [0, range).
	ErrIndexOutOfRange = Error("ad: index out of range")
	// ErrIndependentDrift: ADFun construction found x[j].taddr != j+1.
	ErrIndependentDrift = Error("ad: independent drift")
)

// checkLen validates a vector-shaped argument's length at a public
// entry point, per the vector contract of spec section 6.
func checkLen(name string, got, want int) error {
	if got != want {
		return errors.Wrapf(ErrArityMismatch,
			"%s: got length %d, want %d", name, got, want)
	}
	return nil
}
