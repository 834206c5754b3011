package ad

import (
	"fmt"
	"math"
)

// Base is the capability set spec section 4.1 requires of the scalar
// field a tape is built over: arithmetic, comparison, the standard
// transcendentals, and the conversions (to an integer, from a
// float64, to a textual form) an AD value needs when it is itself used as the base
// field of a higher-order tape.
//
// Go has no operator overloading, so arithmetic is expressed as
// methods instead of +,-,*,/. Both Float64 (ordinary float64 math)
// and AD[B] (so that B may itself be AD[B'], per spec, enabling
// nested/higher-order taping) implement Base.
type Base[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Equal(T) bool
	Less(T) bool
	Abs() T
	Sqrt() T
	Exp() T
	Log() T
	Sin() T
	Cos() T
	Asin() T
	Acos() T
	Atan() T
	Sinh() T
	Cosh() T
	// PowInt raises the receiver to an integer power; the
	// base-field capability for "power-with-integer" in spec 3.1.
	PowInt(n int) T
	// Int64 truncates the receiver to an integer, used to resolve
	// VecAD indices from order-0 values.
	Int64() int64
	// SetFloat64 returns the value of x in T, independent of the
	// receiver; it is the field's "from float64" constructor,
	// expressed as a method so generic code can call it on any
	// zero value of T.
	SetFloat64(x float64) T
	String() string
}

// Float64 is the ordinary IEEE-754 base field; B = Float64 is the
// common case (spec section 4.1: "B is typically f64").
type Float64 float64

func (x Float64) Add(y Float64) Float64 { return x + y }
func (x Float64) Sub(y Float64) Float64 { return x - y }
func (x Float64) Mul(y Float64) Float64 { return x * y }
func (x Float64) Div(y Float64) Float64 { return x / y }
func (x Float64) Neg() Float64          { return -x }
func (x Float64) Equal(y Float64) bool  { return x == y }
func (x Float64) Less(y Float64) bool   { return x < y }
func (x Float64) Abs() Float64          { return Float64(math.Abs(float64(x))) }
func (x Float64) Sqrt() Float64         { return Float64(math.Sqrt(float64(x))) }
func (x Float64) Exp() Float64          { return Float64(math.Exp(float64(x))) }
func (x Float64) Log() Float64          { return Float64(math.Log(float64(x))) }
func (x Float64) Sin() Float64          { return Float64(math.Sin(float64(x))) }
func (x Float64) Cos() Float64          { return Float64(math.Cos(float64(x))) }
func (x Float64) Asin() Float64         { return Float64(math.Asin(float64(x))) }
func (x Float64) Acos() Float64         { return Float64(math.Acos(float64(x))) }
func (x Float64) Atan() Float64         { return Float64(math.Atan(float64(x))) }
func (x Float64) Sinh() Float64         { return Float64(math.Sinh(float64(x))) }
func (x Float64) Cosh() Float64         { return Float64(math.Cosh(float64(x))) }
func (x Float64) PowInt(n int) Float64  { return Float64(math.Pow(float64(x), float64(n))) }
func (x Float64) Int64() int64          { return int64(x) }
func (x Float64) SetFloat64(v float64) Float64 { return Float64(v) }
func (x Float64) String() string        { return fmt.Sprintf("%v", float64(x)) }

// zero and one return the additive and multiplicative identities of
// T, via the SetFloat64 constructor method on T's zero value.
func zero[T Base[T]]() T {
	var z T
	return z.SetFloat64(0)
}

func one[T Base[T]]() T {
	var z T
	return z.SetFloat64(1)
}
