package ad

// Testing primitive and composite derivative rules.
//
// Adapted from the teacher's tape_test.go: the same table-driven
// testcase/runsuite shape (one expression, several input/gradient
// pairs), rebuilt around Independent/End/RevOne instead of the
// teacher's Assignment/Arithmetic/Elemental recording primitives,
// which belonged to the source-to-source differentiator this package
// does not implement.

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// ddx builds a one-output tape from f, differentiates it at x via
// RevOne, and returns the gradient.
func ddx(t *testing.T, x []float64, f func(v []AD[Float64]) AD[Float64]) []float64 {
	t.Helper()
	var rec Recorder[Float64]
	xs := make([]Float64, len(x))
	for i, xi := range x {
		xs[i] = Float64(xi)
	}
	vars, err := rec.Independent(xs)
	require.NoError(t, err)
	y := f(vars)
	fn, err := rec.End([]AD[Float64]{y})
	require.NoError(t, err)
	g, err := fn.RevOne(xs, 0)
	require.NoError(t, err)
	out := make([]float64, len(g))
	for i, gi := range g {
		out[i] = float64(gi)
	}
	return out
}

type testcase struct {
	s string
	f func(v []AD[Float64]) AD[Float64]
	v [][][]float64 // {{x...}, {expected gradient...}} pairs
}

func runsuite(t *testing.T, suite []testcase) {
	for _, c := range suite {
		for _, pair := range c.v {
			x, want := pair[0], pair[1]
			got := ddx(t, x, c.f)
			require.Len(t, got, len(want), "%s, x=%v", c.s, x)
			for i := range want {
				require.InDelta(t, want[i], got[i], 1e-9, "%s, x=%v, component %d", c.s, x, i)
			}
		}
	}
}

func TestPrimitive(t *testing.T) {
	runsuite(t, []testcase{
		{"x + y", func(v []AD[Float64]) AD[Float64] { return v[0].Add(v[1]) },
			[][][]float64{
				{{0, 0}, {1, 1}},
				{{3, 5}, {1, 1}}}},
		{"x + x", func(v []AD[Float64]) AD[Float64] { return v[0].Add(v[0]) },
			[][][]float64{
				{{0}, {2}},
				{{1}, {2}}}},
		{"x - y", func(v []AD[Float64]) AD[Float64] { return v[0].Sub(v[1]) },
			[][][]float64{
				{{0, 0}, {1, -1}},
				{{1, 1}, {1, -1}}}},
		{"x - x", func(v []AD[Float64]) AD[Float64] { return v[0].Sub(v[0]) },
			[][][]float64{
				{{1}, {0}}}},
		{"x * y", func(v []AD[Float64]) AD[Float64] { return v[0].Mul(v[1]) },
			[][][]float64{
				{{0, 0}, {0, 0}},
				{{2, 3}, {3, 2}}}},
		{"x * x", func(v []AD[Float64]) AD[Float64] { return v[0].Mul(v[0]) },
			[][][]float64{
				{{1}, {2}},
				{{3}, {6}}}},
		{"x / y", func(v []AD[Float64]) AD[Float64] { return v[0].Div(v[1]) },
			[][][]float64{
				{{2, 4}, {0.25, -0.125}}}},
		{"x / x", func(v []AD[Float64]) AD[Float64] { return v[0].Div(v[0]) },
			[][][]float64{
				{{2}, {0}}}},
		{"sqrt(x)", func(v []AD[Float64]) AD[Float64] { return v[0].Sqrt() },
			[][][]float64{
				{{1}, {0.5}},
				{{4}, {0.25}}}},
		{"log(x)", func(v []AD[Float64]) AD[Float64] { return v[0].Log() },
			[][][]float64{
				{{1}, {1}},
				{{2}, {0.5}}}},
		{"exp(x)", func(v []AD[Float64]) AD[Float64] { return v[0].Exp() },
			[][][]float64{
				{{0}, {1}},
				{{1}, {math.E}}}},
		{"cos(x)", func(v []AD[Float64]) AD[Float64] { return v[0].Cos() },
			[][][]float64{
				{{0}, {0}},
				{{1}, {-math.Sin(1)}}}},
		{"sin(x)", func(v []AD[Float64]) AD[Float64] { return v[0].Sin() },
			[][][]float64{
				{{0}, {1}},
				{{1}, {math.Cos(1)}}}},
	})
}

func TestComposite(t *testing.T) {
	runsuite(t, []testcase{
		{"x*x + y*y", func(v []AD[Float64]) AD[Float64] {
			return v[0].Mul(v[0]).Add(v[1].Mul(v[1]))
		},
			[][][]float64{
				{{1, 1}, {2, 2}},
				{{2, 3}, {4, 6}}}},
		{"(x+y)*(x+y)", func(v []AD[Float64]) AD[Float64] {
			s := v[0].Add(v[1])
			return s.Mul(s)
		},
			[][][]float64{
				{{1, 1}, {4, 4}},
				{{2, 3}, {10, 10}}}},
		{"sin(x*y)", func(v []AD[Float64]) AD[Float64] {
			return v[0].Mul(v[1]).Sin()
		},
			[][][]float64{
				{{1, math.Pi}, {-math.Pi, -1}},
				{{math.Pi, 1}, {-1, -math.Pi}}}},
	})
}
