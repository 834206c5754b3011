package ad

// The six concrete seed scenarios of the testable-properties section,
// each built straight off a fresh recording and checked against the
// closed-form answer to within the stated tolerance.

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFun(t *testing.T, x []float64, build func(v []AD[Float64]) []AD[Float64]) (*Fun[Float64], []Float64) {
	t.Helper()
	var rec Recorder[Float64]
	xs := make([]Float64, len(x))
	for i, xi := range x {
		xs[i] = Float64(xi)
	}
	vars, err := rec.Independent(xs)
	require.NoError(t, err)
	dep := build(vars)
	fn, err := rec.End(dep)
	require.NoError(t, err)
	return fn, xs
}

func TestSeedExp(t *testing.T) {
	fn, xs := buildFun(t, []float64{1.0}, func(v []AD[Float64]) []AD[Float64] {
		return []AD[Float64]{v[0].Exp()}
	})
	y0, err := fn.Forward(0, xs)
	require.NoError(t, err)
	require.InDelta(t, math.E, float64(y0[0]), 1e-12)

	// Forward returns Taylor coefficients: the order-j coefficient of
	// exp(1 + t) is e/j!, so j! times it is e.
	jfac := 1.0
	for j := 1; j <= 4; j++ {
		jfac *= float64(j)
		dir := []Float64{0}
		if j == 1 {
			dir[0] = 1
		}
		yj, err := fn.Forward(j, dir)
		require.NoError(t, err)
		require.InDelta(t, math.E/jfac, float64(yj[0]), 1e-9)
	}

	// dw[k] is the partial of the order-4 coefficient with respect to
	// the order-(4-k) coefficient of u, which is the order-k
	// coefficient e/k!.
	dw, err := fn.Reverse(5, []Float64{1})
	require.NoError(t, err)
	kfac := 1.0
	for k := 0; k < 5; k++ {
		if k > 0 {
			kfac *= float64(k)
		}
		require.InDelta(t, math.E/kfac, float64(dw[k]), 1e-6)
	}
}

func TestSeedChainedMul(t *testing.T) {
	// f = 24*u*u with u(t) = 0.5 + t: the self-multiply forces forward(2)
	// through Mul's Taylor convolution rather than falling out of
	// linearity, matching the taped chain the scenario is meant to cover.
	fn, _ := buildFun(t, []float64{0.5}, func(v []AD[Float64]) []AD[Float64] {
		c := Constant(Float64(24))
		f := c.Mul(v[0]).Mul(v[0])
		return []AD[Float64]{f}
	})
	y0, err := fn.Forward(0, []Float64{0.5})
	require.NoError(t, err)
	require.InDelta(t, 6.0, float64(y0[0]), 1e-9)

	y1, err := fn.Forward(1, []Float64{1})
	require.NoError(t, err)
	require.InDelta(t, 24.0, float64(y1[0]), 1e-9)

	y2, err := fn.Forward(2, []Float64{0})
	require.NoError(t, err)
	require.InDelta(t, 24.0, float64(y2[0]), 1e-9)
}

// vandermonde builds the n x n matrix A[i][j] = i^j (row i, column j),
// the fill this scenario is grounded on (original_source/Adolc/DetLu.cpp:
// a[i] = 1; a[i+j*size] = i * a[i+(j-1)*size]).
func vandermonde(n int) [][]float64 {
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		a[i][0] = 1
		for j := 1; j < n; j++ {
			a[i][j] = a[i][j-1] * float64(i)
		}
	}
	return a
}

// detByLU records det(a) via Gaussian elimination with partial
// pivoting, the LU path spec section 8 scenario 3 is meant to
// exercise (divisions and a row-swap sign flip on the tape). Pivot
// selection reads order-0 values directly rather than comparing AD
// values, matching how a host would pick a pivot outside the tape.
func detByLU(a [][]AD[Float64]) AD[Float64] {
	n := len(a)
	sign := Constant(Float64(1))
	for k := 0; k < n; k++ {
		piv := k
		best := math.Abs(float64(a[k][k].Value()))
		for r := k + 1; r < n; r++ {
			if v := math.Abs(float64(a[r][k].Value())); v > best {
				best = v
				piv = r
			}
		}
		if piv != k {
			a[k], a[piv] = a[piv], a[k]
			sign = sign.Neg()
		}
		pivot := a[k][k]
		for r := k + 1; r < n; r++ {
			factor := a[r][k].Div(pivot)
			for c := k; c < n; c++ {
				a[r][c] = a[r][c].Sub(factor.Mul(a[k][c]))
			}
		}
	}
	det := sign
	for k := 0; k < n; k++ {
		det = det.Mul(a[k][k])
	}
	return det
}

// refDet is a plain-float64 reference oracle, independent of the taped
// LU path: cofactor expansion along the first row.
func refDet(a [][]float64) float64 {
	n := len(a)
	if n == 1 {
		return a[0][0]
	}
	det := 0.0
	sign := 1.0
	for j := 0; j < n; j++ {
		det += sign * a[0][j] * refDet(minorOf(a, 0, j))
		sign = -sign
	}
	return det
}

func minorOf(a [][]float64, ri, rj int) [][]float64 {
	n := len(a)
	m := make([][]float64, 0, n-1)
	for i := 0; i < n; i++ {
		if i == ri {
			continue
		}
		row := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if j == rj {
				continue
			}
			row = append(row, a[i][j])
		}
		m = append(m, row)
	}
	return m
}

func cofactor(a [][]float64, i, j int) float64 {
	sign := 1.0
	if (i+j)%2 == 1 {
		sign = -1.0
	}
	return sign * refDet(minorOf(a, i, j))
}

func TestSeedDeterminantLU(t *testing.T) {
	const n = 4
	amat := vandermonde(n)
	x := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x[i*n+j] = amat[i][j]
		}
	}

	fn, xs := buildFun(t, x, func(v []AD[Float64]) []AD[Float64] {
		a := make([][]AD[Float64], n)
		for i := range a {
			a[i] = append([]AD[Float64](nil), v[i*n:i*n+n]...)
		}
		return []AD[Float64]{detByLU(a)}
	})

	y0, err := fn.Forward(0, xs)
	require.NoError(t, err)
	require.InDelta(t, refDet(amat), float64(y0[0]), 1e-9)

	g, err := fn.RevOne(xs, 0)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := cofactor(amat, i, j)
			require.InDeltaf(t, want, float64(g[i*n+j]), 1e-6, "d(det)/dA[%d][%d]", i, j)
		}
	}
}

func TestSeedVecADIndexing(t *testing.T) {
	var rec Recorder[Float64]
	xs := []Float64{9.0}
	vars, err := rec.Independent(xs)
	require.NoError(t, err)

	init := make([]Float64, 10)
	for i := range init {
		init[i] = Float64(10 - i)
	}
	vec, err := NewVecAD(&rec, init)
	require.NoError(t, err)

	sx := vars[0].Sin()
	for k := 0; k < 10; k++ {
		kAD := AD[Float64]{value: Float64(k)}
		old, err := vec.Get(kAD)
		require.NoError(t, err)
		require.NoError(t, vec.Set(kAD, sx.Mul(old)))
	}
	z, err := vec.Get(vars[0])
	require.NoError(t, err)
	fn, err := rec.End([]AD[Float64]{z})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		y0, err := fn.Forward(0, []Float64{Float64(i)})
		require.NoError(t, err)
		want := math.Sin(float64(i)) * float64(10-i)
		require.InDelta(t, want, float64(y0[0]), 1e-9)

		y1, err := fn.Forward(1, []Float64{1})
		require.NoError(t, err)
		wantD := math.Cos(float64(i)) * float64(10-i)
		require.InDelta(t, wantD, float64(y1[0]), 1e-6)
	}
}

func TestSeedAtanTanRoundtrip(t *testing.T) {
	fn, _ := buildFun(t, []float64{1.0}, func(v []AD[Float64]) []AD[Float64] {
		z := v[0].Sin().Div(v[0].Cos())
		y := z.Atan()
		return []AD[Float64]{y}
	})
	y0, err := fn.Forward(0, []Float64{1.0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, float64(y0[0]), 1e-10)

	y1, err := fn.Forward(1, []Float64{1})
	require.NoError(t, err)
	require.InDelta(t, 1.0, float64(y1[0]), 1e-9)

	y2, err := fn.Forward(2, []Float64{0})
	require.NoError(t, err)
	require.InDelta(t, 0.0, float64(y2[0]), 1e-8)

	dw, err := fn.Reverse(2, []Float64{1})
	require.NoError(t, err)
	require.InDelta(t, 1.0, float64(dw[0]), 1e-8)
	require.InDelta(t, 0.0, float64(dw[1]), 1e-8)
}

func TestSeedSparsity(t *testing.T) {
	fn, _ := buildFun(t, []float64{1, 1, 1}, func(v []AD[Float64]) []AD[Float64] {
		return []AD[Float64]{v[0].Mul(v[1]).Add(v[2])}
	})
	n := fn.Domain()
	px := NewPattern(n, n)
	for i := 0; i < n; i++ {
		px.Set(i, i)
	}
	jac, err := fn.ForwardJacSparsity(px)
	require.NoError(t, err)
	for j := 0; j < n; j++ {
		require.True(t, jac.Get(0, j), "row pattern missing column %d", j)
	}

	wt := make([]bool, fn.Range())
	for i := range wt {
		wt[i] = true // weight [1] on the single output
	}
	h, err := fn.ReverseHesSparsity(wt)
	require.NoError(t, err)
	require.False(t, h.Get(0, 0))
	require.True(t, h.Get(0, 1))
	require.True(t, h.Get(1, 0))
	require.False(t, h.Get(2, 0))
	require.False(t, h.Get(2, 2))
}
