package ad

import "gonum.org/v1/gonum/mat"

// [DOMAIN] Dense matrix convenience wrappers (SPEC_FULL.md 1.5).
// Grounded as a named, not pack-grounded, ecosystem dependency:
// gonum.org/v1/gonum/mat. These are data-shape adapters over
// Jacobian/Hessian for the common B = Float64 case, not a
// linear-algebra kernel: they reshape the row-major []Float64 the
// core driver already computed into a *mat.Dense for callers who want
// to compose with gonum's own routines downstream.

// JacobianDense is Jacobian, reshaped into a *mat.Dense.
func JacobianDense(f *Fun[Float64], x []Float64) (*mat.Dense, error) {
	raw, err := f.Jacobian(x)
	if err != nil {
		return nil, err
	}
	data := make([]float64, len(raw))
	for i, v := range raw {
		data[i] = float64(v)
	}
	return mat.NewDense(f.Range(), f.Domain(), data), nil
}

// HessianDense is Hessian for dependent i, reshaped into a *mat.Dense.
func HessianDense(f *Fun[Float64], x []Float64, i int) (*mat.Dense, error) {
	raw, err := f.Hessian(x, i)
	if err != nil {
		return nil, err
	}
	n := f.Domain()
	data := make([]float64, len(raw))
	for k, v := range raw {
		data[k] = float64(v)
	}
	return mat.NewDense(n, n, data), nil
}
