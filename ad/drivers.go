package ad

import "github.com/pkg/errors"

// Implementation of the driver layer (spec section 4.7): thin,
// stateless compositions of Forward/Reverse. Grounded on spec's own
// description ("each is one-screen-of-code and has no state"); no
// teacher file has an equivalent, so these follow the spec's
// pseudocode almost verbatim, translated into the Fun[B] method set
// built up in fun.go/forward.go/reverse.go.

// Jacobian returns the m x n Jacobian of f at x, row-major, choosing
// the forward or reverse sweep direction by comparing n against the
// number of non-parameter dependents (spec section 4.7).
func (f *Fun[B]) Jacobian(x []B) ([]B, error) {
	if _, err := f.Forward(0, x); err != nil {
		return nil, err
	}
	n, m := f.Domain(), f.Range()
	nonParam := 0
	for i := 0; i < m; i++ {
		if !f.Parameter(i) {
			nonParam++
		}
	}
	j := make([]B, m*n)
	if n <= nonParam {
		unit := make([]B, n)
		for col := 0; col < n; col++ {
			for k := range unit {
				unit[k] = zero[B]()
			}
			unit[col] = one[B]()
			dy, err := f.Forward(1, unit)
			if err != nil {
				return nil, err
			}
			for row := 0; row < m; row++ {
				j[row*n+col] = dy[row]
			}
		}
		return j, nil
	}
	w := make([]B, m)
	for row := 0; row < m; row++ {
		for k := range w {
			w[k] = zero[B]()
		}
		w[row] = one[B]()
		dw, err := f.Reverse(1, w)
		if err != nil {
			return nil, err
		}
		for col := 0; col < n; col++ {
			j[row*n+col] = dw[col]
		}
	}
	return j, nil
}

// Hessian returns the n x n Hessian of dependent i at x (spec section
// 4.7): for each j, forward(1, e_j) then reverse(2, e_i).
func (f *Fun[B]) Hessian(x []B, i int) ([]B, error) {
	m, n := f.Range(), f.Domain()
	if i < 0 || i >= m {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "Hessian: dependent index %d, range %d", i, m)
	}
	if _, err := f.Forward(0, x); err != nil {
		return nil, err
	}
	w := make([]B, m)
	w[i] = one[B]()
	h := make([]B, n*n)
	unit := make([]B, n)
	for j := 0; j < n; j++ {
		for k := range unit {
			unit[k] = zero[B]()
		}
		unit[j] = one[B]()
		if _, err := f.Forward(1, unit); err != nil {
			return nil, err
		}
		dw, err := f.Reverse(2, w)
		if err != nil {
			return nil, err
		}
		for row := 0; row < n; row++ {
			h[row*n+j] = dw[row*2+1]
		}
	}
	return h, nil
}

// ForOne returns dF/dx_j at x (spec section 4.7).
func (f *Fun[B]) ForOne(x []B, j int) ([]B, error) {
	if j < 0 || j >= f.Domain() {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "ForOne: index %d, domain %d", j, f.Domain())
	}
	if _, err := f.Forward(0, x); err != nil {
		return nil, err
	}
	unit := make([]B, f.Domain())
	unit[j] = one[B]()
	return f.Forward(1, unit)
}

// RevOne returns the gradient of dependent i at x (spec section 4.7).
func (f *Fun[B]) RevOne(x []B, i int) ([]B, error) {
	if i < 0 || i >= f.Range() {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "RevOne: index %d, range %d", i, f.Range())
	}
	if _, err := f.Forward(0, x); err != nil {
		return nil, err
	}
	w := make([]B, f.Range())
	w[i] = one[B]()
	return f.Reverse(1, w)
}

// ForTwo returns, for each requested (j,k) pair, the m-vector of
// second partials d2F/dx_j dx_k (spec section 4.7). With D_jk the
// order-2 Taylor coefficient along e_j+e_k, an off-diagonal pair is
// D_jk - D_jj - D_kk and a diagonal pair is 2*D_jj. Each D_jj is
// cached in a scratch map so pairs sharing an index don't re-sweep it.
func (f *Fun[B]) ForTwo(x []B, pairs [][2]int) ([][]B, error) {
	n, m := f.Domain(), f.Range()
	if _, err := f.Forward(0, x); err != nil {
		return nil, err
	}
	diag := make(map[int][]B)
	unitDir := func(idx ...int) []B {
		u := make([]B, n)
		for _, j := range idx {
			u[j] = u[j].Add(one[B]())
		}
		return u
	}
	diagOf := func(j int) ([]B, error) {
		if d, ok := diag[j]; ok {
			return d, nil
		}
		if _, err := f.Forward(1, unitDir(j)); err != nil {
			return nil, err
		}
		d, err := f.Forward(2, make([]B, n))
		if err != nil {
			return nil, err
		}
		diag[j] = d
		return d, nil
	}

	out := make([][]B, len(pairs))
	for pi, jk := range pairs {
		j, k := jk[0], jk[1]
		if j < 0 || j >= n || k < 0 || k >= n {
			return nil, errors.Wrap(ErrIndexOutOfRange, "ForTwo")
		}
		if j == k {
			d, err := diagOf(j)
			if err != nil {
				return nil, err
			}
			dd := make([]B, m)
			for row := 0; row < m; row++ {
				dd[row] = d[row].Add(d[row])
			}
			out[pi] = dd
			continue
		}
		djj, err := diagOf(j)
		if err != nil {
			return nil, err
		}
		dkk, err := diagOf(k)
		if err != nil {
			return nil, err
		}
		if _, err := f.Forward(1, unitDir(j, k)); err != nil {
			return nil, err
		}
		djk, err := f.Forward(2, make([]B, n))
		if err != nil {
			return nil, err
		}
		mixed := make([]B, m)
		for row := 0; row < m; row++ {
			mixed[row] = djk[row].Sub(djj[row]).Sub(dkk[row])
		}
		out[pi] = mixed
	}
	return out, nil
}

// RevTwo returns, for each requested (i,j) pair, the n x p second
// adjoint ddw (spec section 4.7). forward(1, e_j) is swept again only
// when a pair's j differs from the previous pair's j: pairs sharing j
// reuse one sweep only when they are adjacent in pairs.
func (f *Fun[B]) RevTwo(x []B, pairs [][2]int) ([][]B, error) {
	n, m := f.Domain(), f.Range()
	if _, err := f.Forward(0, x); err != nil {
		return nil, err
	}
	lastJ := -1
	out := make([][]B, len(pairs))
	for pi, ij := range pairs {
		i, j := ij[0], ij[1]
		if i < 0 || i >= m || j < 0 || j >= n {
			return nil, errors.Wrap(ErrIndexOutOfRange, "RevTwo")
		}
		if j != lastJ {
			unit := make([]B, n)
			unit[j] = one[B]()
			if _, err := f.Forward(1, unit); err != nil {
				return nil, err
			}
			lastJ = j
		}
		w := make([]B, m)
		w[i] = one[B]()
		dw, err := f.Reverse(2, w)
		if err != nil {
			return nil, err
		}
		out[pi] = dw
	}
	return out, nil
}
