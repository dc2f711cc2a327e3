package gridder

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// gaussJordan solves A x = b by Gauss-Jordan elimination with partial
// pivoting. The solution overwrites b and the matrix is destroyed; the
// solver takes exclusive ownership of both buffers (deliberate zero-copy
// contract, matching the assembler handing them off).
func gaussJordan(a *mat.Dense, b []float64) error {
	m := len(b)
	raw := a.RawMatrix()
	data, stride := raw.Data, raw.Stride

	scale := 0.0
	for _, v := range data {
		if av := abs(v); av > scale {
			scale = av
		}
	}
	tiny := 1e-12 * scale

	for k := 0; k < m; k++ {
		pivRow := k
		pivAbs := abs(data[k*stride+k])
		for r := k + 1; r < m; r++ {
			if av := abs(data[r*stride+k]); av > pivAbs {
				pivRow, pivAbs = r, av
			}
		}
		if pivAbs <= tiny {
			return fmt.Errorf("%w: zero pivot at row %d", ErrSingular, k)
		}
		if pivRow != k {
			for c := 0; c < m; c++ {
				data[k*stride+c], data[pivRow*stride+c] = data[pivRow*stride+c], data[k*stride+c]
			}
			b[k], b[pivRow] = b[pivRow], b[k]
		}

		inv := 1.0 / data[k*stride+k]
		for c := 0; c < m; c++ {
			data[k*stride+c] *= inv
		}
		b[k] *= inv

		for r := 0; r < m; r++ {
			if r == k {
				continue
			}
			f := data[r*stride+k]
			if f == 0 {
				continue
			}
			for c := 0; c < m; c++ {
				data[r*stride+c] -= f * data[k*stride+c]
			}
			b[r] -= f * b[k]
		}
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

type svdReport struct {
	retained    int
	variancePct float64
}

// solveSVD solves A x = b through a truncated singular value decomposition.
// The pseudo-inverse is formed from the retained leading singular values
// only; the rest contribute nothing. The solution overwrites b. The returned
// spectrum holds all singular values in descending order.
func solveSVD(a *mat.Dense, b []float64, mode CutoffMode, cutoff float64) (svdReport, []float64, error) {
	m := len(b)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return svdReport{}, nil, fmt.Errorf("%w: SVD failed to converge", ErrSingular)
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	totalVar := floats.Dot(s, s)
	k := retainCount(s, mode, cutoff, totalVar)
	// Never divide by a numerically zero singular value, whatever the mode
	// asked for.
	minS := s[0] * 1e-15
	for k > 0 && s[k-1] <= minS {
		k--
	}
	if k == 0 {
		return svdReport{}, nil, fmt.Errorf("%w: cutoff retains no singular values; the solution would be identically zero", ErrConfig)
	}

	var w mat.VecDense
	w.MulVec(u.T(), mat.NewVecDense(m, b))
	for i := 0; i < m; i++ {
		if i < k {
			w.SetVec(i, w.AtVec(i)/s[i])
		} else {
			w.SetVec(i, 0)
		}
	}
	var x mat.VecDense
	x.MulVec(&v, &w)
	copy(b, x.RawVector().Data)

	rep := svdReport{retained: k}
	if totalVar > 0 {
		rep.variancePct = 100 * floats.Dot(s[:k], s[:k]) / totalVar
	}
	return rep, s, nil
}

// retainCount applies the cutoff policy to the descending spectrum s.
func retainCount(s []float64, mode CutoffMode, cutoff float64, totalVar float64) int {
	m := len(s)
	switch mode {
	case CutoffCount:
		k := int(cutoff)
		if k > m {
			k = m
		}
		return k
	case CutoffVariance:
		target := cutoff / 100 * totalVar
		cum := 0.0
		for i, si := range s {
			if cum >= target {
				return i
			}
			cum += si * si
		}
		return m
	default: // CutoffRatio
		limit := cutoff / 100 * s[0]
		for i, si := range s {
			if si < limit {
				return i
			}
		}
		return m
	}
}
