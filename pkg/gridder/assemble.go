package gridder

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// EstimateMatrixBytes returns the size of the dense system matrix for n
// observation pairs.
func EstimateMatrixBytes(n int) int64 {
	n2 := int64(2 * n)
	return n2 * n2 * 8
}

// memString pretty-prints a byte count in kb, Mb, or Gb.
func memString(bytes int64) string {
	mem := float64(bytes) / 1024.0
	units := []string{"kb", "Mb", "Gb"}
	unit := 0
	for mem > 1024.0 && unit < len(units)-1 {
		mem /= 1024.0
		unit++
	}
	return fmt.Sprintf("%.1f %s", mem, units[unit])
}

// assemble builds the dense 2n x 2n system A and the stacked, weighted
// residual vector b. Rows and columns [0,n) carry the u equations and
// unknowns, [n,2n) the v equations and unknowns. Each (row j, col i) block
// entry is a kernel evaluation of the offset from observation i to j, scaled
// by the product of the row and column observation weights; b carries the row
// weights. The solved coefficients feed the predictor as-is, so a weighted
// fit trades exact interpolation for pulling harder toward the heavier
// observations.
func (g *Gridder) assemble() (*mat.Dense, []float64, error) {
	n := len(g.obs)
	n2 := 2 * n

	need := EstimateMatrixBytes(n)
	if g.params.Verbose {
		fmt.Printf("Square matrix requires %s\n", memString(need))
	}
	if need > g.params.MaxMatrixBytes {
		return nil, nil, fmt.Errorf("%w: %d observations need a %dx%d matrix (%s), above the %s ceiling",
			ErrResource, n, n2, n2, memString(need), memString(g.params.MaxMatrixBytes))
	}

	a := mat.NewDense(n2, n2, nil)
	data := a.RawMatrix().Data
	b := make([]float64, n2)

	for j := 0; j < n; j++ {
		wju := g.obs[j].WeightU
		wjv := g.obs[j].WeightV
		b[j] = wju * g.obs[j].U
		b[j+n] = wjv * g.obs[j].V
		for i := 0; i < n; i++ {
			dx, dy := g.metric.Offset(g.obs[i].X, g.obs[i].Y, g.obs[j].X, g.obs[j].Y)
			guu, gvv, guv := g.kernel.Evaluate(dx, dy)
			wu := wju * g.obs[i].WeightU
			wv := wjv * g.obs[i].WeightV
			data[j*n2+i] = wu * guu
			data[(j+n)*n2+i+n] = wv * gvv
			data[j*n2+i+n] = wu * guv
			data[(j+n)*n2+i] = wv * guv
		}
	}

	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: system matrix contains non-finite entries", ErrInput)
		}
	}
	return a, b, nil
}
