package gridder

import (
	"fmt"
	"math"
	"sync"

	"gpsgridder/internal/models"
)

// evaluate computes the fitted field at (x, y): the superposition of kernel
// terms weighted by the solved coefficients, with normalization undone. It
// reads only immutable post-fit state and is safe for concurrent use.
func (g *Gridder) evaluate(x, y float64) (float64, float64) {
	var u, v float64
	for p := range g.obs {
		dx, dy := g.metric.Offset(x, y, g.obs[p].X, g.obs[p].Y)
		guu, gvv, guv := g.kernel.Evaluate(dx, dy)
		u += g.alphaX[p]*guu + g.alphaY[p]*guv
		v += g.alphaY[p]*gvv + g.alphaX[p]*guv
	}
	return Denormalize(x, y, u, v, g.mode, g.norm)
}

// PredictPoint evaluates the fitted field at a single location.
func (g *Gridder) PredictPoint(x, y float64) (float64, float64, error) {
	if !g.fitted {
		return 0, 0, fmt.Errorf("%w: no fitted model, call Fit first", ErrConfig)
	}
	u, v := g.evaluate(x, y)
	return u, v, nil
}

// PredictPoints evaluates the fitted field at an explicit list of locations.
// Evaluation is parallel across points; results are written by index so the
// output order always matches the input order.
func (g *Gridder) PredictPoints(pts []models.Point) (us, vs []float64, err error) {
	if !g.fitted {
		return nil, nil, fmt.Errorf("%w: no fitted model, call Fit first", ErrConfig)
	}
	us = make([]float64, len(pts))
	vs = make([]float64, len(pts))
	g.parallelFor(len(pts), func(i int) {
		us[i], vs[i] = g.evaluate(pts[i].X, pts[i].Y)
	})
	return us, vs, nil
}

// PredictGrid evaluates the fitted field on the lattice described by geom
// and returns one grid per component. If mask is non-nil, nodes that are NaN
// in the mask are skipped and stay NaN in the output. The mask must share
// the lattice geometry.
func (g *Gridder) PredictGrid(geom models.GridGeometry, mask *models.Grid) (*models.Grid, *models.Grid, error) {
	if !g.fitted {
		return nil, nil, fmt.Errorf("%w: no fitted model, call Fit first", ErrConfig)
	}
	if mask != nil && !mask.Geometry.Same(geom) {
		return nil, nil, fmt.Errorf("%w: mask grid geometry does not match the requested region and spacing", ErrConfig)
	}
	ug := models.NewGrid(geom)
	vg := models.NewGrid(geom)
	nx, ny := geom.NX(), geom.NY()

	g.parallelFor(ny, func(row int) {
		y := geom.YCoord(row)
		for col := 0; col < nx; col++ {
			ij := row*nx + col
			if mask != nil && math.IsNaN(mask.Data[ij]) {
				continue
			}
			ug.Data[ij], vg.Data[ij] = g.evaluate(geom.XCoord(col), y)
		}
	})
	return ug, vg, nil
}

// parallelFor runs fn(i) for i in [0,total) across the configured number of
// workers, partitioning the index range into contiguous blocks. Workers share
// only read-only state and write disjoint slots, so no locking is needed.
func (g *Gridder) parallelFor(total int, fn func(i int)) {
	workers := g.params.Workers
	if workers < 1 {
		workers = 1
	}
	perWorker := (total + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > total {
			end = total
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
