package gridder

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gpsgridder/internal/models"
)

// Mode is the set of normalization steps to apply. The per-component mean is
// always removed; the flags toggle the independent extras.
type Mode uint8

const (
	// Trend removes a best-fit plane through (x,y) -> u and (x,y) -> v.
	Trend Mode = 1 << iota

	// RangeNorm rescales each detrended component by the reciprocal of its
	// largest absolute residual.
	RangeNorm
)

// Normalize overwrites the u,v fields of obs with normalized residuals and
// returns the coefficients needed to reverse the operation exactly.
//
// The plane fit solves the 2x2 normal equations on coordinates centered at
// their means. A degenerate fit (zero determinant, e.g. collinear points)
// leaves the slope terms at zero so only the mean is removed.
func Normalize(obs []models.Observation, mode Mode) models.NormCoefficients {
	var c models.NormCoefficients
	n := len(obs)
	us := make([]float64, n)
	vs := make([]float64, n)
	for i := range obs {
		us[i] = obs[i].U
		vs[i] = obs[i].V
	}
	c[models.MeanU] = stat.Mean(us, nil)
	c[models.MeanV] = stat.Mean(vs, nil)

	if mode&Trend != 0 {
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := range obs {
			xs[i] = obs[i].X
			ys[i] = obs[i].Y
		}
		c[models.MeanX] = stat.Mean(xs, nil)
		c[models.MeanY] = stat.Mean(ys, nil)

		var sxx, sxy, sxu, sxv, syy, syu, syv float64
		for i := range obs {
			xx := obs[i].X - c[models.MeanX]
			yy := obs[i].Y - c[models.MeanY]
			uu := obs[i].U - c[models.MeanU]
			vv := obs[i].V - c[models.MeanV]
			sxx += xx * xx
			sxy += xx * yy
			sxu += xx * uu
			sxv += xx * vv
			syy += yy * yy
			syu += yy * uu
			syv += yy * vv
		}
		if d := sxx*syy - sxy*sxy; d != 0 {
			c[models.SlopeUX] = (sxu*syy - sxy*syu) / d
			c[models.SlopeUY] = (sxx*syu - sxy*sxu) / d
			c[models.SlopeVX] = (sxv*syy - sxy*syv) / d
			c[models.SlopeVY] = (sxx*syv - sxy*sxv) / d
		}
	}

	for i := range obs {
		u := obs[i].U - c[models.MeanU]
		v := obs[i].V - c[models.MeanV]
		if mode&Trend != 0 {
			xx := obs[i].X - c[models.MeanX]
			yy := obs[i].Y - c[models.MeanY]
			u -= c[models.SlopeUX]*xx + c[models.SlopeUY]*yy
			v -= c[models.SlopeVX]*xx + c[models.SlopeVY]*yy
		}
		obs[i].U, obs[i].V = u, v
		us[i], vs[i] = u, v
	}

	if mode&RangeNorm != 0 {
		c[models.RangeU] = math.Max(math.Abs(floats.Min(us)), math.Abs(floats.Max(us)))
		c[models.RangeV] = math.Max(math.Abs(floats.Min(vs)), math.Abs(floats.Max(vs)))
		// A zero range means every residual is exactly zero; record 1 so the
		// inverse stays exact.
		if c[models.RangeU] == 0 {
			c[models.RangeU] = 1
		}
		if c[models.RangeV] == 0 {
			c[models.RangeV] = 1
		}
		du := 1.0 / c[models.RangeU]
		dv := 1.0 / c[models.RangeV]
		for i := range obs {
			obs[i].U *= du
			obs[i].V *= dv
		}
	}
	return c
}

// Denormalize is the exact algebraic inverse of Normalize for the point
// (x, y) with normalized components (u, v). It extrapolates naturally to
// points never seen during fitting.
func Denormalize(x, y, u, v float64, mode Mode, c models.NormCoefficients) (float64, float64) {
	if mode&RangeNorm != 0 {
		u *= c[models.RangeU]
		v *= c[models.RangeV]
	}
	u += c[models.MeanU]
	v += c[models.MeanV]
	if mode&Trend != 0 {
		u += c[models.SlopeUX]*(x-c[models.MeanX]) + c[models.SlopeUY]*(y-c[models.MeanY])
		v += c[models.SlopeVX]*(x-c[models.MeanX]) + c[models.SlopeVY]*(y-c[models.MeanY])
	}
	return u, v
}
