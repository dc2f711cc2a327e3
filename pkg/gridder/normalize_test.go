package gridder

import (
	"math"
	"testing"

	"gpsgridder/internal/models"
)

// TestNormalizeRoundTrip verifies that Denormalize is the exact inverse of
// Normalize at every observation, for each combination of normalization
// steps.
func TestNormalizeRoundTrip(t *testing.T) {
	modes := []Mode{0, Trend, RangeNorm, Trend | RangeNorm}

	for _, mode := range modes {
		obs := scatteredObservations()
		orig := make([]models.Observation, len(obs))
		copy(orig, obs)

		c := Normalize(obs, mode)
		for i := range obs {
			u, v := Denormalize(obs[i].X, obs[i].Y, obs[i].U, obs[i].V, mode, c)
			if math.Abs(u-orig[i].U) > 1e-9 || math.Abs(v-orig[i].V) > 1e-9 {
				t.Errorf("mode=%b obs %d: expected (%g,%g) back, got (%g,%g)",
					mode, i, orig[i].U, orig[i].V, u, v)
			}
		}
	}
}

// TestNormalizeRemovesPlane verifies that a perfectly planar field leaves
// zero residuals once the trend is removed, and that the recovered slopes
// match the plane.
func TestNormalizeRemovesPlane(t *testing.T) {
	// u = 2 + 3x - y, v = -1 + 0.5x + 2y on a non-degenerate scatter.
	locs := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.3, 0.7}, {2, 1.5}}
	obs := make([]models.Observation, len(locs))
	for i, l := range locs {
		obs[i] = models.Observation{
			X: l[0], Y: l[1],
			U: 2 + 3*l[0] - l[1],
			V: -1 + 0.5*l[0] + 2*l[1],
			WeightU: 1, WeightV: 1,
		}
	}

	c := Normalize(obs, Trend)
	if math.Abs(c[models.SlopeUX]-3) > 1e-9 || math.Abs(c[models.SlopeUY]+1) > 1e-9 {
		t.Errorf("Expected u slopes (3,-1), got (%g,%g)", c[models.SlopeUX], c[models.SlopeUY])
	}
	if math.Abs(c[models.SlopeVX]-0.5) > 1e-9 || math.Abs(c[models.SlopeVY]-2) > 1e-9 {
		t.Errorf("Expected v slopes (0.5,2), got (%g,%g)", c[models.SlopeVX], c[models.SlopeVY])
	}
	for i := range obs {
		if math.Abs(obs[i].U) > 1e-9 || math.Abs(obs[i].V) > 1e-9 {
			t.Errorf("obs %d: expected zero residuals for a planar field, got (%g,%g)",
				i, obs[i].U, obs[i].V)
		}
	}
}

// TestNormalizeDegenerateScatter verifies that collinear locations, whose
// plane fit has a zero determinant, fall back to mean removal only.
func TestNormalizeDegenerateScatter(t *testing.T) {
	obs := []models.Observation{
		{X: 0, Y: 0, U: 1, V: 4, WeightU: 1, WeightV: 1},
		{X: 1, Y: 1, U: 2, V: 5, WeightU: 1, WeightV: 1},
		{X: 2, Y: 2, U: 3, V: 6, WeightU: 1, WeightV: 1},
	}

	c := Normalize(obs, Trend)
	for _, idx := range []int{models.SlopeUX, models.SlopeUY, models.SlopeVX, models.SlopeVY} {
		if c[idx] != 0 {
			t.Errorf("Expected zero slope at coefficient %d for collinear points, got %g", idx, c[idx])
		}
	}
	// Mean removal still happened.
	if math.Abs(c[models.MeanU]-2) > 1e-12 || math.Abs(c[models.MeanV]-5) > 1e-12 {
		t.Errorf("Expected means (2,5), got (%g,%g)", c[models.MeanU], c[models.MeanV])
	}
	if math.Abs(obs[0].U+1) > 1e-12 || math.Abs(obs[2].U-1) > 1e-12 {
		t.Errorf("Expected mean-removed residuals (-1,0,1), got (%g,%g,%g)",
			obs[0].U, obs[1].U, obs[2].U)
	}
}

// TestNormalizeRangeScaling verifies that range normalization bounds the
// residuals by 1 in absolute value and that a zero range records 1 so the
// inverse stays exact.
func TestNormalizeRangeScaling(t *testing.T) {
	obs := scatteredObservations()
	c := Normalize(obs, Trend|RangeNorm)

	for i := range obs {
		if math.Abs(obs[i].U) > 1+1e-12 || math.Abs(obs[i].V) > 1+1e-12 {
			t.Errorf("obs %d: residual (%g,%g) exceeds the normalized range", i, obs[i].U, obs[i].V)
		}
	}
	if c[models.RangeU] <= 0 || c[models.RangeV] <= 0 {
		t.Errorf("Expected positive ranges, got (%g,%g)", c[models.RangeU], c[models.RangeV])
	}

	// A planar field has zero residuals after detrending; the recorded range
	// must be 1, not 0.
	planar := []models.Observation{
		{X: 0, Y: 0, U: 0, V: 0, WeightU: 1, WeightV: 1},
		{X: 1, Y: 0, U: 1, V: 0, WeightU: 1, WeightV: 1},
		{X: 0, Y: 1, U: 0, V: 1, WeightU: 1, WeightV: 1},
		{X: 1, Y: 1, U: 1, V: 1, WeightU: 1, WeightV: 1},
	}
	c = Normalize(planar, Trend|RangeNorm)
	if c[models.RangeU] != 1 || c[models.RangeV] != 1 {
		t.Errorf("Expected unit ranges for zero residuals, got (%g,%g)", c[models.RangeU], c[models.RangeV])
	}
}

// scatteredObservations returns a small non-degenerate test set with
// nonlinear structure in both components.
func scatteredObservations() []models.Observation {
	locs := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}, {1.7, 0.2}, {0.2, 1.9}}
	obs := make([]models.Observation, len(locs))
	for i, l := range locs {
		x, y := l[0], l[1]
		obs[i] = models.Observation{
			X: x, Y: y,
			U: 1.5 + 0.4*x - 0.3*y + 0.8*math.Sin(x*y),
			V: -2.0 + 0.1*x + 0.9*y + 0.5*math.Cos(x-y),
			WeightU: 1, WeightV: 1,
		}
	}
	return obs
}
