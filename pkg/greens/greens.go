// Package greens evaluates the Green's functions of a thin elastic sheet,
// the radial basis underlying the vector gridder. A unit body force at one
// point produces displacements (u, v) at another; the three components
// returned couple the force and displacement directions.
package greens

import "math"

// Params holds the two constants the kernel needs. They are fixed for the
// lifetime of one solve.
type Params struct {
	// EpsilonTerm is derived from Poisson's ratio nu as
	// 0.5*(2*(1-nu)/(1+nu) + 1).
	EpsilonTerm float64

	// FudgeRadiusSq is a small additive term in the squared-distance
	// denominator. It must be positive: it is what keeps log(dr2) and the
	// 1/dr2 terms finite at zero separation.
	FudgeRadiusSq float64
}

// NewParams derives the kernel constants from Poisson's ratio and the
// (already resolved) squared fudge radius.
func NewParams(poissonRatio, fudgeRadiusSq float64) Params {
	return Params{
		EpsilonTerm:   0.5 * (2.0*(1.0-poissonRatio)/(1.0+poissonRatio) + 1.0),
		FudgeRadiusSq: fudgeRadiusSq,
	}
}

// Evaluate returns the three Green's function values for the offset (dx, dy):
// Guu couples a u-directed force to u displacement, Gvv likewise for v, and
// Guv is the shared cross (shear coupling) term.
func (p Params) Evaluate(dx, dy float64) (guu, gvv, guv float64) {
	dx2, dy2 := dx*dx, dy*dy
	dr2 := dx2 + dy2 + p.FudgeRadiusSq
	c1 := (3.0 - p.EpsilonTerm) / 2.0
	c2 := 1.0 + p.EpsilonTerm

	logTerm := c1 * math.Log(dr2)
	inv := 1.0 / dr2
	guu = logTerm + c2*dx2*inv
	gvv = logTerm + c2*dy2*inv
	guv = c2 * dx * dy * inv
	return guu, gvv, guv
}
