// Package geometry provides the distance and offset conventions used by the
// gridder. Two modes exist: plain Cartesian, and a flat-Earth approximation
// for geographic (lon/lat) input where offsets are expressed in kilometers.
package geometry

import "math"

// kmPerDegree is the length of one degree of latitude on a sphere with the
// mean Earth radius of 6371.0087714 km.
const kmPerDegree = math.Pi * 6371.0087714 / 180.0

// Metric computes separations between locations. Offset and Distance must be
// consistent: the Euclidean norm of Offset(p0, p1) equals Distance(p0, p1).
// Duplicate detection relies on Distance while the kernel relies on Offset,
// so an inconsistent pair would desynchronize the two.
type Metric interface {
	// Distance returns the separation between (x0,y0) and (x1,y1), in user
	// units (Cartesian) or kilometers (flat Earth).
	Distance(x0, y0, x1, y1 float64) float64

	// Offset returns the increments (dx, dy) from (x0,y0) to (x1,y1), in the
	// same units as Distance.
	Offset(x0, y0, x1, y1 float64) (dx, dy float64)
}

// ForMode returns the metric for the selected coordinate mode.
func ForMode(geographic bool) Metric {
	if geographic {
		return FlatEarth{}
	}
	return Cartesian{}
}

// Cartesian treats coordinates as planar user units.
type Cartesian struct{}

func (Cartesian) Offset(x0, y0, x1, y1 float64) (float64, float64) {
	return x1 - x0, y1 - y0
}

func (Cartesian) Distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}

// FlatEarth approximates geographic separations in km: the longitude
// difference is wrapped to the short way around and scaled by the cosine of
// the mean latitude.
type FlatEarth struct{}

func (FlatEarth) Offset(x0, y0, x1, y1 float64) (float64, float64) {
	dlon := x1 - x0
	if dlon > 180 {
		dlon -= 360
	} else if dlon < -180 {
		dlon += 360
	}
	dx := dlon * math.Cos(0.5*(y0+y1)*math.Pi/180) * kmPerDegree
	dy := (y1 - y0) * kmPerDegree
	return dx, dy
}

func (f FlatEarth) Distance(x0, y0, x1, y1 float64) float64 {
	dx, dy := f.Offset(x0, y0, x1, y1)
	return math.Hypot(dx, dy)
}
