package models

import "math"

// GridGeometry describes a regular output lattice: the region bounds, the
// node increments, and the registration convention. With gridline
// registration nodes sit on the region boundary; with pixel registration
// nodes sit at cell centers.
type GridGeometry struct {
	XMin, XMax float64
	YMin, YMax float64
	XInc, YInc float64
	PixelReg   bool
}

// NX returns the number of columns implied by the geometry.
func (g GridGeometry) NX() int {
	n := int(math.Round((g.XMax - g.XMin) / g.XInc))
	if !g.PixelReg {
		n++
	}
	return n
}

// NY returns the number of rows implied by the geometry.
func (g GridGeometry) NY() int {
	n := int(math.Round((g.YMax - g.YMin) / g.YInc))
	if !g.PixelReg {
		n++
	}
	return n
}

// XCoord returns the x coordinate of column col.
func (g GridGeometry) XCoord(col int) float64 {
	if g.PixelReg {
		return g.XMin + (float64(col)+0.5)*g.XInc
	}
	return g.XMin + float64(col)*g.XInc
}

// YCoord returns the y coordinate of row row. Row 0 is the southern edge.
func (g GridGeometry) YCoord(row int) float64 {
	if g.PixelReg {
		return g.YMin + (float64(row)+0.5)*g.YInc
	}
	return g.YMin + float64(row)*g.YInc
}

// Same reports whether two geometries describe the identical lattice.
func (g GridGeometry) Same(o GridGeometry) bool {
	const tol = 1e-10
	eq := func(a, b float64) bool { return math.Abs(a-b) <= tol }
	return eq(g.XMin, o.XMin) && eq(g.XMax, o.XMax) &&
		eq(g.YMin, o.YMin) && eq(g.YMax, o.YMax) &&
		eq(g.XInc, o.XInc) && eq(g.YInc, o.YInc) &&
		g.PixelReg == o.PixelReg
}

// Grid is a lattice with one value per node, stored row-major with row 0 at
// the southern edge. Masked or unset nodes hold NaN.
type Grid struct {
	Geometry GridGeometry
	Data     []float64
}

// NewGrid allocates a grid with every node set to NaN.
func NewGrid(geom GridGeometry) *Grid {
	data := make([]float64, geom.NX()*geom.NY())
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{Geometry: geom, Data: data}
}

// IndexOf returns the data index of node (row, col).
func (g *Grid) IndexOf(row, col int) int {
	return row*g.Geometry.NX() + col
}
