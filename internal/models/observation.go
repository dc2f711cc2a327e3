package models

// Observation is a single velocity constraint: a location with observed
// horizontal components u and v, and optional per-component weights.
type Observation struct {
	// X and Y are the location coordinates. In geographic mode these are
	// longitude and latitude in degrees; in Cartesian mode they are user units.
	X, Y float64

	// U and V are the observed velocity components. After normalization the
	// fields hold detrended residuals until the solve completes.
	U, V float64

	// WeightU and WeightV are multiplicative weight factors for each
	// component. They default to 1 when weighting is disabled.
	WeightU, WeightV float64
}

// Point is a bare output location.
type Point struct {
	X, Y float64
}

// Indices into NormCoefficients. The layout mirrors the fitted-plane algebra:
// u(x,y) = u_res*range_u + mean_u + slope_ux*(x-mean_x) + slope_uy*(y-mean_y)
// and likewise for v.
const (
	MeanX = iota
	MeanY
	MeanU
	MeanV
	SlopeUX
	SlopeUY
	SlopeVX
	SlopeVY
	RangeU
	RangeV
	coeffReserved // reserved, keeps the record layout stable
	CoeffLen
)

// NormCoefficients captures everything needed to undo normalization exactly,
// for any point, including points never seen during fitting.
type NormCoefficients [CoeffLen]float64
