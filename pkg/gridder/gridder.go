// Package gridder fits a continuous 2-D vector field u(x,y), v(x,y) to
// irregularly spaced vector observations using Green's functions of a thin
// elastic sheet, and evaluates the fitted field at arbitrary locations.
//
// The pipeline is strictly sequential: ingestion with duplicate detection,
// normalization, dense system assembly, and the solve each feed the next
// stage. Only the final prediction phase runs in parallel.
package gridder

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"gpsgridder/internal/models"
	"gpsgridder/pkg/geometry"
	"gpsgridder/pkg/greens"
)

// FudgeMode selects how the kernel's fudge radius is obtained.
type FudgeMode int

const (
	// FudgeRelative scales the smallest observed pairwise separation by the
	// fudge value. This is the default.
	FudgeRelative FudgeMode = iota

	// FudgeAbsolute uses the fudge value directly.
	FudgeAbsolute
)

// CutoffMode selects how the truncated-SVD solver picks which singular
// values to retain.
type CutoffMode int

const (
	// CutoffRatio discards singular values whose ratio to the largest falls
	// below the cutoff, given in percent [0,100].
	CutoffRatio CutoffMode = iota

	// CutoffCount keeps only the largest <cutoff> singular values.
	CutoffCount

	// CutoffVariance keeps the smallest set of leading singular values that
	// explains <cutoff> percent of the data variance.
	CutoffVariance
)

// Params configures one solve.
type Params struct {
	// Geographic selects flat-Earth (lon/lat, km) separations instead of
	// Cartesian user units.
	Geographic bool

	// PoissonRatio is the elastic parameter nu of the sheet.
	PoissonRatio float64

	// FudgeMode and FudgeValue resolve the squared fudge radius that keeps
	// the kernel finite at zero separation.
	FudgeMode  FudgeMode
	FudgeValue float64

	// Detrend removes a best-fit plane from each component before fitting.
	Detrend bool

	// NormalizeRange rescales detrended residuals to a bounded range.
	NormalizeRange bool

	// UseSVD selects the regularized truncated-SVD solver instead of exact
	// Gauss-Jordan elimination. A negative Cutoff is a dry-run sentinel: the
	// singular-value spectrum is computed and no solve is performed.
	UseSVD     bool
	CutoffMode CutoffMode
	Cutoff     float64

	// Workers bounds the parallelism of the prediction phase. Zero means one
	// worker per CPU.
	Workers int

	// MaxMatrixBytes caps the dense system allocation. Zero means 8 GiB.
	MaxMatrixBytes int64

	// Verbose enables diagnostic reporting on stdout.
	Verbose bool
}

// DefaultParams returns the parameter defaults of the original tool:
// nu = 0.25, fudge = 0.01 * r_min, detrend and range-normalize enabled,
// exact solve.
func DefaultParams() Params {
	return Params{
		PoissonRatio:   0.25,
		FudgeMode:      FudgeRelative,
		FudgeValue:     0.01,
		Detrend:        true,
		NormalizeRange: true,
	}
}

func (p *Params) validate() error {
	if p.FudgeValue < 0 {
		return fmt.Errorf("%w: fudge value must not be negative, got %g", ErrConfig, p.FudgeValue)
	}
	if p.UseSVD && p.Cutoff >= 0 {
		switch p.CutoffMode {
		case CutoffRatio, CutoffVariance:
			if p.Cutoff > 100 {
				return fmt.Errorf("%w: cutoff cannot exceed 100%%, got %g", ErrConfig, p.Cutoff)
			}
		case CutoffCount:
			if p.Cutoff != math.Trunc(p.Cutoff) {
				return fmt.Errorf("%w: eigenvalue count must be an integer, got %g", ErrConfig, p.Cutoff)
			}
		}
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}
	if p.MaxMatrixBytes <= 0 {
		p.MaxMatrixBytes = 8 << 30
	}
	return nil
}

// Diagnostics holds the counters accumulated across one solve.
type Diagnostics struct {
	// Read is the number of records offered, Unique the number retained.
	Read   int
	Unique int

	// Skipped counts exact duplicates dropped at ingestion; Conflicts counts
	// co-located records with differing observations, which are retained but
	// make the exact solve singular.
	Skipped   int
	Conflicts int

	// RMin and RMax are the smallest and largest strictly positive pairwise
	// separations among retained observations.
	RMin, RMax float64

	// Retained and VariancePct describe the truncated-SVD solution: how many
	// singular values were kept and the percentage of data variance they
	// explain. Unset for the exact solver.
	Retained    int
	VariancePct float64
}

// Gridder runs the fit and evaluates the resulting field. Create one with
// New, feed it observations with Add, call Fit once, then predict.
type Gridder struct {
	params Params
	metric geometry.Metric
	mode   Mode

	obs  []models.Observation
	diag Diagnostics

	kernel   greens.Params
	norm     models.NormCoefficients
	alphaX   []float64
	alphaY   []float64
	spectrum []float64
	fitted   bool
}

// New creates a Gridder for the given parameters.
func New(params Params) *Gridder {
	var mode Mode
	if params.Detrend {
		mode |= Trend
	}
	if params.NormalizeRange {
		mode |= RangeNorm
	}
	return &Gridder{
		params: params,
		metric: geometry.ForMode(params.Geographic),
		mode:   mode,
		diag:   Diagnostics{RMin: math.Inf(1), RMax: math.Inf(-1)},
	}
}

// Diagnostics returns the counters accumulated so far.
func (g *Gridder) Diagnostics() Diagnostics { return g.diag }

// Spectrum returns the singular values of the system in descending order.
// It is non-nil only after a Fit that used the SVD solver.
func (g *Gridder) Spectrum() []float64 { return g.spectrum }

// Fitted reports whether coefficients are available for prediction. It stays
// false after a dry-run Fit (negative cutoff).
func (g *Gridder) Fitted() bool { return g.fitted }

// Fit runs normalization, system assembly, and the solve. The observation
// set is frozen afterwards; u and v fields hold normalized residuals.
func (g *Gridder) Fit() error {
	if err := g.params.validate(); err != nil {
		return err
	}
	n := len(g.obs)
	if n == 0 {
		return fmt.Errorf("%w: no observations retained, cannot fit", ErrInput)
	}
	if g.diag.Conflicts > 0 && (!g.params.UseSVD || g.params.Cutoff == 0) {
		return fmt.Errorf("%w: %d co-located observations differ in value; "+
			"merge or average the duplicates upstream, or request a regularized "+
			"solve with a nonzero cutoff", ErrSingular, g.diag.Conflicts)
	}
	if g.params.UseSVD && g.params.CutoffMode == CutoffCount && int(g.params.Cutoff) > 2*n {
		return fmt.Errorf("%w: eigenvalue count %d exceeds system dimension %d",
			ErrConfig, int(g.params.Cutoff), 2*n)
	}

	fudgeSq := g.params.FudgeValue
	if g.params.FudgeMode == FudgeRelative {
		if math.IsInf(g.diag.RMin, 1) {
			// Single observation: no pair separation to scale by.
			fudgeSq = g.params.FudgeValue
		} else {
			fudgeSq = g.params.FudgeValue * g.diag.RMin
		}
	}
	if fudgeSq <= 0 {
		return fmt.Errorf("%w: resolved fudge radius must be positive, got %g", ErrConfig, fudgeSq)
	}
	g.kernel = greens.NewParams(g.params.PoissonRatio, fudgeSq)

	g.norm = Normalize(g.obs, g.mode)
	if g.params.Verbose {
		fmt.Printf("Normalization: uoff=%g uxslope=%g uyslope=%g urange=%g\n",
			g.norm[models.MeanU], g.norm[models.SlopeUX], g.norm[models.SlopeUY], g.norm[models.RangeU])
		fmt.Printf("Normalization: voff=%g vxslope=%g vyslope=%g vrange=%g\n",
			g.norm[models.MeanV], g.norm[models.SlopeVX], g.norm[models.SlopeVY], g.norm[models.RangeV])
	}

	a, b, err := g.assemble()
	if err != nil {
		return err
	}

	if g.params.UseSVD {
		if g.params.Cutoff < 0 {
			// Dry run: expose the spectrum so conditioning can be inspected
			// before committing to a cutoff. No solve.
			var svd mat.SVD
			if !svd.Factorize(a, mat.SVDNone) {
				return fmt.Errorf("%w: SVD failed to converge", ErrSingular)
			}
			g.spectrum = svd.Values(nil)
			return nil
		}
		rep, spectrum, err := solveSVD(a, b, g.params.CutoffMode, g.params.Cutoff)
		if err != nil {
			return err
		}
		g.spectrum = spectrum
		g.diag.Retained = rep.retained
		g.diag.VariancePct = rep.variancePct
		if g.params.Verbose {
			fmt.Printf("%d of %d singular values used, explaining %.2f%% of data variance\n",
				rep.retained, 2*n, rep.variancePct)
		}
	} else {
		if err := gaussJordan(a, b); err != nil {
			return fmt.Errorf("%w; you probably have nearly duplicate observations, "+
				"deduplicate them upstream", err)
		}
	}

	g.alphaX = b[:n]
	g.alphaY = b[n:]
	g.fitted = true
	return nil
}
