// gpsgridder interpolates sparse 2-D vector observations, such as GPS
// surface velocities, onto a grid or onto arbitrary points, using Green's
// functions for a thin elastic sheet.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gpsgridder/internal/models"
	"gpsgridder/pkg/config"
	"gpsgridder/pkg/gridder"
	"gpsgridder/pkg/gridio"
	"gpsgridder/pkg/spectrum"
)

var flags struct {
	configFile string

	output    string
	region    string
	increment string
	pixelReg  bool
	points    string
	mask      string

	svd        bool
	cutoff     float64
	cutoffMode string
	eigenFile  string
	eigenPlot  string

	fudgeMode  string
	fudgeValue float64
	nu         float64
	leaveTrend bool
	weighting  string
	geographic bool

	workers int
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:     "gpsgridder [table]",
	Short:   "Interpolate 2-D vector data using Green's functions for a thin elastic sheet",
	Version: "1.0.0",
	Long: `gpsgridder fits u(x,y) and v(x,y) to vector observations read from a table
(or stdin) and evaluates the fit at output locations chosen one of three ways:

  1. A rectangular lattice: --region with --increment.
  2. A mask grid (--mask): only nodes that are not NaN are evaluated.
  3. An explicit list of locations (--points).

Input records are "x y u v" with two extra columns when --weights is sigma
or weight. Grid output needs a filename template containing %s, which is
replaced with the component tag u or v.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return run(cmd, args)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "YAML config file; flags override its values")

	f.StringVarP(&flags.output, "output", "G", "", "output grid template (with %s) or table file")
	f.StringVarP(&flags.region, "region", "R", "", "output region as xmin/xmax/ymin/ymax")
	f.StringVarP(&flags.increment, "increment", "I", "", "node increments as xinc[/yinc]")
	f.BoolVar(&flags.pixelReg, "pixel", false, "use pixel (cell-center) registration")
	f.StringVarP(&flags.points, "points", "N", "", "file with explicit output locations")
	f.StringVarP(&flags.mask, "mask", "T", "", "mask grid; NaN nodes are skipped, geometry sets the region")

	f.BoolVarP(&flags.svd, "svd", "C", false, "solve by truncated SVD instead of Gauss-Jordan")
	f.Float64Var(&flags.cutoff, "cutoff", 0, "SVD truncation cutoff; negative exports the spectrum and stops")
	f.StringVar(&flags.cutoffMode, "cutoff-mode", "", "cutoff interpretation: ratio, count, or variance")
	f.StringVar(&flags.eigenFile, "eigen-file", "", "write the sorted singular values to this file")
	f.StringVar(&flags.eigenPlot, "eigen-plot", "", "write a chart of the spectrum to this file")

	f.StringVar(&flags.fudgeMode, "fudge-mode", "", "fudge radius mode: relative (to r_min) or absolute")
	f.Float64VarP(&flags.fudgeValue, "fudge", "F", 0, "fudge radius value or r_min factor")
	f.Float64VarP(&flags.nu, "nu", "S", 0, "effective Poisson's ratio")
	f.BoolVarP(&flags.leaveTrend, "leave-trend", "L", false, "do not remove the least-squares plane before fitting")
	f.StringVarP(&flags.weighting, "weights", "W", "", "extra input columns: none, sigma, or weight")
	f.BoolVar(&flags.geographic, "geographic", false, "treat x,y as lon,lat with flat-Earth distances in km")

	f.IntVar(&flags.workers, "workers", 0, "number of workers for the evaluation phase (0 = all CPUs)")
	f.BoolVarP(&flags.verbose, "verbose", "V", false, "report diagnostics while running")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("gpsgridder: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := mergedConfig(cmd)
	if err != nil {
		return err
	}
	params, weightMode, err := buildParams(cfg)
	if err != nil {
		return err
	}

	// Cheap configuration checks first, before any data is read.
	nLocationModes := 0
	for _, set := range []bool{flags.region != "" || flags.increment != "", flags.mask != "", flags.points != ""} {
		if set {
			nLocationModes++
		}
	}
	if nLocationModes != 1 {
		return fmt.Errorf("%w: specify exactly one of --region/--increment, --mask, or --points",
			gridder.ErrConfig)
	}
	if params.UseSVD && params.Cutoff < 0 && cfg.Solver.EigenFile == "" {
		return fmt.Errorf("%w: a negative cutoff only exports the spectrum; it requires --eigen-file",
			gridder.ErrConfig)
	}
	var geom models.GridGeometry
	var mask *models.Grid
	gridMode := flags.points == ""
	if gridMode {
		if flags.mask != "" {
			if mask, err = readMask(flags.mask); err != nil {
				return err
			}
			geom = mask.Geometry
		} else {
			if geom, err = parseLattice(flags.region, flags.increment, flags.pixelReg); err != nil {
				return err
			}
		}
		if flags.output == "" {
			return fmt.Errorf("%w: grid output requires --output with a %%s template", gridder.ErrConfig)
		}
		// Fail on a bad template before spending time on the solve.
		if _, err := gridio.ExpandTemplate(flags.output, "u"); err != nil {
			return err
		}
	}

	obs, err := readObservations(args, weightMode)
	if err != nil {
		return err
	}
	if params.Geographic && gridMode {
		wrapLongitudes(obs, geom.XMin)
	}

	g := gridder.New(params)
	if err := g.AddAll(obs); err != nil {
		return err
	}
	diag := g.Diagnostics()
	if flags.verbose {
		fmt.Printf("Found %d unique observations (%d duplicates skipped, %d conflicting)\n",
			diag.Unique, diag.Skipped, diag.Conflicts)
		fmt.Printf("Closest observation separation %.12g, largest %.12g\n", diag.RMin, diag.RMax)
	}

	if err := g.Fit(); err != nil {
		return err
	}

	if s := g.Spectrum(); s != nil {
		if err := exportSpectrum(cfg, s); err != nil {
			return err
		}
	}
	if !g.Fitted() {
		// Dry run: the spectrum is on disk, nothing to evaluate.
		fmt.Printf("Spectrum of %d singular values saved to %s; no solution computed\n",
			len(g.Spectrum()), cfg.Solver.EigenFile)
		return nil
	}

	if gridMode {
		err = writeGrids(g, geom, mask)
	} else {
		err = writePoints(g, flags.points, flags.output)
	}
	if err != nil {
		return err
	}

	diag = g.Diagnostics()
	if params.UseSVD {
		fmt.Printf("Done: %d observations, %d of %d singular values retained (%.2f%% of variance)\n",
			diag.Unique, diag.Retained, 2*diag.Unique, diag.VariancePct)
	} else {
		fmt.Printf("Done: %d observations, exact solve\n", diag.Unique)
	}
	return nil
}

// mergedConfig loads the config file (or defaults) and overlays every flag
// the user set explicitly.
func mergedConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configFile)
	if err != nil {
		return nil, err
	}
	set := cmd.Flags().Changed
	if set("nu") {
		cfg.Model.PoissonRatio = flags.nu
	}
	if set("fudge-mode") {
		cfg.Model.FudgeMode = flags.fudgeMode
	}
	if set("fudge") {
		cfg.Model.FudgeValue = flags.fudgeValue
	}
	if set("leave-trend") {
		cfg.Model.Detrend = !flags.leaveTrend
	}
	if set("svd") {
		cfg.Solver.UseSVD = flags.svd
	}
	if set("cutoff") {
		cfg.Solver.Cutoff = flags.cutoff
		cfg.Solver.UseSVD = true
	}
	if set("cutoff-mode") {
		cfg.Solver.CutoffMode = flags.cutoffMode
	}
	if set("eigen-file") {
		cfg.Solver.EigenFile = flags.eigenFile
	}
	if set("eigen-plot") {
		cfg.Solver.EigenPlot = flags.eigenPlot
	}
	if set("geographic") {
		cfg.Input.Geographic = flags.geographic
	}
	if set("weights") {
		cfg.Input.Weighting = flags.weighting
	}
	if set("workers") {
		cfg.Processing.Workers = flags.workers
	}
	if set("verbose") {
		cfg.Output.Verbose = flags.verbose
	}
	flags.verbose = cfg.Output.Verbose
	return cfg, nil
}

func buildParams(cfg *config.Config) (gridder.Params, gridio.WeightMode, error) {
	params := gridder.DefaultParams()
	params.Geographic = cfg.Input.Geographic
	params.PoissonRatio = cfg.Model.PoissonRatio
	params.FudgeValue = cfg.Model.FudgeValue
	params.Detrend = cfg.Model.Detrend
	params.NormalizeRange = cfg.Model.NormalizeRange
	params.UseSVD = cfg.Solver.UseSVD
	params.Cutoff = cfg.Solver.Cutoff
	params.Workers = cfg.Processing.Workers
	params.MaxMatrixBytes = int64(cfg.Processing.MaxMatrixMB) << 20
	params.Verbose = cfg.Output.Verbose

	switch cfg.Model.FudgeMode {
	case "relative", "":
		params.FudgeMode = gridder.FudgeRelative
	case "absolute":
		params.FudgeMode = gridder.FudgeAbsolute
	default:
		return params, 0, fmt.Errorf("%w: unknown fudge mode %q", gridder.ErrConfig, cfg.Model.FudgeMode)
	}
	switch cfg.Solver.CutoffMode {
	case "ratio", "":
		params.CutoffMode = gridder.CutoffRatio
	case "count":
		params.CutoffMode = gridder.CutoffCount
	case "variance":
		params.CutoffMode = gridder.CutoffVariance
	default:
		return params, 0, fmt.Errorf("%w: unknown cutoff mode %q", gridder.ErrConfig, cfg.Solver.CutoffMode)
	}
	var weightMode gridio.WeightMode
	switch cfg.Input.Weighting {
	case "none", "":
		weightMode = gridio.WeightNone
	case "sigma":
		weightMode = gridio.WeightSigma
	case "weight":
		weightMode = gridio.WeightDirect
	default:
		return params, 0, fmt.Errorf("%w: unknown weighting %q", gridder.ErrConfig, cfg.Input.Weighting)
	}
	return params, weightMode, nil
}

// parseLattice builds the output geometry from --region and --increment.
func parseLattice(region, increment string, pixelReg bool) (models.GridGeometry, error) {
	var geom models.GridGeometry
	if region == "" || increment == "" {
		return geom, fmt.Errorf("%w: gridding requires both --region and --increment", gridder.ErrConfig)
	}
	r := strings.Split(region, "/")
	if len(r) != 4 {
		return geom, fmt.Errorf("%w: region must be xmin/xmax/ymin/ymax, got %q", gridder.ErrConfig, region)
	}
	vals := make([]float64, 4)
	for i, s := range r {
		if _, err := fmt.Sscanf(s, "%g", &vals[i]); err != nil {
			return geom, fmt.Errorf("%w: bad region value %q", gridder.ErrConfig, s)
		}
	}
	geom.XMin, geom.XMax, geom.YMin, geom.YMax = vals[0], vals[1], vals[2], vals[3]

	inc := strings.Split(increment, "/")
	if len(inc) > 2 {
		return geom, fmt.Errorf("%w: increment must be xinc[/yinc], got %q", gridder.ErrConfig, increment)
	}
	if _, err := fmt.Sscanf(inc[0], "%g", &geom.XInc); err != nil {
		return geom, fmt.Errorf("%w: bad increment %q", gridder.ErrConfig, inc[0])
	}
	geom.YInc = geom.XInc
	if len(inc) == 2 {
		if _, err := fmt.Sscanf(inc[1], "%g", &geom.YInc); err != nil {
			return geom, fmt.Errorf("%w: bad increment %q", gridder.ErrConfig, inc[1])
		}
	}
	geom.PixelReg = pixelReg
	if geom.XInc <= 0 || geom.YInc <= 0 || geom.XMax <= geom.XMin || geom.YMax <= geom.YMin {
		return geom, fmt.Errorf("%w: region %q with increment %q describes an empty lattice",
			gridder.ErrConfig, region, increment)
	}
	return geom, nil
}

// wrapLongitudes shifts geographic x coordinates by whole turns so they fall
// in [west, west+360), aligning input longitudes with the output region.
func wrapLongitudes(obs []models.Observation, west float64) {
	for i := range obs {
		for obs[i].X < west {
			obs[i].X += 360
		}
		for obs[i].X >= west+360 {
			obs[i].X -= 360
		}
	}
}

func readMask(path string) (*models.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mask grid: %w", err)
	}
	defer f.Close()
	return gridio.ReadGrid(f)
}

func readObservations(args []string, mode gridio.WeightMode) ([]models.Observation, error) {
	if len(args) == 0 {
		return gridio.ReadObservations(os.Stdin, mode)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("opening observation table: %w", err)
	}
	defer f.Close()
	return gridio.ReadObservations(f, mode)
}

func exportSpectrum(cfg *config.Config, s []float64) error {
	if cfg.Solver.EigenFile != "" {
		f, err := os.Create(cfg.Solver.EigenFile)
		if err != nil {
			return fmt.Errorf("creating eigenvalue file: %w", err)
		}
		// Variance mode studies absolute magnitudes; the other modes study
		// ratios to the largest.
		asRatio := cfg.Solver.CutoffMode != "variance"
		if err := spectrum.Write(f, s, asRatio); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if cfg.Solver.EigenPlot != "" {
		if err := spectrum.SavePlot(cfg.Solver.EigenPlot, s); err != nil {
			return err
		}
	}
	return nil
}

func writeGrids(g *gridder.Gridder, geom models.GridGeometry, mask *models.Grid) error {
	ug, vg, err := g.PredictGrid(geom, mask)
	if err != nil {
		return err
	}
	for _, out := range []struct {
		tag  string
		grid *models.Grid
	}{{"u", ug}, {"v", vg}} {
		path, err := gridio.ExpandTemplate(flags.output, out.tag)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output grid: %w", err)
		}
		if err := gridio.WriteGrid(f, out.grid); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if flags.verbose {
			fmt.Printf("Wrote %s component to %s\n", out.tag, path)
		}
	}
	return nil
}

func writePoints(g *gridder.Gridder, pointsFile, output string) error {
	f, err := os.Open(pointsFile)
	if err != nil {
		return fmt.Errorf("opening points file: %w", err)
	}
	pts, err := gridio.ReadPoints(f)
	f.Close()
	if err != nil {
		return err
	}
	us, vs, err := g.PredictPoints(pts)
	if err != nil {
		return err
	}
	w := os.Stdout
	if output != "" {
		if w, err = os.Create(output); err != nil {
			return fmt.Errorf("creating output table: %w", err)
		}
		defer w.Close()
	}
	return gridio.WriteTable(w, pts, us, vs)
}
