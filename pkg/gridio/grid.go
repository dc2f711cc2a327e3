package gridio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gpsgridder/internal/models"
	"gpsgridder/pkg/gridder"
)

// Grids use a small ASCII format: three header lines carrying the lattice
// geometry, then one line of values per row, southern row first. Masked or
// unset nodes are written as NaN.
//
//	# gpsgridder grid
//	# xmin xmax ymin ymax xinc yinc reg
//	<xmin> <xmax> <ymin> <ymax> <xinc> <yinc> <0|1>
//	v v v ...

// WriteGrid writes g in the ASCII grid format.
func WriteGrid(w io.Writer, g *models.Grid) error {
	bw := bufio.NewWriter(w)
	geom := g.Geometry
	reg := 0
	if geom.PixelReg {
		reg = 1
	}
	fmt.Fprintln(bw, "# gpsgridder grid")
	fmt.Fprintln(bw, "# xmin xmax ymin ymax xinc yinc reg")
	fmt.Fprintf(bw, "%.12g %.12g %.12g %.12g %.12g %.12g %d\n",
		geom.XMin, geom.XMax, geom.YMin, geom.YMax, geom.XInc, geom.YInc, reg)
	nx, ny := geom.NX(), geom.NY()
	for row := 0; row < ny; row++ {
		for col := 0; col < nx; col++ {
			if col > 0 {
				bw.WriteByte('\t')
			}
			fmt.Fprintf(bw, "%.12g", g.Data[row*nx+col])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadGrid parses a grid in the ASCII grid format. It is used for mask
// grids, whose values are conventionally 0 (evaluate) or NaN (skip).
func ReadGrid(r io.Reader) (*models.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	geomFields, err := nextDataLine(sc)
	if err != nil {
		return nil, fmt.Errorf("%w: grid header: %v", gridder.ErrInput, err)
	}
	if len(geomFields) != 7 {
		return nil, fmt.Errorf("%w: grid header: expected 7 fields, got %d", gridder.ErrInput, len(geomFields))
	}
	nums := make([]float64, 6)
	for i := 0; i < 6; i++ {
		if nums[i], err = strconv.ParseFloat(geomFields[i], 64); err != nil {
			return nil, fmt.Errorf("%w: grid header: bad number %q", gridder.ErrInput, geomFields[i])
		}
	}
	geom := models.GridGeometry{
		XMin: nums[0], XMax: nums[1], YMin: nums[2], YMax: nums[3],
		XInc: nums[4], YInc: nums[5],
		PixelReg: geomFields[6] == "1",
	}
	if geom.XInc <= 0 || geom.YInc <= 0 || geom.XMax <= geom.XMin || geom.YMax <= geom.YMin {
		return nil, fmt.Errorf("%w: grid header describes an empty region", gridder.ErrInput)
	}

	g := models.NewGrid(geom)
	nx, ny := geom.NX(), geom.NY()
	for row := 0; row < ny; row++ {
		fields, err := nextDataLine(sc)
		if err != nil {
			return nil, fmt.Errorf("%w: grid row %d: %v", gridder.ErrInput, row, err)
		}
		if len(fields) != nx {
			return nil, fmt.Errorf("%w: grid row %d: expected %d values, got %d",
				gridder.ErrInput, row, nx, len(fields))
		}
		for col, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: grid row %d: bad number %q", gridder.ErrInput, row, f)
			}
			g.Data[row*nx+col] = v
		}
	}
	return g, nil
}

func nextDataLine(sc *bufio.Scanner) ([]string, error) {
	for sc.Scan() {
		fields, skip := splitDataLine(sc.Text())
		if skip {
			continue
		}
		return fields, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("unexpected end of file")
}

// ExpandTemplate substitutes the component tag into a grid filename
// template, which must contain exactly one %s verb.
func ExpandTemplate(template, tag string) (string, error) {
	if strings.Count(template, "%s") != 1 {
		return "", fmt.Errorf("%w: grid output template %q must contain one %%s for the component tag",
			gridder.ErrConfig, template)
	}
	return fmt.Sprintf(template, tag), nil
}
