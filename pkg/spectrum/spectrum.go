// Package spectrum exports the singular-value spectrum of a solve, as a
// two-column table or as a chart, so conditioning can be inspected before
// committing to a truncation cutoff.
package spectrum

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Write emits (index, value) records for a spectrum already sorted in
// descending order, indices starting at 1. With asRatio set, each value is
// divided by the largest.
func Write(w io.Writer, values []float64, asRatio bool) error {
	if len(values) == 0 {
		return fmt.Errorf("empty spectrum")
	}
	scale := 1.0
	if asRatio && values[0] != 0 {
		scale = 1.0 / values[0]
	}
	bw := bufio.NewWriter(w)
	for i, v := range values {
		if _, err := fmt.Fprintf(bw, "%d\t%.12g\n", i+1, v*scale); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SavePlot renders the spectrum as a scatter chart and writes it to path;
// the image format follows the file extension (png, pdf, svg, ...).
func SavePlot(path string, values []float64) error {
	p := plot.New()
	p.Title.Text = "Singular value spectrum"
	p.X.Label.Text = "index"
	p.Y.Label.Text = "singular value"

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building spectrum plot: %w", err)
	}
	sc.Radius = vg.Points(1.5)
	p.Add(sc)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving spectrum plot: %w", err)
	}
	return nil
}
