// Package gridio reads and writes the tabular and gridded data formats of
// the gridder: observation tables, output-location lists, ASCII grids used
// for masks and results, all whitespace-separated with # comments.
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

// WeightMode tells the reader how to interpret the two optional trailing
// columns of an observation table.
type WeightMode int

const (
	// WeightNone expects 4 columns: x y u v.
	WeightNone WeightMode = iota

	// WeightSigma expects 6 columns where the trailing pair are standard
	// deviations; weights are formed as their reciprocals.
	WeightSigma

	// WeightDirect expects 6 columns where the trailing pair are weight
	// factors used as given.
	WeightDirect
)

// ReadObservations parses x y u v [sigma_u sigma_v] records. Blank lines and
// lines starting with # are skipped. A wrong column count or an unparseable
// field is an input error naming the offending line.
func ReadObservations(r io.Reader, mode WeightMode) ([]models.Observation, error) {
	want := 4
	if mode != WeightNone {
		want = 6
	}
	var obs []models.Observation
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields, skip := splitDataLine(sc.Text())
		if skip {
			continue
		}
		vals, err := parseFields(fields, want, line)
		if err != nil {
			return nil, err
		}
		o := models.Observation{X: vals[0], Y: vals[1], U: vals[2], V: vals[3], WeightU: 1, WeightV: 1}
		switch mode {
		case WeightSigma:
			if vals[4] == 0 || vals[5] == 0 {
				return nil, fmt.Errorf("%w: line %d: sigma must be nonzero", gridder.ErrInput, line)
			}
			o.WeightU = 1 / vals[4]
			o.WeightV = 1 / vals[5]
		case WeightDirect:
			o.WeightU = vals[4]
			o.WeightV = vals[5]
		}
		obs = append(obs, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading observations: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no observation records found", gridder.ErrInput)
	}
	return obs, nil
}

// ReadPoints parses x y records naming output locations.
func ReadPoints(r io.Reader) ([]models.Point, error) {
	var pts []models.Point
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields, skip := splitDataLine(sc.Text())
		if skip {
			continue
		}
		vals, err := parseFields(fields, 2, line)
		if err != nil {
			return nil, err
		}
		pts = append(pts, models.Point{X: vals[0], Y: vals[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading points: %w", err)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no output locations found", gridder.ErrInput)
	}
	return pts, nil
}

// WriteTable writes x y u v records for an evaluated point list.
func WriteTable(w io.Writer, pts []models.Point, us, vs []float64) error {
	bw := bufio.NewWriter(w)
	for i, p := range pts {
		if _, err := fmt.Fprintf(bw, "%.12g\t%.12g\t%.12g\t%.12g\n", p.X, p.Y, us[i], vs[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func splitDataLine(s string) (fields []string, skip bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return nil, true
	}
	return strings.Fields(s), false
}

func parseFields(fields []string, want, line int) ([]float64, error) {
	if len(fields) != want {
		return nil, fmt.Errorf("%w: line %d: expected %d columns, got %d",
			gridder.ErrInput, line, want, len(fields))
	}
	vals := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad number %q", gridder.ErrInput, line, f)
		}
		vals[i] = v
	}
	return vals, nil
}
