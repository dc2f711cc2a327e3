package gridder

import (
	"fmt"
	"math"

	"gpsgridder/internal/models"
)

// Separations below this are treated as co-located points.
const zeroSeparation = 1e-12

// Add ingests one observation, scanning all previously retained points for
// duplicates. An exact duplicate (same location, same values) is dropped
// silently and counted. A conflicting duplicate (same location, differing
// values) is retained and counted; resolution is deferred to the solver,
// where it is fatal unless a regularized solve was requested.
//
// The scan is an intentionally exact O(n) pass per record (O(n^2) overall):
// observation counts in this problem class are small and the scan doubles as
// the tracker for the smallest and largest pairwise separations.
func (g *Gridder) Add(o models.Observation) error {
	g.diag.Read++
	for _, f := range [...]float64{o.X, o.Y, o.U, o.V, o.WeightU, o.WeightV} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: record %d contains a non-finite value", ErrInput, g.diag.Read)
		}
	}
	if o.WeightU == 0 && o.WeightV == 0 {
		o.WeightU, o.WeightV = 1, 1
	}

	for i := range g.obs {
		r := g.metric.Distance(g.obs[i].X, g.obs[i].Y, o.X, o.Y)
		if r < zeroSeparation {
			if almostEqual(o.U, g.obs[i].U) && almostEqual(o.V, g.obs[i].V) {
				g.diag.Skipped++
				return nil
			}
			g.diag.Conflicts++
			continue
		}
		if r < g.diag.RMin {
			g.diag.RMin = r
		}
		if r > g.diag.RMax {
			g.diag.RMax = r
		}
	}
	g.obs = append(g.obs, o)
	g.diag.Unique++
	return nil
}

// AddAll ingests a batch of observations in order.
func (g *Gridder) AddAll(obs []models.Observation) error {
	for _, o := range obs {
		if err := g.Add(o); err != nil {
			return err
		}
	}
	return nil
}

func almostEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}
