package geometry

import (
	"math"
	"testing"
)

// TestForMode verifies the metric selection.
func TestForMode(t *testing.T) {
	if _, ok := ForMode(false).(Cartesian); !ok {
		t.Error("Expected Cartesian metric for planar mode")
	}
	if _, ok := ForMode(true).(FlatEarth); !ok {
		t.Error("Expected FlatEarth metric for geographic mode")
	}
}

// TestCartesian verifies planar offsets and distances.
func TestCartesian(t *testing.T) {
	m := Cartesian{}

	dx, dy := m.Offset(1, 2, 4, 6)
	if dx != 3 || dy != 4 {
		t.Errorf("Expected offset (3,4), got (%g,%g)", dx, dy)
	}
	if d := m.Distance(1, 2, 4, 6); math.Abs(d-5) > 1e-12 {
		t.Errorf("Expected distance 5, got %g", d)
	}

	// Offset is directional: reversing the endpoints flips the sign.
	rx, ry := m.Offset(4, 6, 1, 2)
	if rx != -dx || ry != -dy {
		t.Errorf("Expected reversed offset (-3,-4), got (%g,%g)", rx, ry)
	}
}

// TestFlatEarthLatitude verifies that one degree of latitude maps to the
// standard km-per-degree arc length regardless of longitude.
func TestFlatEarthLatitude(t *testing.T) {
	m := FlatEarth{}
	want := math.Pi * 6371.0087714 / 180.0

	for _, lon := range []float64{0, 45, -120} {
		dx, dy := m.Offset(lon, 10, lon, 11)
		if math.Abs(dx) > 1e-9 {
			t.Errorf("lon=%g: expected zero east offset, got %g", lon, dx)
		}
		if math.Abs(dy-want) > 1e-9 {
			t.Errorf("lon=%g: expected north offset %.6f km, got %.6f", lon, want, dy)
		}
	}
}

// TestFlatEarthLongitudeScaling verifies the cosine-of-latitude scaling of
// longitude offsets.
func TestFlatEarthLongitudeScaling(t *testing.T) {
	m := FlatEarth{}
	kmDeg := math.Pi * 6371.0087714 / 180.0

	// At the equator one degree of longitude is a full degree arc.
	dx, _ := m.Offset(10, 0, 11, 0)
	if math.Abs(dx-kmDeg) > 1e-9 {
		t.Errorf("Expected equatorial offset %.6f km, got %.6f", kmDeg, dx)
	}

	// At 60N it shrinks to cos(60) = 0.5 of that.
	dx, _ = m.Offset(10, 60, 11, 60)
	if math.Abs(dx-0.5*kmDeg) > 1e-9 {
		t.Errorf("Expected offset at 60N %.6f km, got %.6f", 0.5*kmDeg, dx)
	}
}

// TestFlatEarthDatelineWrap verifies that longitude differences wrap the
// short way around the dateline.
func TestFlatEarthDatelineWrap(t *testing.T) {
	m := FlatEarth{}

	// 179E to 179W is 2 degrees east, not 358 degrees west.
	dx, _ := m.Offset(179, 0, -179, 0)
	kmDeg := math.Pi * 6371.0087714 / 180.0
	if math.Abs(dx-2*kmDeg) > 1e-9 {
		t.Errorf("Expected wrapped offset %.6f km, got %.6f", 2*kmDeg, dx)
	}

	// And the reverse direction is 2 degrees west.
	dx, _ = m.Offset(-179, 0, 179, 0)
	if math.Abs(dx+2*kmDeg) > 1e-9 {
		t.Errorf("Expected wrapped offset %.6f km, got %.6f", -2*kmDeg, dx)
	}
}

// TestOffsetDistanceConsistency verifies that for both metrics the distance
// equals the Euclidean norm of the offset, which duplicate detection and the
// kernel both rely on.
func TestOffsetDistanceConsistency(t *testing.T) {
	cases := [][4]float64{
		{0, 0, 1, 1},
		{-5, 3, 2, -7},
		{120, 35, 121.5, 36.2},
		{179.5, -10, -179.5, -12},
	}

	for _, m := range []Metric{Cartesian{}, FlatEarth{}} {
		for _, c := range cases {
			dx, dy := m.Offset(c[0], c[1], c[2], c[3])
			want := math.Hypot(dx, dy)
			got := m.Distance(c[0], c[1], c[2], c[3])
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("%T: distance %.9f does not match offset norm %.9f for %v", m, got, want, c)
			}
		}
	}
}
