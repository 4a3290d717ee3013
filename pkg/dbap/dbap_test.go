// ABOUTME: Tests for the DBAP gain law
// ABOUTME: Checks power normalisation, zone weighting, blur and proximity
package dbap

import (
	"math"
	"testing"
)

func square() []Speaker {
	all := NewZones("main")
	return []Speaker{
		{Point: Point{X: 0, Y: 0}, Zones: all},
		{Point: Point{X: 4, Y: 0}, Zones: all},
		{Point: Point{X: 4, Y: 4}, Zones: all},
		{Point: Point{X: 0, Y: 4}, Zones: all},
	}
}

func sumSquares(g []float64) float64 {
	var s float64
	for _, v := range g {
		s += v * v
	}
	return s
}

func TestGainsArePowerNormalised(t *testing.T) {
	points := []Point{{0, 0}, {1, 1}, {2, 2}, {3.9, 0.1}, {-10, 20}, {4, 4}}
	for _, rolloff := range []float64{3, 6, 12} {
		for _, p := range points {
			g := Gains(nil, p, square(), nil, rolloff)
			if got := sumSquares(g); math.Abs(got-1) > 1e-9 {
				t.Errorf("rolloff %v at %+v: expected sum of squares 1, got %v", rolloff, p, got)
			}
		}
	}
}

func TestGainAtSpeakerIsFiniteAndMaximal(t *testing.T) {
	speakers := square()
	g := Gains(nil, speakers[2].Point, speakers, nil, DefaultRolloffDB)

	if math.IsInf(g[2], 0) || math.IsNaN(g[2]) {
		t.Fatalf("expected finite gain at zero distance, got %v", g[2])
	}
	for i, v := range g {
		if i != 2 && v >= g[2] {
			t.Errorf("speaker %d gain %v not below co-located speaker gain %v", i, v, g[2])
		}
	}
	if g[2] < 0.99 {
		t.Errorf("expected co-located speaker to take nearly all power, got %v", g[2])
	}
}

func TestCentreIsEqualGain(t *testing.T) {
	g := Gains(nil, Point{X: 2, Y: 2}, square(), nil, DefaultRolloffDB)
	for i, v := range g {
		if math.Abs(v-0.5) > 1e-9 {
			t.Errorf("speaker %d: expected 0.5 at the centre, got %v", i, v)
		}
	}
}

func TestZoneWeighting(t *testing.T) {
	speakers := []Speaker{
		{Point: Point{X: 0, Y: 0}, Zones: NewZones("lobby")},
		{Point: Point{X: 1, Y: 0}, Zones: NewZones("hall")},
		{Point: Point{X: 2, Y: 0}, Zones: NewZones("hall", "lobby")},
	}

	tests := []struct {
		name   string
		target Zones
		zero   []bool
	}{
		{"all zones", NewZones(), []bool{false, false, false}},
		{"lobby", NewZones("lobby"), []bool{false, true, false}},
		{"hall", NewZones("hall"), []bool{true, false, false}},
		{"nowhere", NewZones("garden"), []bool{true, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Gains(nil, Point{X: 0.5, Y: 1}, speakers, tt.target, DefaultRolloffDB)
			for i, v := range g {
				if tt.zero[i] && v != 0 {
					t.Errorf("speaker %d: expected zero gain, got %v", i, v)
				}
				if !tt.zero[i] && v <= 0 {
					t.Errorf("speaker %d: expected positive gain, got %v", i, v)
				}
			}
		})
	}
}

func TestDisjointZoneGainNeverExceedsMatching(t *testing.T) {
	matching := Speaker{Point: Point{X: 3, Y: 0}, Zones: NewZones("a")}
	disjoint := Speaker{Point: Point{X: 0, Y: 0}, Zones: NewZones("b")}

	g := Gains(nil, Point{}, []Speaker{matching, disjoint}, NewZones("a"), DefaultRolloffDB)
	if g[1] > g[0] {
		t.Errorf("disjoint speaker gain %v exceeds matching speaker gain %v", g[1], g[0])
	}
}

func TestAllZeroWeights(t *testing.T) {
	elsewhere := NewZones("b")
	speakers := []Speaker{
		{Point: Point{X: 1}, Zones: elsewhere},
		{Point: Point{X: 2}, Zones: elsewhere},
	}
	g := Gains(nil, Point{}, speakers, NewZones("a"), DefaultRolloffDB)
	for i, v := range g {
		if v != 0 {
			t.Errorf("speaker %d: expected 0, got %v", i, v)
		}
	}
}

func TestGainsMatchGainLaw(t *testing.T) {
	// 6.0206 dB is exactly one doubling, so gains are proportional to 1/d
	rolloff := 20 * math.Log10(2)
	all := NewZones("main")
	speakers := []Speaker{
		{Point: Point{X: 1}, Zones: all},
		{Point: Point{X: 2}, Zones: all},
	}
	g := Gains(nil, Point{}, speakers, nil, rolloff)

	if ratio := g[0] / g[1]; math.Abs(ratio-2) > 1e-4 {
		t.Errorf("expected gain ratio 2, got %v", ratio)
	}
	if want := 2 / math.Sqrt(5); math.Abs(g[0]-want) > 1e-4 {
		t.Errorf("expected %v, got %v", want, g[0])
	}
}

func TestGainsReuseDestination(t *testing.T) {
	dst := make([]float64, 0, 8)
	g := Gains(dst, Point{}, square()[:1], nil, DefaultRolloffDB)
	if &g[0] != &dst[:1][0] {
		t.Error("expected gains to be written into dst")
	}
}

func TestBlurredDistance(t *testing.T) {
	if d := BlurredDistance(Point{}, Point{}, DistanceBlur); d != DistanceBlur {
		t.Errorf("expected blur at zero distance, got %v", d)
	}
	if d := BlurredDistance(Point{}, Point{X: 3, Y: 4}, 0); d != 5 {
		t.Errorf("expected 5, got %v", d)
	}
}

func TestInProximity(t *testing.T) {
	tests := []struct {
		b    Point
		want bool
	}{
		{Point{X: 0, Y: 0}, true},
		{Point{X: 6.9, Y: 0}, true},
		{Point{X: 7, Y: 0}, true},
		{Point{X: 5, Y: 5}, false},
		{Point{X: -8, Y: 0}, false},
	}
	for _, tt := range tests {
		if got := InProximity(Point{}, tt.b); got != tt.want {
			t.Errorf("InProximity(%+v) = %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestChannelPoint(t *testing.T) {
	centre := Point{X: 1, Y: 1}
	if p := ChannelPoint(centre, 0, 1, 2, 0); p != centre {
		t.Errorf("expected mono channel at centre, got %+v", p)
	}

	left := ChannelPoint(centre, 0, 2, 2, 0)
	right := ChannelPoint(centre, 1, 2, 2, 0)
	if math.Abs(left.X-3) > 1e-9 || math.Abs(right.X+1) > 1e-9 {
		t.Errorf("expected stereo channels at x=3 and x=-1, got %+v and %+v", left, right)
	}
	if d := left.Dist(centre); math.Abs(d-2) > 1e-9 {
		t.Errorf("expected channel at spread distance, got %v", d)
	}
}

func TestBoundsOf(t *testing.T) {
	if _, ok := BoundsOf(nil); ok {
		t.Error("expected no bounds for no points")
	}
	b, ok := BoundsOf([]Point{{1, 5}, {-2, 3}, {4, -1}})
	if !ok {
		t.Fatal("expected bounds")
	}
	if b.Min != (Point{-2, -1}) || b.Max != (Point{4, 5}) {
		t.Errorf("unexpected bounds %+v", b)
	}
	if !b.Contains(Point{0, 0}) || b.Contains(Point{5, 0}) {
		t.Error("unexpected containment")
	}
	if c := b.Clamp(Point{10, -10}); c != (Point{4, -1}) {
		t.Errorf("unexpected clamp %+v", c)
	}
}

func TestZones(t *testing.T) {
	z := NewZones("b", " a ", "")
	if len(z) != 2 || !z.Contains("a") {
		t.Errorf("unexpected zones %v", z.Names())
	}
	if z.String() != "a,b" {
		t.Errorf("expected a,b, got %s", z.String())
	}
	if NewZones().String() != "all" {
		t.Error("expected empty set to read as all")
	}
	if Weight(NewZones("x"), z) != 0 || Weight(nil, z) != 1 || Weight(NewZones("b"), z) != 1 {
		t.Error("unexpected weights")
	}
}
