// ABOUTME: DBAP gain law
// ABOUTME: Blurred distances, rolloff exponent, power-normalised gains and proximity culling
package dbap

import "math"

const (
	// DistanceBlur keeps gains finite as a channel approaches a speaker
	DistanceBlur = 0.01

	// DefaultRolloffDB is the attenuation per doubling of distance
	DefaultRolloffDB = 6.0

	// ProximityLimit is the distance in metres beyond which a speaker is
	// considered too far from a channel to be worth mixing into
	ProximityLimit = 7.0
)

// Speaker is a speaker as seen by the panner
type Speaker struct {
	Point Point
	Zones Zones
}

// BlurredDistance returns sqrt(|a-b|² + blur²)
func BlurredDistance(a, b Point, blur float64) float64 {
	d := a.Sub(b)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + blur*blur)
}

// Exponent converts a rolloff in dB per doubling of distance into the
// distance exponent of the gain law.
func Exponent(rolloffDB float64) float64 {
	return rolloffDB / (20 * math.Log10(2))
}

// Gains writes the gain of every speaker for a channel at point into dst
// (reallocating when too small) and returns it. Gains are proportional to
// weight/distance^a and scaled so that their squares sum to 1. All-zero
// weights yield all-zero gains.
func Gains(dst []float64, point Point, speakers []Speaker, target Zones, rolloffDB float64) []float64 {
	dst = resize(dst, len(speakers))
	a := Exponent(rolloffDB)

	var sum float64
	for i, s := range speakers {
		w := Weight(target, s.Zones)
		if w == 0 {
			dst[i] = 0
			continue
		}
		g := w / math.Pow(BlurredDistance(point, s.Point, DistanceBlur), a)
		dst[i] = g
		sum += g * g
	}
	return normalise(dst, sum)
}

// InProximity reports whether a speaker at b is close enough to a channel at a
// to be mixed. It uses the plain distance, independent of gain.
func InProximity(a, b Point) bool {
	d := a.Sub(b)
	return d.X*d.X+d.Y*d.Y <= ProximityLimit*ProximityLimit
}

// normalise scales gains whose squares sum to sum so they sum to 1
func normalise(gains []float64, sum float64) []float64 {
	if sum == 0 {
		return gains
	}
	k := 1 / math.Sqrt(sum)
	for i := range gains {
		gains[i] *= k
	}
	return gains
}

func resize(dst []float64, n int) []float64 {
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}
