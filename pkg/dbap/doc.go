// ABOUTME: Distance-based amplitude panning package
// ABOUTME: Computes per-speaker gains for a sound channel from distances and zone weights
// Package dbap implements distance-based amplitude panning (DBAP).
//
// Every channel of a playing sound sits at a point in the room. For each
// speaker the channel's gain falls off with distance at a rate set by the
// rolloff in dB per doubling of distance, and the whole gain vector is
// normalised so that the sum of squared gains is 1. A sound moving through
// the room therefore crossfades between nearby speakers without changing
// perceived loudness.
//
// Speakers only take part when they serve one of the zones the sound targets:
//
//	speakers := []dbap.Speaker{
//	    {Point: dbap.Point{X: 0, Y: 0}, Zones: dbap.NewZones("lobby")},
//	    {Point: dbap.Point{X: 4, Y: 0}, Zones: dbap.NewZones("hall")},
//	}
//	gains := dbap.Gains(nil, dbap.Point{X: 1}, speakers, dbap.NewZones("lobby"), dbap.DefaultRolloffDB)
package dbap
