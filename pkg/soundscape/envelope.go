// ABOUTME: Attack/sustain/release amplitude envelope
// ABOUTME: Linear fades driven by a sound's age
package soundscape

import "time"

// envelope returns the amplitude in [0, 1] of a sound that has played for
// elapsed. A zero duration never releases.
func envelope(elapsed, duration, attack, release time.Duration) float64 {
	amp := 1.0
	if attack > 0 && elapsed < attack {
		amp = float64(elapsed) / float64(attack)
	}
	if duration > 0 && release > 0 {
		remaining := duration - elapsed
		if remaining < release {
			r := float64(remaining) / float64(release)
			if r < amp {
				amp = r
			}
		}
	}
	if amp < 0 {
		return 0
	}
	return amp
}
