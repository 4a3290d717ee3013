// ABOUTME: Installation zones that speakers serve and sounds target
// ABOUTME: Zone sets and the DBAP weight derived from them
package dbap

import (
	"sort"
	"strings"
)

// Zone names one installation area of the room
type Zone string

// Zones is a set of zones. An empty set as a sound's target means every zone.
type Zones map[Zone]struct{}

// NewZones builds a set from names, ignoring empty ones
func NewZones(names ...string) Zones {
	z := make(Zones, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			z[Zone(n)] = struct{}{}
		}
	}
	return z
}

// Contains reports whether zone is in the set
func (z Zones) Contains(zone Zone) bool {
	_, ok := z[zone]
	return ok
}

// Intersects reports whether the two sets share a zone
func (z Zones) Intersects(other Zones) bool {
	small, large := z, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for zone := range small {
		if large.Contains(zone) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy
func (z Zones) Clone() Zones {
	c := make(Zones, len(z))
	for zone := range z {
		c[zone] = struct{}{}
	}
	return c
}

// Names returns the zone names in sorted order
func (z Zones) Names() []string {
	names := make([]string, 0, len(z))
	for zone := range z {
		names = append(names, string(zone))
	}
	sort.Strings(names)
	return names
}

func (z Zones) String() string {
	if len(z) == 0 {
		return "all"
	}
	return strings.Join(z.Names(), ",")
}

// Weight is the DBAP weight of a speaker serving speakerZones for a sound
// targeting target: 1 when the target covers all zones or shares a zone with
// the speaker, 0 otherwise.
func Weight(target, speakerZones Zones) float64 {
	if len(target) == 0 || target.Intersects(speakerZones) {
		return 1
	}
	return 0
}
