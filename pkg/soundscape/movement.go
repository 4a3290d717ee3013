// ABOUTME: Procedural movement of active sounds
// ABOUTME: Fixed points, n-gon paths and steering agents
package soundscape

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/audioscape/audioscape/pkg/dbap"
)

// MovementKind selects a movement generator
type MovementKind int

const (
	MoveFixed MovementKind = iota
	MoveNgon
	MoveAgent
)

func (k MovementKind) String() string {
	switch k {
	case MoveFixed:
		return "fixed"
	case MoveNgon:
		return "ngon"
	case MoveAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// Movement configures how a source's sounds travel
type Movement struct {
	Kind  MovementKind
	Ngon  Ngon
	Agent Agent
}

// Ngon moves a sound around the perimeter of a regular polygon centred on
// its spawn point.
type Ngon struct {
	Vertices int
	// Radius from the centre to each vertex, in metres
	Radius float64
	// Speed along the perimeter in metres per second
	Speed float64
	// Phase is where on the perimeter the sound starts, as a fraction in [0, 1)
	Phase float64
}

// Agent wanders the sound towards random targets inside the area served by
// its zones.
type Agent struct {
	// MaxSpeed in metres per second
	MaxSpeed float64
	// MaxForce is the steering acceleration limit in metres per second²
	MaxForce float64
}

// Mover advances a sound's position by dt
type Mover interface {
	Step(dt time.Duration) dbap.Position
}

// arriveDistance is how close an agent gets before choosing a new target
const arriveDistance = 0.25

func newMover(m Movement, start dbap.Point, bounds dbap.Bounds, rng *rand.Rand) Mover {
	switch m.Kind {
	case MoveNgon:
		return newNgonMover(m.Ngon, start)
	case MoveAgent:
		return newAgentMover(m.Agent, start, bounds, rng)
	default:
		return &fixedMover{position: dbap.Position{Point: start}}
	}
}

type fixedMover struct {
	position dbap.Position
}

func (f *fixedMover) Step(time.Duration) dbap.Position { return f.position }

type ngonMover struct {
	vertices  []dbap.Point
	side      float64
	speed     float64
	travelled float64
}

func newNgonMover(n Ngon, centre dbap.Point) *ngonMover {
	count := n.Vertices
	if count < 3 {
		count = 3
	}
	vertices := make([]dbap.Point, count)
	for i := range vertices {
		angle := 2 * math.Pi * float64(i) / float64(count)
		vertices[i] = dbap.Point{
			X: centre.X + n.Radius*math.Cos(angle),
			Y: centre.Y + n.Radius*math.Sin(angle),
		}
	}
	side := vertices[0].Dist(vertices[1])
	phase := n.Phase - math.Floor(n.Phase)
	return &ngonMover{
		vertices:  vertices,
		side:      side,
		speed:     n.Speed,
		travelled: phase * side * float64(count),
	}
}

func (g *ngonMover) Step(dt time.Duration) dbap.Position {
	perimeter := g.side * float64(len(g.vertices))
	if perimeter == 0 {
		return dbap.Position{Point: g.vertices[0]}
	}
	g.travelled = math.Mod(g.travelled+g.speed*dt.Seconds(), perimeter)
	if g.travelled < 0 {
		g.travelled += perimeter
	}

	i := int(g.travelled / g.side)
	if i >= len(g.vertices) {
		i = len(g.vertices) - 1
	}
	t := (g.travelled - float64(i)*g.side) / g.side
	from := g.vertices[i]
	to := g.vertices[(i+1)%len(g.vertices)]
	dir := to.Sub(from)
	return dbap.Position{
		Point:   from.Add(dir.Scale(t)),
		Radians: math.Atan2(dir.Y, dir.X),
	}
}

type agentMover struct {
	config   Agent
	bounds   dbap.Bounds
	rng      *rand.Rand
	point    dbap.Point
	velocity dbap.Point
	target   dbap.Point
	radians  float64
}

func newAgentMover(a Agent, start dbap.Point, bounds dbap.Bounds, rng *rand.Rand) *agentMover {
	m := &agentMover{
		config: a,
		bounds: bounds,
		rng:    rng,
		point:  start,
	}
	m.target = randomPoint(bounds, rng)
	return m
}

func (a *agentMover) Step(dt time.Duration) dbap.Position {
	secs := dt.Seconds()
	if a.point.Dist(a.target) < arriveDistance {
		a.target = randomPoint(a.bounds, a.rng)
	}

	desired := a.target.Sub(a.point)
	if l := desired.Len(); l > 0 {
		desired = desired.Scale(a.config.MaxSpeed / l)
	}
	steer := limit(desired.Sub(a.velocity), a.config.MaxForce)
	a.velocity = limit(a.velocity.Add(steer.Scale(secs)), a.config.MaxSpeed)
	a.point = a.bounds.Clamp(a.point.Add(a.velocity.Scale(secs)))

	if a.velocity.Len() > 0 {
		a.radians = math.Atan2(a.velocity.Y, a.velocity.X)
	}
	return dbap.Position{Point: a.point, Radians: a.radians}
}

// limit scales v down to at most maxLen long
func limit(v dbap.Point, maxLen float64) dbap.Point {
	if l := v.Len(); l > maxLen && l > 0 {
		return v.Scale(maxLen / l)
	}
	return v
}

// randomPoint returns a point uniformly distributed in b
func randomPoint(b dbap.Bounds, rng *rand.Rand) dbap.Point {
	return dbap.Point{
		X: b.Min.X + rng.Float64()*(b.Max.X-b.Min.X),
		Y: b.Min.Y + rng.Float64()*(b.Max.Y-b.Min.Y),
	}
}
