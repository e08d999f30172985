package petsync

import (
	"math"
	"math/rand"
	"time"

	"deskpet-sync/internal/models"
)

// VisitorState is the lifecycle of an on-screen visitor
type VisitorState int

const (
	// Entering is the walk from a random screen edge toward the local pet
	Entering VisitorState = iota
	// Idle is the interaction window: the visitor stands still and is clickable
	Idle
	// Exiting is the walk from the current position to the opposite edge
	Exiting
	// Done is terminal; it signals the mailbox to clear its slot
	Done
)

// String returns the state name
func (s VisitorState) String() string {
	switch s {
	case Entering:
		return "entering"
	case Idle:
		return "idle"
	case Exiting:
		return "exiting"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Point is a position in screen coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Screen is the usable desktop area
type Screen struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Movement and timing constants for the visitor walk
const (
	visitorSpeed   = 120.0 // px per second
	enterTimeout   = 5 * time.Second
	idleTimeout    = 45 * time.Second
	bubbleDuration = 6 * time.Second
	targetOffset   = 90.0 // max offset from the local pet, both axes
)

// Visitor turns a delivered visit into a timed on-screen presence.
// Position is a pure function of elapsed time, with no rendering
// callback involved, so the whole walk is testable headless.
type Visitor struct {
	Visit models.Visit

	spawn  Point
	target Point
	exit   Point

	state       VisitorState
	pos         Point
	enteredAt   time.Time
	idleAt      time.Time
	exitStart   time.Time
	exitFrom    Point
	bubbleUntil time.Time
}

// NewVisitor spawns a visitor for a delivered visit: a random screen
// edge as the spawn point, a target near the local pet with a random
// offset, and an exit point on the opposite edge.
func NewVisitor(visit models.Visit, screen Screen, petPos Point, rnd *rand.Rand, now time.Time) *Visitor {
	edge := rnd.Intn(4)

	target := Point{
		X: clamp(petPos.X+(rnd.Float64()*2-1)*targetOffset, 0, screen.Width),
		Y: clamp(petPos.Y+(rnd.Float64()*2-1)*targetOffset, 0, screen.Height),
	}

	v := &Visitor{
		Visit:     visit,
		spawn:     pointOnEdge(screen, edge, rnd),
		target:    target,
		exit:      pointOnEdge(screen, (edge+2)%4, rnd),
		state:     Entering,
		enteredAt: now,
	}
	v.pos = v.spawn
	return v
}

// Advance moves the walk forward to the given instant and returns the
// resulting state. Entering ends on arrival at the target, with the
// dwell timer as an upper bound; Idle ends when the interaction window
// runs out; Exiting ends on arrival at the exit point.
func (v *Visitor) Advance(now time.Time) VisitorState {
	switch v.state {
	case Entering:
		arrived := v.walk(v.spawn, v.target, v.enteredAt, now)
		if arrived || now.Sub(v.enteredAt) >= enterTimeout {
			v.pos = v.target
			v.state = Idle
			v.idleAt = now
			if v.Visit.Message != "" {
				v.bubbleUntil = now.Add(bubbleDuration)
			}
		}
	case Idle:
		if now.Sub(v.idleAt) >= idleTimeout {
			v.SendHome(now)
		}
	case Exiting:
		if v.walk(v.exitFrom, v.exit, v.exitStart, now) {
			v.pos = v.exit
			v.state = Done
		}
	}
	return v.state
}

// walk moves pos along the from->to segment at fixed speed; reports arrival
func (v *Visitor) walk(from, to Point, since, now time.Time) bool {
	total := distance(from, to)
	if total == 0 {
		return true
	}
	travelled := visitorSpeed * now.Sub(since).Seconds()
	if travelled >= total {
		return true
	}
	t := travelled / total
	v.pos = Point{
		X: from.X + (to.X-from.X)*t,
		Y: from.Y + (to.Y-from.Y)*t,
	}
	return false
}

// ShowMessage displays a follow-up message from the same sender. The
// bubble re-shows without changing state or restarting the walk.
func (v *Visitor) ShowMessage(text string, now time.Time) {
	if v.state == Done || text == "" {
		return
	}
	v.Visit.Message = text
	v.bubbleUntil = now.Add(bubbleDuration)
}

// SendHome starts the exit walk from the current position
func (v *Visitor) SendHome(now time.Time) {
	if v.state == Done || v.state == Exiting {
		return
	}
	v.state = Exiting
	v.exitFrom = v.pos
	v.exitStart = now
}

// State returns the current lifecycle state
func (v *Visitor) State() VisitorState {
	return v.state
}

// Position returns the current screen position
func (v *Visitor) Position() Point {
	return v.pos
}

// BubbleVisible reports whether the message bubble is showing
func (v *Visitor) BubbleVisible(now time.Time) bool {
	return v.Visit.Message != "" && now.Before(v.bubbleUntil)
}

func pointOnEdge(screen Screen, edge int, rnd *rand.Rand) Point {
	switch edge {
	case 0: // top
		return Point{X: rnd.Float64() * screen.Width, Y: 0}
	case 1: // right
		return Point{X: screen.Width, Y: rnd.Float64() * screen.Height}
	case 2: // bottom
		return Point{X: rnd.Float64() * screen.Width, Y: screen.Height}
	default: // left
		return Point{X: 0, Y: rnd.Float64() * screen.Height}
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
