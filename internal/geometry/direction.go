package geometry

import "fmt"

// Direction identifies one of the eight resize handles on an element border.
type Direction int

const (
	NW Direction = iota
	NE
	SW
	SE
	N
	S
	W
	E
)

// Directions lists handles in enumeration order: corners first, then edge midpoints.
var Directions = [8]Direction{NW, NE, SW, SE, N, S, W, E}

// String returns the compass name of a Direction.
func (d Direction) String() string {
	switch d {
	case NW:
		return "nw"
	case NE:
		return "ne"
	case SW:
		return "sw"
	case SE:
		return "se"
	case N:
		return "n"
	case S:
		return "s"
	case W:
		return "w"
	case E:
		return "e"
	default:
		return "unknown"
	}
}

// ParseDirection is the inverse of String.
func ParseDirection(s string) (Direction, bool) {
	for _, d := range Directions {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, ok := ParseDirection(string(b))
	if !ok {
		return fmt.Errorf("unknown direction %q", b)
	}
	*d = v
	return nil
}

// IsCorner reports whether the handle sits on a corner.
func (d Direction) IsCorner() bool {
	return d == NW || d == NE || d == SW || d == SE
}

// MovesLeft reports whether dragging the handle moves the min x edge.
func (d Direction) MovesLeft() bool {
	return d == NW || d == SW || d == W
}

// MovesTop reports whether dragging the handle moves the min y edge.
func (d Direction) MovesTop() bool {
	return d == NW || d == NE || d == N
}

// Anchor returns the point on r's border the handle is centered on.
func (d Direction) Anchor(r Rect) Point {
	c := r.Center()
	switch d {
	case NW:
		return Point{X: r.X, Y: r.Y}
	case NE:
		return Point{X: r.Right(), Y: r.Y}
	case SW:
		return Point{X: r.X, Y: r.Bottom()}
	case SE:
		return Point{X: r.Right(), Y: r.Bottom()}
	case N:
		return Point{X: c.X, Y: r.Y}
	case S:
		return Point{X: c.X, Y: r.Bottom()}
	case W:
		return Point{X: r.X, Y: c.Y}
	case E:
		return Point{X: r.Right(), Y: c.Y}
	default:
		return c
	}
}
