package geometry

import (
	"math"
	"testing"
)

func TestRectIntersects(t *testing.T) {
	sel := Rect{X: 10, Y: 10, Width: 20, Height: 20}
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"overlap", Rect{X: 25, Y: 25, Width: 10, Height: 10}, true},
		{"contained", Rect{X: 12, Y: 12, Width: 2, Height: 2}, true},
		{"contains selection", Rect{X: 0, Y: 0, Width: 100, Height: 100}, true},
		{"touching right edge", Rect{X: 30, Y: 10, Width: 5, Height: 5}, true},
		{"touching bottom edge", Rect{X: 10, Y: 30, Width: 5, Height: 5}, true},
		{"left of", Rect{X: 0, Y: 10, Width: 9.5, Height: 5}, false},
		{"below", Rect{X: 10, Y: 30.1, Width: 5, Height: 5}, false},
		{"disjoint on x only", Rect{X: 40, Y: 12, Width: 5, Height: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sel.Intersects(tt.r); got != tt.want {
				t.Errorf("Intersects(%v) = %v, want %v", tt.r, got, tt.want)
			}
			if got := tt.r.Intersects(sel); got != tt.want {
				t.Errorf("symmetric Intersects(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 10, Y: 20, Width: 30, Height: 30}
	tests := []struct {
		name string
		b    Rect
		want Rect
	}{
		{"disjoint", Rect{X: 100, Y: 0, Width: 20, Height: 10}, Rect{X: 10, Y: 0, Width: 110, Height: 50}},
		{"contained", Rect{X: 15, Y: 25, Width: 5, Height: 5}, a},
		{"empty", Rect{X: 500, Y: 500}, a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Union(tt.b); got != tt.want {
				t.Errorf("Union(%v) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
	if got := (Rect{}).Union(a); got != a {
		t.Errorf("empty Union(%v) = %v, want %v", a, got, a)
	}
	if !(Rect{Width: 5}).IsEmpty() {
		t.Error("IsEmpty() = false for zero height")
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(Point{X: 50, Y: 10}, Point{X: 20, Y: 40})
	want := Rect{X: 20, Y: 10, Width: 30, Height: 30}
	if got != want {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}
}

func TestContainsEdges(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	if !r.Contains(Point{X: 10, Y: 10}) {
		t.Error("Contains should include the max edge")
	}
	if r.ContainsHalfOpen(Point{X: 10, Y: 5}) {
		t.Error("ContainsHalfOpen should exclude the max edge")
	}
	if !r.ContainsHalfOpen(Point{X: 0, Y: 0}) {
		t.Error("ContainsHalfOpen should include the min edge")
	}
}

func TestDirectionAnchor(t *testing.T) {
	r := Rect{X: 100, Y: 50, Width: 40, Height: 20}
	tests := []struct {
		d    Direction
		want Point
	}{
		{NW, Point{X: 100, Y: 50}},
		{NE, Point{X: 140, Y: 50}},
		{SW, Point{X: 100, Y: 70}},
		{SE, Point{X: 140, Y: 70}},
		{N, Point{X: 120, Y: 50}},
		{S, Point{X: 120, Y: 70}},
		{W, Point{X: 100, Y: 60}},
		{E, Point{X: 140, Y: 60}},
	}
	for _, tt := range tests {
		if got := tt.d.Anchor(r); got != tt.want {
			t.Errorf("%s.Anchor() = %v, want %v", tt.d, got, tt.want)
		}
		back, ok := ParseDirection(tt.d.String())
		if !ok || back != tt.d {
			t.Errorf("ParseDirection(%q) = %v, %v", tt.d.String(), back, ok)
		}
	}
}

func TestViewportRoundTrip(t *testing.T) {
	m := Viewport(2, 30, -10)
	canvas := Point{X: 12.5, Y: 40}
	screen := m.Apply(canvas)
	if screen != (Point{X: 55, Y: 70}) {
		t.Fatalf("Apply() = %v, want {55 70}", screen)
	}
	back := m.Invert().Apply(screen)
	if math.Abs(back.X-canvas.X) > 1e-9 || math.Abs(back.Y-canvas.Y) > 1e-9 {
		t.Errorf("Invert().Apply() = %v, want %v", back, canvas)
	}
	if !m.Multiply(m.Invert()).IsIdentity() {
		t.Error("m * m^-1 should be identity")
	}
}
