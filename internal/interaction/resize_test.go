package interaction

import (
	"testing"

	"github.com/reportforge/designer/internal/geometry"
)

func TestComputeResize(t *testing.T) {
	tests := []struct {
		name     string
		dir      geometry.Direction
		delta    geometry.Point
		size     geometry.Size
		pos      geometry.Point
		mods     ResizeModifiers
		wantSize geometry.Size
		wantPos  geometry.Point
	}{
		{
			name:     "se grows both axes",
			dir:      geometry.SE,
			delta:    geometry.Point{X: 10, Y: 20},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 5, Y: 5},
			wantSize: geometry.Size{Width: 110, Height: 70},
			wantPos:  geometry.Point{X: 5, Y: 5},
		},
		{
			name:     "nw moves origin",
			dir:      geometry.NW,
			delta:    geometry.Point{X: 10, Y: -10},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			wantSize: geometry.Size{Width: 90, Height: 60},
			wantPos:  geometry.Point{X: 10, Y: -10},
		},
		{
			name:     "n edge ignores x",
			dir:      geometry.N,
			delta:    geometry.Point{X: 40, Y: 5},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			wantSize: geometry.Size{Width: 100, Height: 45},
			wantPos:  geometry.Point{X: 0, Y: 5},
		},
		{
			name:     "w edge",
			dir:      geometry.W,
			delta:    geometry.Point{X: -15, Y: 30},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 20, Y: 20},
			wantSize: geometry.Size{Width: 115, Height: 50},
			wantPos:  geometry.Point{X: 5, Y: 20},
		},
		{
			name:     "clamp se",
			dir:      geometry.SE,
			delta:    geometry.Point{X: -200, Y: -200},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			wantSize: geometry.Size{Width: 20, Height: 20},
			wantPos:  geometry.Point{X: 0, Y: 0},
		},
		{
			name:     "clamp nw keeps opposite edge",
			dir:      geometry.NW,
			delta:    geometry.Point{X: 200, Y: 200},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			wantSize: geometry.Size{Width: 20, Height: 20},
			wantPos:  geometry.Point{X: 80, Y: 30},
		},
		{
			name:     "aspect lock shrinks width",
			dir:      geometry.SE,
			delta:    geometry.Point{X: 60, Y: 10},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			mods:     ResizeModifiers{AspectLock: true},
			wantSize: geometry.Size{Width: 120, Height: 60},
			wantPos:  geometry.Point{X: 0, Y: 0},
		},
		{
			name:     "aspect lock shrinks height",
			dir:      geometry.SE,
			delta:    geometry.Point{X: 20, Y: 40},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			mods:     ResizeModifiers{AspectLock: true},
			wantSize: geometry.Size{Width: 120, Height: 60},
			wantPos:  geometry.Point{X: 0, Y: 0},
		},
		{
			name:     "aspect lock nw keeps se corner",
			dir:      geometry.NW,
			delta:    geometry.Point{X: -60, Y: -10},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 100, Y: 100},
			mods:     ResizeModifiers{AspectLock: true},
			wantSize: geometry.Size{Width: 120, Height: 60},
			wantPos:  geometry.Point{X: 80, Y: 90},
		},
		{
			name:     "aspect lock exact ratio unchanged",
			dir:      geometry.SE,
			delta:    geometry.Point{X: 100, Y: 50},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			mods:     ResizeModifiers{AspectLock: true},
			wantSize: geometry.Size{Width: 200, Height: 100},
			wantPos:  geometry.Point{X: 0, Y: 0},
		},
		{
			name:     "aspect lock ignored on edges",
			dir:      geometry.E,
			delta:    geometry.Point{X: 60, Y: 0},
			size:     geometry.Size{Width: 100, Height: 50},
			pos:      geometry.Point{X: 0, Y: 0},
			mods:     ResizeModifiers{AspectLock: true},
			wantSize: geometry.Size{Width: 160, Height: 50},
			wantPos:  geometry.Point{X: 0, Y: 0},
		},
		{
			name:     "center scale east",
			dir:      geometry.E,
			delta:    geometry.Point{X: 20, Y: 0},
			size:     geometry.Size{Width: 40, Height: 40},
			pos:      geometry.Point{X: 100, Y: 100},
			mods:     ResizeModifiers{CenterScale: true},
			wantSize: geometry.Size{Width: 60, Height: 40},
			wantPos:  geometry.Point{X: 90, Y: 100},
		},
		{
			name:     "center scale clamp recenters",
			dir:      geometry.SE,
			delta:    geometry.Point{X: -100, Y: -100},
			size:     geometry.Size{Width: 40, Height: 40},
			pos:      geometry.Point{X: 100, Y: 100},
			mods:     ResizeModifiers{CenterScale: true},
			wantSize: geometry.Size{Width: 20, Height: 20},
			wantPos:  geometry.Point{X: 110, Y: 110},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, pos := ComputeResize(tt.dir, tt.delta, tt.size, tt.pos, tt.mods, 20)
			if size != tt.wantSize {
				t.Errorf("ComputeResize() size = %v, want %v", size, tt.wantSize)
			}
			if pos != tt.wantPos {
				t.Errorf("ComputeResize() pos = %v, want %v", pos, tt.wantPos)
			}
		})
	}
}

func TestComputeResizeCenterStaysFixed(t *testing.T) {
	size, pos := ComputeResize(geometry.E, geometry.Point{X: 20}, geometry.Size{Width: 40, Height: 40},
		geometry.Point{X: 100, Y: 100}, ResizeModifiers{CenterScale: true}, 20)

	c := geometry.RectFrom(pos, size).Center()
	if c != (geometry.Point{X: 120, Y: 120}) {
		t.Errorf("center = %v, want (120, 120)", c)
	}
}

func TestComputeResizeNeverBelowMinimum(t *testing.T) {
	for _, d := range geometry.Directions {
		for _, mods := range []ResizeModifiers{{}, {AspectLock: true}, {CenterScale: true}, {AspectLock: true, CenterScale: true}} {
			size, _ := ComputeResize(d, geometry.Point{X: 500, Y: 500}, geometry.Size{Width: 30, Height: 30},
				geometry.Point{}, mods, 20)
			if size.Width < 20 || size.Height < 20 {
				t.Errorf("ComputeResize(%s, %+v) = %v, want both sides >= 20", d, mods, size)
			}
		}
	}
}
