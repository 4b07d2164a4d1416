// Package glyph renders the heart-shaped progress icon shown in the tray.
//
// Geometry is kept as retained path data so it can be inspected and tested
// without rasterizing.
package glyph

import (
	"math"

	"golang.org/x/image/vector"
)

// Point is a position in canvas pixels.
type Point struct {
	X, Y float64
}

// Cubic is a cubic Bézier segment from the previous end point through
// control points C1 and C2 to To.
type Cubic struct {
	C1, C2, To Point
}

// Path is a closed outline: a start point followed by cubic segments.
type Path struct {
	Start    Point
	Segments []Cubic
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min, Max Point
}

// Dx returns the width of r.
func (r Rect) Dx() float64 { return r.Max.X - r.Min.X }

// Dy returns the height of r.
func (r Rect) Dy() float64 { return r.Max.Y - r.Min.Y }

// Heart builds the heart outline centered at (cx, cy) inside a w×h box.
// The tip sits at the bottom center, the cusp 15% below the top edge, and
// the lobes bulge toward x = cx ∓ w/2 around y = cy.
func Heart(cx, cy, w, h float64) Path {
	left := cx - w/2
	right := cx + w/2
	top := cy - h/2
	bottom := cy + h/2
	cusp := top + h*0.15

	return Path{
		Start: Point{cx, bottom},
		Segments: []Cubic{
			// tip to left lobe
			{C1: Point{left + w*0.25, bottom - h*0.1}, C2: Point{left, cy}, To: Point{left + w*0.1, cusp}},
			// left lobe over to the cusp
			{C1: Point{left + w*0.15, top + h*0.05}, C2: Point{cx - w*0.05, top + h*0.1}, To: Point{cx, cusp}},
			// cusp over to the right lobe
			{C1: Point{cx + w*0.05, top + h*0.1}, C2: Point{right - w*0.15, top + h*0.05}, To: Point{right - w*0.1, cusp}},
			// right lobe back down to the tip
			{C1: Point{right, cy}, C2: Point{right - w*0.25, bottom - h*0.1}, To: Point{cx, bottom}},
		},
	}
}

func cubicAt(p0 Point, c Cubic, t float64) Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	d := 3 * mt * t * t
	e := t * t * t
	return Point{
		X: a*p0.X + b*c.C1.X + d*c.C2.X + e*c.To.X,
		Y: a*p0.Y + b*c.C1.Y + d*c.C2.Y + e*c.To.Y,
	}
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Flatten approximates the outline with a polyline whose chords deviate
// from the curve by roughly tolerance pixels. The result starts at Start
// and ends back on it.
func (p Path) Flatten(tolerance float64) []Point {
	if tolerance <= 0 {
		tolerance = 0.1
	}
	pts := []Point{p.Start}
	prev := p.Start
	for _, seg := range p.Segments {
		hull := dist(prev, seg.C1) + dist(seg.C1, seg.C2) + dist(seg.C2, seg.To)
		n := int(math.Ceil(math.Sqrt(hull / tolerance)))
		n = max(n, 4)
		for i := 1; i <= n; i++ {
			pts = append(pts, cubicAt(prev, seg, float64(i)/float64(n)))
		}
		prev = seg.To
	}
	return pts
}

// Bounds returns the bounding box of the curve itself, which is tighter
// than the w×h box passed to Heart because control points lie outside it.
func (p Path) Bounds() Rect {
	pts := p.Flatten(0.01)
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, pt := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, pt.X)
		r.Min.Y = math.Min(r.Min.Y, pt.Y)
		r.Max.X = math.Max(r.Max.X, pt.X)
		r.Max.Y = math.Max(r.Max.Y, pt.Y)
	}
	return r
}

// Contains reports whether pt lies inside the outline (even-odd rule on
// the flattened polygon).
func (p Path) Contains(pt Point) bool {
	poly := p.Flatten(0.05)
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// addTo feeds the outline to a rasterizer.
func (p Path) addTo(z *vector.Rasterizer) {
	z.MoveTo(float32(p.Start.X), float32(p.Start.Y))
	for _, s := range p.Segments {
		z.CubeTo(
			float32(s.C1.X), float32(s.C1.Y),
			float32(s.C2.X), float32(s.C2.Y),
			float32(s.To.X), float32(s.To.Y),
		)
	}
	z.ClosePath()
}
