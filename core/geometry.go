package core

import "math"

// Point is a position on the 2-D terrain, in metres.
type Point struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// cross returns the z-component of (a-o) × (b-o). Its sign tells which side
// of the directed line o→a the point b lies on.
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// onSegment reports whether a, known to be collinear with the segment o→b,
// falls inside that segment's bounding box.
func onSegment(o, a, b Point) bool {
	return math.Min(o.X, b.X) <= a.X && a.X <= math.Max(o.X, b.X) &&
		math.Min(o.Y, b.Y) <= a.Y && a.Y <= math.Max(o.Y, b.Y)
}

// SegmentsIntersect reports whether segment p1→p2 intersects segment p3→p4.
//
// It uses the standard cross-product orientation test: a proper crossing
// requires strictly opposite orientations on both sides, and the collinear
// cases fall back to bounding-box containment of the endpoint that produced
// a zero cross product.
func SegmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(p3, p1, p4):
		return true
	case d2 == 0 && onSegment(p3, p2, p4):
		return true
	case d3 == 0 && onSegment(p1, p3, p2):
		return true
	case d4 == 0 && onSegment(p1, p4, p2):
		return true
	}
	return false
}

// Rect is an axis-aligned rectangle with origin at its lower-left corner.
// Units are metres, matching Point.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Contains reports whether p lies inside the rectangle, bounds inclusive.
func (r Rect) Contains(p Point) bool {
	return r.X <= p.X && p.X <= r.X+r.Width &&
		r.Y <= p.Y && p.Y <= r.Y+r.Height
}

// edge is one side of a rectangle, parameterised as a + s·(b-a), s ∈ [0,1].
type edge struct {
	a, b Point
}

// edges returns the four boundary edges in counter-clockwise order.
func (r Rect) edges() [4]edge {
	bl := Point{r.X, r.Y}
	br := Point{r.X + r.Width, r.Y}
	tr := Point{r.X + r.Width, r.Y + r.Height}
	tl := Point{r.X, r.Y + r.Height}
	return [4]edge{{bl, br}, {br, tr}, {tr, tl}, {tl, bl}}
}

// rayInset keeps intersections found exactly at the source or destination
// from counting as wall crossings.
const rayInset = 0.01

// RayCrossesRect reports whether the ray from src to dst crosses any boundary
// edge of r, using the parametric form P = src + t·(dst − src) and accepting
// only crossings with t strictly inside (rayInset, 1−rayInset) whose
// intersection point lies within the edge's span.
//
// A destination inside the rectangle is not a crossing as far as this
// function is concerned; use Rect.Contains for the interior rule.
func RayCrossesRect(src, dst Point, r Rect) bool {
	dx := dst.X - src.X
	dy := dst.Y - src.Y

	for _, e := range r.edges() {
		ex := e.b.X - e.a.X
		ey := e.b.Y - e.a.Y

		denom := dx*ey - dy*ex
		if denom == 0 {
			continue // parallel, no proper crossing
		}

		// Solve src + t·d = e.a + s·e for (t, s).
		t := ((e.a.X-src.X)*ey - (e.a.Y-src.Y)*ex) / denom
		s := ((e.a.X-src.X)*dy - (e.a.Y-src.Y)*dx) / denom

		if t > rayInset && t < 1-rayInset && s >= 0 && s <= 1 {
			return true
		}
	}
	return false
}
