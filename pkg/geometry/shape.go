package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// Shape is an area expressed in a coordinate system. Polygons in the
// multipolygon may overlap; the shape covers their union.
type Shape struct {
	cs *CoordSys
	mp orb.MultiPolygon
}

// NewShape wraps a multipolygon expressed in cs
func NewShape(cs *CoordSys, mp orb.MultiPolygon) *Shape {
	return &Shape{cs: cs, mp: mp}
}

// RectShape returns the rectangle b expressed in cs
func RectShape(cs *CoordSys, b orb.Bound) *Shape {
	return &Shape{cs: cs, mp: orb.MultiPolygon{b.ToPolygon()}}
}

// EmptyShape returns a shape covering nothing
func EmptyShape(cs *CoordSys) *Shape {
	return &Shape{cs: cs}
}

// CoordSys returns the coordinate system the shape is expressed in
func (s *Shape) CoordSys() *CoordSys {
	return s.cs
}

// MultiPolygon returns the polygons of the shape
func (s *Shape) MultiPolygon() orb.MultiPolygon {
	return s.mp
}

// IsEmpty reports whether the shape has no polygon with area
func (s *Shape) IsEmpty() bool {
	return len(s.mp) == 0 || planar.Area(s.mp) == 0
}

// Extent returns the axis-aligned bounding box in the shape's own system
func (s *Shape) Extent() orb.Bound {
	return s.mp.Bound()
}

// In re-expresses the shape in cs
func (s *Shape) In(cs *CoordSys) (*Shape, error) {
	if cs == s.cs {
		return s, nil
	}
	t, err := s.cs.TransfoTo(cs)
	if err != nil {
		return nil, err
	}
	out := make(orb.MultiPolygon, len(s.mp))
	for i, poly := range s.mp {
		p := make(orb.Polygon, len(poly))
		for j, ring := range poly {
			r := make(orb.Ring, len(ring))
			for k, pt := range ring {
				r[k] = t.Apply(pt)
			}
			p[j] = r
		}
		out[i] = p
	}
	return &Shape{cs: cs, mp: out}, nil
}

// ExtentIn returns the bounding box of the shape re-expressed in cs
func (s *Shape) ExtentIn(cs *CoordSys) (orb.Bound, error) {
	in, err := s.In(cs)
	if err != nil {
		return orb.Bound{}, err
	}
	return in.Extent(), nil
}

// Union returns a shape covering both s and o, expressed in s's system
func (s *Shape) Union(o *Shape) (*Shape, error) {
	if o == nil || len(o.mp) == 0 {
		return s, nil
	}
	in, err := o.In(s.cs)
	if err != nil {
		return nil, fmt.Errorf("union: %w", err)
	}
	mp := make(orb.MultiPolygon, 0, len(s.mp)+len(in.mp))
	mp = append(mp, s.mp...)
	mp = append(mp, in.mp...)
	return &Shape{cs: s.cs, mp: mp}, nil
}

// Contains reports whether p lies in the shape, boundary included
func (s *Shape) Contains(p orb.Point) bool {
	return planar.MultiPolygonContains(s.mp, p)
}

// Clip returns the part of the shape inside b
func (s *Shape) Clip(b orb.Bound) *Shape {
	clipped := clip.MultiPolygon(b, s.mp.Clone())
	return &Shape{cs: s.cs, mp: clipped}
}

// Polyline is a line string expressed in a coordinate system
type Polyline struct {
	cs *CoordSys
	ls orb.LineString
}

// NewPolyline wraps a line string expressed in cs
func NewPolyline(cs *CoordSys, ls orb.LineString) *Polyline {
	return &Polyline{cs: cs, ls: ls}
}

// CoordSys returns the coordinate system the polyline is expressed in
func (p *Polyline) CoordSys() *CoordSys {
	return p.cs
}

// LineString returns the points of the polyline
func (p *Polyline) LineString() orb.LineString {
	return p.ls
}

// Extent returns the bounding box of the polyline
func (p *Polyline) Extent() orb.Bound {
	return p.ls.Bound()
}

// In re-expresses the polyline in cs
func (p *Polyline) In(cs *CoordSys) (*Polyline, error) {
	if cs == p.cs {
		return p, nil
	}
	t, err := p.cs.TransfoTo(cs)
	if err != nil {
		return nil, err
	}
	ls := make(orb.LineString, len(p.ls))
	for i, pt := range p.ls {
		ls[i] = t.Apply(pt)
	}
	return &Polyline{cs: cs, ls: ls}, nil
}
