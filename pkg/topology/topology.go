// Package topology computes the boundaries shared by overlapping rasters
// and the clip polygons used to restrict them.
package topology

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/raster"
)

// Topology is the clipping topology a mosaic consults
type Topology interface {
	// Boundary returns the polyline separating a from b
	Boundary(a, b raster.Raster) (*geometry.Polyline, bool)

	// ClipPolygon returns the shape r is restricted to, in r's coordinate
	// system. A nil shape with true means r needs no clipping.
	ClipPolygon(r raster.Raster) (*geometry.Shape, bool)
}

// DefaultSamples is the number of scanlines used to trace a boundary
const DefaultSamples = 16

// Planar is a Topology working in a single coordinate system. The seam
// between two shapes runs through the middle of their common region.
type Planar struct {
	cs        *geometry.CoordSys
	domain    *orb.Bound
	samples   int
	tolerance float64
}

// NewPlanar creates a topology working in cs
func NewPlanar(cs *geometry.CoordSys) *Planar {
	return &Planar{cs: cs, samples: DefaultSamples, tolerance: 1e-6}
}

// SetDomain restricts every clip polygon to bound, expressed in the topology's system
func (p *Planar) SetDomain(bound orb.Bound) {
	p.domain = &bound
}

// SetSamples sets the number of scanlines used to trace a boundary
func (p *Planar) SetSamples(n int) {
	if n > 1 {
		p.samples = n
	}
}

// ClipPolygon returns the effective shape of r limited to the domain. Without
// a domain nothing needs clipping and the shape is nil.
func (p *Planar) ClipPolygon(r raster.Raster) (*geometry.Shape, bool) {
	if p.domain == nil {
		return nil, true
	}
	shape := r.EffectiveShape()
	in, err := shape.In(p.cs)
	if err != nil {
		return nil, false
	}
	clipped := in.Clip(*p.domain)
	if clipped.IsEmpty() {
		return nil, false
	}
	back, err := clipped.In(shape.CoordSys())
	if err != nil {
		return nil, false
	}
	return back, true
}

// Boundary traces the seam between a and b. Shapes that only meet at a
// corner, or do not meet, have no boundary.
func (p *Planar) Boundary(a, b raster.Raster) (*geometry.Polyline, bool) {
	sa, err := a.EffectiveShape().In(p.cs)
	if err != nil {
		return nil, false
	}
	sb, err := b.EffectiveShape().In(p.cs)
	if err != nil {
		return nil, false
	}

	ea, eb := sa.Extent(), sb.Extent()
	overlap := orb.Bound{
		Min: orb.Point{math.Max(ea.Min[0], eb.Min[0]), math.Max(ea.Min[1], eb.Min[1])},
		Max: orb.Point{math.Min(ea.Max[0], eb.Max[0]), math.Min(ea.Max[1], eb.Max[1])},
	}
	w, h := overlap.Max[0]-overlap.Min[0], overlap.Max[1]-overlap.Min[1]
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return nil, false
	}

	// A seam crossing a tall overlap runs vertically
	vertical := w <= h
	lo, hi := overlap.Min[0], overlap.Max[0]
	if vertical {
		lo, hi = overlap.Min[1], overlap.Max[1]
	}

	var line orb.LineString
	for i := 0; i <= p.samples; i++ {
		v := lo + (hi-lo)*float64(i)/float64(p.samples)
		a0, a1, okA := span(sa.MultiPolygon(), v, vertical)
		b0, b1, okB := span(sb.MultiPolygon(), v, vertical)
		if !okA || !okB {
			continue
		}
		s0, s1 := math.Max(a0, b0), math.Min(a1, b1)
		if s0 > s1 {
			continue
		}
		mid := (s0 + s1) / 2
		if vertical {
			line = append(line, orb.Point{mid, v})
		} else {
			line = append(line, orb.Point{v, mid})
		}
	}
	if len(line) < 2 {
		return nil, false
	}

	simplified, ok := simplify.DouglasPeucker(p.tolerance).Simplify(line.Clone()).(orb.LineString)
	if !ok || len(simplified) < 2 {
		simplified = line
	}
	return geometry.NewPolyline(p.cs, simplified), true
}

// span returns the range covered by mp along the scanline at v. A
// vertical seam is traced with horizontal scanlines (y = v) and the range
// is in x, otherwise the scanline is x = v and the range is in y.
func span(mp orb.MultiPolygon, v float64, vertical bool) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	along, across := 1, 0
	if !vertical {
		along, across = 0, 1
	}
	for _, poly := range mp {
		for _, ring := range poly {
			n := len(ring)
			for i := 0; i < n; i++ {
				p, q := ring[i], ring[(i+1)%n]
				pv, qv := p[along], q[along]
				if (pv < v && qv < v) || (pv > v && qv > v) {
					continue
				}
				if pv == qv {
					// Edge lies on the scanline
					lo = math.Min(lo, math.Min(p[across], q[across]))
					hi = math.Max(hi, math.Max(p[across], q[across]))
					continue
				}
				t := (v - pv) / (qv - pv)
				x := p[across] + t*(q[across]-p[across])
				lo, hi = math.Min(lo, x), math.Max(hi, x)
			}
		}
	}
	return lo, hi, lo <= hi
}
